package integration

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/beefy-bridge/bridge/contracts/ethapp"
	"github.com/rony4d/beefy-bridge/inter"
)

// SimulationConfig of a devnet run.
type SimulationConfig struct {
	Rounds           int
	MessagesPerRound int
	// Amount locked per round and unlocked per message.
	Amount uint64
	// Sender locks, Recipient receives the unlocked value.
	Sender    common.Address
	Recipient common.Address
}

// SimulationResult summarizes a devnet run.
type SimulationResult struct {
	Completions int
	Delivered   int
	Failed      int
	BeefyBlock  uint64
	MMRRoot     common.Hash
	Nonce       uint64
	Locked      *uint256.Int
	Unlocked    *uint256.Int
}

// Simulate runs the bridge in both directions: every round locks value
// through the outbound channel, then relays unlock messages for part of it
// back through the light client and the inbound channel.
func Simulate(b *Bridge, r *Relay, cfg SimulationConfig) (SimulationResult, error) {
	if cfg.Rounds <= 0 || cfg.MessagesPerRound <= 0 || cfg.Amount == 0 {
		return SimulationResult{}, errors.New("simulation needs rounds, messages and a non-zero amount")
	}
	log := r.log.WithField("sim", true)
	res := SimulationResult{}
	appID := b.cfg.Genesis.Rules.Channel.ETHAppID

	for round := 0; round < cfg.Rounds; round++ {
		locked := uint256.NewInt(cfg.Amount * uint64(cfg.MessagesPerRound))
		if _, err := b.SendETH(cfg.Sender, cfg.Recipient.Bytes(), locked, round%2 == 1); err != nil {
			return res, err
		}

		msgs := make([]inter.Message, cfg.MessagesPerRound)
		for i := range msgs {
			payload, err := ethapp.UnlockPayload(cfg.Recipient, uint256.NewInt(cfg.Amount))
			if err != nil {
				return res, err
			}
			msgs[i] = inter.Message{
				Nonce:                    b.Inbound.LatestNonce() + uint64(i) + 1,
				SenderApplicationID:      appID,
				TargetApplicationAddress: b.ETHApp.Address(),
				Payload:                  payload,
			}
		}
		receipt, err := r.RelayMessages(msgs)
		if err != nil {
			return res, err
		}
		res.Completions++
		for _, d := range receipt.Deliveries {
			if d.Result {
				res.Delivered++
			} else {
				res.Failed++
			}
		}
		if _, err := b.Prune(); err != nil {
			return res, err
		}
		log.WithFields(logrus.Fields{
			"round":     round,
			"delivered": receipt.Delivered(),
			"nonce":     b.Inbound.LatestNonce(),
		}).Info("Simulation round done")
	}

	var err error
	res.BeefyBlock = b.LightClient.LatestBeefyBlock()
	res.MMRRoot = b.LightClient.LatestMMRRoot()
	res.Nonce = b.Inbound.LatestNonce()
	if res.Locked, err = b.ETHApp.Locked(); err != nil {
		return res, err
	}
	if res.Unlocked, err = b.ETHApp.Balance(cfg.Recipient); err != nil {
		return res, err
	}
	return res, nil
}
