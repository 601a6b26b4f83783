package integration

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/beefy-bridge/channel"
	"github.com/rony4d/beefy-bridge/inter"
	"github.com/rony4d/beefy-bridge/lightclient"
	"github.com/rony4d/beefy-bridge/logger"
	"github.com/rony4d/beefy-bridge/relayer"
)

// Relay drives a simulated source chain into a bridge: it finalizes source
// ranges through both light client phases and delivers channel commitments.
type Relay struct {
	bridge    *Bridge
	src       *relayer.SourceChain
	prover    *relayer.BeefyProver
	signers   int
	submitter common.Address
	log       *logrus.Entry
}

// NewRelay signs with keys, which must form the bridge's current validator
// set. signers is how many validators, counted from position 0, sign each
// commitment; zero means all of them. The simulated source chain starts
// past the latest block the light client has verified.
func NewRelay(b *Bridge, keys []*ecdsa.PrivateKey, signers int, submitter common.Address) (*Relay, error) {
	reg := b.LightClient.Registry()
	prover, err := relayer.NewSigningProver(reg.ID(), keys)
	if err != nil {
		return nil, err
	}
	if prover.Registry().Root() != reg.Root() {
		return nil, fmt.Errorf("relay keys do not form validator set %s", reg)
	}
	if signers <= 0 || signers > len(keys) {
		signers = len(keys)
	}
	r := &Relay{
		bridge:    b,
		src:       relayer.NewSourceChain(reg.ID()),
		prover:    prover,
		signers:   signers,
		submitter: submitter,
		log:       logger.Module(b.log, "relay"),
	}
	// a resumed light client rejects commitments at or below its latest block
	for r.src.BlockNumber() < b.LightClient.LatestBeefyBlock() {
		r.src.AppendLeaf(r.src.NextLeaf(reg.ID(), 0, common.Hash{}))
	}
	return r, nil
}

// Source is the simulated source chain.
func (r *Relay) Source() *relayer.SourceChain {
	return r.src
}

// Finalize seals one more source block and verifies the whole range with
// the light client, waiting out the challenge period on the ledger.
func (r *Relay) Finalize() (*lightclient.Completion, error) {
	lc := r.bridge.LightClient
	rules := lc.Rules()

	leaf := r.src.NextLeaf(lc.Registry().ID(), 0, common.Hash{})
	leafProof, err := r.src.Proof(r.src.AppendLeaf(leaf))
	if err != nil {
		return nil, err
	}
	commitment := r.src.Commitment()

	positions := make([]uint64, r.signers)
	for i := range positions {
		positions[i] = uint64(i)
	}
	sigs, err := r.prover.Sign(commitment, positions)
	if err != nil {
		return nil, err
	}
	sub, err := r.prover.InitialSubmission(commitment.Hash(), sigs, rules, r.submitter)
	if err != nil {
		return nil, err
	}
	id, err := lc.NewSignatureCommitment(sub)
	if err != nil {
		return nil, fmt.Errorf("initial submission: %w", err)
	}

	r.bridge.Ledger.Mine(int(rules.BlockWaitPeriod) + 1)

	challenge, err := lc.RandomBitfield(id)
	if err != nil {
		return nil, err
	}
	proof, err := r.prover.ValidatorProof(sigs, challenge)
	if err != nil {
		return nil, err
	}
	res, err := lc.CompleteSignatureCommitment(id, commitment, proof, leaf, leafProof)
	if err != nil {
		return nil, fmt.Errorf("complete commitment %d: %w", id, err)
	}
	r.log.WithFields(logrus.Fields{
		"id":         id,
		"block":      commitment.BlockNumber,
		"challenged": challenge.Count(),
	}).Debug("Source range finalized")
	return res, nil
}

// RelayMessages commits msgs on the source chain, finalizes the range and
// delivers the commitment through the inbound channel.
func (r *Relay) RelayMessages(msgs []inter.Message) (*channel.Receipt, error) {
	cc, err := r.src.AppendChannelCommitment(msgs)
	if err != nil {
		return nil, err
	}
	if _, err := r.Finalize(); err != nil {
		return nil, err
	}
	proof, err := r.src.Proof(cc.LeafIndex)
	if err != nil {
		return nil, err
	}
	return r.bridge.DeliverCommitment(cc.Hash, cc.Messages, cc.SourceBlock, proof)
}
