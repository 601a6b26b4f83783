// Package integration assembles a bridge node: it opens the database of the
// selected preset, anchors the light client on the genesis validator set and
// wires the channels and applications on top of it.
package integration

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/kvdb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/beefy-bridge/bridge/contracts/ethapp"
	"github.com/rony4d/beefy-bridge/bridge/genesis"
	"github.com/rony4d/beefy-bridge/channel"
	"github.com/rony4d/beefy-bridge/evmcore"
	"github.com/rony4d/beefy-bridge/inter"
	"github.com/rony4d/beefy-bridge/lightclient"
	"github.com/rony4d/beefy-bridge/logger"
	"github.com/rony4d/beefy-bridge/mmr"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "bridge"

// ErrBatchTooLarge is returned for commitments over the channel batch limit.
var ErrBatchTooLarge = errors.New("too many messages in commitment")

// ChannelAddresses of the channel contracts on the verifying chain.
type ChannelAddresses struct {
	Inbound      common.Address
	Basic        common.Address
	Incentivized common.Address
}

// DefaultChannelAddresses used by devnets.
func DefaultChannelAddresses() ChannelAddresses {
	return ChannelAddresses{
		Inbound:      common.HexToAddress("0xc4a0000000000000000000000000000000000001"),
		Basic:        common.HexToAddress("0xc4a0000000000000000000000000000000000002"),
		Incentivized: common.HexToAddress("0xc4a0000000000000000000000000000000000003"),
	}
}

// Config of an assembled bridge.
type Config struct {
	Genesis  genesis.Genesis
	Preset   PresetConfig
	DataDir  string
	Channels ChannelAddresses
	// Metrics registers Prometheus collectors. Only one assembly per process
	// may enable it.
	Metrics bool
}

// Bridge is an assembled bridge node on a verifying chain.
type Bridge struct {
	cfg Config
	db  kvdb.Store
	log *logrus.Logger

	Ledger       *evmcore.Ledger
	LightClient  *lightclient.LightClient
	Inbound      *channel.InboundChannel
	Basic        *channel.OutboundChannel
	Incentivized *channel.OutboundChannel
	ETHApp       *ethapp.App
}

// MakeBridge opens the database and wires every component. A database that
// already holds light client state resumes from it; the genesis then only
// has to be consistent, its validator set is ignored.
func MakeBridge(cfg Config, ledger *evmcore.Ledger, log *logrus.Logger) (*Bridge, error) {
	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, errors.New("no verifying chain ledger")
	}
	db, err := OpenDB(cfg.DataDir, cfg.Preset)
	if err != nil {
		return nil, err
	}
	b, err := makeBridge(cfg, db, ledger, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func makeBridge(cfg Config, db kvdb.Store, ledger *evmcore.Ledger, log *logrus.Logger) (*Bridge, error) {
	dbs := SplitDB(db)
	rules := cfg.Genesis.Rules

	lcMetrics, chMetrics := lightclient.NopMetrics(), channel.NopMetrics()
	if cfg.Metrics {
		lcMetrics = lightclient.PrometheusMetrics(MetricsNamespace)
		chMetrics = channel.PrometheusMetrics(MetricsNamespace)
	}

	reg, err := cfg.Genesis.Registry()
	if err != nil {
		return nil, fmt.Errorf("genesis validator set: %w", err)
	}
	lc, err := lightclient.New(rules.LightClient, reg, ledger, lightclient.NewStore(dbs.LightClient),
		lightclient.WithLogger(logger.Module(log, "lightclient")),
		lightclient.WithMetrics(lcMetrics),
		lightclient.WithStartBlock(cfg.Genesis.StartBlock),
	)
	if err != nil {
		return nil, err
	}

	store := channel.NewStore(dbs.Channel)
	chLog := logger.Module(log, "channel")
	inbound, err := channel.NewInboundChannel(channel.InboundConfig{
		Address:  cfg.Channels.Inbound,
		Operator: cfg.Genesis.Operator,
	}, lc, store,
		channel.WithInboundLogger(chLog.WithField("channel", cfg.Channels.Inbound.Hex())),
		channel.WithInboundMetrics(chMetrics),
	)
	if err != nil {
		return nil, err
	}
	outbound := func(addr common.Address) (*channel.OutboundChannel, error) {
		return channel.NewOutboundChannel(channel.OutboundConfig{
			Address:    addr,
			Authorized: []common.Address{ethapp.ContractAddress},
		}, store,
			channel.WithOutboundLogger(chLog.WithField("channel", addr.Hex())),
			channel.WithOutboundMetrics(chMetrics),
		)
	}
	basic, err := outbound(cfg.Channels.Basic)
	if err != nil {
		return nil, err
	}
	incentivized, err := outbound(cfg.Channels.Incentivized)
	if err != nil {
		return nil, err
	}

	app := ethapp.New(ethapp.Config{
		Address:             ethapp.ContractAddress,
		TargetApplicationID: rules.Channel.ETHAppID,
		Channels:            []common.Address{cfg.Channels.Inbound},
	}, dbs.ETHApp, basic, incentivized)
	app.SetLogger(logger.Module(log, "ethapp"))
	inbound.Register(app.Address(), app)

	return &Bridge{
		cfg:          cfg,
		db:           db,
		log:          log,
		Ledger:       ledger,
		LightClient:  lc,
		Inbound:      inbound,
		Basic:        basic,
		Incentivized: incentivized,
		ETHApp:       app,
	}, nil
}

// DeliverCommitment hands a channel commitment to the inbound channel and
// records the emitted events in the open block.
func (b *Bridge) DeliverCommitment(hash common.Hash, msgs []inter.Message, sourceBlock uint64, proof mmr.Proof) (*channel.Receipt, error) {
	if limit := b.cfg.Genesis.Rules.Channel.MaxMessagesPerCommitment; limit > 0 && len(msgs) > limit {
		return nil, fmt.Errorf("%w: %d messages, at most %d", ErrBatchTooLarge, len(msgs), limit)
	}
	receipt, err := b.Inbound.NewCommitment(hash, msgs, sourceBlock, proof)
	if receipt != nil {
		b.Ledger.AddLogs(receipt.Logs)
	}
	return receipt, err
}

// SendETH locks amount in the ETH application and records its events.
func (b *Bridge) SendETH(sender common.Address, recipient []byte, amount *uint256.Int, incentivized bool) ([]*types.Log, error) {
	logs, err := b.ETHApp.SendETH(sender, recipient, amount, incentivized)
	if err != nil {
		return nil, err
	}
	b.Ledger.AddLogs(logs)
	return logs, nil
}

// Prune drops expired pending commitments unless the preset keeps them.
func (b *Bridge) Prune() (int, error) {
	if !b.cfg.Preset.PruneExpired {
		return 0, nil
	}
	return b.LightClient.PruneExpired()
}

// Close releases the database.
func (b *Bridge) Close() error {
	return b.db.Close()
}
