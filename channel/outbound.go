package channel

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// Sender submits messages to the source chain.
type Sender interface {
	Send(sender common.Address, targetApplicationID string, payload []byte) (*types.Log, error)
}

type OutboundConfig struct {
	// Address the Message logs are emitted from.
	Address common.Address
	// Authorized restricts the senders. Empty allows everyone.
	Authorized []common.Address
}

// OutboundOption configures an OutboundChannel.
type OutboundOption func(*OutboundChannel)

func WithOutboundLogger(log *logrus.Entry) OutboundOption {
	return func(c *OutboundChannel) {
		c.log = log
	}
}

func WithOutboundMetrics(m *Metrics) OutboundOption {
	return func(c *OutboundChannel) {
		c.metrics = m
	}
}

// OutboundChannel numbers outgoing messages. It is safe for concurrent use.
type OutboundChannel struct {
	cfg        OutboundConfig
	store      *Store
	authorized map[common.Address]bool
	metrics    *Metrics
	log        *logrus.Entry

	mu    sync.Mutex
	nonce uint64
}

// NewOutboundChannel opens the channel with its persisted nonce.
func NewOutboundChannel(cfg OutboundConfig, store *Store, opts ...OutboundOption) (*OutboundChannel, error) {
	c := &OutboundChannel{
		cfg:     cfg,
		store:   store,
		metrics: NopMetrics(),
	}
	c.log = logrus.NewEntry(logrus.StandardLogger()).WithFields(logrus.Fields{
		"module":  "channel",
		"channel": cfg.Address.Hex(),
	})
	if len(cfg.Authorized) > 0 {
		c.authorized = make(map[common.Address]bool, len(cfg.Authorized))
		for _, a := range cfg.Authorized {
			c.authorized[a] = true
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	nonce, err := store.OutboundNonce(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("load outbound nonce: %w", err)
	}
	c.nonce = nonce
	return c, nil
}

// Address of the channel.
func (c *OutboundChannel) Address() common.Address {
	return c.cfg.Address
}

// Nonce of the latest sent message.
func (c *OutboundChannel) Nonce() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonce
}

// Send assigns the next nonce to the message and returns its Message log.
// The first message gets nonce 1.
func (c *OutboundChannel) Send(sender common.Address, targetApplicationID string, payload []byte) (*types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.authorized != nil && !c.authorized[sender] {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, sender.Hex())
	}
	nonce := c.nonce + 1
	l, err := NewMessageLog(c.cfg.Address, nonce, sender, targetApplicationID, payload)
	if err != nil {
		return nil, err
	}
	if err := c.store.SetOutboundNonce(c.cfg.Address, nonce); err != nil {
		return nil, fmt.Errorf("store outbound nonce: %w", err)
	}
	c.nonce = nonce
	c.metrics.Sent.Add(1)
	c.log.WithFields(logrus.Fields{"nonce": nonce, "sender": sender.Hex(), "target": targetApplicationID}).Debug("Message sent")
	return l, nil
}
