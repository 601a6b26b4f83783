// Package channel delivers cross-chain messages.
//
// An InboundChannel accepts a batch of messages once the light client has
// verified an MMR root that includes the batch's commitment. Messages are
// dispatched in nonce order to the applications registered at their target
// addresses. An OutboundChannel assigns nonces to messages leaving the chain
// and emits them as Message logs for relayers.
package channel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/beefy-bridge/inter"
	"github.com/rony4d/beefy-bridge/inter/validatorpk"
	"github.com/rony4d/beefy-bridge/mmr"
)

// RootSource provides the latest MMR root verified by the light client.
type RootSource interface {
	LatestMMRRoot() common.Hash
}

// MMRVerifier checks leaf inclusion against an MMR root.
type MMRVerifier interface {
	Verify(root, leaf common.Hash, proof mmr.Proof) error
}

// Delivery is the outcome of one message of a batch.
type Delivery struct {
	Nonce uint64
	// Dispatched reports whether the message consumed its nonce.
	Dispatched bool
	// Result of the application call.
	Result bool
	// Err explains a skipped message or a failed application call.
	Err error
}

// Receipt of an accepted batch.
type Receipt struct {
	Deliveries []Delivery
	// Logs holds the logs of successful application calls and a
	// MessageDelivered log per dispatched message, in execution order.
	Logs []*types.Log
}

// Delivered returns the number of dispatched messages.
func (r *Receipt) Delivered() int {
	n := 0
	for _, d := range r.Deliveries {
		if d.Dispatched {
			n++
		}
	}
	return n
}

type InboundConfig struct {
	// Address the channel delivers from.
	Address common.Address
	// Operator signs messages for the signature path. Zero disables it.
	Operator common.Address
}

// InboundOption configures an InboundChannel.
type InboundOption func(*InboundChannel)

func WithInboundLogger(log *logrus.Entry) InboundOption {
	return func(c *InboundChannel) {
		c.log = log
	}
}

func WithInboundMetrics(m *Metrics) InboundOption {
	return func(c *InboundChannel) {
		c.metrics = m
	}
}

func WithMMRVerifier(v MMRVerifier) InboundOption {
	return func(c *InboundChannel) {
		c.verifier = v
	}
}

// InboundChannel dispatches verified messages. All methods are safe for
// concurrent use; batches are processed one at a time.
type InboundChannel struct {
	cfg       InboundConfig
	roots     RootSource
	verifier  MMRVerifier
	store     *Store
	recoverer *validatorpk.Recoverer
	metrics   *Metrics
	log       *logrus.Entry

	mu          sync.RWMutex
	latestNonce uint64
	apps        map[common.Address]Application
}

// NewInboundChannel opens the channel with its persisted nonce.
func NewInboundChannel(cfg InboundConfig, roots RootSource, store *Store, opts ...InboundOption) (*InboundChannel, error) {
	c := &InboundChannel{
		cfg:       cfg,
		roots:     roots,
		verifier:  mmr.Verifier{},
		store:     store,
		recoverer: validatorpk.NewRecoverer(1024),
		metrics:   NopMetrics(),
		apps:      make(map[common.Address]Application),
	}
	c.log = logrus.NewEntry(logrus.StandardLogger()).WithFields(logrus.Fields{
		"module":  "channel",
		"channel": cfg.Address.Hex(),
	})
	for _, opt := range opts {
		opt(c)
	}
	nonce, err := store.InboundNonce(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("load inbound nonce: %w", err)
	}
	c.latestNonce = nonce
	c.metrics.InboundNonce.Set(float64(nonce))
	return c, nil
}

// Address of the channel.
func (c *InboundChannel) Address() common.Address {
	return c.cfg.Address
}

// Register installs app at addr, replacing any previous one.
func (c *InboundChannel) Register(addr common.Address, app Application) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apps[addr] = app
}

// LatestNonce is the nonce of the latest dispatched message.
func (c *InboundChannel) LatestNonce() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latestNonce
}

// NewCommitment verifies a batch committed on the source chain and
// dispatches its messages. Per-message outcomes are reported in the receipt.
// A verification error means nothing was dispatched. A storage error stops
// the batch: the receipt returned with it lists the messages dispatched
// before the failure, and their nonces stay consumed.
func (c *InboundChannel) NewCommitment(
	commitmentHash common.Hash,
	messages []inter.Message,
	sourceBlockNumber uint64,
	proof mmr.Proof,
) (*Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.verifyCommitment(commitmentHash, messages, sourceBlockNumber, proof); err != nil {
		c.metrics.Rejections.With("reason", rejectReason(err)).Add(1)
		c.log.WithFields(logrus.Fields{"commitment": commitmentHash.Hex(), "err": err}).Debug("Channel commitment rejected")
		return nil, err
	}
	c.metrics.Commitments.Add(1)

	receipt := &Receipt{Deliveries: make([]Delivery, 0, len(messages))}
	halted := false
	for _, msg := range messages {
		if halted {
			receipt.Deliveries = append(receipt.Deliveries, Delivery{Nonce: msg.Nonce, Err: ErrDispatchHalted})
			c.metrics.Skipped.With("reason", "halted").Add(1)
			continue
		}
		d, logs, err := c.deliver(msg)
		if err != nil {
			return receipt, err
		}
		if errors.Is(d.Err, ErrNonceMismatch) && msg.Nonce > c.latestNonce+1 {
			halted = true
		}
		receipt.Deliveries = append(receipt.Deliveries, d)
		receipt.Logs = append(receipt.Logs, logs...)
	}

	c.log.WithFields(logrus.Fields{
		"commitment": commitmentHash.Hex(),
		"block":      sourceBlockNumber,
		"messages":   len(messages),
		"delivered":  receipt.Delivered(),
		"nonce":      c.latestNonce,
	}).Info("Channel commitment processed")
	return receipt, nil
}

func (c *InboundChannel) verifyCommitment(commitmentHash common.Hash, messages []inter.Message, sourceBlockNumber uint64, proof mmr.Proof) error {
	leaf := inter.ChannelCommitmentLeaf(sourceBlockNumber, commitmentHash)
	if err := c.verifier.Verify(c.roots.LatestMMRRoot(), leaf, proof); err != nil {
		return fmt.Errorf("%w: %v", ErrUnverifiedCommitment, err)
	}
	root, err := inter.MessagesRoot(messages)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMessageSetMismatch, err)
	}
	if root != commitmentHash {
		return fmt.Errorf("%w: messages root %s, commitment %s", ErrMessageSetMismatch, root.Hex(), commitmentHash.Hex())
	}
	return nil
}

// SubmitSigned delivers a single message authenticated by the operator's
// signature over its hash instead of an MMR proof.
func (c *InboundChannel) SubmitSigned(msg inter.Message, signature []byte) (*Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.Operator == (common.Address{}) || !c.recoverer.Verify(c.cfg.Operator, msg.Hash(), signature) {
		c.metrics.Rejections.With("reason", "invalid_signature").Add(1)
		return nil, ErrInvalidSignature
	}
	d, logs, err := c.deliver(msg)
	if err != nil {
		return nil, err
	}
	return &Receipt{Deliveries: []Delivery{d}, Logs: logs}, nil
}

// deliver dispatches msg if its nonce is next. The returned error is a
// storage failure, everything else is recorded in the delivery.
func (c *InboundChannel) deliver(msg inter.Message) (Delivery, []*types.Log, error) {
	d := Delivery{Nonce: msg.Nonce}
	if msg.Nonce != c.latestNonce+1 {
		d.Err = NonceError{Nonce: msg.Nonce, Expected: c.latestNonce + 1}
		reason := "gap"
		if msg.Nonce <= c.latestNonce {
			reason = "replay"
		}
		c.metrics.Skipped.With("reason", reason).Add(1)
		c.log.WithFields(logrus.Fields{"nonce": msg.Nonce, "latest": c.latestNonce}).Debug("Message skipped")
		return d, nil, nil
	}

	if err := c.store.SetInboundNonce(c.cfg.Address, msg.Nonce); err != nil {
		return d, nil, fmt.Errorf("store inbound nonce: %w", err)
	}
	c.latestNonce = msg.Nonce
	c.metrics.InboundNonce.Set(float64(msg.Nonce))
	d.Dispatched = true

	var logs []*types.Log
	journal := new(Journal)
	d.Err = c.dispatch(msg, journal)
	d.Result = d.Err == nil
	if d.Result {
		logs = append(logs, journal.Logs()...)
	} else {
		journal.revert()
		c.log.WithFields(logrus.Fields{
			"nonce":  msg.Nonce,
			"target": msg.TargetApplicationAddress.Hex(),
			"err":    d.Err,
		}).Warn("Message dispatch failed")
	}
	c.metrics.Deliveries.With("result", fmt.Sprint(d.Result)).Add(1)

	delivered, err := NewMessageDeliveredLog(c.cfg.Address, msg.Nonce, d.Result)
	if err != nil {
		return d, nil, err
	}
	return d, append(logs, delivered), nil
}

func (c *InboundChannel) dispatch(msg inter.Message, journal *Journal) (err error) {
	app, ok := c.apps[msg.TargetApplicationAddress]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownApplication, msg.TargetApplicationAddress.Hex())
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrApplicationPanic, r)
		}
	}()
	return app.HandleMessage(c.cfg.Address, msg.Payload, journal)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrUnverifiedCommitment):
		return "unverified_commitment"
	case errors.Is(err, ErrMessageSetMismatch):
		return "message_set_mismatch"
	}
	return "internal"
}
