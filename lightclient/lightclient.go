// Package lightclient verifies finality commitments of the source chain.
//
// Verification is split in two phases. In the first phase a relayer submits a
// commitment hash with one validator signature and a bitfield claiming which
// validators signed. After BlockWaitPeriod blocks, the hash of a verifying
// chain block that did not exist at submission time seeds a random challenge:
// a subset of the claimed validators. In the second phase the relayer proves
// the signatures of exactly that subset and the light client publishes the
// commitment's MMR root.
//
// The wait stops a relayer from choosing its claim after seeing the seed; the
// subset size makes a false claim fail with overwhelming probability.
package lightclient

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/beefy-bridge/bridge"
	"github.com/rony4d/beefy-bridge/inter"
	"github.com/rony4d/beefy-bridge/inter/validatorpk"
	"github.com/rony4d/beefy-bridge/mmr"
	"github.com/rony4d/beefy-bridge/registry"
	"github.com/rony4d/beefy-bridge/utils/bits"
)

// MMRVerifier checks leaf inclusion against an MMR root.
type MMRVerifier interface {
	Verify(root, leaf common.Hash, proof mmr.Proof) error
}

// InitialSubmission is the first phase request.
type InitialSubmission struct {
	CommitmentHash common.Hash
	// Bitfield claims the validators whose signatures the submitter holds.
	Bitfield  bits.Array
	Signature []byte
	Position  uint64
	Validator common.Address
	// Proof of Validator's membership at Position.
	Proof     []common.Hash
	Submitter common.Address
}

// Completion is the result of a successful second phase.
type Completion struct {
	ID         uint64
	Commitment inter.Commitment
	// Registry verifies the following commitments. It differs from the
	// previous one when the leaf announced the next validator set.
	Registry *registry.Registry
	Rotated  bool
}

// Option configures a LightClient.
type Option func(*LightClient)

func WithLogger(log *logrus.Entry) Option {
	return func(lc *LightClient) {
		lc.log = log
	}
}

func WithMetrics(m *Metrics) Option {
	return func(lc *LightClient) {
		lc.metrics = m
	}
}

func WithMMRVerifier(v MMRVerifier) Option {
	return func(lc *LightClient) {
		lc.verifier = v
	}
}

func WithRecoverer(r *validatorpk.Recoverer) Option {
	return func(lc *LightClient) {
		lc.recoverer = r
	}
}

// WithStartBlock sets the latest verified source block of a fresh database.
func WithStartBlock(n uint64) Option {
	return func(lc *LightClient) {
		lc.startBlock = n
	}
}

// LightClient is the two-phase commitment verifier. All methods are safe
// for concurrent use; mutations are serialized.
type LightClient struct {
	rules     bridge.LightClientRules
	ledger    Ledger
	store     *Store
	verifier  MMRVerifier
	recoverer *validatorpk.Recoverer
	metrics   *Metrics
	log       *logrus.Entry

	startBlock uint64

	mu       sync.RWMutex
	st       state
	registry *registry.Registry
}

// New opens the light client. A fresh store is initialized with genesis,
// otherwise the persisted state (including a rotated validator set) wins.
func New(rules bridge.LightClientRules, genesis *registry.Registry, ledger Ledger, store *Store, opts ...Option) (*LightClient, error) {
	lc := &LightClient{
		rules:     rules,
		ledger:    ledger,
		store:     store,
		verifier:  mmr.Verifier{},
		recoverer: validatorpk.NewRecoverer(4096),
		metrics:   NopMetrics(),
		log:       logrus.NewEntry(logrus.StandardLogger()).WithField("module", "lightclient"),
	}
	for _, opt := range opts {
		opt(lc)
	}

	st, ok, err := store.loadState()
	if err != nil {
		return nil, fmt.Errorf("load light client state: %w", err)
	}
	if !ok {
		if genesis == nil {
			return nil, errors.New("empty light client database and no genesis validator set")
		}
		st = state{
			LatestBeefyBlock: lc.startBlock,
			SetID:            genesis.ID(),
			SetRoot:          genesis.Root(),
			SetLength:        genesis.Length(),
		}
		if err := store.saveState(st); err != nil {
			return nil, fmt.Errorf("init light client state: %w", err)
		}
		lc.log.WithField("set", genesis.String()).Info("Light client initialized from genesis")
	}

	reg, err := st.registry()
	if err != nil {
		return nil, fmt.Errorf("persisted validator set: %w", err)
	}
	lc.st = st
	lc.registry = reg
	lc.metrics.LatestBeefyBlock.Set(float64(st.LatestBeefyBlock))
	lc.metrics.ValidatorSetID.Set(float64(st.SetID))
	return lc, nil
}

// NewSignatureCommitment runs the first phase and returns the id of the
// pending verification.
func (lc *LightClient) NewSignatureCommitment(sub InitialSubmission) (uint64, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	pc, err := lc.newSignatureCommitment(sub)
	if err != nil {
		lc.fail("new", err)
		return 0, err
	}
	lc.metrics.InitialSubmissions.Add(1)
	lc.log.WithFields(logrus.Fields{
		"id":         pc.ID,
		"commitment": pc.CommitmentHash.Hex(),
		"claimed":    pc.Bitfield.Count(),
		"block":      pc.SubmittedAt,
	}).Info("New signature commitment")
	return pc.ID, nil
}

func (lc *LightClient) newSignatureCommitment(sub InitialSubmission) (*PendingCommitment, error) {
	reg := lc.registry
	if sub.Bitfield.Size != reg.Length() {
		return nil, fmt.Errorf("%w: bitfield covers %d validators, set has %d", ErrOutOfRange, sub.Bitfield.Size, reg.Length())
	}
	claimed, err := bits.FromBytes(sub.Bitfield.Bytes, reg.Length())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBitfield, err)
	}
	if err := lc.verifyMembership(reg, sub.Validator, sub.Proof, sub.Position); err != nil {
		return nil, err
	}
	if !lc.recoverer.Verify(sub.Validator, sub.CommitmentHash, sub.Signature) {
		return nil, fmt.Errorf("%w: validator %s", ErrInvalidSignature, sub.Validator.Hex())
	}
	if !claimed.Has(sub.Position) {
		return nil, fmt.Errorf("%w: submitting validator %d is not claimed", ErrInsufficientSignatures, sub.Position)
	}
	if n, required := claimed.Count(), lc.rules.RequiredSignatures(reg.Length()); n < required {
		return nil, fmt.Errorf("%w: %d claimed, %d required", ErrInsufficientSignatures, n, required)
	}

	pc := &PendingCommitment{
		ID:             lc.st.NextID,
		CommitmentHash: sub.CommitmentHash,
		Bitfield:       claimed,
		SubmittedAt:    lc.ledger.CurrentBlock(),
		Submitter:      sub.Submitter,
		ValidatorSetID: reg.ID(),
		Status:         StatusInitiated,
	}
	next := lc.st
	next.NextID++
	if err := lc.store.insert(pc, next); err != nil {
		return nil, fmt.Errorf("store pending commitment: %w", err)
	}
	lc.st = next
	return pc, nil
}

// CompleteSignatureCommitment runs the second phase. Either every check
// passes and the commitment's payload becomes the latest MMR root, or
// nothing changes and the pending entry can be completed again.
func (lc *LightClient) CompleteSignatureCommitment(
	id uint64,
	commitment inter.Commitment,
	proof inter.ValidatorProof,
	leaf inter.MMRLeaf,
	leafProof mmr.Proof,
) (*Completion, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	res, err := lc.complete(id, commitment, proof, leaf, leafProof)
	if err != nil {
		lc.fail("complete", err)
		lc.log.WithFields(logrus.Fields{"id": id, "err": err}).Debug("Signature commitment rejected")
		return nil, err
	}
	lc.metrics.Completions.Add(1)
	lc.metrics.LatestBeefyBlock.Set(float64(commitment.BlockNumber))
	lc.metrics.ValidatorSetID.Set(float64(res.Registry.ID()))

	fields := logrus.Fields{
		"id":     id,
		"block":  commitment.BlockNumber,
		"root":   commitment.Payload.Hex(),
		"proofs": proof.Len(),
	}
	if res.Rotated {
		fields["nextSet"] = res.Registry.String()
	}
	lc.log.WithFields(fields).Info("Signature commitment completed")
	return res, nil
}

func (lc *LightClient) complete(
	id uint64,
	commitment inter.Commitment,
	proof inter.ValidatorProof,
	leaf inter.MMRLeaf,
	leafProof mmr.Proof,
) (*Completion, error) {
	reg := lc.registry

	// 1. pending entry and its maturity
	pc, err := lc.store.GetPending(id)
	if err != nil {
		return nil, err
	}
	if pc == nil {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownCommitment, id)
	}
	switch pc.Status {
	case StatusCompleted:
		return nil, fmt.Errorf("%w: id %d", ErrAlreadyCompleted, id)
	case StatusExpired:
		return nil, fmt.Errorf("%w: id %d", ErrExpired, id)
	case StatusRejected:
		return nil, fmt.Errorf("%w: id %d", ErrRejected, id)
	}
	if pc.ValidatorSetID != reg.ID() {
		return nil, fmt.Errorf("%w: submitted for set %d, current set %d", ErrRejected, pc.ValidatorSetID, reg.ID())
	}
	seed, err := lc.seed(pc)
	if err != nil {
		return nil, err
	}

	// 2. the commitment is the one announced in the first phase
	if h := commitment.Hash(); h != pc.CommitmentHash {
		return nil, fmt.Errorf("%w: hash %s, submitted %s", ErrCommitmentMismatch, h.Hex(), pc.CommitmentHash.Hex())
	}
	if commitment.ValidatorSetID != reg.ID() {
		return nil, fmt.Errorf("%w: signed by set %d, current set %d", ErrCommitmentMismatch, commitment.ValidatorSetID, reg.ID())
	}
	if commitment.BlockNumber <= lc.st.LatestBeefyBlock {
		return nil, fmt.Errorf("%w: block %d, latest %d", ErrStaleCommitment, commitment.BlockNumber, lc.st.LatestBeefyBlock)
	}

	// 3. the proven validators are exactly the random challenge
	if err := proof.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProof, err)
	}
	n := uint64(proof.Len())
	if required := lc.rules.RequiredSignatures(reg.Length()); n < required {
		return nil, fmt.Errorf("%w: %d proven, %d required", ErrInsufficientSignatures, n, required)
	}
	expected, err := RandomNBitsWithPriorCheck(seed, pc.Bitfield, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBitfieldMismatch, err)
	}
	got := bits.New(reg.Length())
	for _, p := range proof.Positions {
		if err := got.Set(p); err != nil {
			return nil, fmt.Errorf("%w: position %d", ErrBitfieldMismatch, p)
		}
	}
	if !got.Equal(expected) {
		return nil, ErrBitfieldMismatch
	}

	// 4. every challenged validator is a member and signed
	for i := range proof.Positions {
		pos, signer := proof.Positions[i], proof.PublicKeys[i]
		if err := lc.verifyMembership(reg, signer, proof.MerkleProofs[i], pos); err != nil {
			return nil, ValidatorError{Index: i, Position: pos, Err: err}
		}
		if !lc.recoverer.Verify(signer, pc.CommitmentHash, proof.Signatures[i]) {
			return nil, ValidatorError{Index: i, Position: pos, Err: ErrInvalidSignature}
		}
	}

	// 5. the leaf is part of the committed MMR
	if err := lc.verifier.Verify(commitment.Payload, leaf.Hash(), leafProof); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMMRProof, err)
	}

	// 6. publish
	next := lc.st
	next.LatestMMRRoot = commitment.Payload
	next.LatestBeefyBlock = commitment.BlockNumber
	nextReg := reg
	rotated := false
	if leaf.NextAuthoritySetID == reg.ID()+1 && leaf.NextAuthoritySetLen > 0 {
		nextReg, err = reg.Next(leaf.NextAuthoritySetRoot, uint64(leaf.NextAuthoritySetLen))
		if err != nil {
			return nil, err
		}
		next.SetID, next.SetRoot, next.SetLength = nextReg.ID(), nextReg.Root(), nextReg.Length()
		rotated = true
	}

	tomb := *pc
	tomb.Status = StatusCompleted
	tomb.Bitfield = bits.Array{}
	if err := lc.store.finalize(&next, &tomb); err != nil {
		return nil, fmt.Errorf("store completion: %w", err)
	}
	lc.st = next
	lc.registry = nextReg

	return &Completion{
		ID:         id,
		Commitment: commitment,
		Registry:   nextReg,
		Rotated:    rotated,
	}, nil
}

func (lc *LightClient) verifyMembership(reg *registry.Registry, addr common.Address, proof []common.Hash, pos uint64) error {
	err := reg.Verify(addr, proof, pos)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registry.ErrOutOfRange):
		return fmt.Errorf("%w: %v", ErrOutOfRange, err)
	default:
		return fmt.Errorf("%w: validator %s at %d", ErrInvalidMembershipProof, addr.Hex(), pos)
	}
}

// seed returns the challenge seed of pc, if the completion window is open.
func (lc *LightClient) seed(pc *PendingCommitment) (common.Hash, error) {
	now := lc.ledger.CurrentBlock()
	seedBlock := pc.SeedBlock(lc.rules.BlockWaitPeriod)
	if now <= seedBlock {
		return common.Hash{}, fmt.Errorf("%w: seed block %d, current block %d", ErrTooEarly, seedBlock, now)
	}
	if now > seedBlock+lc.rules.CompletionWindow {
		return common.Hash{}, fmt.Errorf("%w: seed block %d, current block %d", ErrExpired, seedBlock, now)
	}
	h, ok := lc.ledger.BlockHash(seedBlock)
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: hash of block %d is unavailable", ErrExpired, seedBlock)
	}
	return h, nil
}

func (lc *LightClient) fail(op string, err error) {
	lc.metrics.Failures.With("op", op, "reason", errorKind(err)).Add(1)
}

// RandomBitfield returns the challenge of a pending verification: the
// validators whose signatures the second phase must prove.
func (lc *LightClient) RandomBitfield(id uint64) (bits.Array, error) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()

	pc, err := lc.store.GetPending(id)
	if err != nil {
		return bits.Array{}, err
	}
	if pc == nil {
		return bits.Array{}, fmt.Errorf("%w: id %d", ErrUnknownCommitment, id)
	}
	if pc.Status.Terminal() {
		return bits.Array{}, fmt.Errorf("%w: id %d is %s", ErrUnknownCommitment, id, pc.Status)
	}
	seed, err := lc.seed(pc)
	if err != nil {
		return bits.Array{}, err
	}
	return RandomNBitsWithPriorCheck(seed, pc.Bitfield, lc.rules.RequiredSignatures(pc.Bitfield.Size))
}

// Status of a verification. Unknown ids report StatusUnknown.
func (lc *LightClient) Status(id uint64) (Status, error) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()

	pc, err := lc.store.GetPending(id)
	if err != nil || pc == nil {
		return StatusUnknown, err
	}
	return lc.status(pc), nil
}

func (lc *LightClient) status(pc *PendingCommitment) Status {
	if pc.Status.Terminal() {
		return pc.Status
	}
	if pc.ValidatorSetID != lc.registry.ID() {
		return StatusRejected
	}
	now := lc.ledger.CurrentBlock()
	seedBlock := pc.SeedBlock(lc.rules.BlockWaitPeriod)
	switch {
	case now <= seedBlock:
		return StatusInitiated
	case now > seedBlock+lc.rules.CompletionWindow:
		return StatusExpired
	}
	if _, ok := lc.ledger.BlockHash(seedBlock); !ok {
		return StatusExpired
	}
	return StatusAwaitingChallengeWindow
}

// Pending returns a copy of the stored entry.
func (lc *LightClient) Pending(id uint64) (*PendingCommitment, error) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.store.GetPending(id)
}

// PruneExpired turns entries that can no longer complete into tombstones.
func (lc *LightClient) PruneExpired() (int, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	var tombs []*PendingCommitment
	err := lc.store.forEachPending(func(pc *PendingCommitment) error {
		switch s := lc.status(pc); s {
		case StatusExpired, StatusRejected:
			if pc.Status.Terminal() {
				return nil
			}
			pc.Status = s
			pc.Bitfield = bits.Array{}
			tombs = append(tombs, pc)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(tombs) == 0 {
		return 0, nil
	}
	if err := lc.store.finalize(nil, tombs...); err != nil {
		return 0, err
	}
	lc.metrics.Pruned.Add(float64(len(tombs)))
	lc.log.WithField("count", len(tombs)).Info("Pruned pending commitments")
	return len(tombs), nil
}

// LatestMMRRoot is the MMR root of the latest verified commitment.
func (lc *LightClient) LatestMMRRoot() common.Hash {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.st.LatestMMRRoot
}

// LatestBeefyBlock is the source block of the latest verified commitment.
func (lc *LightClient) LatestBeefyBlock() uint64 {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.st.LatestBeefyBlock
}

// NextID is the id the next initial submission will get.
func (lc *LightClient) NextID() uint64 {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.st.NextID
}

// Registry is the validator set commitments are currently verified against.
func (lc *LightClient) Registry() *registry.Registry {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.registry
}

// Rules of the light client.
func (lc *LightClient) Rules() bridge.LightClientRules {
	return lc.rules
}

// SeedBlock of a pending entry.
func (lc *LightClient) SeedBlock(pc *PendingCommitment) idx.Block {
	return pc.SeedBlock(lc.rules.BlockWaitPeriod)
}
