package genesis

// Package genesis defines the initial trust anchor of a bridge deployment:
// the validator set the light client starts from and the network rules it
// verifies with. Everything the light client accepts later is derived from
// this anchor, so it must be obtained out of band from a trusted source.
//
// Usage:
//   gen := genesis.Genesis{Rules: bridge.MainNetRules(), ValidatorSet: ...}
//   if err := gen.Validate(); err != nil { ... }
//   reg, err := gen.Registry()

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/beefy-bridge/bridge"
	"github.com/rony4d/beefy-bridge/registry"
)

// ErrEmptyValidatorSet is returned for a genesis without validators.
var ErrEmptyValidatorSet = errors.New("genesis validator set is empty")

// ValidatorSet is the committed set at genesis.
type ValidatorSet struct {
	ID     uint64
	Root   common.Hash
	Length uint64
}

// Genesis combines rules and the initial validator set.
type Genesis struct {
	Rules        bridge.Rules
	ValidatorSet ValidatorSet
	// StartBlock is the source block number the light client is synced to.
	// Commitments at or below it are stale.
	StartBlock uint64
	// Operator signs messages for the signature-based delivery path.
	// The zero address disables that path.
	Operator common.Address
}

// Validate checks the genesis for consistency.
func (g Genesis) Validate() error {
	if err := g.Rules.Validate(); err != nil {
		return fmt.Errorf("genesis rules: %w", err)
	}
	if g.ValidatorSet.Length == 0 {
		return ErrEmptyValidatorSet
	}
	return nil
}

// Registry builds the validator registry of the genesis set.
func (g Genesis) Registry() (*registry.Registry, error) {
	return registry.New(g.ValidatorSet.ID, g.ValidatorSet.Root, g.ValidatorSet.Length)
}

// FromAddresses creates a genesis whose validator set commits to addrs.
func FromAddresses(rules bridge.Rules, setID uint64, addrs []common.Address) (Genesis, error) {
	reg, _, err := registry.FromAddresses(setID, addrs)
	if err != nil {
		return Genesis{}, err
	}
	return Genesis{
		Rules: rules,
		ValidatorSet: ValidatorSet{
			ID:     reg.ID(),
			Root:   reg.Root(),
			Length: reg.Length(),
		},
	}, nil
}
