// Package registry holds the committed validator set of the source chain.
package registry

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/beefy-bridge/merkle"
)

var (
	// ErrInvalidProof is returned when a membership proof does not lead to the root.
	ErrInvalidProof = errors.New("invalid validator membership proof")
	// ErrOutOfRange is returned for positions outside the set.
	ErrOutOfRange = errors.New("validator position out of range")
	// ErrEmptySet is returned when constructing a set without validators.
	ErrEmptySet = errors.New("empty validator set")
)

// Registry is a Merkle commitment to an ordered list of validator addresses.
// A Registry never changes: a rotated set is a new Registry with the next ID.
type Registry struct {
	id     uint64
	root   common.Hash
	length uint64
}

// New registers a set from its committed root.
func New(id uint64, root common.Hash, length uint64) (*Registry, error) {
	if length == 0 {
		return nil, ErrEmptySet
	}
	return &Registry{
		id:     id,
		root:   root,
		length: length,
	}, nil
}

// LeafHash is the validator-set tree leaf of addr.
func LeafHash(addr common.Address) common.Hash {
	return crypto.Keccak256Hash(addr.Bytes())
}

// FromAddresses builds the set tree. The tree is returned so that callers
// (relayers, fixtures) can produce membership proofs.
func FromAddresses(id uint64, addrs []common.Address) (*Registry, *merkle.Tree, error) {
	if len(addrs) == 0 {
		return nil, nil, ErrEmptySet
	}
	leaves := make([]common.Hash, len(addrs))
	for i, a := range addrs {
		leaves[i] = LeafHash(a)
	}
	tree, err := merkle.NewTree(leaves)
	if err != nil {
		return nil, nil, err
	}
	reg, err := New(id, tree.Root(), uint64(len(addrs)))
	return reg, tree, err
}

func (r *Registry) ID() uint64 {
	return r.id
}

func (r *Registry) Root() common.Hash {
	return r.root
}

func (r *Registry) Length() uint64 {
	return r.length
}

// Verify checks that addr is the validator at position.
func (r *Registry) Verify(addr common.Address, proof []common.Hash, position uint64) error {
	if position >= r.length {
		return fmt.Errorf("%w: position %d, set length %d", ErrOutOfRange, position, r.length)
	}
	computed, err := merkle.ComputeRoot(LeafHash(addr), position, r.length, proof)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if computed != r.root {
		return ErrInvalidProof
	}
	return nil
}

// CheckValidatorInSet is the boolean form of Verify.
func (r *Registry) CheckValidatorInSet(addr common.Address, proof []common.Hash, position uint64) bool {
	return r.Verify(addr, proof, position) == nil
}

// Next returns the registry of the following validator set.
func (r *Registry) Next(root common.Hash, length uint64) (*Registry, error) {
	return New(r.id+1, root, length)
}

func (r *Registry) String() string {
	return fmt.Sprintf("set#%d{len=%d root=%s}", r.id, r.length, r.root.TerminalString())
}
