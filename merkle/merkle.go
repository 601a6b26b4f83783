// Package merkle implements the position-based binary Merkle tree used for
// validator-set and message-set commitments.
//
// Leaves are paired left to right on every layer. When a layer has an odd
// number of nodes the last one is promoted to the next layer unhashed, so a
// proof carries no sibling for that step. Inner nodes are keccak256(left ‖ right).
package merkle

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrPositionOutOfRange is returned when pos >= width.
	ErrPositionOutOfRange = errors.New("merkle position is out of range")
	// ErrProofLength is returned when a proof has too few or too many items.
	ErrProofLength = errors.New("merkle proof has wrong length")
	// ErrEmptyTree is returned when building a tree without leaves.
	ErrEmptyTree = errors.New("merkle tree has no leaves")
)

// HashPair returns keccak256(left ‖ right).
func HashPair(left, right common.Hash) common.Hash {
	return crypto.Keccak256Hash(left.Bytes(), right.Bytes())
}

// ComputeRoot folds proof into leaf at position pos of a tree with width leaves.
func ComputeRoot(leaf common.Hash, pos, width uint64, proof []common.Hash) (common.Hash, error) {
	if pos >= width {
		return common.Hash{}, ErrPositionOutOfRange
	}

	computed := leaf
	used := 0
	for width > 1 {
		isLeft := pos%2 == 0
		// rightmost node of an odd layer: promoted as is
		if pos+1 == width && isLeft {
			pos /= 2
			width = (width-1)/2 + 1
			continue
		}
		if used >= len(proof) {
			return common.Hash{}, ErrProofLength
		}
		if isLeft {
			computed = HashPair(computed, proof[used])
		} else {
			computed = HashPair(proof[used], computed)
		}
		used++
		pos /= 2
		width = (width-1)/2 + 1
	}
	if used != len(proof) {
		return common.Hash{}, ErrProofLength
	}
	return computed, nil
}

// Verify reports whether leaf sits at pos under root.
func Verify(root, leaf common.Hash, pos, width uint64, proof []common.Hash) bool {
	computed, err := ComputeRoot(leaf, pos, width, proof)
	return err == nil && computed == root
}

// Tree keeps every layer so that proofs can be produced for any leaf.
type Tree struct {
	layers [][]common.Hash
}

// NewTree builds the tree bottom-up.
func NewTree(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}
	layer := append([]common.Hash(nil), leaves...)
	t := &Tree{layers: [][]common.Hash{layer}}
	for len(layer) > 1 {
		next := make([]common.Hash, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 == len(layer) {
				next = append(next, layer[i])
				continue
			}
			next = append(next, HashPair(layer[i], layer[i+1]))
		}
		t.layers = append(t.layers, next)
		layer = next
	}
	return t, nil
}

// Root of the tree.
func (t *Tree) Root() common.Hash {
	return t.layers[len(t.layers)-1][0]
}

// Width is the number of leaves.
func (t *Tree) Width() uint64 {
	return uint64(len(t.layers[0]))
}

// Leaf returns the leaf hash at pos.
func (t *Tree) Leaf(pos uint64) common.Hash {
	return t.layers[0][pos]
}

// Proof returns the sibling path for the leaf at pos, bottom-up.
func (t *Tree) Proof(pos uint64) ([]common.Hash, error) {
	if pos >= t.Width() {
		return nil, ErrPositionOutOfRange
	}
	proof := make([]common.Hash, 0, len(t.layers))
	idx := pos
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := idx ^ 1
		if sibling < uint64(len(layer)) {
			proof = append(proof, layer[sibling])
		}
		idx /= 2
	}
	return proof, nil
}

// Root computes the root of leaves without keeping the tree.
func Root(leaves []common.Hash) (common.Hash, error) {
	t, err := NewTree(leaves)
	if err != nil {
		return common.Hash{}, err
	}
	return t.Root(), nil
}
