// Package mmr verifies and builds Merkle Mountain Range inclusion proofs.
//
// A range of n leaves is a sequence of perfect binary trees ("mountains"),
// one for every set bit of n, largest first. Nodes merge as
// keccak256(left ‖ right). The root bags the mountain peaks from the right:
// acc = keccak256(acc ‖ peak) for each peak moving leftwards.
//
// Proof.Items lists the sibling path inside the leaf's mountain (bottom-up)
// followed by the peaks of all other mountains, left to right.
package mmr

import (
	"errors"
	"fmt"
	mbits "math/bits"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/beefy-bridge/merkle"
)

// ErrInvalidProof is returned for any proof that does not lead to the expected root.
var ErrInvalidProof = errors.New("invalid MMR proof")

// Proof of inclusion of the leaf at LeafIndex in a range of LeafCount leaves.
type Proof struct {
	LeafIndex uint64
	LeafCount uint64
	Items     []common.Hash
}

// mountain describes one perfect subtree of the range.
type mountain struct {
	offset uint64 // index of the first leaf
	height uint   // log2 of its width
}

// mountains decomposes leafCount into perfect trees, largest (leftmost) first.
func mountains(leafCount uint64) []mountain {
	res := make([]mountain, 0, mbits.OnesCount64(leafCount))
	offset := uint64(0)
	for h := 63; h >= 0; h-- {
		if leafCount&(1<<uint(h)) == 0 {
			continue
		}
		res = append(res, mountain{offset: offset, height: uint(h)})
		offset += 1 << uint(h)
	}
	return res
}

// Bag folds peaks into the range root.
func Bag(peaks []common.Hash) common.Hash {
	if len(peaks) == 0 {
		return common.Hash{}
	}
	acc := peaks[len(peaks)-1]
	for i := len(peaks) - 2; i >= 0; i-- {
		acc = merkle.HashPair(acc, peaks[i])
	}
	return acc
}

// CalculateRoot recomputes the range root implied by leaf and proof.
func CalculateRoot(leaf common.Hash, proof Proof) (common.Hash, error) {
	if proof.LeafIndex >= proof.LeafCount {
		return common.Hash{}, fmt.Errorf("%w: leaf index %d not below leaf count %d", ErrInvalidProof, proof.LeafIndex, proof.LeafCount)
	}

	ms := mountains(proof.LeafCount)
	own := 0
	for i, m := range ms {
		if proof.LeafIndex >= m.offset && proof.LeafIndex < m.offset+(1<<m.height) {
			own = i
			break
		}
	}

	height := int(ms[own].height)
	if len(proof.Items) != height+len(ms)-1 {
		return common.Hash{}, fmt.Errorf("%w: expected %d items, got %d", ErrInvalidProof, height+len(ms)-1, len(proof.Items))
	}

	// climb to the mountain peak
	local := proof.LeafIndex - ms[own].offset
	acc := leaf
	for i := 0; i < height; i++ {
		if local&1 == 0 {
			acc = merkle.HashPair(acc, proof.Items[i])
		} else {
			acc = merkle.HashPair(proof.Items[i], acc)
		}
		local >>= 1
	}

	others := proof.Items[height:]
	peaks := make([]common.Hash, 0, len(ms))
	peaks = append(peaks, others[:own]...)
	peaks = append(peaks, acc)
	peaks = append(peaks, others[own:]...)
	return Bag(peaks), nil
}

// Verifier checks leaf inclusion against a committed root. It is stateless.
type Verifier struct{}

// Verify returns nil iff leaf is included under root according to proof.
func (Verifier) Verify(root, leaf common.Hash, proof Proof) error {
	computed, err := CalculateRoot(leaf, proof)
	if err != nil {
		return err
	}
	if computed != root {
		return fmt.Errorf("%w: computed root %s, expected %s", ErrInvalidProof, computed.Hex(), root.Hex())
	}
	return nil
}
