package inter

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrMalformedProof is returned when the parallel arrays of a ValidatorProof disagree.
var ErrMalformedProof = errors.New("malformed validator proof")

// ValidatorProof carries one entry per challenged validator.
// All four slices have the same length and order.
type ValidatorProof struct {
	Signatures   [][]byte
	Positions    []uint64
	PublicKeys   []common.Address
	MerkleProofs [][]common.Hash
}

// Len is the number of entries.
func (p ValidatorProof) Len() int {
	return len(p.Positions)
}

// Validate checks the shape of the proof, not its cryptography.
// Positions must be strictly increasing, which also rules out duplicates.
func (p ValidatorProof) Validate() error {
	n := len(p.Positions)
	if len(p.Signatures) != n || len(p.PublicKeys) != n || len(p.MerkleProofs) != n {
		return fmt.Errorf("%w: %d signatures, %d positions, %d keys, %d proofs", ErrMalformedProof,
			len(p.Signatures), n, len(p.PublicKeys), len(p.MerkleProofs))
	}
	for i := 1; i < n; i++ {
		if p.Positions[i] <= p.Positions[i-1] {
			return fmt.Errorf("%w: positions not strictly increasing at entry %d", ErrMalformedProof, i)
		}
	}
	return nil
}
