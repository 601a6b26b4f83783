package mmr

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/beefy-bridge/merkle"
)

// MMR is an append-only leaf range that can produce roots and proofs.
// It is meant for relayers and test fixtures, the verifying side only needs Verifier.
type MMR struct {
	leaves []common.Hash
}

// New returns an empty range.
func New() *MMR {
	return &MMR{}
}

// Append adds a leaf hash and returns its index.
func (m *MMR) Append(leaf common.Hash) uint64 {
	m.leaves = append(m.leaves, leaf)
	return uint64(len(m.leaves) - 1)
}

// LeafCount of the range.
func (m *MMR) LeafCount() uint64 {
	return uint64(len(m.leaves))
}

// layers returns every layer of the mountain, leaves first.
func (m *MMR) layers(mt mountain) [][]common.Hash {
	layer := m.leaves[mt.offset : mt.offset+(1<<mt.height)]
	res := [][]common.Hash{layer}
	for len(layer) > 1 {
		next := make([]common.Hash, len(layer)/2)
		for i := range next {
			next[i] = merkle.HashPair(layer[2*i], layer[2*i+1])
		}
		res = append(res, next)
		layer = next
	}
	return res
}

func (m *MMR) peaks() []common.Hash {
	ms := mountains(m.LeafCount())
	peaks := make([]common.Hash, len(ms))
	for i, mt := range ms {
		ls := m.layers(mt)
		peaks[i] = ls[len(ls)-1][0]
	}
	return peaks
}

// Root of the current range. The empty range has the zero root.
func (m *MMR) Root() common.Hash {
	return Bag(m.peaks())
}

// Proof of the leaf at index against the current Root.
func (m *MMR) Proof(index uint64) (Proof, error) {
	count := m.LeafCount()
	if index >= count {
		return Proof{}, fmt.Errorf("%w: leaf %d of %d", ErrInvalidProof, index, count)
	}

	ms := mountains(count)
	peaks := m.peaks()
	items := make([]common.Hash, 0, 64)
	own := 0
	for i, mt := range ms {
		if index < mt.offset || index >= mt.offset+(1<<mt.height) {
			continue
		}
		own = i
		local := index - mt.offset
		for _, layer := range m.layers(mt)[:mt.height] {
			items = append(items, layer[local^1])
			local >>= 1
		}
		break
	}
	for i, p := range peaks {
		if i != own {
			items = append(items, p)
		}
	}

	return Proof{
		LeafIndex: index,
		LeafCount: count,
		Items:     items,
	}, nil
}
