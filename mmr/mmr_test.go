package mmr

import (
	"encoding/binary"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/rony4d/beefy-bridge/merkle"
)

func leafAt(i uint64) common.Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], i)
	return crypto.Keccak256Hash([]byte("leaf"), buf[:])
}

func build(n uint64) *MMR {
	m := New()
	for i := uint64(0); i < n; i++ {
		m.Append(leafAt(i))
	}
	return m
}

func TestMMR_KnownRoots(t *testing.T) {
	l0, l1, l2 := leafAt(0), leafAt(1), leafAt(2)

	assert.Equal(t, common.Hash{}, New().Root())
	assert.Equal(t, l0, build(1).Root())
	assert.Equal(t, merkle.HashPair(l0, l1), build(2).Root())
	// peaks [H(l0,l1), l2] bagged from the right
	assert.Equal(t, merkle.HashPair(l2, merkle.HashPair(l0, l1)), build(3).Root())
}

func TestMMR_AllProofs(t *testing.T) {
	var v Verifier
	for n := uint64(1); n <= 70; n++ {
		m := build(n)
		root := m.Root()
		for i := uint64(0); i < n; i++ {
			proof, err := m.Proof(i)
			require.NoError(t, err)
			require.NoErrorf(t, v.Verify(root, leafAt(i), proof), "n=%d i=%d", n, i)

			// another leaf under the same proof
			require.ErrorIs(t, v.Verify(root, leafAt(n+1), proof), ErrInvalidProof)
		}
	}
}

func TestMMR_MalformedProofs(t *testing.T) {
	var v Verifier
	m := build(11)
	root := m.Root()
	proof, err := m.Proof(4)
	require.NoError(t, err)

	short := proof
	short.Items = proof.Items[:len(proof.Items)-1]
	assert.ErrorIs(t, v.Verify(root, leafAt(4), short), ErrInvalidProof)

	outside := proof
	outside.LeafIndex = 11
	assert.ErrorIs(t, v.Verify(root, leafAt(4), outside), ErrInvalidProof)

	recounted := proof
	recounted.LeafCount = 12
	assert.ErrorIs(t, v.Verify(root, leafAt(4), recounted), ErrInvalidProof)

	_, err = m.Proof(11)
	assert.ErrorIs(t, err, ErrInvalidProof)
}

// TestMMR_BitFlipProperty: any single flipped bit in any proof item breaks verification.
func TestMMR_BitFlipProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.Uint64Range(2, 200).Draw(t, "n").(uint64)
		i := rapid.Uint64Range(0, n-1).Draw(t, "i").(uint64)
		m := build(n)
		proof, err := m.Proof(i)
		if err != nil {
			t.Fatalf("proof: %v", err)
		}
		item := rapid.IntRange(0, len(proof.Items)-1).Draw(t, "item").(int)
		bit := rapid.IntRange(0, 255).Draw(t, "bit").(int)

		tampered := Proof{
			LeafIndex: proof.LeafIndex,
			LeafCount: proof.LeafCount,
			Items:     append([]common.Hash(nil), proof.Items...),
		}
		tampered.Items[item][bit/8] ^= 1 << uint(bit%8)

		if err := (Verifier{}).Verify(m.Root(), leafAt(i), tampered); err == nil {
			t.Fatalf("tampered proof accepted: n=%d i=%d item=%d bit=%d", n, i, item, bit)
		}
	})
}
