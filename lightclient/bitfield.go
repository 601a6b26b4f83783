package lightclient

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/rony4d/beefy-bridge/bridge"
	"github.com/rony4d/beefy-bridge/utils/bits"
)

// CreateInitialBitfield marks the validators whose signatures the submitter
// claims to hold. The claim must reach the signature threshold.
func CreateInitialBitfield(positions []uint64, length uint64, rules bridge.LightClientRules) (bits.Array, error) {
	bf := bits.New(length)
	for _, p := range positions {
		if p >= length {
			return bits.Array{}, fmt.Errorf("%w: %d >= %d", ErrOutOfRange, p, length)
		}
		if bf.Has(p) {
			return bits.Array{}, fmt.Errorf("%w: %d", ErrDuplicatePosition, p)
		}
		_ = bf.Set(p)
	}
	if required := rules.RequiredSignatures(length); bf.Count() < required {
		return bits.Array{}, fmt.Errorf("%w: %d of %d required", ErrInsufficientSignatures, bf.Count(), required)
	}
	return bf, nil
}

// CreateRandomBitfield picks quorum distinct validators out of length,
// deterministically from seed.
func CreateRandomBitfield(seed common.Hash, length, quorum uint64) (bits.Array, error) {
	full := bits.New(length)
	for i := uint64(0); i < length; i++ {
		_ = full.Set(i)
	}
	return RandomNBitsWithPriorCheck(seed, full, quorum)
}

// RandomNBitsWithPriorCheck samples n distinct bits that are set in prior.
//
// Candidate i is keccak256(u256be(seed + i)) mod prior.Size, with seed + i
// wrapping at 2^256. A candidate is skipped if it is not set in prior or was
// already chosen. The result depends only on seed, prior and n.
func RandomNBitsWithPriorCheck(seed common.Hash, prior bits.Array, n uint64) (bits.Array, error) {
	if available := prior.Count(); n > available {
		return bits.Array{}, fmt.Errorf("%w: cannot sample %d of %d claimed", ErrInsufficientSignatures, n, available)
	}

	res := bits.New(prior.Size)
	if n == 0 {
		return res, nil
	}

	var (
		counter = new(uint256.Int).SetBytes32(seed[:])
		one     = uint256.NewInt(1)
		modulus = uint256.NewInt(prior.Size)
		r       = new(uint256.Int)
	)
	for found := uint64(0); found < n; counter.Add(counter, one) {
		word := counter.Bytes32()
		r.SetBytes(crypto.Keccak256(word[:]))
		index := r.Mod(r, modulus).Uint64()

		if !prior.Has(index) || res.Has(index) {
			continue
		}
		_ = res.Set(index)
		found++
	}
	return res, nil
}
