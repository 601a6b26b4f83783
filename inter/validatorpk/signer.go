package validatorpk

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru"
)

// SignatureLength is r ‖ s ‖ v.
const SignatureLength = crypto.SignatureLength

// sigCacheKey identifies one recovery.
type sigCacheKey struct {
	hash common.Hash
	sig  [SignatureLength]byte
}

// Recoverer recovers signer addresses and memoizes the results. The same
// signatures are typically checked twice: once in the initial submission and
// again in the completion that samples the signer.
type Recoverer struct {
	cache *lru.Cache
}

// NewRecoverer with room for size recoveries.
func NewRecoverer(size int) *Recoverer {
	cache, err := lru.New(size)
	if err != nil {
		panic(err)
	}
	return &Recoverer{cache: cache}
}

var globalRecoverer = NewRecoverer(40000)

// RecoverAddress returns the address that produced sig over hash.
// Both V encodings are accepted: 0/1 and the Ethereum 27/28.
func (r *Recoverer) RecoverAddress(hash common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}
	key := sigCacheKey{hash: hash}
	copy(key.sig[:], sig)
	if addr, ok := r.cache.Get(key); ok {
		return addr.(common.Address), nil
	}

	normalized := common.CopyBytes(sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	if normalized[64] > 1 {
		return common.Address{}, ErrInvalidSignature
	}
	pub, err := crypto.SigToPub(hash.Bytes(), normalized)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	addr := crypto.PubkeyToAddress(*pub)
	r.cache.Add(key, addr)
	return addr, nil
}

// Verify reports whether sig over hash was produced by expected.
func (r *Recoverer) Verify(expected common.Address, hash common.Hash, sig []byte) bool {
	addr, err := r.RecoverAddress(hash, sig)
	return err == nil && addr == expected
}

// RecoverAddress uses the process-wide recoverer.
func RecoverAddress(hash common.Hash, sig []byte) (common.Address, error) {
	return globalRecoverer.RecoverAddress(hash, sig)
}

// VerifySignature uses the process-wide recoverer.
func VerifySignature(expected common.Address, hash common.Hash, sig []byte) bool {
	return globalRecoverer.Verify(expected, hash, sig)
}

// Sign produces an Ethereum-style signature (V = 27/28) over hash.
func Sign(key *ecdsa.PrivateKey, hash common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}
