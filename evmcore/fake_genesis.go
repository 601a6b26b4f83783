package evmcore

import (
	"crypto/ecdsa"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/beefy-bridge/bridge"
	"github.com/rony4d/beefy-bridge/bridge/genesis"
)

// FakeKey returns the deterministic key of fake validator n.
// Never use these keys outside of devnets and tests.
func FakeKey(n int) *ecdsa.PrivateKey {
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], uint64(n))
	for i := 0; ; i++ {
		// a keccak output is a valid secp256k1 scalar with overwhelming probability
		key, err := crypto.ToECDSA(crypto.Keccak256([]byte("fake-validator"), seed[:], []byte{byte(i)}))
		if err == nil {
			return key
		}
	}
}

// FakeValidators returns the keys and addresses of n fake validators.
func FakeValidators(n int) ([]*ecdsa.PrivateKey, []common.Address) {
	keys := make([]*ecdsa.PrivateKey, n)
	addrs := make([]common.Address, n)
	for i := range keys {
		keys[i] = FakeKey(i)
		addrs[i] = crypto.PubkeyToAddress(keys[i].PublicKey)
	}
	return keys, addrs
}

// FakeGenesis anchors a devnet on n fake validators forming set setID.
func FakeGenesis(rules bridge.Rules, setID uint64, n int) (genesis.Genesis, []*ecdsa.PrivateKey, error) {
	keys, addrs := FakeValidators(n)
	gen, err := genesis.FromAddresses(rules, setID, addrs)
	if err != nil {
		return genesis.Genesis{}, nil, err
	}
	return gen, keys, nil
}
