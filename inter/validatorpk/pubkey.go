// Package validatorpk handles validator public keys of the source chain and the
// recovery of validator addresses from commitment signatures.
//
// Validators are identified on the verifying side by their 20-byte address
// (the last 20 bytes of keccak256 over the uncompressed key), which is what the
// validator-set Merkle tree commits to.
package validatorpk

import (
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrEmptyPubKey       = errors.New("empty pubkey")
	ErrUnsupportedType   = errors.New("unsupported pubkey type")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInvalidPubKeySize = errors.New("invalid pubkey size")
)

// PubKey represents a validator's public key.
// Type selects the curve, Raw holds the key bytes (33-byte compressed or
// 65-byte uncompressed for Secp256k1).
type PubKey struct {
	Type uint8
	Raw  []byte
}

// Types defines the supported public key types.
var Types = struct {
	Secp256k1 uint8
}{
	Secp256k1: 0xc0,
}

// FromECDSA wraps an in-memory key.
func FromECDSA(pub *ecdsa.PublicKey) PubKey {
	return PubKey{
		Type: Types.Secp256k1,
		Raw:  crypto.FromECDSAPub(pub),
	}
}

// Empty checks if the public key is uninitialized.
func (pk PubKey) Empty() bool {
	return len(pk.Raw) == 0 && pk.Type == 0
}

// String returns the 0x-prefixed hex of Type followed by Raw.
func (pk PubKey) String() string {
	return "0x" + common.Bytes2Hex(pk.Bytes())
}

// Bytes returns [Type] + Raw.
func (pk PubKey) Bytes() []byte {
	return append([]byte{pk.Type}, pk.Raw...)
}

// Copy creates a deep copy of the PubKey.
func (pk PubKey) Copy() PubKey {
	return PubKey{
		Type: pk.Type,
		Raw:  common.CopyBytes(pk.Raw),
	}
}

// ECDSA decodes Raw into a curve point.
func (pk PubKey) ECDSA() (*ecdsa.PublicKey, error) {
	if pk.Type != Types.Secp256k1 {
		return nil, ErrUnsupportedType
	}
	switch len(pk.Raw) {
	case 33:
		return crypto.DecompressPubkey(pk.Raw)
	case 65:
		return crypto.UnmarshalPubkey(pk.Raw)
	default:
		return nil, ErrInvalidPubKeySize
	}
}

// Address derives the validator address committed to by the validator set.
func (pk PubKey) Address() (common.Address, error) {
	pub, err := pk.ECDSA()
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// FromString parses a hex string (with or without "0x" prefix) into a PubKey.
func FromString(str string) (PubKey, error) {
	return FromBytes(common.FromHex(str))
}

// FromBytes reconstructs a PubKey from [Type] + Raw.
func FromBytes(b []byte) (PubKey, error) {
	if len(b) == 0 {
		return PubKey{}, ErrEmptyPubKey
	}
	return PubKey{b[0], common.CopyBytes(b[1:])}, nil
}

// MarshalText implements encoding.TextMarshaler, used by the TOML config.
func (pk *PubKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *PubKey) UnmarshalText(input []byte) error {
	res, err := FromString(string(input))
	if err != nil {
		return err
	}
	*pk = res
	return nil
}
