// Package relayer holds the submitting side of the bridge: it turns validator
// signatures and source chain data into the proofs the light client and the
// channels verify.
package relayer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/beefy-bridge/bridge"
	"github.com/rony4d/beefy-bridge/inter"
	"github.com/rony4d/beefy-bridge/inter/validatorpk"
	"github.com/rony4d/beefy-bridge/lightclient"
	"github.com/rony4d/beefy-bridge/merkle"
	"github.com/rony4d/beefy-bridge/registry"
	"github.com/rony4d/beefy-bridge/utils/bits"
)

// ErrMissingSignature is returned when the challenge selects a validator
// whose signature the relayer does not have.
var ErrMissingSignature = errors.New("missing signature of challenged validator")

// Signatures maps validator positions to their commitment signatures.
type Signatures map[uint64][]byte

// Positions returns the signed positions in ascending order.
func (s Signatures) Positions() []uint64 {
	res := make([]uint64, 0, len(s))
	for p := range s {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// BeefyProver knows a validator set and can build membership proofs for it.
// On devnets it also holds the validator keys and can sign.
type BeefyProver struct {
	setID uint64
	addrs []common.Address
	keys  []*ecdsa.PrivateKey
	tree  *merkle.Tree
	reg   *registry.Registry
}

// NewBeefyProver builds the set tree of addrs.
func NewBeefyProver(setID uint64, addrs []common.Address) (*BeefyProver, error) {
	reg, tree, err := registry.FromAddresses(setID, addrs)
	if err != nil {
		return nil, err
	}
	return &BeefyProver{
		setID: setID,
		addrs: append([]common.Address(nil), addrs...),
		tree:  tree,
		reg:   reg,
	}, nil
}

// NewSigningProver is a prover that also holds the validator keys.
func NewSigningProver(setID uint64, keys []*ecdsa.PrivateKey) (*BeefyProver, error) {
	addrs := make([]common.Address, len(keys))
	for i, k := range keys {
		addrs[i] = crypto.PubkeyToAddress(k.PublicKey)
	}
	p, err := NewBeefyProver(setID, addrs)
	if err != nil {
		return nil, err
	}
	p.keys = keys
	return p, nil
}

// Registry of the prover's set.
func (p *BeefyProver) Registry() *registry.Registry {
	return p.reg
}

// Address of the validator at pos.
func (p *BeefyProver) Address(pos uint64) common.Address {
	return p.addrs[pos]
}

// MembershipProof of the validator at pos.
func (p *BeefyProver) MembershipProof(pos uint64) ([]common.Hash, error) {
	return p.tree.Proof(pos)
}

// Sign collects signatures of the given validators over the commitment.
func (p *BeefyProver) Sign(c inter.Commitment, positions []uint64) (Signatures, error) {
	if p.keys == nil {
		return nil, errors.New("prover holds no validator keys")
	}
	hash := c.Hash()
	sigs := make(Signatures, len(positions))
	for _, pos := range positions {
		if pos >= uint64(len(p.keys)) {
			return nil, fmt.Errorf("no validator at position %d", pos)
		}
		sig, err := validatorpk.Sign(p.keys[pos], hash)
		if err != nil {
			return nil, err
		}
		sigs[pos] = sig
	}
	return sigs, nil
}

// InitialSubmission claims every signed validator and proves the first one.
func (p *BeefyProver) InitialSubmission(
	hash common.Hash,
	sigs Signatures,
	rules bridge.LightClientRules,
	submitter common.Address,
) (lightclient.InitialSubmission, error) {
	positions := sigs.Positions()
	bf, err := lightclient.CreateInitialBitfield(positions, p.reg.Length(), rules)
	if err != nil {
		return lightclient.InitialSubmission{}, err
	}
	first := positions[0]
	proof, err := p.tree.Proof(first)
	if err != nil {
		return lightclient.InitialSubmission{}, err
	}
	return lightclient.InitialSubmission{
		CommitmentHash: hash,
		Bitfield:       bf,
		Signature:      sigs[first],
		Position:       first,
		Validator:      p.addrs[first],
		Proof:          proof,
		Submitter:      submitter,
	}, nil
}

// ValidatorProof answers a challenge bitfield.
func (p *BeefyProver) ValidatorProof(sigs Signatures, challenge bits.Array) (inter.ValidatorProof, error) {
	positions := challenge.Positions()
	res := inter.ValidatorProof{
		Signatures:   make([][]byte, 0, len(positions)),
		Positions:    make([]uint64, 0, len(positions)),
		PublicKeys:   make([]common.Address, 0, len(positions)),
		MerkleProofs: make([][]common.Hash, 0, len(positions)),
	}
	for _, pos := range positions {
		sig, ok := sigs[pos]
		if !ok {
			return inter.ValidatorProof{}, fmt.Errorf("%w: position %d", ErrMissingSignature, pos)
		}
		proof, err := p.tree.Proof(pos)
		if err != nil {
			return inter.ValidatorProof{}, err
		}
		res.Signatures = append(res.Signatures, sig)
		res.Positions = append(res.Positions, pos)
		res.PublicKeys = append(res.PublicKeys, p.addrs[pos])
		res.MerkleProofs = append(res.MerkleProofs, proof)
	}
	return res, nil
}
