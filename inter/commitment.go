// Package inter defines the data structures exchanged between the source chain,
// the relayer and the verifying side of the bridge.
//
// Key concepts:
//   - Commitment: the finality statement signed by the source validator set.
//     Its Payload is the root of the source chain's Merkle Mountain Range.
//   - MMRLeaf: one source block digest stored in that range. It also announces
//     the validator set that signs the following commitments.
//   - ValidatorProof: the signatures of the randomly challenged validators,
//     together with their membership proofs.
//   - Message: a unit of cross-chain communication delivered by a channel.
//
// Hashing:
//
// Commitments and leaves are hashed over their SCALE encoding (little-endian
// integers, fixed-size hashes, no framing). Messages are hashed the way the
// verifying chain's contracts hash them: solidity tight packing of
// (uint256 nonce, string senderApplicationId, address target, bytes payload).
// If the byte order of any field differs from the source chain, signatures and
// proofs will not verify.
package inter

import (
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v2/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Commitment identifies a finality statement signed by the validator set.
type Commitment struct {
	// Payload is the MMR root of the source chain at BlockNumber.
	Payload common.Hash
	// BlockNumber of the finalized source block.
	BlockNumber uint64
	// ValidatorSetID of the set which signed the statement.
	ValidatorSetID uint64
}

// MarshalSCALE encodes payload ‖ u64le(blockNumber) ‖ u64le(validatorSetId).
func (c Commitment) MarshalSCALE() []byte {
	return encodeSCALE(commitmentSCALE{
		Payload:        types.H256(c.Payload),
		BlockNumber:    types.U64(c.BlockNumber),
		ValidatorSetID: types.U64(c.ValidatorSetID),
	})
}

// UnmarshalSCALE is the strict inverse of MarshalSCALE.
func (c *Commitment) UnmarshalSCALE(raw []byte) error {
	var w commitmentSCALE
	if err := decodeSCALE(raw, &w); err != nil {
		return err
	}
	c.Payload = common.Hash(w.Payload)
	c.BlockNumber = uint64(w.BlockNumber)
	c.ValidatorSetID = uint64(w.ValidatorSetID)
	return nil
}

// Hash is the digest validators sign.
func (c Commitment) Hash() common.Hash {
	return crypto.Keccak256Hash(c.MarshalSCALE())
}

func (c Commitment) String() string {
	return fmt.Sprintf("{block=%d set=%d payload=%s}", c.BlockNumber, c.ValidatorSetID, c.Payload.TerminalString())
}
