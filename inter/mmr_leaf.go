package inter

import (
	"github.com/centrifuge/go-substrate-rpc-client/v2/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MMRLeaf is the per-block digest the source chain appends to its MMR.
type MMRLeaf struct {
	ParentNumber         uint32
	ParentHash           common.Hash
	ParachainHeadsRoot   common.Hash
	NextAuthoritySetID   uint64
	NextAuthoritySetLen  uint32
	NextAuthoritySetRoot common.Hash
}

func (l MMRLeaf) MarshalSCALE() []byte {
	return encodeSCALE(mmrLeafSCALE{
		ParentNumber:         types.U32(l.ParentNumber),
		ParentHash:           types.H256(l.ParentHash),
		ParachainHeadsRoot:   types.H256(l.ParachainHeadsRoot),
		NextAuthoritySetID:   types.U64(l.NextAuthoritySetID),
		NextAuthoritySetLen:  types.U32(l.NextAuthoritySetLen),
		NextAuthoritySetRoot: types.H256(l.NextAuthoritySetRoot),
	})
}

func (l *MMRLeaf) UnmarshalSCALE(raw []byte) error {
	var w mmrLeafSCALE
	if err := decodeSCALE(raw, &w); err != nil {
		return err
	}
	*l = MMRLeaf{
		ParentNumber:         uint32(w.ParentNumber),
		ParentHash:           common.Hash(w.ParentHash),
		ParachainHeadsRoot:   common.Hash(w.ParachainHeadsRoot),
		NextAuthoritySetID:   uint64(w.NextAuthoritySetID),
		NextAuthoritySetLen:  uint32(w.NextAuthoritySetLen),
		NextAuthoritySetRoot: common.Hash(w.NextAuthoritySetRoot),
	}
	return nil
}

// Hash is the MMR leaf hash.
func (l MMRLeaf) Hash() common.Hash {
	return crypto.Keccak256Hash(l.MarshalSCALE())
}
