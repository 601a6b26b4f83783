package relayer

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/beefy-bridge/inter"
	"github.com/rony4d/beefy-bridge/mmr"
)

// ChannelCommitment is a batch of outbound messages committed on the source chain.
type ChannelCommitment struct {
	Hash        common.Hash
	Messages    []inter.Message
	SourceBlock uint64
	LeafIndex   uint64
}

// SourceChain simulates the MMR-producing side of the bridge for devnets
// and tests: every appended leaf is one source block. Proofs always refer to
// the current range, so they must be taken before more leaves are appended.
type SourceChain struct {
	mmr    *mmr.MMR
	number uint64
	setID  uint64
}

// NewSourceChain starts an empty chain signed by set setID.
func NewSourceChain(setID uint64) *SourceChain {
	return &SourceChain{
		mmr:   mmr.New(),
		setID: setID,
	}
}

// AppendLeaf adds a block digest and returns its leaf index.
func (s *SourceChain) AppendLeaf(leaf inter.MMRLeaf) uint64 {
	s.number++
	return s.mmr.Append(leaf.Hash())
}

// NextLeaf returns a leaf for the next block announcing set nextSetID.
func (s *SourceChain) NextLeaf(nextSetID uint64, nextLen uint32, nextRoot common.Hash) inter.MMRLeaf {
	var num [8]byte
	for i := range num {
		num[i] = byte(s.number >> (8 * i))
	}
	return inter.MMRLeaf{
		ParentNumber:         uint32(s.number),
		ParentHash:           crypto.Keccak256Hash([]byte("source-block"), num[:]),
		ParachainHeadsRoot:   crypto.Keccak256Hash([]byte("heads"), num[:]),
		NextAuthoritySetID:   nextSetID,
		NextAuthoritySetLen:  nextLen,
		NextAuthoritySetRoot: nextRoot,
	}
}

// AppendChannelCommitment commits msgs in a new block.
func (s *SourceChain) AppendChannelCommitment(msgs []inter.Message) (ChannelCommitment, error) {
	root, err := inter.MessagesRoot(msgs)
	if err != nil {
		return ChannelCommitment{}, err
	}
	s.number++
	idx := s.mmr.Append(inter.ChannelCommitmentLeaf(s.number, root))
	return ChannelCommitment{
		Hash:        root,
		Messages:    msgs,
		SourceBlock: s.number,
		LeafIndex:   idx,
	}, nil
}

// Commitment finalizes the current range.
func (s *SourceChain) Commitment() inter.Commitment {
	return inter.Commitment{
		Payload:        s.mmr.Root(),
		BlockNumber:    s.number,
		ValidatorSetID: s.setID,
	}
}

// Proof of the leaf at index against the current range.
func (s *SourceChain) Proof(index uint64) (mmr.Proof, error) {
	return s.mmr.Proof(index)
}

// SetValidatorSet switches the signing set, after a handover leaf.
func (s *SourceChain) SetValidatorSet(id uint64) {
	s.setID = id
}

// BlockNumber of the latest source block.
func (s *SourceChain) BlockNumber() uint64 {
	return s.number
}
