package inter

import (
	"errors"

	"github.com/centrifuge/go-substrate-rpc-client/v2/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/rony4d/beefy-bridge/merkle"
)

// ErrNoMessages is returned when committing to an empty message set.
var ErrNoMessages = errors.New("empty message set")

// Message is a unit of cross-chain communication.
type Message struct {
	Nonce                    uint64
	SenderApplicationID      string
	TargetApplicationAddress common.Address
	Payload                  []byte
}

// Hash authenticates the message: keccak256 over the tightly packed
// (uint256 nonce, string senderApplicationId, address target, bytes payload).
func (m Message) Hash() common.Hash {
	nonce := uint256.NewInt(m.Nonce).Bytes32()
	return crypto.Keccak256Hash(
		nonce[:],
		[]byte(m.SenderApplicationID),
		m.TargetApplicationAddress.Bytes(),
		m.Payload,
	)
}

// MessagesRoot is the Merkle root over the message hashes in order.
func MessagesRoot(msgs []Message) (common.Hash, error) {
	if len(msgs) == 0 {
		return common.Hash{}, ErrNoMessages
	}
	leaves := make([]common.Hash, len(msgs))
	for i, m := range msgs {
		leaves[i] = m.Hash()
	}
	return merkle.Root(leaves)
}

// ChannelCommitmentLeaf binds a channel commitment to the source block that
// produced it. This is the leaf proven against the light client's MMR root.
func ChannelCommitmentLeaf(sourceBlockNumber uint64, commitmentHash common.Hash) common.Hash {
	return crypto.Keccak256Hash(encodeSCALE(channelLeafSCALE{
		SourceBlock: types.U64(sourceBlockNumber),
		Commitment:  types.H256(commitmentHash),
	}))
}
