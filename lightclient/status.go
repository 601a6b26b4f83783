package lightclient

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/beefy-bridge/utils/bits"
)

// Status of a pending verification.
type Status uint8

const (
	StatusUnknown Status = iota
	// StatusInitiated: stored, the challenge seed block is not produced yet.
	StatusInitiated
	// StatusAwaitingChallengeWindow: the seed is known and completion is accepted.
	StatusAwaitingChallengeWindow
	StatusCompleted
	StatusExpired
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusInitiated:
		return "initiated"
	case StatusAwaitingChallengeWindow:
		return "awaiting-challenge-window"
	case StatusCompleted:
		return "completed"
	case StatusExpired:
		return "expired"
	case StatusRejected:
		return "rejected"
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired || s == StatusRejected
}

// PendingCommitment is the state kept between the two phases.
// Terminal entries are kept as tombstones without their bitfield.
type PendingCommitment struct {
	ID             uint64
	CommitmentHash common.Hash
	Bitfield       bits.Array
	SubmittedAt    idx.Block
	Submitter      common.Address
	ValidatorSetID uint64
	// Status is either StatusInitiated or a terminal status. The intermediate
	// states are derived from the ledger height.
	Status Status
}

// SeedBlock is the block whose hash seeds the challenge.
func (p *PendingCommitment) SeedBlock(wait idx.Block) idx.Block {
	return p.SubmittedAt + wait
}

// Ledger gives access to the verifying chain: its height and the hashes of
// recent blocks. Only hashes of blocks strictly below the current one, within
// the chain's lookback horizon, are available.
type Ledger interface {
	CurrentBlock() idx.Block
	BlockHash(n idx.Block) (common.Hash, bool)
}
