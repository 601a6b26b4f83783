// Package evmcore models the verifying chain the bridge contracts execute on.
//
// Key concepts:
//   - EvmHeader: a sealed verifying-chain block, convertible to go-ethereum's
//     types.Header so that block hashes are real Ethereum header hashes
//   - Ledger: an append-only chain of headers with EVM BLOCKHASH semantics
//   - Logs: events emitted while a block is open are sealed into it
//
// BLOCKHASH semantics:
//   - the block being executed ("current") has no hash yet
//   - only the 256 most recent sealed blocks expose their hash
//
// The light client draws its challenge seed from these hashes, so a relayer
// cannot know the seed at the time it commits to its bitfield.
package evmcore

import (
	"math/big"
	"sync"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// BlockHashHorizon is the number of past block hashes readable by the EVM.
const BlockHashHorizon idx.Block = 256

// EvmHeader is a sealed block of the verifying chain.
type EvmHeader struct {
	Number     idx.Block
	Hash       common.Hash
	ParentHash common.Hash
	Time       uint64
	Coinbase   common.Address
	Bloom      types.Bloom
	Extra      []byte
}

// EthHeader converts the header into go-ethereum's representation.
func (h *EvmHeader) EthHeader() *types.Header {
	return &types.Header{
		ParentHash: h.ParentHash,
		UncleHash:  types.EmptyUncleHash,
		Coinbase:   h.Coinbase,
		TxHash:     types.EmptyRootHash,
		Bloom:      h.Bloom,
		Difficulty: new(big.Int),
		Number:     new(big.Int).SetUint64(uint64(h.Number)),
		Time:       h.Time,
		Extra:      common.CopyBytes(h.Extra),
	}
}

// Ledger is an in-memory verifying chain. It is safe for concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	headers []*EvmHeader
	// logs emitted in the open block
	pending []*types.Log
	logs    map[idx.Block][]*types.Log
	now     func() time.Time
}

// NewLedger seals a genesis block with the given extra data and opens block 1.
func NewLedger(genesisExtra []byte) *Ledger {
	l := &Ledger{
		logs: make(map[idx.Block][]*types.Log),
		now:  time.Now,
	}
	l.seal(genesisExtra)
	return l
}

// seal closes the open block. Caller holds the lock.
func (l *Ledger) seal(extra []byte) *EvmHeader {
	h := &EvmHeader{
		Number: idx.Block(len(l.headers)),
		Time:   uint64(l.now().Unix()),
		Extra:  common.CopyBytes(extra),
	}
	if len(l.headers) > 0 {
		h.ParentHash = l.headers[len(l.headers)-1].Hash
	}
	if len(l.pending) > 0 {
		h.Bloom = types.CreateBloom(types.Receipts{{Logs: l.pending}})
		l.logs[h.Number] = l.pending
		l.pending = nil
	}
	eth := h.EthHeader()
	h.Hash = eth.Hash()
	for _, lg := range l.logs[h.Number] {
		lg.BlockHash = h.Hash
	}
	l.headers = append(l.headers, h)
	return h
}

// Mine seals n blocks. Extra data mixes the block number into the hash of
// otherwise empty blocks.
func (l *Ledger) Mine(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := 0; i < n; i++ {
		var extra [8]byte
		num := uint64(len(l.headers))
		for j := range extra {
			extra[j] = byte(num >> (8 * j))
		}
		l.seal(crypto.Keccak256(extra[:]))
	}
}

// CurrentBlock is the number of the open block.
func (l *Ledger) CurrentBlock() idx.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return idx.Block(len(l.headers))
}

// BlockHash follows BLOCKHASH: sealed blocks within the horizon only.
func (l *Ledger) BlockHash(n idx.Block) (common.Hash, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	current := idx.Block(len(l.headers))
	if n >= current || current-n > BlockHashHorizon {
		return common.Hash{}, false
	}
	return l.headers[n].Hash, true
}

// Header returns a sealed header or nil.
func (l *Ledger) Header(n idx.Block) *EvmHeader {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if uint64(n) >= uint64(len(l.headers)) {
		return nil
	}
	return l.headers[n]
}

// AddLogs appends logs to the open block, assigning block number and index.
func (l *Ledger) AddLogs(logs []*types.Log) {
	l.mu.Lock()
	defer l.mu.Unlock()
	current := uint64(len(l.headers))
	for _, lg := range logs {
		lg.BlockNumber = current
		lg.Index = uint(len(l.pending))
		l.pending = append(l.pending, lg)
	}
}

// Logs of a sealed block.
func (l *Ledger) Logs(n idx.Block) []*types.Log {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.logs[n]
}
