package lightclient

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/kvdb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/beefy-bridge/registry"
)

// key layout of the light client database:
//   "s"            -> state
//   "p" + id(be64) -> PendingCommitment
var (
	stateKey      = []byte("s")
	pendingPrefix = []byte("p")
)

// state is the global light client state. It is written as one value so
// that a completion updates it atomically together with the pending entry.
type state struct {
	LatestMMRRoot    common.Hash
	LatestBeefyBlock uint64
	NextID           uint64
	SetID            uint64
	SetRoot          common.Hash
	SetLength        uint64
}

func (s state) registry() (*registry.Registry, error) {
	return registry.New(s.SetID, s.SetRoot, s.SetLength)
}

type putter interface {
	Put(key []byte, value []byte) error
}

// Store persists light client state in a key-value database.
type Store struct {
	db kvdb.Store
}

// NewStore wraps db. The database is owned by the caller.
func NewStore(db kvdb.Store) *Store {
	return &Store{db: db}
}

func pendingKey(id uint64) []byte {
	return append(append([]byte(nil), pendingPrefix...), bigendian.Uint64ToBytes(id)...)
}

func (s *Store) get(key []byte, to interface{}) (bool, error) {
	raw, err := s.db.Get(key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := rlp.DecodeBytes(raw, to); err != nil {
		return false, fmt.Errorf("decode %x: %w", key, err)
	}
	return true, nil
}

func put(w putter, key []byte, val interface{}) error {
	raw, err := rlp.EncodeToBytes(val)
	if err != nil {
		return err
	}
	return w.Put(key, raw)
}

func (s *Store) loadState() (state, bool, error) {
	var st state
	ok, err := s.get(stateKey, &st)
	return st, ok, err
}

func (s *Store) saveState(st state) error {
	return put(s.db, stateKey, st)
}

// GetPending returns the entry with id or nil.
func (s *Store) GetPending(id uint64) (*PendingCommitment, error) {
	var pc PendingCommitment
	ok, err := s.get(pendingKey(id), &pc)
	if !ok || err != nil {
		return nil, err
	}
	return &pc, nil
}

// insert stores a new pending entry and the advanced id counter in one batch.
func (s *Store) insert(pc *PendingCommitment, st state) error {
	batch := s.db.NewBatch()
	if err := put(batch, pendingKey(pc.ID), pc); err != nil {
		return err
	}
	if err := put(batch, stateKey, st); err != nil {
		return err
	}
	return batch.Write()
}

// finalize writes tombstones and the new state in one batch.
func (s *Store) finalize(st *state, tombstones ...*PendingCommitment) error {
	batch := s.db.NewBatch()
	for _, pc := range tombstones {
		if err := put(batch, pendingKey(pc.ID), pc); err != nil {
			return err
		}
	}
	if st != nil {
		if err := put(batch, stateKey, *st); err != nil {
			return err
		}
	}
	return batch.Write()
}

// forEachPending iterates over all stored entries in id order.
func (s *Store) forEachPending(fn func(*PendingCommitment) error) error {
	it := s.db.NewIterator(pendingPrefix, nil)
	defer it.Release()
	for it.Next() {
		var pc PendingCommitment
		if err := rlp.DecodeBytes(it.Value(), &pc); err != nil {
			return fmt.Errorf("decode pending %x: %w", it.Key(), err)
		}
		if err := fn(&pc); err != nil {
			return err
		}
	}
	return it.Error()
}
