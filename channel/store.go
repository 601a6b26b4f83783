package channel

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/kvdb"
	"github.com/ethereum/go-ethereum/common"
)

// key layout of the channel database:
//   "i" + channel -> latest delivered inbound nonce
//   "o" + channel -> latest sent outbound nonce
var (
	inboundPrefix  = []byte("i")
	outboundPrefix = []byte("o")
)

// Store persists channel nonces. Several channels may share one Store,
// entries are keyed by channel address.
type Store struct {
	db kvdb.Store
}

// NewStore wraps db. The database is owned by the caller.
func NewStore(db kvdb.Store) *Store {
	return &Store{db: db}
}

func nonceKey(prefix []byte, channel common.Address) []byte {
	return append(append([]byte(nil), prefix...), channel.Bytes()...)
}

func (s *Store) getNonce(key []byte) (uint64, error) {
	raw, err := s.db.Get(key)
	if err != nil || len(raw) == 0 {
		return 0, err
	}
	return bigendian.BytesToUint64(raw), nil
}

func (s *Store) setNonce(key []byte, n uint64) error {
	return s.db.Put(key, bigendian.Uint64ToBytes(n))
}

// InboundNonce is the nonce of the latest delivered message.
func (s *Store) InboundNonce(channel common.Address) (uint64, error) {
	return s.getNonce(nonceKey(inboundPrefix, channel))
}

func (s *Store) SetInboundNonce(channel common.Address, n uint64) error {
	return s.setNonce(nonceKey(inboundPrefix, channel), n)
}

// OutboundNonce is the nonce of the latest sent message.
func (s *Store) OutboundNonce(channel common.Address) (uint64, error) {
	return s.getNonce(nonceKey(outboundPrefix, channel))
}

func (s *Store) SetOutboundNonce(channel common.Address, n uint64) error {
	return s.setNonce(nonceKey(outboundPrefix, channel), n)
}
