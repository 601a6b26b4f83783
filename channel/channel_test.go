package channel_test

import (
	"errors"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/kvdb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/memorydb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/beefy-bridge/channel"
	"github.com/rony4d/beefy-bridge/channel/mock"
	"github.com/rony4d/beefy-bridge/evmcore"
	"github.com/rony4d/beefy-bridge/inter"
	"github.com/rony4d/beefy-bridge/inter/validatorpk"
	"github.com/rony4d/beefy-bridge/mmr"
	"github.com/rony4d/beefy-bridge/relayer"
)

var (
	inboundAddr  = common.HexToAddress("0x1111")
	outboundAddr = common.HexToAddress("0x2222")
	appAddr      = common.HexToAddress("0xa99")
)

type rootSource struct {
	root common.Hash
}

func (r *rootSource) LatestMMRRoot() common.Hash {
	return r.root
}

type batch struct {
	commitment relayer.ChannelCommitment
	proof      mmr.Proof
}

type testEnv struct {
	t     *testing.T
	src   *relayer.SourceChain
	roots *rootSource
	store *channel.Store
	in    *channel.InboundChannel
}

func newTestEnv(t *testing.T, operator common.Address) *testEnv {
	env := &testEnv{
		t:     t,
		src:   relayer.NewSourceChain(0),
		roots: &rootSource{},
		store: channel.NewStore(memorydb.New()),
	}
	var err error
	env.in, err = channel.NewInboundChannel(channel.InboundConfig{Address: inboundAddr, Operator: operator}, env.roots, env.store)
	require.NoError(t, err)
	return env
}

// commit builds a source commitment over msgs and marks it verified.
func (env *testEnv) commit(msgs ...inter.Message) batch {
	cc, err := env.src.AppendChannelCommitment(msgs)
	require.NoError(env.t, err)
	proof, err := env.src.Proof(cc.LeafIndex)
	require.NoError(env.t, err)
	env.roots.root = env.src.Commitment().Payload
	return batch{commitment: cc, proof: proof}
}

func (env *testEnv) submit(b batch) (*channel.Receipt, error) {
	return env.in.NewCommitment(b.commitment.Hash, b.commitment.Messages, b.commitment.SourceBlock, b.proof)
}

func message(nonce uint64, payload string) inter.Message {
	return inter.Message{
		Nonce:                    nonce,
		SenderApplicationID:      "eth-app",
		TargetApplicationAddress: appAddr,
		Payload:                  []byte(payload),
	}
}

func deliveredEvents(t *testing.T, logs []*types.Log) []channel.DeliveredEvent {
	var res []channel.DeliveredEvent
	for _, l := range logs {
		if len(l.Topics) == 0 || l.Topics[0] != channel.MessageDeliveredEventID {
			continue
		}
		ev, err := channel.ParseMessageDeliveredLog(l)
		require.NoError(t, err)
		res = append(res, ev)
	}
	return res
}

func TestInbound_Idempotency(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, common.Address{})

	ctrl := gomock.NewController(t)
	app := mock.NewMockApplication(ctrl)
	app.EXPECT().HandleMessage(inboundAddr, []byte("one"), gomock.Any()).Return(nil).Times(1)
	app.EXPECT().HandleMessage(inboundAddr, []byte("two"), gomock.Any()).Return(nil).Times(1)
	env.in.Register(appAddr, app)

	b := env.commit(message(1, "one"), message(2, "two"))
	receipt, err := env.submit(b)
	require.NoError(err)
	require.Equal(2, receipt.Delivered())
	require.Equal(uint64(2), env.in.LatestNonce())
	require.Equal([]channel.DeliveredEvent{
		{Channel: inboundAddr, Nonce: 1, Result: true},
		{Channel: inboundAddr, Nonce: 2, Result: true},
	}, deliveredEvents(t, receipt.Logs))

	// a resubmission delivers nothing
	receipt, err = env.submit(b)
	require.NoError(err)
	require.Zero(receipt.Delivered())
	require.Empty(receipt.Logs)
	for _, d := range receipt.Deliveries {
		require.ErrorIs(d.Err, channel.ErrNonceMismatch)
		var nerr channel.NonceError
		require.True(errors.As(d.Err, &nerr))
		require.Equal(uint64(3), nerr.Expected)
	}
	require.Equal(uint64(2), env.in.LatestNonce())
}

func TestInbound_NonceGapHalts(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, common.Address{})

	ctrl := gomock.NewController(t)
	app := mock.NewMockApplication(ctrl)
	app.EXPECT().HandleMessage(inboundAddr, []byte("one"), gomock.Any()).Return(nil).Times(1)
	env.in.Register(appAddr, app)

	receipt, err := env.submit(env.commit(message(1, "one"), message(3, "three"), message(4, "four")))
	require.NoError(err)
	require.Len(receipt.Deliveries, 3)
	require.True(receipt.Deliveries[0].Dispatched)
	require.ErrorIs(receipt.Deliveries[1].Err, channel.ErrNonceMismatch)
	require.False(receipt.Deliveries[1].Dispatched)
	require.ErrorIs(receipt.Deliveries[2].Err, channel.ErrDispatchHalted)
	require.False(receipt.Deliveries[2].Dispatched)
	require.Equal(uint64(1), env.in.LatestNonce())
}

func TestInbound_NonceMonotonicity(t *testing.T) {
	env := newTestEnv(t, common.Address{})
	ctrl := gomock.NewController(t)
	app := mock.NewMockApplication(ctrl)
	app.EXPECT().HandleMessage(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	env.in.Register(appAddr, app)

	next, last := uint64(1), uint64(0)
	for round := 0; round < 5; round++ {
		// each batch replays the previous message and adds two new ones
		msgs := []inter.Message{message(next, "new"), message(next+1, "new")}
		if next > 1 {
			msgs = append([]inter.Message{message(next-1, "replay")}, msgs...)
		}
		receipt, err := env.submit(env.commit(msgs...))
		require.NoError(t, err)
		for _, d := range receipt.Deliveries {
			if d.Dispatched {
				assert.Equal(t, last+1, d.Nonce)
				last = d.Nonce
			}
		}
		next += 2
		require.Equal(t, next-1, env.in.LatestNonce())
		require.Equal(t, 2, receipt.Delivered())
	}
}

func TestInbound_Rejections(t *testing.T) {
	env := newTestEnv(t, common.Address{})
	ctrl := gomock.NewController(t)
	app := mock.NewMockApplication(ctrl)
	env.in.Register(appAddr, app)

	b := env.commit(message(1, "one"), message(2, "two"))

	t.Run("tampered message", func(t *testing.T) {
		msgs := append([]inter.Message(nil), b.commitment.Messages...)
		msgs[1].Payload = []byte("evil")
		_, err := env.in.NewCommitment(b.commitment.Hash, msgs, b.commitment.SourceBlock, b.proof)
		assert.ErrorIs(t, err, channel.ErrMessageSetMismatch)
	})

	t.Run("reordered messages", func(t *testing.T) {
		msgs := []inter.Message{b.commitment.Messages[1], b.commitment.Messages[0]}
		_, err := env.in.NewCommitment(b.commitment.Hash, msgs, b.commitment.SourceBlock, b.proof)
		assert.ErrorIs(t, err, channel.ErrMessageSetMismatch)
	})

	t.Run("no messages", func(t *testing.T) {
		_, err := env.in.NewCommitment(b.commitment.Hash, nil, b.commitment.SourceBlock, b.proof)
		assert.ErrorIs(t, err, channel.ErrMessageSetMismatch)
	})

	t.Run("other source block", func(t *testing.T) {
		_, err := env.in.NewCommitment(b.commitment.Hash, b.commitment.Messages, b.commitment.SourceBlock+1, b.proof)
		assert.ErrorIs(t, err, channel.ErrUnverifiedCommitment)
	})

	t.Run("root not verified yet", func(t *testing.T) {
		verified := env.roots.root
		env.roots.root = common.HexToHash("0x01")
		defer func() { env.roots.root = verified }()
		_, err := env.submit(b)
		assert.ErrorIs(t, err, channel.ErrUnverifiedCommitment)
	})

	assert.Zero(t, env.in.LatestNonce())
}

func TestInbound_ApplicationFailure(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, common.Address{})

	ctrl := gomock.NewController(t)
	app := mock.NewMockApplication(ctrl)
	env.in.Register(appAddr, app)

	reverted := false
	appLog := &types.Log{Address: appAddr}
	gomock.InOrder(
		app.EXPECT().HandleMessage(inboundAddr, []byte("fails"), gomock.Any()).
			DoAndReturn(func(_ common.Address, _ []byte, j *channel.Journal) error {
				j.AddLog(appLog)
				j.OnRevert(func() { reverted = true })
				return errors.New("insufficient balance")
			}),
		app.EXPECT().HandleMessage(inboundAddr, []byte("panics"), gomock.Any()).
			DoAndReturn(func(_ common.Address, _ []byte, _ *channel.Journal) error {
				panic("boom")
			}),
		app.EXPECT().HandleMessage(inboundAddr, []byte("works"), gomock.Any()).
			DoAndReturn(func(_ common.Address, _ []byte, j *channel.Journal) error {
				j.AddLog(appLog)
				return nil
			}),
	)

	receipt, err := env.submit(env.commit(message(1, "fails"), message(2, "panics"), message(3, "works")))
	require.NoError(err)
	require.True(reverted)
	require.Equal(3, receipt.Delivered())
	require.False(receipt.Deliveries[0].Result)
	require.False(receipt.Deliveries[1].Result)
	require.ErrorIs(receipt.Deliveries[1].Err, channel.ErrApplicationPanic)
	require.True(receipt.Deliveries[2].Result)

	// only the successful call keeps its log, right before its MessageDelivered
	require.Len(receipt.Logs, 4)
	require.Same(appLog, receipt.Logs[2])
	require.Equal([]channel.DeliveredEvent{
		{Channel: inboundAddr, Nonce: 1, Result: false},
		{Channel: inboundAddr, Nonce: 2, Result: false},
		{Channel: inboundAddr, Nonce: 3, Result: true},
	}, deliveredEvents(t, receipt.Logs))
}

func TestInbound_UnknownApplication(t *testing.T) {
	env := newTestEnv(t, common.Address{})
	receipt, err := env.submit(env.commit(message(1, "lost")))
	require.NoError(t, err)
	require.Equal(t, 1, receipt.Delivered())
	assert.False(t, receipt.Deliveries[0].Result)
	assert.ErrorIs(t, receipt.Deliveries[0].Err, channel.ErrUnknownApplication)
	assert.Equal(t, uint64(1), env.in.LatestNonce())
}

func TestInbound_SubmitSigned(t *testing.T) {
	require := require.New(t)
	operator := evmcore.FakeKey(7)
	env := newTestEnv(t, crypto.PubkeyToAddress(operator.PublicKey))

	ctrl := gomock.NewController(t)
	app := mock.NewMockApplication(ctrl)
	app.EXPECT().HandleMessage(inboundAddr, []byte("signed"), gomock.Any()).Return(nil).Times(1)
	env.in.Register(appAddr, app)

	msg := message(1, "signed")
	sig, err := validatorpk.Sign(operator, msg.Hash())
	require.NoError(err)

	other, err := validatorpk.Sign(evmcore.FakeKey(8), msg.Hash())
	require.NoError(err)
	_, err = env.in.SubmitSigned(msg, other)
	require.ErrorIs(err, channel.ErrInvalidSignature)

	receipt, err := env.in.SubmitSigned(msg, sig)
	require.NoError(err)
	require.True(receipt.Deliveries[0].Result)

	receipt, err = env.in.SubmitSigned(msg, sig)
	require.NoError(err)
	require.ErrorIs(receipt.Deliveries[0].Err, channel.ErrNonceMismatch)

	// without an operator the signature path is closed
	closed := newTestEnv(t, common.Address{})
	_, err = closed.in.SubmitSigned(msg, sig)
	require.ErrorIs(err, channel.ErrInvalidSignature)
}

func TestInbound_Reopen(t *testing.T) {
	env := newTestEnv(t, common.Address{})
	ctrl := gomock.NewController(t)
	app := mock.NewMockApplication(ctrl)
	app.EXPECT().HandleMessage(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	env.in.Register(appAddr, app)

	_, err := env.submit(env.commit(message(1, "a"), message(2, "b")))
	require.NoError(t, err)

	reopened, err := channel.NewInboundChannel(channel.InboundConfig{Address: inboundAddr}, env.roots, env.store)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), reopened.LatestNonce())

	other, err := channel.NewInboundChannel(channel.InboundConfig{Address: outboundAddr}, env.roots, env.store)
	require.NoError(t, err)
	assert.Zero(t, other.LatestNonce())
}

func TestOutbound_Send(t *testing.T) {
	require := require.New(t)
	store := channel.NewStore(memorydb.New())
	sender := common.HexToAddress("0x5e4d")

	out, err := channel.NewOutboundChannel(channel.OutboundConfig{Address: outboundAddr}, store)
	require.NoError(err)
	for want := uint64(1); want <= 3; want++ {
		l, err := out.Send(sender, "dot-app", []byte{byte(want)})
		require.NoError(err)
		require.Equal(outboundAddr, l.Address)
		ev, err := channel.ParseMessageLog(l)
		require.NoError(err)
		require.Equal(channel.MessageEvent{
			Channel:             outboundAddr,
			Nonce:               want,
			SenderAddress:       sender,
			TargetApplicationID: "dot-app",
			Payload:             []byte{byte(want)},
		}, ev)
	}

	reopened, err := channel.NewOutboundChannel(channel.OutboundConfig{Address: outboundAddr}, store)
	require.NoError(err)
	require.Equal(uint64(3), reopened.Nonce())

	restricted, err := channel.NewOutboundChannel(channel.OutboundConfig{
		Address:    common.HexToAddress("0x3333"),
		Authorized: []common.Address{sender},
	}, store)
	require.NoError(err)
	_, err = restricted.Send(common.HexToAddress("0xbad"), "dot-app", nil)
	require.ErrorIs(err, channel.ErrUnauthorized)
	require.Zero(restricted.Nonce())
	_, err = restricted.Send(sender, "dot-app", nil)
	require.NoError(err)
	require.Equal(uint64(1), restricted.Nonce())
}

func TestEvents_WrongTopic(t *testing.T) {
	l, err := channel.NewMessageDeliveredLog(inboundAddr, 1, true)
	require.NoError(t, err)
	_, err = channel.ParseMessageLog(l)
	assert.Error(t, err)
	_, err = channel.ParseMessageDeliveredLog(&types.Log{})
	assert.Error(t, err)
}

type verifierFunc func(root, leaf common.Hash, proof mmr.Proof) error

func (f verifierFunc) Verify(root, leaf common.Hash, proof mmr.Proof) error {
	return f(root, leaf, proof)
}

func TestInbound_CustomVerifier(t *testing.T) {
	require := require.New(t)
	src := relayer.NewSourceChain(0)
	cc, err := src.AppendChannelCommitment([]inter.Message{message(1, "one")})
	require.NoError(err)

	var leaves []common.Hash
	in, err := channel.NewInboundChannel(channel.InboundConfig{Address: inboundAddr}, &rootSource{}, channel.NewStore(memorydb.New()),
		channel.WithMMRVerifier(verifierFunc(func(root, leaf common.Hash, proof mmr.Proof) error {
			leaves = append(leaves, leaf)
			return errors.New("unknown root")
		})))
	require.NoError(err)

	_, err = in.NewCommitment(cc.Hash, cc.Messages, cc.SourceBlock, mmr.Proof{})
	require.ErrorIs(err, channel.ErrUnverifiedCommitment)
	require.Equal([]common.Hash{inter.ChannelCommitmentLeaf(cc.SourceBlock, cc.Hash)}, leaves)
	require.Zero(in.LatestNonce())
}

// flakyDB fails every Put after the first limit ones.
type flakyDB struct {
	kvdb.Store
	limit int
	puts  int
}

func (db *flakyDB) Put(key, value []byte) error {
	db.puts++
	if db.puts > db.limit {
		return errors.New("disk full")
	}
	return db.Store.Put(key, value)
}

func TestInbound_StoreFailureKeepsProgress(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, common.Address{})
	db := &flakyDB{Store: memorydb.New(), limit: 1}
	in, err := channel.NewInboundChannel(channel.InboundConfig{Address: inboundAddr}, env.roots, channel.NewStore(db))
	require.NoError(err)

	ctrl := gomock.NewController(t)
	app := mock.NewMockApplication(ctrl)
	app.EXPECT().HandleMessage(inboundAddr, []byte("one"), gomock.Any()).Return(nil).Times(1)
	in.Register(appAddr, app)

	b := env.commit(message(1, "one"), message(2, "two"), message(3, "three"))
	receipt, err := in.NewCommitment(b.commitment.Hash, b.commitment.Messages, b.commitment.SourceBlock, b.proof)
	require.Error(err)
	require.NotNil(receipt)
	require.Len(receipt.Deliveries, 1)
	require.True(receipt.Deliveries[0].Result)
	require.Equal([]channel.DeliveredEvent{{Channel: inboundAddr, Nonce: 1, Result: true}}, deliveredEvents(t, receipt.Logs))
	require.Equal(uint64(1), in.LatestNonce())

	reopened, err := channel.NewInboundChannel(channel.InboundConfig{Address: inboundAddr}, env.roots, channel.NewStore(db))
	require.NoError(err)
	require.Equal(uint64(1), reopened.LatestNonce())
}
