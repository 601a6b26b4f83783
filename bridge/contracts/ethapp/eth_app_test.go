package ethapp

import (
	"testing"

	"github.com/Fantom-foundation/lachesis-base/kvdb/memorydb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/beefy-bridge/channel"
	"github.com/rony4d/beefy-bridge/inter"
	"github.com/rony4d/beefy-bridge/relayer"
)

var (
	inboundAddr      = common.HexToAddress("0x1111")
	basicAddr        = common.HexToAddress("0x2222")
	incentivizedAddr = common.HexToAddress("0x3333")
	alice            = common.HexToAddress("0xa11ce")
	bob              = common.HexToAddress("0xb0b")
)

type rootSource struct {
	root common.Hash
}

func (r *rootSource) LatestMMRRoot() common.Hash {
	return r.root
}

type testEnv struct {
	app          *App
	basic        *channel.OutboundChannel
	incentivized *channel.OutboundChannel
	inbound      *channel.InboundChannel
	src          *relayer.SourceChain
	roots        *rootSource
}

func newTestEnv(t *testing.T) *testEnv {
	store := channel.NewStore(memorydb.New())
	env := &testEnv{
		src:   relayer.NewSourceChain(0),
		roots: &rootSource{},
	}
	var err error
	env.basic, err = channel.NewOutboundChannel(channel.OutboundConfig{Address: basicAddr}, store)
	require.NoError(t, err)
	env.incentivized, err = channel.NewOutboundChannel(channel.OutboundConfig{Address: incentivizedAddr}, store)
	require.NoError(t, err)
	env.inbound, err = channel.NewInboundChannel(channel.InboundConfig{Address: inboundAddr}, env.roots, store)
	require.NoError(t, err)

	env.app = New(Config{
		Address:             ContractAddress,
		TargetApplicationID: "dot-app",
		Channels:            []common.Address{inboundAddr},
	}, memorydb.New(), env.basic, env.incentivized)
	env.inbound.Register(ContractAddress, env.app)
	return env
}

// deliver commits one unlock message on the source chain and delivers it.
func (env *testEnv) deliver(t *testing.T, nonce uint64, recipient common.Address, amount uint64) *channel.Receipt {
	payload, err := UnlockPayload(recipient, uint256.NewInt(amount))
	require.NoError(t, err)
	cc, err := env.src.AppendChannelCommitment([]inter.Message{{
		Nonce:                    nonce,
		SenderApplicationID:      "dot-app",
		TargetApplicationAddress: ContractAddress,
		Payload:                  payload,
	}})
	require.NoError(t, err)
	proof, err := env.src.Proof(cc.LeafIndex)
	require.NoError(t, err)
	env.roots.root = env.src.Commitment().Payload

	receipt, err := env.inbound.NewCommitment(cc.Hash, cc.Messages, cc.SourceBlock, proof)
	require.NoError(t, err)
	return receipt
}

func TestSendETH(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	recipient := []byte("5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY")

	logs, err := env.app.SendETH(alice, recipient, uint256.NewInt(100), false)
	require.NoError(err)
	require.Len(logs, 2)

	locked, err := ParseLocked(logs[0])
	require.NoError(err)
	require.Equal(alice, locked.Sender)
	require.Equal(recipient, locked.Recipient)
	require.Equal(uint64(100), locked.Amount.Uint64())

	msg, err := channel.ParseMessageLog(logs[1])
	require.NoError(err)
	require.Equal(basicAddr, msg.Channel)
	require.Equal(uint64(1), msg.Nonce)
	require.Equal(ContractAddress, msg.SenderAddress)
	require.Equal("dot-app", msg.TargetApplicationID)
	mint, err := ParseMint(msg.Payload)
	require.NoError(err)
	require.Equal(Mint{Sender: alice, Recipient: recipient, Amount: uint256.NewInt(100)}, mint)

	logs, err = env.app.SendETH(bob, recipient, uint256.NewInt(5), true)
	require.NoError(err)
	msg, err = channel.ParseMessageLog(logs[1])
	require.NoError(err)
	require.Equal(incentivizedAddr, msg.Channel)
	require.Equal(uint64(1), msg.Nonce)

	total, err := env.app.Locked()
	require.NoError(err)
	require.Equal(uint64(105), total.Uint64())

	_, err = env.app.SendETH(alice, recipient, uint256.NewInt(0), false)
	require.ErrorIs(err, ErrZeroAmount)
}

func TestUnlockETH_ThroughChannel(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	_, err := env.app.SendETH(alice, []byte("polkadot-account"), uint256.NewInt(100), false)
	require.NoError(err)

	receipt := env.deliver(t, 1, bob, 60)
	require.True(receipt.Deliveries[0].Result)
	require.Len(receipt.Logs, 2)
	unlocked, err := ParseUnlocked(receipt.Logs[0])
	require.NoError(err)
	require.Equal(Unlocked{Recipient: bob, Amount: uint256.NewInt(60)}, unlocked)
	delivered, err := channel.ParseMessageDeliveredLog(receipt.Logs[1])
	require.NoError(err)
	require.Equal(channel.DeliveredEvent{Channel: inboundAddr, Nonce: 1, Result: true}, delivered)

	balance, err := env.app.Balance(bob)
	require.NoError(err)
	require.Equal(uint64(60), balance.Uint64())

	// more than locked: the message is consumed, nothing changes
	receipt = env.deliver(t, 2, bob, 50)
	require.True(receipt.Deliveries[0].Dispatched)
	require.False(receipt.Deliveries[0].Result)
	require.ErrorIs(receipt.Deliveries[0].Err, ErrInsufficientLocked)
	require.Len(receipt.Logs, 1)

	balance, _ = env.app.Balance(bob)
	require.Equal(uint64(60), balance.Uint64())
	total, _ := env.app.Locked()
	require.Equal(uint64(40), total.Uint64())
}

func TestHandleMessage_Rejections(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.app.SendETH(alice, []byte("x"), uint256.NewInt(10), false)
	require.NoError(t, err)
	payload, err := UnlockPayload(bob, uint256.NewInt(1))
	require.NoError(t, err)

	err = env.app.HandleMessage(basicAddr, payload, new(channel.Journal))
	assert.ErrorIs(t, err, ErrUnauthorizedChannel)

	err = env.app.HandleMessage(inboundAddr, payload[:3], new(channel.Journal))
	assert.ErrorIs(t, err, ErrUnknownMethod)

	mint, err := contractABI.Pack("mint", alice, []byte("x"), uint256.NewInt(1).ToBig())
	require.NoError(t, err)
	err = env.app.HandleMessage(inboundAddr, mint, new(channel.Journal))
	assert.ErrorIs(t, err, ErrUnknownMethod)

	journal := new(channel.Journal)
	require.NoError(t, env.app.HandleMessage(inboundAddr, payload, journal))
	assert.Len(t, journal.Logs(), 1)

	_, err = ParseMint(payload)
	assert.ErrorIs(t, err, ErrUnknownMethod)
}
