package relayer_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/beefy-bridge/bridge"
	"github.com/rony4d/beefy-bridge/evmcore"
	"github.com/rony4d/beefy-bridge/inter"
	"github.com/rony4d/beefy-bridge/inter/validatorpk"
	"github.com/rony4d/beefy-bridge/mmr"
	"github.com/rony4d/beefy-bridge/relayer"
	"github.com/rony4d/beefy-bridge/utils/bits"
)

func TestBeefyProver_Membership(t *testing.T) {
	require := require.New(t)
	keys, addrs := evmcore.FakeValidators(5)

	signing, err := relayer.NewSigningProver(3, keys)
	require.NoError(err)
	watching, err := relayer.NewBeefyProver(3, addrs)
	require.NoError(err)
	require.Equal(signing.Registry().String(), watching.Registry().String())

	reg := watching.Registry()
	for pos := uint64(0); pos < 5; pos++ {
		require.Equal(addrs[pos], watching.Address(pos))
		proof, err := watching.MembershipProof(pos)
		require.NoError(err)
		require.True(reg.CheckValidatorInSet(addrs[pos], proof, pos))
		require.False(reg.CheckValidatorInSet(addrs[(pos+1)%5], proof, pos))
	}

	_, err = watching.Sign(inter.Commitment{}, []uint64{0})
	require.Error(err, "no keys")
	_, err = relayer.NewBeefyProver(0, nil)
	require.Error(err)
}

func TestBeefyProver_Submission(t *testing.T) {
	require := require.New(t)
	keys, addrs := evmcore.FakeValidators(6)
	prover, err := relayer.NewSigningProver(0, keys)
	require.NoError(err)
	rules := bridge.DefaultLightClientRules()
	submitter := common.HexToAddress("0x5ab")

	c := inter.Commitment{Payload: common.HexToHash("0x01"), BlockNumber: 9}
	sigs, err := prover.Sign(c, []uint64{4, 1, 2, 3})
	require.NoError(err)
	require.Equal([]uint64{1, 2, 3, 4}, sigs.Positions())
	for pos, sig := range sigs {
		require.True(validatorpk.VerifySignature(addrs[pos], c.Hash(), sig))
	}

	_, err = prover.Sign(c, []uint64{6})
	require.Error(err)

	sub, err := prover.InitialSubmission(c.Hash(), sigs, rules, submitter)
	require.NoError(err)
	require.Equal(uint64(1), sub.Position)
	require.Equal(addrs[1], sub.Validator)
	require.Equal(sigs[1], sub.Signature)
	require.Equal(submitter, sub.Submitter)
	require.EqualValues(4, sub.Bitfield.Count())
	require.True(prover.Registry().CheckValidatorInSet(sub.Validator, sub.Proof, sub.Position))

	few, err := prover.Sign(c, []uint64{0})
	require.NoError(err)
	_, err = prover.InitialSubmission(c.Hash(), few, rules, submitter)
	require.Error(err)
}

func TestBeefyProver_ValidatorProof(t *testing.T) {
	require := require.New(t)
	keys, addrs := evmcore.FakeValidators(6)
	prover, err := relayer.NewSigningProver(0, keys)
	require.NoError(err)

	c := inter.Commitment{Payload: common.HexToHash("0x02"), BlockNumber: 3}
	sigs, err := prover.Sign(c, []uint64{0, 2, 5})
	require.NoError(err)

	challenge := bits.New(6)
	require.NoError(challenge.Set(5))
	require.NoError(challenge.Set(0))
	proof, err := prover.ValidatorProof(sigs, challenge)
	require.NoError(err)
	require.Equal([]uint64{0, 5}, proof.Positions)
	require.Equal([]common.Address{addrs[0], addrs[5]}, proof.PublicKeys)
	require.Equal([][]byte{sigs[0], sigs[5]}, proof.Signatures)
	require.Len(proof.MerkleProofs, 2)

	require.NoError(challenge.Set(1))
	_, err = prover.ValidatorProof(sigs, challenge)
	require.ErrorIs(err, relayer.ErrMissingSignature)
}

func TestSourceChain(t *testing.T) {
	require := require.New(t)
	src := relayer.NewSourceChain(2)
	require.Equal(uint64(0), src.BlockNumber())

	var (
		leaves  []common.Hash
		indices []uint64
	)
	for i := 0; i < 3; i++ {
		leaf := src.NextLeaf(2, 0, common.Hash{})
		require.Equal(uint32(src.BlockNumber()), leaf.ParentNumber)
		indices = append(indices, src.AppendLeaf(leaf))
		leaves = append(leaves, leaf.Hash())
	}
	require.Equal([]uint64{0, 1, 2}, indices)

	msgs := []inter.Message{{Nonce: 1, SenderApplicationID: "eth-app", TargetApplicationAddress: common.HexToAddress("0x1")}}
	cc, err := src.AppendChannelCommitment(msgs)
	require.NoError(err)
	require.Equal(uint64(4), cc.SourceBlock)
	require.Equal(uint64(3), cc.LeafIndex)
	root, err := inter.MessagesRoot(msgs)
	require.NoError(err)
	require.Equal(root, cc.Hash)
	leaves = append(leaves, inter.ChannelCommitmentLeaf(cc.SourceBlock, cc.Hash))

	c := src.Commitment()
	require.Equal(uint64(4), c.BlockNumber)
	require.Equal(uint64(2), c.ValidatorSetID)
	for i, leaf := range leaves {
		proof, err := src.Proof(uint64(i))
		require.NoError(err)
		assert.NoError(t, mmr.Verifier{}.Verify(c.Payload, leaf, proof), "leaf %d", i)
	}

	src.SetValidatorSet(3)
	require.Equal(uint64(3), src.Commitment().ValidatorSetID)
}
