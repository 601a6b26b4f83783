package launcher

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/beefy-bridge/evmcore"
	"github.com/rony4d/beefy-bridge/inter/validatorpk"
	"github.com/rony4d/beefy-bridge/lightclient"
	"github.com/rony4d/beefy-bridge/registry"
)

// randomBitfield draws the challenge a light client would derive from seed.
func randomBitfield(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	raw, err := hexutil.Decode(ctx.String("seed"))
	if err != nil || len(raw) != common.HashLength {
		return errors.New("--seed must be 32 hex encoded bytes")
	}
	size := ctx.Uint64("size")
	if size == 0 {
		return errors.New("--size must be positive")
	}
	quorum := ctx.Uint64("quorum")
	if quorum == 0 {
		quorum = cfg.Network.Rules.LightClient.RequiredSignatures(size)
	}
	bf, err := lightclient.CreateRandomBitfield(common.BytesToHash(raw), size, quorum)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "bitfield:  %s\n", bf)
	fmt.Fprintf(ctx.App.Writer, "positions: %v\n", bf.Positions())
	return nil
}

// printValidators shows the fake validator set and its commitment.
func printValidators(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	if cfg.Network.FakeNet == 0 {
		return errNoFakeNet
	}
	keys, addrs := evmcore.FakeValidators(cfg.Network.FakeNet)
	reg, _, err := registry.FromAddresses(cfg.Genesis.SetID, addrs)
	if err != nil {
		return err
	}
	w := ctx.App.Writer
	for i, k := range keys {
		fmt.Fprintf(w, "%4d %s %s\n", i, addrs[i].Hex(), validatorpk.FromECDSA(&k.PublicKey))
	}
	fmt.Fprintf(w, "set:  %d\nroot: %s\nsize: %d\n", reg.ID(), reg.Root().Hex(), reg.Length())
	return nil
}
