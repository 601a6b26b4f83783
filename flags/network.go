package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NetworkFlags select the network rules and the light client parameters.
func NetworkFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "network",
			Usage: "Network rules preset (main|test|fake)",
			Value: "main",
		},
		cli.IntFlag{
			Name:  "fakenet",
			Usage: "Run a devnet anchored on N deterministic fake validators",
		},
		cli.StringFlag{
			Name:  "lc.threshold",
			Usage: "Fraction of the validator set that must sign a commitment",
			Value: "2/3",
		},
		cli.Uint64Flag{
			Name:  "lc.wait",
			Usage: "Blocks between the initial submission and the challenge seed block",
			Value: 45,
		},
		cli.Uint64Flag{
			Name:  "lc.window",
			Usage: "Blocks after the seed block during which completion is accepted",
			Value: 256,
		},
		cli.Uint64Flag{
			Name:  "genesis.startblock",
			Usage: "Source block the light client is synced to at genesis",
		},
	}
}

// ChannelFlags configure the message channels.
func ChannelFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "channel.operator",
			Usage: "Address allowed to sign messages for direct delivery",
		},
		cli.StringFlag{
			Name:  "channel.inbound",
			Usage: "Address of the inbound channel",
		},
		cli.StringFlag{
			Name:  "channel.basic",
			Usage: "Address of the basic outbound channel",
		},
		cli.StringFlag{
			Name:  "channel.incentivized",
			Usage: "Address of the incentivized outbound channel",
		},
		cli.IntFlag{
			Name:  "channel.maxbatch",
			Usage: "Maximum number of messages per commitment (0 = unlimited)",
			Value: 256,
		},
	}
}
