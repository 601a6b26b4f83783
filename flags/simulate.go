package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// SimulateFlags tune the devnet simulation.
func SimulateFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "sim.rounds",
			Usage: "Number of lock and unlock rounds",
			Value: 3,
		},
		cli.IntFlag{
			Name:  "sim.messages",
			Usage: "Unlock messages per round",
			Value: 4,
		},
		cli.Uint64Flag{
			Name:  "sim.amount",
			Usage: "Wei unlocked per message",
			Value: 1000,
		},
		cli.IntFlag{
			Name:  "sim.signers",
			Usage: "Validators signing each commitment (0 = all)",
		},
	}
}

// BitfieldFlags are the inputs of the bitfield command.
func BitfieldFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "seed",
			Usage: "Hex encoded 32 byte seed",
		},
		cli.Uint64Flag{
			Name:  "size",
			Usage: "Validator set size",
		},
		cli.Uint64Flag{
			Name:  "quorum",
			Usage: "Number of positions to draw (0 = required signatures under lc.threshold)",
		},
	}
}
