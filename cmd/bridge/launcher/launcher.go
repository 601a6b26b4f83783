// Package launcher is the command line entry of the bridge: it turns flags
// and config files into a configured bridge and runs its commands.
package launcher

import (
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/beefy-bridge/flags"
)

var (
	configFlags = flags.Merge(
		flags.CommonFlags(),
		flags.NodeFlags(),
		flags.NetworkFlags(),
		flags.ChannelFlags(),
	)

	app = newApp()
)

func newApp() *cli.App {
	app := flags.NewApp("BEEFY light client bridge")
	app.Flags = configFlags
	app.Action = checkConfig
	app.Commands = []cli.Command{
		{
			Name:   "simulate",
			Usage:  "Run a devnet bridge end to end (requires --fakenet)",
			Flags:  flags.SimulateFlags(),
			Action: simulate,
		},
		{
			Name:   "bitfield",
			Usage:  "Draw a random challenge bitfield",
			Flags:  flags.BitfieldFlags(),
			Action: randomBitfield,
		},
		{
			Name:   "validators",
			Usage:  "Print the validator set of a devnet (requires --fakenet)",
			Action: printValidators,
		},
		{
			Name:      "dumpconfig",
			Usage:     "Show configuration values",
			ArgsUsage: "[file]",
			Action:    dumpConfig,
		},
		{
			Name:   "checkconfig",
			Usage:  "Check configuration and genesis",
			Action: checkConfig,
		},
	}
	return app
}

// Launch runs the command line application.
func Launch(args []string) error {
	return app.Run(args)
}
