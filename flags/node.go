package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NodeFlags holds storage knobs of the local node instance.
func NodeFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "db.preset",
			Usage: "Database preset (lite|default|full|archive)",
			Value: "default",
		},
		cli.IntFlag{
			Name:  "cache",
			Usage: "Megabytes of memory allocated to the database cache",
			Value: 64,
		},
		cli.IntFlag{
			Name:  "db.handles",
			Usage: "Maximum number of open database files",
			Value: 128,
		},
		cli.BoolFlag{
			Name:  "db.noprune",
			Usage: "Keep expired pending commitments",
		},
	}
}
