package launcher

import (
	"github.com/rony4d/beefy-bridge/bridge"
	"github.com/rony4d/beefy-bridge/integration"
)

// Defaults bundles the baseline configuration values the launcher uses
// before config files and flags override them.
type Defaults struct {
	Node    NodeDefaults
	Network NetworkDefaults
	Storage StorageDefaults
	Metrics MetricsDefaults
	Logging LoggingDefaults
}

// NodeDefaults captures top-level node settings.
type NodeDefaults struct {
	DataDir string //	Filesystem root of the node (chaindata). Changing it lets you run several bridges side by side.
	Name    string //	Human-readable identity added to every log entry.
}

// NetworkDefaults select the network rules.
type NetworkDefaults struct {
	Name        string //	Rules preset: main, test or fake. The light client parameters must match the source chain deployment.
	FakeNetSize int    //	Number of deterministic validators of a devnet. Zero means no devnet; the genesis validator set comes from the config file.
}

// StorageDefaults configures the database.
type StorageDefaults struct {
	Preset  string //	Named integration preset; lite keeps everything in memory.
	CacheMB int    //	LevelDB block cache. Larger values reduce disk reads of the commitment tables.
	Handles int    //	LevelDB open file limit.
}

type MetricsDefaults struct {
	Enable   bool   //	Toggle for the metrics server; when true Prometheus metrics are exposed on HTTPAddr:HTTPPort.
	HTTPAddr string //	Interface the metrics server binds to (127.0.0.1 for local-only).
	HTTPPort int    //	TCP port of the metrics server.
}

// LoggingDefaults describes the process logger.
type LoggingDefaults struct {
	Verbosity int    //	logrus level, 4 is info.
	Format    string //	text or json.
	Color     bool
}

// DefaultConfig returns the baseline values.
func DefaultConfig() Defaults {
	preset := integration.DefaultPreset()
	return Defaults{
		Node: NodeDefaults{
			DataDir: "~/.beefy-bridge",
			Name:    "beefy-bridge",
		},
		Network: NetworkDefaults{
			Name: bridge.MainNetRules().Name,
		},
		Storage: StorageDefaults{
			Preset:  preset.Name,
			CacheMB: preset.CacheMB,
			Handles: preset.Handles,
		},
		Metrics: MetricsDefaults{
			HTTPAddr: "127.0.0.1",
			HTTPPort: 6060,
		},
		Logging: LoggingDefaults{
			Verbosity: 4,
			Format:    "text",
		},
	}
}
