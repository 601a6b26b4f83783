package launcher

import (
	"bufio"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/beefy-bridge/bridge"
	"github.com/rony4d/beefy-bridge/bridge/genesis"
	"github.com/rony4d/beefy-bridge/evmcore"
	"github.com/rony4d/beefy-bridge/integration"
	"github.com/rony4d/beefy-bridge/logger"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Config aggregates every subsystem's configuration the launcher needs.
type Config struct {
	Node    NodeConfig
	Network NetworkConfig
	Genesis GenesisConfig
	DB      integration.PresetConfig
	Channel ChannelConfig
}

type NodeConfig struct {
	DataDir string
	Name    string
	Logging logger.Config
	Metrics MetricsConfig
}

type MetricsConfig struct {
	Enabled  bool
	HTTPAddr string
	HTTPPort int
}

// Endpoint is the listen address of the metrics server.
func (m MetricsConfig) Endpoint() string {
	return fmt.Sprintf("%s:%d", m.HTTPAddr, m.HTTPPort)
}

type NetworkConfig struct {
	// FakeNet is the number of fake validators of a devnet, zero otherwise.
	FakeNet int
	Rules   bridge.Rules
}

// GenesisConfig is the trusted validator set of a non-fake network.
type GenesisConfig struct {
	SetID      uint64
	SetRoot    common.Hash
	SetLength  uint64
	StartBlock uint64
}

type ChannelConfig struct {
	Operator  common.Address
	Addresses integration.ChannelAddresses
}

// -----------------------------------------------------------------------------
// Default config + builders
// -----------------------------------------------------------------------------

func defaultConfig() Config {
	def := DefaultConfig()
	rules, _ := bridge.RulesByName(def.Network.Name)
	db := integration.DefaultPreset()
	db.CacheMB = def.Storage.CacheMB
	db.Handles = def.Storage.Handles
	return Config{
		Node: NodeConfig{
			DataDir: resolvePath(def.Node.DataDir),
			Name:    def.Node.Name,
			Logging: logger.Config{
				Verbosity: def.Logging.Verbosity,
				Format:    def.Logging.Format,
				Color:     def.Logging.Color,
			},
			Metrics: MetricsConfig{
				Enabled:  def.Metrics.Enable,
				HTTPAddr: def.Metrics.HTTPAddr,
				HTTPPort: def.Metrics.HTTPPort,
			},
		},
		Network: NetworkConfig{
			FakeNet: def.Network.FakeNetSize,
			Rules:   rules,
		},
		DB: db,
		Channel: ChannelConfig{
			Addresses: integration.DefaultChannelAddresses(),
		},
	}
}

// MakeAllConfigs merges defaults, config-file values and CLI overrides into
// a single validated config struct.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if file := ctx.GlobalString("config"); file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := applyCLIOverrides(ctx, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Network.Rules.Validate(); err != nil {
		return cfg, err
	}
	if err := cfg.DB.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// MakeGenesis returns the genesis of the configured network. For devnets it
// also returns the fake validator keys.
func (c Config) MakeGenesis() (genesis.Genesis, []*ecdsa.PrivateKey, error) {
	var (
		gen  genesis.Genesis
		keys []*ecdsa.PrivateKey
		err  error
	)
	if c.Network.FakeNet > 0 {
		gen, keys, err = evmcore.FakeGenesis(c.Network.Rules, c.Genesis.SetID, c.Network.FakeNet)
		if err != nil {
			return gen, nil, err
		}
	} else {
		gen = genesis.Genesis{
			Rules: c.Network.Rules,
			ValidatorSet: genesis.ValidatorSet{
				ID:     c.Genesis.SetID,
				Root:   c.Genesis.SetRoot,
				Length: c.Genesis.SetLength,
			},
		}
	}
	gen.StartBlock = c.Genesis.StartBlock
	gen.Operator = c.Channel.Operator
	return gen, keys, gen.Validate()
}

// IntegrationConfig converts the launcher config into the assembly config.
func (c Config) IntegrationConfig(gen genesis.Genesis) integration.Config {
	return integration.Config{
		Genesis:  gen,
		Preset:   c.DB,
		DataDir:  c.Node.DataDir,
		Channels: c.Channel.Addresses,
		Metrics:  c.Node.Metrics.Enabled,
	}
}

// -----------------------------------------------------------------------------
// Config-file / CLI wiring
// -----------------------------------------------------------------------------

func loadConfigFile(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	if err != nil {
		return fmt.Errorf("TOML config file error: %v.\n"+
			"Use 'dumpconfig' command to get an example config file", err)
	}
	return nil
}

func parseAddress(ctx *cli.Context, name string) (common.Address, error) {
	raw := ctx.GlobalString(name)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q for --%s", raw, name)
	}
	return common.HexToAddress(raw), nil
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) error {
	if ctx.GlobalIsSet("datadir") {
		cfg.Node.DataDir = resolvePath(ctx.GlobalString("datadir"))
	}
	if ctx.GlobalIsSet("identity") {
		cfg.Node.Name = ctx.GlobalString("identity")
	}

	if ctx.GlobalIsSet("log.format") {
		cfg.Node.Logging.Format = ctx.GlobalString("log.format")
	}
	if ctx.GlobalIsSet("log.verbosity") {
		cfg.Node.Logging.Verbosity = ctx.GlobalInt("log.verbosity")
	}
	if ctx.GlobalIsSet("log.color") {
		cfg.Node.Logging.Color = ctx.GlobalBool("log.color")
	}
	if ctx.GlobalIsSet("log.sentry") {
		cfg.Node.Logging.SentryDSN = ctx.GlobalString("log.sentry")
	}

	if ctx.GlobalBool("metrics") {
		cfg.Node.Metrics.Enabled = true
	}
	if ctx.GlobalIsSet("metrics.addr") {
		cfg.Node.Metrics.HTTPAddr = ctx.GlobalString("metrics.addr")
	}
	if ctx.GlobalIsSet("metrics.port") {
		cfg.Node.Metrics.HTTPPort = ctx.GlobalInt("metrics.port")
	}

	if ctx.GlobalIsSet("fakenet") {
		cfg.Network.FakeNet = ctx.GlobalInt("fakenet")
		cfg.Network.Rules = bridge.FakeNetRules()
		if !ctx.GlobalIsSet("db.preset") {
			cfg.DB = integration.LitePreset()
		}
	}
	if ctx.GlobalIsSet("network") {
		rules, err := bridge.RulesByName(ctx.GlobalString("network"))
		if err != nil {
			return err
		}
		cfg.Network.Rules = rules
	}
	if ctx.GlobalIsSet("lc.threshold") {
		f, err := bridge.ParseFraction(ctx.GlobalString("lc.threshold"))
		if err != nil {
			return err
		}
		cfg.Network.Rules.LightClient.Threshold = f
	}
	if ctx.GlobalIsSet("lc.wait") {
		cfg.Network.Rules.LightClient.BlockWaitPeriod = idx.Block(ctx.GlobalUint64("lc.wait"))
	}
	if ctx.GlobalIsSet("lc.window") {
		cfg.Network.Rules.LightClient.CompletionWindow = idx.Block(ctx.GlobalUint64("lc.window"))
	}
	if ctx.GlobalIsSet("genesis.startblock") {
		cfg.Genesis.StartBlock = ctx.GlobalUint64("genesis.startblock")
	}

	if ctx.GlobalIsSet("db.preset") {
		preset, err := integration.GetPresetByName(ctx.GlobalString("db.preset"))
		if err != nil {
			return err
		}
		cfg.DB = preset
	}
	if ctx.GlobalIsSet("cache") {
		cfg.DB.CacheMB = ctx.GlobalInt("cache")
	}
	if ctx.GlobalIsSet("db.handles") {
		cfg.DB.Handles = ctx.GlobalInt("db.handles")
	}
	if ctx.GlobalBool("db.noprune") {
		cfg.DB.PruneExpired = false
	}

	for name, to := range map[string]*common.Address{
		"channel.operator":     &cfg.Channel.Operator,
		"channel.inbound":      &cfg.Channel.Addresses.Inbound,
		"channel.basic":        &cfg.Channel.Addresses.Basic,
		"channel.incentivized": &cfg.Channel.Addresses.Incentivized,
	} {
		if !ctx.GlobalIsSet(name) {
			continue
		}
		addr, err := parseAddress(ctx, name)
		if err != nil {
			return err
		}
		*to = addr
	}
	if ctx.GlobalIsSet("channel.maxbatch") {
		cfg.Network.Rules.Channel.MaxMessagesPerCommitment = ctx.GlobalInt("channel.maxbatch")
	}
	return nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := ctx.App.Writer
	if ctx.NArg() > 0 {
		f, err := os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		dump = f
	}
	_, err = dump.Write(out)
	return err
}

func checkConfig(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	_, _, err = cfg.MakeGenesis()
	return err
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
