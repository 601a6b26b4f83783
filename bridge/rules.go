// Package bridge defines the network rules of a bridge deployment.
//
// This package provides:
//   - Network identification constants (MainNet, TestNet, FakeNet)
//   - Light client rules: signature threshold, anti-grinding wait, completion window
//   - Channel rules: batch limits and application identifiers
//
// The Rules type is the central configuration structure shared by the light
// client, the channels and the launcher. Rules of a running deployment must
// match the deployment of the source chain: a different threshold or wait
// period makes every commitment unverifiable.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

// Network identification constants
const (
	MainNetworkID uint64 = 0xbeef
	TestNetworkID uint64 = 0xbeef2
	FakeNetworkID uint64 = 0xbeef3

	// DefaultBlockWaitPeriod is the number of verifying-chain blocks between the
	// initial submission and the block whose hash seeds the challenge.
	DefaultBlockWaitPeriod idx.Block = 45

	// DefaultCompletionWindow bounds how long after the seed block a completion
	// is accepted. It cannot exceed the BLOCKHASH horizon of the verifying chain.
	DefaultCompletionWindow idx.Block = 256
)

var (
	ErrInvalidThreshold = errors.New("signature threshold must be within [1/3, 1]")
	ErrInvalidWindow    = errors.New("completion window must be within [1, 256] blocks")
	ErrInvalidFraction  = errors.New("invalid fraction")
)

// Fraction is Numerator/Denominator.
type Fraction struct {
	Numerator   uint64
	Denominator uint64
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

// ParseFraction parses "n/d".
func ParseFraction(s string) (Fraction, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "/", 2)
	if len(parts) != 2 {
		return Fraction{}, fmt.Errorf("%w: %q", ErrInvalidFraction, s)
	}
	num, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return Fraction{}, fmt.Errorf("%w: %q", ErrInvalidFraction, s)
	}
	den, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil || den == 0 {
		return Fraction{}, fmt.Errorf("%w: %q", ErrInvalidFraction, s)
	}
	return Fraction{Numerator: num, Denominator: den}, nil
}

// MarshalText implements encoding.TextMarshaler so fractions read naturally in TOML.
func (f Fraction) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Fraction) UnmarshalText(input []byte) error {
	res, err := ParseFraction(string(input))
	if err != nil {
		return err
	}
	*f = res
	return nil
}

// LightClientRules configure the two-phase commitment verification.
type LightClientRules struct {
	// Threshold is the fraction of the validator set that must have signed.
	Threshold Fraction
	// BlockWaitPeriod between the initial submission and the seed block.
	BlockWaitPeriod idx.Block
	// CompletionWindow after the seed block during which completion is accepted.
	CompletionWindow idx.Block
}

// RequiredSignatures returns ceil(Threshold * setLen).
func (r LightClientRules) RequiredSignatures(setLen uint64) uint64 {
	num := r.Threshold.Numerator * setLen
	return (num + r.Threshold.Denominator - 1) / r.Threshold.Denominator
}

// ChannelRules configure message delivery.
type ChannelRules struct {
	// MaxMessagesPerCommitment caps a batch. Zero means unlimited.
	MaxMessagesPerCommitment int
	// ETHAppID is the application id used by the ETH app on the source side.
	ETHAppID string
}

// Rules describes the complete configuration of a bridge network.
type Rules struct {
	Name      string
	NetworkID uint64

	LightClient LightClientRules
	Channel     ChannelRules
}

// Validate checks rule consistency.
func (r Rules) Validate() error {
	t := r.LightClient.Threshold
	if t.Denominator == 0 || t.Numerator*3 < t.Denominator || t.Numerator > t.Denominator {
		return fmt.Errorf("%w, given %v", ErrInvalidThreshold, t)
	}
	if r.LightClient.CompletionWindow == 0 || r.LightClient.CompletionWindow > DefaultCompletionWindow {
		return fmt.Errorf("%w, given %d", ErrInvalidWindow, r.LightClient.CompletionWindow)
	}
	if r.Channel.MaxMessagesPerCommitment < 0 {
		return fmt.Errorf("negative message cap %d", r.Channel.MaxMessagesPerCommitment)
	}
	return nil
}

func DefaultLightClientRules() LightClientRules {
	return LightClientRules{
		Threshold:        Fraction{Numerator: 2, Denominator: 3},
		BlockWaitPeriod:  DefaultBlockWaitPeriod,
		CompletionWindow: DefaultCompletionWindow,
	}
}

func DefaultChannelRules() ChannelRules {
	return ChannelRules{
		MaxMessagesPerCommitment: 256,
		ETHAppID:                 "eth-app",
	}
}

func MainNetRules() Rules {
	return Rules{
		Name:        "main",
		NetworkID:   MainNetworkID,
		LightClient: DefaultLightClientRules(),
		Channel:     DefaultChannelRules(),
	}
}

func TestNetRules() Rules {
	return Rules{
		Name:        "test",
		NetworkID:   TestNetworkID,
		LightClient: DefaultLightClientRules(),
		Channel:     DefaultChannelRules(),
	}
}

// FakeNetRules shorten the wait so local devnets can complete quickly.
func FakeNetRules() Rules {
	lc := DefaultLightClientRules()
	lc.BlockWaitPeriod = 3
	lc.CompletionWindow = 64
	return Rules{
		Name:        "fake",
		NetworkID:   FakeNetworkID,
		LightClient: lc,
		Channel:     DefaultChannelRules(),
	}
}

// RulesByName resolves "main", "test" or "fake".
func RulesByName(name string) (Rules, error) {
	switch strings.ToLower(name) {
	case "main", "mainnet":
		return MainNetRules(), nil
	case "test", "testnet":
		return TestNetRules(), nil
	case "fake", "fakenet":
		return FakeNetRules(), nil
	}
	return Rules{}, fmt.Errorf("unknown network %q", name)
}

// Copy returns a copy of Rules. All fields are values.
func (r Rules) Copy() Rules {
	return r
}

// String returns a JSON representation of Rules.
func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}
