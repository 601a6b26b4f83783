package integration

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Presets bundle the storage settings of a bridge node into named profiles so
// operators can pick one with --db.preset instead of tuning every knob.
//
// Usage:
//   cfg := integration.LitePreset()    // in-memory, for tests and devnets
//   cfg := integration.FullPreset()    // LevelDB, for long running nodes
//   cfg := integration.ArchivePreset() // LevelDB, keeps expired commitments

const (
	// DBTypeMemory keeps all state in memory. Nothing survives a restart.
	DBTypeMemory = "memory"
	// DBTypeLevelDB stores state under the data directory.
	DBTypeLevelDB = "ldb"
)

// PresetConfig captures the storage parameters that vary across profiles.
type PresetConfig struct {
	Name    string // identifier used by --db.preset and config dumps
	DBType  string // DBTypeMemory or DBTypeLevelDB
	CacheMB int    // LevelDB block cache, ignored in memory
	Handles int    // LevelDB open file limit, ignored in memory
	// PruneExpired drops pending commitments whose challenge can no longer
	// be answered.
	PruneExpired bool
}

// CacheBytes is the LevelDB cache size.
func (p PresetConfig) CacheBytes() int {
	return p.CacheMB * opt.MiB
}

// Validate rejects unknown database types and non-positive LevelDB limits.
func (p PresetConfig) Validate() error {
	switch p.DBType {
	case DBTypeMemory:
		return nil
	case DBTypeLevelDB:
		if p.CacheMB <= 0 || p.Handles <= 0 {
			return fmt.Errorf("preset %q: cache (%d MiB) and handles (%d) must be positive", p.Name, p.CacheMB, p.Handles)
		}
		return nil
	}
	return fmt.Errorf("preset %q: unknown database type %q", p.Name, p.DBType)
}

func DefaultPreset() PresetConfig {
	return PresetConfig{
		Name:         "default",
		DBType:       DBTypeLevelDB,
		CacheMB:      64,
		Handles:      128,
		PruneExpired: true,
	}
}

// LitePreset keeps everything in memory. Use it for tests, CI and
// disposable devnets.
func LitePreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "lite"
	cfg.DBType = DBTypeMemory
	cfg.CacheMB = 0
	cfg.Handles = 0
	return cfg
}

// FullPreset stores state in LevelDB with a cache large enough to keep the
// light client and channel tables hot.
func FullPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "full"
	cfg.CacheMB = 256
	cfg.Handles = 512
	return cfg
}

// ArchivePreset is FullPreset that never prunes, so every submitted
// commitment stays queryable.
func ArchivePreset() PresetConfig {
	cfg := FullPreset()
	cfg.Name = "archive"
	cfg.PruneExpired = false
	return cfg
}

// GetPresetByName looks up a preset by its identifier.
func GetPresetByName(name string) (PresetConfig, error) {
	switch name {
	case "lite":
		return LitePreset(), nil
	case "full":
		return FullPreset(), nil
	case "archive":
		return ArchivePreset(), nil
	case "default":
		return DefaultPreset(), nil
	default:
		return PresetConfig{}, fmt.Errorf("unknown preset: %q (valid: lite, full, archive, default)", name)
	}
}

// ApplyPreset merges preset into target. Zero numeric fields of the preset
// leave the target value alone; the prune flag is always applied.
func ApplyPreset(target *PresetConfig, preset PresetConfig) {
	if preset.DBType != "" {
		target.DBType = preset.DBType
	}
	if preset.CacheMB > 0 {
		target.CacheMB = preset.CacheMB
	}
	if preset.Handles > 0 {
		target.Handles = preset.Handles
	}
	target.PruneExpired = preset.PruneExpired
	if preset.Name != "" {
		target.Name = preset.Name
	}
}
