package integration

import (
	"testing"

	"github.com/syndtr/goleveldb/leveldb/opt"
)

// TestDefaultPreset_hasReasonableDefaults guards the baseline values: if
// defaults change, we want to know immediately.
func TestDefaultPreset_hasReasonableDefaults(t *testing.T) {
	cfg := DefaultPreset()

	if cfg.Name != "default" {
		t.Fatalf("Name = %q, want 'default'", cfg.Name)
	}
	if cfg.DBType != DBTypeLevelDB {
		t.Fatalf("DBType = %q, want %q", cfg.DBType, DBTypeLevelDB)
	}
	if cfg.CacheMB <= 0 || cfg.CacheMB > 10000 {
		t.Fatalf("CacheMB = %d, want value between 1 and 10000", cfg.CacheMB)
	}
	if !cfg.PruneExpired {
		t.Fatal("PruneExpired should be true by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default preset is invalid: %v", err)
	}
}

func TestLitePreset_isInMemory(t *testing.T) {
	cfg := LitePreset()
	if cfg.Name != "lite" {
		t.Fatalf("Name = %q, want 'lite'", cfg.Name)
	}
	if cfg.DBType != DBTypeMemory {
		t.Fatalf("DBType = %q, want %q", cfg.DBType, DBTypeMemory)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("lite preset is invalid: %v", err)
	}
}

func TestPresets_haveDistinctValues(t *testing.T) {
	def, full, archive := DefaultPreset(), FullPreset(), ArchivePreset()

	if full.CacheMB <= def.CacheMB {
		t.Fatalf("Full cache (%d) should be larger than default (%d)", full.CacheMB, def.CacheMB)
	}
	if full.CacheBytes() != full.CacheMB*opt.MiB {
		t.Fatalf("CacheBytes = %d, want %d", full.CacheBytes(), full.CacheMB*opt.MiB)
	}
	if archive.PruneExpired {
		t.Fatal("Archive preset must keep expired commitments")
	}
	if !full.PruneExpired {
		t.Fatal("Full preset should prune expired commitments")
	}
}

func TestGetPresetByName_validPresets(t *testing.T) {
	for _, name := range []string{"lite", "full", "archive", "default"} {
		t.Run(name, func(t *testing.T) {
			cfg, err := GetPresetByName(name)
			if err != nil {
				t.Fatalf("GetPresetByName(%q) returned error: %v", name, err)
			}
			if cfg.Name != name {
				t.Fatalf("Preset name = %q, want %q", cfg.Name, name)
			}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Preset %q is invalid: %v", name, err)
			}
		})
	}
}

func TestGetPresetByName_invalidPreset(t *testing.T) {
	for _, name := range []string{"", "LITE", "pbl-1", "unknown"} {
		cfg, err := GetPresetByName(name)
		if err == nil {
			t.Fatalf("GetPresetByName(%q) should return error, got config: %+v", name, cfg)
		}
	}
}

func TestPresetConfig_Validate(t *testing.T) {
	for _, cfg := range []PresetConfig{
		{Name: "x", DBType: "pebble"},
		{Name: "x", DBType: DBTypeLevelDB, CacheMB: 0, Handles: 16},
		{Name: "x", DBType: DBTypeLevelDB, CacheMB: 16, Handles: 0},
	} {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("Validate(%+v) should fail", cfg)
		}
	}
}

func TestApplyPreset_overridesTarget(t *testing.T) {
	target := DefaultPreset()
	preset := ArchivePreset()
	ApplyPreset(&target, preset)
	if target != preset {
		t.Fatalf("ApplyPreset = %+v, want %+v", target, preset)
	}

	// zero limits keep the target values
	target = FullPreset()
	ApplyPreset(&target, PresetConfig{DBType: DBTypeMemory})
	if target.CacheMB != FullPreset().CacheMB || target.Name != "full" {
		t.Fatalf("zero fields overrode target: %+v", target)
	}
	if target.DBType != DBTypeMemory || target.PruneExpired {
		t.Fatalf("set fields not applied: %+v", target)
	}
}
