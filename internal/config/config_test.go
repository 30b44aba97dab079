package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Match.MaxFuzz != 2 {
		t.Errorf("Match.MaxFuzz = %d, want 2", cfg.Match.MaxFuzz)
	}
	if cfg.Match.SearchRadius != 200 {
		t.Errorf("Match.SearchRadius = %d, want 200", cfg.Match.SearchRadius)
	}
	if cfg.Apply.Strip != 1 {
		t.Errorf("Apply.Strip = %d, want 1", cfg.Apply.Strip)
	}
	if cfg.Check.TimeoutSeconds != 30 {
		t.Errorf("Check.TimeoutSeconds = %d, want 30", cfg.Check.TimeoutSeconds)
	}
	if cfg.Apply.Atomic || cfg.Apply.Backup || cfg.Apply.AllowOverwrite {
		t.Errorf("write-back toggles should default off: %+v", cfg.Apply)
	}
}

func TestLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `match:
  max_fuzz: 1
  search_radius: 50

apply:
  strip: 2
  atomic: true
  backup: true

check:
  timeout_seconds: 5
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Match.MaxFuzz != 1 || cfg.Match.SearchRadius != 50 {
		t.Errorf("Match = %+v, want fuzz 1 radius 50", cfg.Match)
	}
	if cfg.Apply.Strip != 2 || !cfg.Apply.Atomic || !cfg.Apply.Backup {
		t.Errorf("Apply = %+v, want strip 2, atomic, backup", cfg.Apply)
	}
	if cfg.Check.TimeoutSeconds != 5 {
		t.Errorf("Check.TimeoutSeconds = %d, want 5", cfg.Check.TimeoutSeconds)
	}
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("apply:\n  strip: 0\n"), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Match.MaxFuzz != 2 || cfg.Match.SearchRadius != 200 {
		t.Errorf("Match = %+v, want defaults filled in", cfg.Match)
	}
	// strip 0 in yaml is indistinguishable from unset and becomes the default;
	// -p0 is requested with a negative value.
	if cfg.Apply.Strip != 1 {
		t.Errorf("Apply.Strip = %d, want 1", cfg.Apply.Strip)
	}
}

func TestLoad_ExactMatchingRequested(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("match:\n  max_fuzz: -1\n"), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Match.MaxFuzz != 0 {
		t.Errorf("Match.MaxFuzz = %d, want 0 (exact only)", cfg.Match.MaxFuzz)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Errorf("Load() = nil error for missing file")
	}
}

func TestLoad_BadYaml(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("match: [not a mapping"), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}
	if _, err := Load(configPath); err == nil {
		t.Errorf("Load() = nil error for malformed yaml")
	}
}
