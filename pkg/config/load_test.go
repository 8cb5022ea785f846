package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bidguard.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
ethics:
  mode: allowlist
  strict_mode: true
  allowlist_file: lists/allow.yaml
rating:
  score_floor: 70
  timeliness:
    first_breakpoint: 36h
risk:
  survival_margin: 0.2
telemetry:
  logging:
    level: debug
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Ethics.Mode != "allowlist" {
		t.Errorf("expected mode allowlist, got %q", cfg.Ethics.Mode)
	}
	if !cfg.Ethics.StrictMode {
		t.Error("expected strict mode")
	}
	if cfg.Rating.ScoreFloor != 70 {
		t.Errorf("expected score floor 70, got %g", cfg.Rating.ScoreFloor)
	}
	if cfg.Rating.Timeliness.FirstBreakpoint != 36*time.Hour {
		t.Errorf("expected first breakpoint 36h, got %v", cfg.Rating.Timeliness.FirstBreakpoint)
	}
	if cfg.Risk.SurvivalMargin != 0.2 {
		t.Errorf("expected survival margin 0.2, got %g", cfg.Risk.SurvivalMargin)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level debug, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_DefaultsSurviveOmittedFields(t *testing.T) {
	path := writeConfig(t, "ethics:\n  strict_mode: true\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !cfg.Ethics.Enabled {
		t.Error("expected ethics.enabled to default to true")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics to default to enabled")
	}
	w := cfg.Rating.Weights
	if w.Timeliness != 0.45 || w.Fairness != 0.35 || w.Trust != 0.20 {
		t.Errorf("unexpected default weights: %+v", w)
	}
	if cfg.Rating.ScoreFloor != DefaultScoreFloor {
		t.Errorf("expected default floor, got %g", cfg.Rating.ScoreFloor)
	}
	b := cfg.Risk.Bands
	if b.Critical != 70 || b.High != 45 || b.Moderate != 25 {
		t.Errorf("unexpected default bands: %+v", b)
	}
}

func TestLoadConfig_ExplicitFalseOverridesDefault(t *testing.T) {
	path := writeConfig(t, "ethics:\n  enabled: false\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Ethics.Enabled {
		t.Error("expected ethics.enabled false")
	}
}

func TestLoadConfig_ExplicitZeroInitialTrust(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "rating:\n  initial_trust: 0\n"))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Rating.InitialTrust != 0 {
		t.Errorf("expected initial_trust 0 to survive, got %g", cfg.Rating.InitialTrust)
	}

	cfg, err = LoadConfig(writeConfig(t, "rating:\n  workers: 2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Rating.InitialTrust != DefaultInitialTrust {
		t.Errorf("expected default initial trust, got %g", cfg.Rating.InitialTrust)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "ethics: [unclosed")

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfig_ContradictoryConfiguration(t *testing.T) {
	path := writeConfig(t, `
ethics:
  mode: denylist
  emergency_mode:
    active: true
rating:
  weights:
    timeliness: 0.5
    fairness: 0.5
    trust: 0.5
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("expected 2 field errors, got %d: %v", len(verr.Errors), verr)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "ethics:\n  mode: denylist\n")

	t.Setenv("BIDGUARD_ETHICS_MODE", "allowlist")
	t.Setenv("BIDGUARD_ETHICS_STRICT_MODE", "true")
	t.Setenv("BIDGUARD_RATING_SCORE_FLOOR", "50")
	t.Setenv("BIDGUARD_LEDGER_IO_TIMEOUT", "3s")
	t.Setenv("BIDGUARD_RATING_WORKERS", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Ethics.Mode != "allowlist" {
		t.Errorf("expected env mode override, got %q", cfg.Ethics.Mode)
	}
	if !cfg.Ethics.StrictMode {
		t.Error("expected env strict override")
	}
	if cfg.Rating.ScoreFloor != 50 {
		t.Errorf("expected floor 50, got %g", cfg.Rating.ScoreFloor)
	}
	if cfg.Ledger.IOTimeout != 3*time.Second {
		t.Errorf("expected io timeout 3s, got %v", cfg.Ledger.IOTimeout)
	}
	if cfg.Rating.Workers != DefaultRatingWorkers {
		t.Errorf("malformed env value should be ignored, got %d workers", cfg.Rating.Workers)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidAfterOverride(t *testing.T) {
	t.Setenv("BIDGUARD_ETHICS_MODE", "graylist")

	_, err := LoadConfigWithEnvOverrides("")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "ethics.mode") {
		t.Errorf("expected ethics.mode in error, got %v", err)
	}
}

func TestInitialize(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	cfg := MustGetConfig()
	if cfg.Ethics.Mode != DefaultEthicsMode {
		t.Errorf("expected default mode, got %q", cfg.Ethics.Mode)
	}

	SetConfig(nil)
	defer func() {
		if recover() == nil {
			t.Error("expected MustGetConfig to panic when uninitialized")
		}
	}()
	MustGetConfig()
}
