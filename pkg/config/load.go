package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "BIDGUARD_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is overlaid on Defaults, zero values are defaulted, and the
// result is validated. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration on top of Defaults without validating.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention BIDGUARD_SECTION_FIELD (e.g., BIDGUARD_ETHICS_MODE).
// Environment variables always take precedence over file-based configuration.
//
// An empty path skips the file and starts from Defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Defaults()
	} else {
		var err error
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed values are ignored and the file value is kept.
func applyEnvOverrides(cfg *Config) {
	// Ethics overrides
	envBool("ETHICS_ENABLED", &cfg.Ethics.Enabled)
	envString("ETHICS_MODE", &cfg.Ethics.Mode)
	envBool("ETHICS_STRICT_MODE", &cfg.Ethics.StrictMode)
	envBool("ETHICS_EMERGENCY_MODE_ACTIVE", &cfg.Ethics.EmergencyMode.Active)
	envString("ETHICS_EMERGENCY_MODE_REASON", &cfg.Ethics.EmergencyMode.Reason)
	envBool("ETHICS_BYPASS_ENABLED", &cfg.Ethics.Bypass.Enabled)
	envBool("ETHICS_BYPASS_MANUFACTURER", &cfg.Ethics.Bypass.Categories.Manufacturer)
	envBool("ETHICS_BYPASS_SUPPLIER", &cfg.Ethics.Bypass.Categories.Supplier)
	envBool("ETHICS_BYPASS_SUBCONTRACTOR", &cfg.Ethics.Bypass.Categories.Subcontractor)
	envString("ETHICS_DENYLIST_FILE", &cfg.Ethics.DenylistFile)
	envString("ETHICS_ALLOWLIST_FILE", &cfg.Ethics.AllowlistFile)

	// Rating overrides
	envFloat("RATING_WEIGHTS_TIMELINESS", &cfg.Rating.Weights.Timeliness)
	envFloat("RATING_WEIGHTS_FAIRNESS", &cfg.Rating.Weights.Fairness)
	envFloat("RATING_WEIGHTS_TRUST", &cfg.Rating.Weights.Trust)
	envFloat("RATING_SCORE_FLOOR", &cfg.Rating.ScoreFloor)
	envInt("RATING_WORKERS", &cfg.Rating.Workers)
	envBool("RATING_AUTO_DENYLIST_BELOW_FLOOR", &cfg.Rating.AutoDenylistBelowFloor)

	// Risk overrides
	envFloat("RISK_BANDS_CRITICAL", &cfg.Risk.Bands.Critical)
	envFloat("RISK_BANDS_HIGH", &cfg.Risk.Bands.High)
	envFloat("RISK_BANDS_MODERATE", &cfg.Risk.Bands.Moderate)
	envFloat("RISK_SURVIVAL_MARGIN", &cfg.Risk.SurvivalMargin)

	// Ledger overrides
	envString("LEDGER_PATH", &cfg.Ledger.Path)
	envString("LEDGER_KEY_FILE", &cfg.Ledger.KeyFile)
	envBool("LEDGER_AUTO_GENERATE_KEY", &cfg.Ledger.AutoGenerateKey)
	envDuration("LEDGER_IO_TIMEOUT", &cfg.Ledger.IOTimeout)
	envString("LEDGER_FLUSH_SCHEDULE", &cfg.Ledger.FlushSchedule)

	// Audit overrides
	envString("AUDIT_PATH", &cfg.Audit.Path)
	envBool("AUDIT_SQLITE_INDEX_ENABLED", &cfg.Audit.SQLiteIndex.Enabled)
	envString("AUDIT_SQLITE_INDEX_PATH", &cfg.Audit.SQLiteIndex.Path)

	// Override store overrides
	envString("OVERRIDES_BACKEND", &cfg.Overrides.Backend)
	envString("OVERRIDES_SQLITE_PATH", &cfg.Overrides.SQLitePath)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_TEXTFILE", &cfg.Telemetry.Metrics.Textfile)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envFloat(name string, dst *float64) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
