package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "ethics.mode").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It is the configuration error class: missing or contradictory settings
// that must stop the process at startup.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateEthics(&cfg.Ethics)...)
	errs = append(errs, validateRating(&cfg.Rating)...)
	errs = append(errs, validateRisk(&cfg.Risk)...)
	errs = append(errs, validateLedger(&cfg.Ledger)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateOverrides(&cfg.Overrides)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateEthics(cfg *EthicsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Mode {
	case "denylist", "allowlist":
	default:
		errs = append(errs, FieldError{
			Field:   "ethics.mode",
			Message: fmt.Sprintf("must be \"denylist\" or \"allowlist\", got %q", cfg.Mode),
		})
	}

	if cfg.EmergencyMode.Active && strings.TrimSpace(cfg.EmergencyMode.Reason) == "" {
		errs = append(errs, FieldError{
			Field:   "ethics.emergency_mode.reason",
			Message: "is required when emergency mode is active",
		})
	}

	c := cfg.Bypass.Categories
	if cfg.Bypass.Enabled && !c.Manufacturer && !c.Supplier && !c.Subcontractor {
		errs = append(errs, FieldError{
			Field:   "ethics.bypass.categories",
			Message: "bypass is enabled but no category allows it",
		})
	}

	if cfg.DenylistFile != "" && cfg.DenylistFile == cfg.AllowlistFile {
		errs = append(errs, FieldError{
			Field:   "ethics.allowlist_file",
			Message: "must differ from ethics.denylist_file",
		})
	}

	return errs
}

func validateRating(cfg *RatingConfig) []FieldError {
	var errs []FieldError

	w := cfg.Weights
	for name, v := range map[string]float64{
		"timeliness": w.Timeliness,
		"fairness":   w.Fairness,
		"trust":      w.Trust,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, FieldError{
				Field:   "rating.weights." + name,
				Message: fmt.Sprintf("must be between 0 and 1, got %g", v),
			})
		}
	}
	if sum := w.Timeliness + w.Fairness + w.Trust; math.Abs(sum-1) > 1e-9 {
		errs = append(errs, FieldError{
			Field:   "rating.weights",
			Message: fmt.Sprintf("must sum to 1, got %g", sum),
		})
	}

	if cfg.ScoreFloor < 0 || cfg.ScoreFloor > 100 {
		errs = append(errs, FieldError{
			Field:   "rating.score_floor",
			Message: fmt.Sprintf("must be between 0 and 100, got %g", cfg.ScoreFloor),
		})
	}

	t := cfg.Timeliness
	if !(t.FullMarksWithin < t.FirstBreakpoint && t.FirstBreakpoint < t.SecondBreakpoint) {
		errs = append(errs, FieldError{
			Field:   "rating.timeliness",
			Message: "breakpoints must be strictly increasing: full_marks_within < first_breakpoint < second_breakpoint",
		})
	}
	for name, v := range map[string]float64{
		"first_step_score":  t.FirstStepScore,
		"second_step_score": t.SecondStepScore,
		"floor_score":       t.FloorScore,
	} {
		if v < 0 || v > 100 {
			errs = append(errs, FieldError{
				Field:   "rating.timeliness." + name,
				Message: fmt.Sprintf("must be between 0 and 100, got %g", v),
			})
		}
	}

	if cfg.Fairness.UnderBonusMultiplier < 0 {
		errs = append(errs, FieldError{Field: "rating.fairness.under_bonus_multiplier", Message: "must not be negative"})
	}
	if cfg.Fairness.OverPenaltyMultiplier < 0 {
		errs = append(errs, FieldError{Field: "rating.fairness.over_penalty_multiplier", Message: "must not be negative"})
	}
	if cfg.MaxAlignmentDelta < 0 || cfg.MaxAlignmentDelta > 100 {
		errs = append(errs, FieldError{Field: "rating.max_alignment_delta", Message: "must be between 0 and 100"})
	}
	if cfg.InitialTrust < 0 || cfg.InitialTrust > 100 {
		errs = append(errs, FieldError{Field: "rating.initial_trust", Message: "must be between 0 and 100"})
	}
	if cfg.Workers < 1 {
		errs = append(errs, FieldError{Field: "rating.workers", Message: "must be at least 1"})
	}

	return errs
}

func validateRisk(cfg *RiskConfig) []FieldError {
	var errs []FieldError

	b := cfg.Bands
	if !(b.Critical > b.High && b.High > b.Moderate && b.Moderate > 0 && b.Critical <= 100) {
		errs = append(errs, FieldError{
			Field:   "risk.bands",
			Message: fmt.Sprintf("must satisfy 100 >= critical > high > moderate > 0, got %g/%g/%g", b.Critical, b.High, b.Moderate),
		})
	}

	if cfg.SurvivalMargin <= 0 || cfg.SurvivalMargin >= 1 {
		errs = append(errs, FieldError{
			Field:   "risk.survival_margin",
			Message: fmt.Sprintf("must be between 0 and 1 (exclusive), got %g", cfg.SurvivalMargin),
		})
	}

	c := cfg.Contributions
	others := map[string]float64{
		"vague_scope":          c.VagueScope,
		"low_rated_cap":        c.LowRatedCap,
		"policy_violation_cap": c.PolicyViolationCap,
		"override_cap":         c.OverrideCap,
	}
	for name, v := range others {
		if v < 0 {
			errs = append(errs, FieldError{Field: "risk.contributions." + name, Message: "must not be negative"})
		}
		if v >= c.MarginErosion {
			errs = append(errs, FieldError{
				Field:   "risk.contributions." + name,
				Message: fmt.Sprintf("must be less than margin_erosion (%g), got %g", c.MarginErosion, v),
			})
		}
	}
	if c.MarginErosion > 100 {
		errs = append(errs, FieldError{Field: "risk.contributions.margin_erosion", Message: "must not exceed 100"})
	}
	if c.LowRatedEntity < 0 || c.PolicyViolation < 0 || c.Override < 0 {
		errs = append(errs, FieldError{Field: "risk.contributions", Message: "per-item increments must not be negative"})
	}

	for i, kw := range cfg.VagueKeywords {
		if strings.TrimSpace(kw) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("risk.vague_keywords[%d]", i),
				Message: "must not be empty",
			})
		}
	}

	return errs
}

func validateLedger(cfg *LedgerConfig) []FieldError {
	var errs []FieldError

	if cfg.Path == "" {
		errs = append(errs, FieldError{Field: "ledger.path", Message: "is required"})
	}
	if cfg.KeyFile == "" && cfg.KeyEnv == "" {
		errs = append(errs, FieldError{Field: "ledger.key_file", Message: "a key file or key env variable is required"})
	}
	if cfg.KeyFile != "" && cfg.KeyFile == cfg.Path {
		errs = append(errs, FieldError{Field: "ledger.key_file", Message: "must be stored separately from the ledger"})
	}
	if cfg.IOTimeout <= 0 {
		errs = append(errs, FieldError{Field: "ledger.io_timeout", Message: "must be positive"})
	}
	if cfg.FlushSchedule != "" {
		if _, err := cron.ParseStandard(cfg.FlushSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "ledger.flush_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	if cfg.Path == "" {
		errs = append(errs, FieldError{Field: "audit.path", Message: "is required"})
	}
	if cfg.SQLiteIndex.Enabled {
		if cfg.SQLiteIndex.Path == "" {
			errs = append(errs, FieldError{Field: "audit.sqlite_index.path", Message: "is required when the index is enabled"})
		}
		if cfg.SQLiteIndex.BusyTimeout < 0 {
			errs = append(errs, FieldError{Field: "audit.sqlite_index.busy_timeout", Message: "must not be negative"})
		}
	}

	return errs
}

func validateOverrides(cfg *OverridesConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "sqlite":
		if cfg.SQLitePath == "" {
			errs = append(errs, FieldError{Field: "overrides.sqlite_path", Message: "is required for the sqlite backend"})
		}
	case "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "overrides.backend",
			Message: fmt.Sprintf("must be \"sqlite\" or \"memory\", got %q", cfg.Backend),
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("must be one of debug, info, warn, error; got %q", cfg.Logging.Level),
		})
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("must be \"json\" or \"text\", got %q", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Namespace == "" {
		errs = append(errs, FieldError{Field: "telemetry.metrics.namespace", Message: "is required when metrics are enabled"})
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "is required when tracing is enabled"})
		}
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("must be one of always, never, ratio; got %q", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0 and 1"})
		}
	}

	return errs
}
