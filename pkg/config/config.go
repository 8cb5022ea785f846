package config

import "time"

// Config is the root configuration structure for bidguard.
// It contains every section recognized by the policy gate, the rating
// engine, the risk aggregator, and the persistence layers behind them.
type Config struct {
	// Ethics contains the policy gate configuration: mode, strictness,
	// emergency escape valve, per-category bypass, and list file locations.
	Ethics EthicsConfig `yaml:"ethics"`

	// Rating contains the weights, breakpoints, and multipliers used to
	// score entity transactions.
	Rating RatingConfig `yaml:"rating"`

	// Risk contains the contribution table and level bands used by the
	// risk aggregator.
	Risk RiskConfig `yaml:"risk"`

	// Ledger contains encrypted ledger storage configuration.
	Ledger LedgerConfig `yaml:"ledger"`

	// Audit contains audit log configuration.
	Audit AuditConfig `yaml:"audit"`

	// Overrides contains override record storage configuration.
	Overrides OverridesConfig `yaml:"overrides"`

	// Telemetry contains logging, metrics, and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EthicsConfig contains configuration for the policy evaluator.
type EthicsConfig struct {
	// Enabled controls whether policy enforcement runs at all. When false,
	// every check is Allowed with reason "disabled".
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Mode selects list semantics.
	// Options: "denylist" (allowed unless listed), "allowlist" (blocked unless listed)
	// Default: "denylist"
	Mode string `yaml:"mode"`

	// StrictMode turns Blocked/Rejected decisions into a hard-stop that
	// aborts the in-progress bid.
	// Default: false
	StrictMode bool `yaml:"strict_mode"`

	// EmergencyMode allows every entity while active. Every use is audited.
	EmergencyMode EmergencyModeConfig `yaml:"emergency_mode"`

	// Bypass contains per-category manual bypass switches.
	Bypass BypassConfig `yaml:"bypass"`

	// DenylistFile is the path to a YAML list of denied entity names.
	// Optional.
	DenylistFile string `yaml:"denylist_file"`

	// AllowlistFile is the path to a YAML list of allowed entity names.
	// Required when Mode is "allowlist" unless learned entries exist.
	AllowlistFile string `yaml:"allowlist_file"`
}

// EmergencyModeConfig contains the emergency escape valve settings.
type EmergencyModeConfig struct {
	// Active enables emergency mode.
	// Default: false
	Active bool `yaml:"active"`

	// Reason is recorded on every emergency allowance.
	// Required when Active is true.
	Reason string `yaml:"reason"`
}

// BypassConfig contains manual bypass configuration.
type BypassConfig struct {
	// Enabled is the global bypass switch. A bypass also needs the
	// category flag and a non-empty reason on the request.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Categories holds per-category bypass flags.
	Categories BypassCategories `yaml:"categories"`
}

// BypassCategories holds one bypass flag per entity category.
type BypassCategories struct {
	Manufacturer  bool `yaml:"manufacturer"`
	Supplier      bool `yaml:"supplier"`
	Subcontractor bool `yaml:"subcontractor"`
}

// RatingConfig contains configuration for the rating engine.
type RatingConfig struct {
	// Weights are the subscore weights. They must sum to 1.
	// Default: 0.45 / 0.35 / 0.20
	Weights RatingWeights `yaml:"weights"`

	// ScoreFloor is the score below which FellBelowThreshold is signaled.
	// Default: 65
	ScoreFloor float64 `yaml:"score_floor"`

	// Timeliness contains the reply latency step function.
	Timeliness TimelinessConfig `yaml:"timeliness"`

	// Fairness contains the price variance multipliers.
	Fairness FairnessConfig `yaml:"fairness"`

	// MaxAlignmentDelta bounds the caller-supplied trust adjustment.
	// Default: 10
	MaxAlignmentDelta float64 `yaml:"max_alignment_delta"`

	// InitialTrust is the trust term assigned to newly seen entities.
	// Default: 100
	InitialTrust float64 `yaml:"initial_trust"`

	// Workers is the number of concurrent rating workers per bid.
	// Default: 4
	Workers int `yaml:"workers"`

	// AutoDenylistBelowFloor learns a denylist entry, through the audited
	// learn path, whenever an entity falls below ScoreFloor.
	// Default: false
	AutoDenylistBelowFloor bool `yaml:"auto_denylist_below_floor"`
}

// RatingWeights are the weights applied to each subscore.
type RatingWeights struct {
	Timeliness float64 `yaml:"timeliness"`
	Fairness   float64 `yaml:"fairness"`
	Trust      float64 `yaml:"trust"`
}

// TimelinessConfig describes the reply latency step function.
type TimelinessConfig struct {
	// FullMarksWithin is the latency at or under which timeliness is 100.
	// Default: 24h
	FullMarksWithin time.Duration `yaml:"full_marks_within"`

	// FirstBreakpoint is the upper bound of the first degraded step.
	// Default: 48h
	FirstBreakpoint time.Duration `yaml:"first_breakpoint"`

	// SecondBreakpoint is the upper bound of the second degraded step.
	// Default: 72h
	SecondBreakpoint time.Duration `yaml:"second_breakpoint"`

	// FirstStepScore applies within FirstBreakpoint.
	// Default: 70
	FirstStepScore float64 `yaml:"first_step_score"`

	// SecondStepScore applies within SecondBreakpoint.
	// Default: 40
	SecondStepScore float64 `yaml:"second_step_score"`

	// FloorScore applies beyond SecondBreakpoint.
	// Default: 10
	FloorScore float64 `yaml:"floor_score"`
}

// FairnessConfig contains the asymmetric price variance multipliers.
// Both are expressed in points per percentage point of variance.
type FairnessConfig struct {
	// UnderBonusMultiplier rewards quotes at or under baseline.
	// Default: 2.0
	UnderBonusMultiplier float64 `yaml:"under_bonus_multiplier"`

	// OverPenaltyMultiplier penalizes quotes over baseline.
	// Default: 3.0
	OverPenaltyMultiplier float64 `yaml:"over_penalty_multiplier"`
}

// RiskConfig contains configuration for the risk aggregator.
type RiskConfig struct {
	// Bands map a total score to a level.
	Bands RiskBands `yaml:"bands"`

	// SurvivalMargin is the bid margin below which margin erosion applies.
	// Default: 0.18
	SurvivalMargin float64 `yaml:"survival_margin"`

	// Contributions is the additive contribution table.
	Contributions RiskContributions `yaml:"contributions"`

	// VagueKeywords are scope phrases that indicate open-ended work.
	VagueKeywords []string `yaml:"vague_keywords"`
}

// RiskBands are the lower bounds of each risk level. Scores below
// Moderate are Low.
type RiskBands struct {
	Critical float64 `yaml:"critical"`
	High     float64 `yaml:"high"`
	Moderate float64 `yaml:"moderate"`
}

// RiskContributions are the per-factor risk increments and caps.
type RiskContributions struct {
	VagueScope         float64 `yaml:"vague_scope"`
	LowRatedEntity     float64 `yaml:"low_rated_entity"`
	LowRatedCap        float64 `yaml:"low_rated_cap"`
	PolicyViolation    float64 `yaml:"policy_violation"`
	PolicyViolationCap float64 `yaml:"policy_violation_cap"`
	Override           float64 `yaml:"override"`
	OverrideCap        float64 `yaml:"override_cap"`
	MarginErosion      float64 `yaml:"margin_erosion"`
}

// LedgerConfig contains configuration for the encrypted ledger.
type LedgerConfig struct {
	// Path is the encrypted ledger file.
	// Default: "data/ledger.bgl"
	Path string `yaml:"path"`

	// KeyFile is the hex-encoded ledger key, kept apart from the ledger.
	// Must have 0600 or 0400 permissions.
	// Default: "data/ledger.key"
	KeyFile string `yaml:"key_file"`

	// KeyEnv names an environment variable that may carry the key instead.
	// Default: "BIDGUARD_LEDGER_KEY"
	KeyEnv string `yaml:"key_env"`

	// AutoGenerateKey creates a key on first use when neither the key nor
	// the ledger exists.
	// Default: false
	AutoGenerateKey bool `yaml:"auto_generate_key"`

	// IOTimeout bounds every load and save.
	// Default: 10s
	IOTimeout time.Duration `yaml:"io_timeout"`

	// FlushSchedule is a cron expression for periodic re-encryption of a
	// long-lived session. Empty disables the scheduler.
	// Default: ""
	FlushSchedule string `yaml:"flush_schedule"`

	// WatchKey invalidates the cached key when the key file changes.
	// Default: false
	WatchKey bool `yaml:"watch_key"`
}

// AuditConfig contains configuration for the audit log.
type AuditConfig struct {
	// Path is the plaintext append-only audit log.
	// Default: "data/audit.log"
	Path string `yaml:"path"`

	// SQLiteIndex mirrors entries into a queryable SQLite database.
	SQLiteIndex SQLiteIndexConfig `yaml:"sqlite_index"`
}

// SQLiteIndexConfig contains configuration for the audit SQLite index.
type SQLiteIndexConfig struct {
	// Enabled turns on the index.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the database file.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// BusyTimeout is the SQLite busy timeout.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// OverridesConfig contains configuration for override record storage.
type OverridesConfig struct {
	// Backend selects the store.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file for the sqlite backend.
	// Default: "data/overrides.db"
	SQLitePath string `yaml:"sqlite_path"`
}

// TelemetryConfig contains configuration for logging, metrics, and tracing.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains configuration for structured logging.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains configuration for Prometheus metrics.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name.
	// Default: "bidguard"
	Namespace string `yaml:"namespace"`

	// Textfile, when set, receives a Prometheus text exposition after each
	// CLI run.
	// Default: ""
	Textfile string `yaml:"textfile"`
}

// TracingConfig contains configuration for OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled controls whether spans are exported. When false a noop
	// tracer is used.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Sampler selects the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces kept by the ratio sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "bidguard"
	ServiceName string `yaml:"service_name"`
}
