package config

import "time"

// Default values for configuration fields.
const (
	// Ethics defaults
	DefaultEthicsEnabled    = true
	DefaultEthicsMode       = "denylist"
	DefaultEthicsStrictMode = false

	// Rating defaults
	DefaultWeightTimeliness       = 0.45
	DefaultWeightFairness         = 0.35
	DefaultWeightTrust            = 0.20
	DefaultScoreFloor             = 65.0
	DefaultFullMarksWithin        = 24 * time.Hour
	DefaultFirstBreakpoint        = 48 * time.Hour
	DefaultSecondBreakpoint       = 72 * time.Hour
	DefaultFirstStepScore         = 70.0
	DefaultSecondStepScore        = 40.0
	DefaultTimelinessFloorScore   = 10.0
	DefaultUnderBonusMultiplier   = 2.0
	DefaultOverPenaltyMultiplier  = 3.0
	DefaultMaxAlignmentDelta      = 10.0
	DefaultInitialTrust           = 100.0
	DefaultRatingWorkers          = 4
	DefaultAutoDenylistBelowFloor = false

	// Risk defaults
	DefaultRiskBandCritical       = 70.0
	DefaultRiskBandHigh           = 45.0
	DefaultRiskBandModerate       = 25.0
	DefaultSurvivalMargin         = 0.18
	DefaultRiskVagueScope         = 15.0
	DefaultRiskLowRatedEntity     = 10.0
	DefaultRiskLowRatedCap        = 30.0
	DefaultRiskPolicyViolation    = 5.0
	DefaultRiskPolicyViolationCap = 20.0
	DefaultRiskOverride           = 5.0
	DefaultRiskOverrideCap        = 20.0
	DefaultRiskMarginErosion      = 40.0

	// Ledger defaults
	DefaultLedgerPath      = "data/ledger.bgl"
	DefaultLedgerKeyFile   = "data/ledger.key"
	DefaultLedgerKeyEnv    = "BIDGUARD_LEDGER_KEY"
	DefaultLedgerIOTimeout = 10 * time.Second

	// Audit defaults
	DefaultAuditPath              = "data/audit.log"
	DefaultAuditSQLitePath        = "data/audit.db"
	DefaultAuditSQLiteBusyTimeout = 5 * time.Second

	// Override defaults
	DefaultOverridesBackend    = "sqlite"
	DefaultOverridesSQLitePath = "data/overrides.db"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "text"
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "bidguard"
	DefaultTracingSampler   = "always"
	DefaultTracingRatio     = 1.0
	DefaultTracingService   = "bidguard"
)

// DefaultVagueKeywords are the scope phrases that mark open-ended work.
var DefaultVagueKeywords = []string{
	"tbd",
	"to be determined",
	"as needed",
	"as required",
	"allowance",
	"approximately",
	"by others",
	"etc",
	"and/or",
	"per owner direction",
}

// Defaults returns a Config populated with every default value.
// LoadConfig unmarshals YAML on top of it, so booleans that default to
// true, and an initial trust of 100, survive a file that omits them while
// an explicit false or 0 still wins.
func Defaults() *Config {
	cfg := &Config{
		Ethics: EthicsConfig{
			Enabled:    DefaultEthicsEnabled,
			StrictMode: DefaultEthicsStrictMode,
		},
		Rating: RatingConfig{
			AutoDenylistBelowFloor: DefaultAutoDenylistBelowFloor,
			InitialTrust:           DefaultInitialTrust,
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Ethics defaults
	if cfg.Ethics.Mode == "" {
		cfg.Ethics.Mode = DefaultEthicsMode
	}

	applyRatingDefaults(&cfg.Rating)
	applyRiskDefaults(&cfg.Risk)

	// Ledger defaults
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = DefaultLedgerPath
	}
	if cfg.Ledger.KeyFile == "" {
		cfg.Ledger.KeyFile = DefaultLedgerKeyFile
	}
	if cfg.Ledger.KeyEnv == "" {
		cfg.Ledger.KeyEnv = DefaultLedgerKeyEnv
	}
	if cfg.Ledger.IOTimeout == 0 {
		cfg.Ledger.IOTimeout = DefaultLedgerIOTimeout
	}

	// Audit defaults
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = DefaultAuditPath
	}
	if cfg.Audit.SQLiteIndex.Path == "" {
		cfg.Audit.SQLiteIndex.Path = DefaultAuditSQLitePath
	}
	if cfg.Audit.SQLiteIndex.BusyTimeout == 0 {
		cfg.Audit.SQLiteIndex.BusyTimeout = DefaultAuditSQLiteBusyTimeout
	}

	// Override defaults
	if cfg.Overrides.Backend == "" {
		cfg.Overrides.Backend = DefaultOverridesBackend
	}
	if cfg.Overrides.SQLitePath == "" {
		cfg.Overrides.SQLitePath = DefaultOverridesSQLitePath
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
}

func applyRatingDefaults(cfg *RatingConfig) {
	// Weights are defaulted as a tuple; a partially specified tuple is
	// left for validation to reject.
	w := &cfg.Weights
	if w.Timeliness == 0 && w.Fairness == 0 && w.Trust == 0 {
		w.Timeliness = DefaultWeightTimeliness
		w.Fairness = DefaultWeightFairness
		w.Trust = DefaultWeightTrust
	}
	if cfg.ScoreFloor == 0 {
		cfg.ScoreFloor = DefaultScoreFloor
	}

	t := &cfg.Timeliness
	if t.FullMarksWithin == 0 {
		t.FullMarksWithin = DefaultFullMarksWithin
	}
	if t.FirstBreakpoint == 0 {
		t.FirstBreakpoint = DefaultFirstBreakpoint
	}
	if t.SecondBreakpoint == 0 {
		t.SecondBreakpoint = DefaultSecondBreakpoint
	}
	if t.FirstStepScore == 0 {
		t.FirstStepScore = DefaultFirstStepScore
	}
	if t.SecondStepScore == 0 {
		t.SecondStepScore = DefaultSecondStepScore
	}
	if t.FloorScore == 0 {
		t.FloorScore = DefaultTimelinessFloorScore
	}

	if cfg.Fairness.UnderBonusMultiplier == 0 {
		cfg.Fairness.UnderBonusMultiplier = DefaultUnderBonusMultiplier
	}
	if cfg.Fairness.OverPenaltyMultiplier == 0 {
		cfg.Fairness.OverPenaltyMultiplier = DefaultOverPenaltyMultiplier
	}
	if cfg.MaxAlignmentDelta == 0 {
		cfg.MaxAlignmentDelta = DefaultMaxAlignmentDelta
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultRatingWorkers
	}
}

func applyRiskDefaults(cfg *RiskConfig) {
	b := &cfg.Bands
	if b.Critical == 0 && b.High == 0 && b.Moderate == 0 {
		b.Critical = DefaultRiskBandCritical
		b.High = DefaultRiskBandHigh
		b.Moderate = DefaultRiskBandModerate
	}
	if cfg.SurvivalMargin == 0 {
		cfg.SurvivalMargin = DefaultSurvivalMargin
	}

	c := &cfg.Contributions
	if c.VagueScope == 0 {
		c.VagueScope = DefaultRiskVagueScope
	}
	if c.LowRatedEntity == 0 {
		c.LowRatedEntity = DefaultRiskLowRatedEntity
	}
	if c.LowRatedCap == 0 {
		c.LowRatedCap = DefaultRiskLowRatedCap
	}
	if c.PolicyViolation == 0 {
		c.PolicyViolation = DefaultRiskPolicyViolation
	}
	if c.PolicyViolationCap == 0 {
		c.PolicyViolationCap = DefaultRiskPolicyViolationCap
	}
	if c.Override == 0 {
		c.Override = DefaultRiskOverride
	}
	if c.OverrideCap == 0 {
		c.OverrideCap = DefaultRiskOverrideCap
	}
	if c.MarginErosion == 0 {
		c.MarginErosion = DefaultRiskMarginErosion
	}

	if len(cfg.VagueKeywords) == 0 {
		cfg.VagueKeywords = append([]string(nil), DefaultVagueKeywords...)
	}
}
