package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"mercator-hq/bidguard/pkg/audit"
	"mercator-hq/bidguard/pkg/bid"
	"mercator-hq/bidguard/pkg/cli"
	"mercator-hq/bidguard/pkg/config"
	"mercator-hq/bidguard/pkg/ledger"
	"mercator-hq/bidguard/pkg/override"
	"mercator-hq/bidguard/pkg/policy"
	"mercator-hq/bidguard/pkg/risk"
	"mercator-hq/bidguard/pkg/telemetry/logging"
	"mercator-hq/bidguard/pkg/telemetry/metrics"
	"mercator-hq/bidguard/pkg/telemetry/tracing"
)

// app holds the components a command needs. Components are opened on
// first use and closed, in reverse order, by Close.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer

	// metricsFile overrides telemetry.metrics.textfile for this run.
	metricsFile string

	sink      audit.Sink
	overrides override.Store
	store     *ledger.Store
	closers   []func(context.Context) error
}

// setup loads configuration and starts logging, metrics, and tracing.
func setup(ctx context.Context) (*app, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	logCfg := cfg.Telemetry.Logging
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:     logCfg.Level,
		Format:    logCfg.Format,
		AddSource: logCfg.AddSource,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger.SetDefault()

	tracer, err := tracing.New(ctx, &cfg.Telemetry.Tracing)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}

	a := &app{
		cfg:         cfg,
		logger:      logger.Slog(),
		metrics:     metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
		tracer:      tracer,
		metricsFile: cfg.Telemetry.Metrics.Textfile,
	}
	a.onClose(tracer.Shutdown)
	return a, nil
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases every opened component and writes the metrics textfile
// when one is configured.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	if a.metricsFile != "" {
		if err := a.metrics.WriteTextfile(a.metricsFile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

// auditSink opens the audit log, mirrored into the SQLite index when it
// is enabled.
func (a *app) auditSink() (audit.Sink, error) {
	if a.sink != nil {
		return a.sink, nil
	}

	fileLog, err := audit.NewFileLog(audit.FileLogConfig{
		Path:    a.cfg.Audit.Path,
		Logger:  a.logger,
		Metrics: a.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	var sink audit.Sink = fileLog
	if idx := a.cfg.Audit.SQLiteIndex; idx.Enabled {
		index, err := audit.NewSQLiteIndex(audit.SQLiteConfig{
			Path:        idx.Path,
			BusyTimeout: idx.BusyTimeout,
			Metrics:     a.metrics,
		})
		if err != nil {
			_ = fileLog.Close()
			return nil, fmt.Errorf("open audit index: %w", err)
		}
		sink = audit.NewTee(fileLog, index)
	}

	a.sink = sink
	a.onClose(func(context.Context) error { return sink.Close() })
	return sink, nil
}

func (a *app) overrideStore() (override.Store, error) {
	if a.overrides != nil {
		return a.overrides, nil
	}

	var store override.Store
	switch a.cfg.Overrides.Backend {
	case "memory":
		a.logger.Warn("override records are kept in memory and lost on exit")
		store = override.NewMemoryStore()
	default:
		s, err := override.NewSQLiteStore(override.SQLiteConfig{Path: a.cfg.Overrides.SQLitePath})
		if err != nil {
			return nil, fmt.Errorf("open override store: %w", err)
		}
		store = s
	}

	a.overrides = store
	a.onClose(func(context.Context) error { return store.Close() })
	return store, nil
}

// ledgerStore builds the ledger store. The key comes from the key file,
// or failing that from the key environment variable.
func (a *app) ledgerStore() (*ledger.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	lc := a.cfg.Ledger

	fileKeys, err := ledger.NewFileKeyProvider(lc.KeyFile, lc.WatchKey)
	if err != nil {
		return nil, err
	}
	initialTrust := a.cfg.Rating.InitialTrust
	store, err := ledger.NewStore(ledger.StoreConfig{
		Path:            lc.Path,
		Keys:            ledger.NewChainProvider(fileKeys, ledger.NewEnvKeyProvider(lc.KeyEnv)),
		KeyFile:         lc.KeyFile,
		AutoGenerateKey: lc.AutoGenerateKey,
		IOTimeout:       lc.IOTimeout,
		InitialTrust:    &initialTrust,
		Logger:          a.logger,
		Metrics:         a.metrics,
	})
	if err != nil {
		_ = fileKeys.Close()
		return nil, err
	}

	a.store = store
	a.onClose(func(context.Context) error { return fileKeys.Close() })
	return store, nil
}

// openSession opens a ledger session that is saved when the app closes.
func (a *app) openSession(ctx context.Context) (*ledger.Session, error) {
	store, err := a.ledgerStore()
	if err != nil {
		return nil, err
	}
	sess, err := store.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	a.onClose(func(ctx context.Context) error {
		if err := sess.Close(ctx); err != nil {
			return fmt.Errorf("save ledger: %w", err)
		}
		return nil
	})
	return sess, nil
}

// learnEvents returns the learn journal. A ledger that does not exist
// yet has none, and reading it must not require a key.
func (a *app) learnEvents(ctx context.Context) ([]ledger.LearnEvent, error) {
	if _, err := os.Stat(a.cfg.Ledger.Path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	store, err := a.ledgerStore()
	if err != nil {
		return nil, err
	}
	state, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return state.Learn, nil
}

// policyList loads the list files and replays learned changes on top.
func (a *app) policyList(events []ledger.LearnEvent) (*policy.List, error) {
	ec := a.cfg.Ethics
	list, err := policy.LoadList(policy.Mode(ec.Mode), ec.StrictMode, ec.DenylistFile, ec.AllowlistFile)
	if err != nil {
		return nil, cli.NewConfigError("ethics", err.Error())
	}
	if err := list.Replay(events); err != nil {
		return nil, fmt.Errorf("replay learned list changes: %w", err)
	}
	return list, nil
}

func (a *app) evaluator(events []ledger.LearnEvent) (*policy.Evaluator, error) {
	list, err := a.policyList(events)
	if err != nil {
		return nil, err
	}
	sink, err := a.auditSink()
	if err != nil {
		return nil, err
	}
	overrides, err := a.overrideStore()
	if err != nil {
		return nil, err
	}
	return policy.NewEvaluator(policy.Options{
		Config:    a.cfg.Ethics,
		List:      list,
		Audit:     sink,
		Overrides: overrides,
		Logger:    a.logger,
		Metrics:   a.metrics,
		Tracer:    a.tracer,
	})
}

func (a *app) bidEngine(eval *policy.Evaluator) (*bid.Engine, error) {
	store, err := a.ledgerStore()
	if err != nil {
		return nil, err
	}
	sink, err := a.auditSink()
	if err != nil {
		return nil, err
	}
	assessor, err := risk.NewAssessor(risk.Options{
		Config:     a.cfg.Risk,
		ScoreFloor: a.cfg.Rating.ScoreFloor,
		Logger:     a.logger,
		Metrics:    a.metrics,
		Tracer:     a.tracer,
	})
	if err != nil {
		return nil, cli.NewConfigError("risk", err.Error())
	}
	return bid.NewEngine(bid.Options{
		Rating:   a.cfg.Rating,
		Ledger:   store,
		Policy:   eval,
		Audit:    sink,
		Assessor: assessor,
		Logger:   a.logger,
		Metrics:  a.metrics,
		Tracer:   a.tracer,
	})
}

// run sets up the app, calls fn, and closes the app. A close error is
// reported alongside fn's error.
func run(parent context.Context, cmd string, fn func(ctx context.Context, a *app) error) (err error) {
	a, err := setup(parent)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.WithoutCancel(parent)); cerr != nil {
			err = errors.Join(err, cli.NewCommandError(cmd, cerr))
		}
	}()
	return fn(parent, a)
}
