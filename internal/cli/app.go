package cli

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/filecrawler/internal/analyzer"
	"github.com/roach88/filecrawler/internal/config"
	"github.com/roach88/filecrawler/internal/fileops"
	"github.com/roach88/filecrawler/internal/metrics"
	"github.com/roach88/filecrawler/internal/pipeline"
	"github.com/roach88/filecrawler/internal/scan"
	"github.com/roach88/filecrawler/internal/scheduler"
	"github.com/roach88/filecrawler/internal/store"
	"github.com/roach88/filecrawler/internal/wal"
)

// ConfigFlags override configuration file values. Only flags the user
// actually set are applied.
type ConfigFlags struct {
	Watch       string
	Success     string
	Fail        string
	WAL         string
	Workers     int
	Period      time.Duration
	Settle      time.Duration
	Driver      string
	DSN         string
	Schema      string
	MetricsAddr string
}

func (f *ConfigFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.Watch, "watch", "", "directory to scan for new files")
	fs.StringVar(&f.Success, "success-dir", "", "destination for ingested files")
	fs.StringVar(&f.Fail, "fail-dir", "", "destination for rejected files")
	fs.StringVar(&f.WAL, "wal-dir", "", "directory holding per-file write-ahead logs")
	fs.IntVar(&f.Workers, "workers", 0, "maximum concurrent pipelines")
	fs.DurationVar(&f.Period, "period", 0, "time between scans")
	fs.DurationVar(&f.Settle, "settle", 0, "treat files modified more recently than this as still being written")
	fs.StringVar(&f.Driver, "db-driver", "", "database driver (sqlite|postgres)")
	fs.StringVar(&f.DSN, "db", "", "database DSN (SQLite path or PostgreSQL URL)")
	fs.StringVar(&f.Schema, "schema", "", "CUE schema file defining #Entry")
	fs.StringVar(&f.MetricsAddr, "metrics-addr", "", "listen address for /metrics and /health/live")
}

func (f *ConfigFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("watch") {
		cfg.WatchDir = f.Watch
	}
	if changed("success-dir") {
		cfg.SuccessDir = f.Success
	}
	if changed("fail-dir") {
		cfg.FailDir = f.Fail
	}
	if changed("wal-dir") {
		cfg.WALDir = f.WAL
	}
	if changed("workers") {
		cfg.Workers = f.Workers
	}
	if changed("period") {
		cfg.Period = f.Period
	}
	if changed("settle") {
		cfg.Settle = f.Settle
	}
	if changed("db-driver") {
		cfg.Database.Driver = f.Driver
	}
	if changed("db") {
		cfg.Database.DSN = f.DSN
	}
	if changed("schema") {
		cfg.Schema = f.Schema
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = f.MetricsAddr
	}
}

// readConfig loads the config file when one was given and applies flag
// overrides. It does not validate.
func readConfig(opts *RootOptions, flags *ConfigFlags, cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return cfg, WrapExitError(ExitCommandError, "failed to load configuration", err)
		}
		cfg = loaded
	}
	if flags != nil {
		flags.apply(cmd, &cfg)
	}
	return cfg, nil
}

// loadConfig is readConfig followed by validation.
func loadConfig(opts *RootOptions, flags *ConfigFlags, cmd *cobra.Command) (config.Config, error) {
	cfg, err := readConfig(opts, flags, cmd)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// app is the fully wired crawler.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	repo      store.Repository
	wal       *wal.Store
	scheduler *scheduler.Scheduler
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	parser, err := analyzer.NewFromFile(cfg.Schema)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load entry schema", err)
	}

	walStore, err := wal.New(cfg.WALDir, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open wal directory", err)
	}

	logger.Info("opening database", slog.String("driver", cfg.Database.Driver))
	repo, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	deps := pipeline.Deps{
		WAL:        walStore,
		Parser:     parser,
		Repo:       repo,
		Files:      fileops.New(cfg.Settle, logger),
		SuccessDir: cfg.SuccessDir,
		FailDir:    cfg.FailDir,
		Logger:     logger,
		Metrics:    metrics.New(reg),
	}
	source := scan.New(cfg.WatchDir, scan.Options{
		Ignore:  cfg.Ignore,
		Exclude: cfg.ExcludedDirs(),
	}, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		repo:     repo,
		wal:      walStore,
		scheduler: scheduler.New(deps, source, scheduler.Options{
			Workers: cfg.Workers,
			Period:  cfg.Period,
		}),
	}, nil
}

func (a *app) Close() {
	if err := a.repo.Close(); err != nil {
		a.logger.Error("error closing database", slog.String("error", err.Error()))
	}
}
