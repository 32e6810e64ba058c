// Package scheduler runs ingestion ticks on a fixed period.
//
// A tick has two phases:
//
//  1. Restore: every pending WAL file is turned back into a pipeline and
//     executed in the scheduler's goroutine, one at a time.
//  2. Scan: every file yielded by the source that is not locked gets a
//     fresh pipeline, run on a bounded worker pool.
//
// Restore always finishes before the first scan dispatch, and a tick waits
// for all its workers before returning. Ticks never overlap.
//
// Cancelling the tick context stops dispatch. Pipelines already running
// finish on a detached context.
package scheduler

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/filecrawler/internal/metrics"
	"github.com/roach88/filecrawler/internal/pipeline"
)

// DefaultPeriod is used when Options.Period is zero.
const DefaultPeriod = time.Minute

// Source yields candidate file paths for the scan phase.
type Source interface {
	Files(ctx context.Context) iter.Seq[string]
}

// Options configure a Scheduler.
type Options struct {
	// Workers bounds concurrent pipelines in the scan phase. Values below
	// one are treated as one.
	Workers int
	// Period between tick starts in Run.
	Period time.Duration
	// Commands defaults to pipeline.DefaultCommands.
	Commands []pipeline.Command
	// Tokens defaults to UUIDv7Generator.
	Tokens TokenGenerator
}

// TickResult summarises one tick.
type TickResult struct {
	Token      string
	Resumed    int
	Abandoned  int
	Deferred   int
	Locked     int
	Dispatched int
	Duration   time.Duration
}

// Scheduler owns the restore and scan phases.
type Scheduler struct {
	deps     pipeline.Deps
	source   Source
	workers  int
	period   time.Duration
	commands []pipeline.Command
	tokens   TokenGenerator
	logger   *slog.Logger

	// mu keeps Tick calls from overlapping.
	mu sync.Mutex
}

// New returns a Scheduler that feeds files from source through pipelines
// built on deps.
func New(deps pipeline.Deps, source Source, opts Options) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	period := opts.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	commands := opts.Commands
	if len(commands) == 0 {
		commands = pipeline.DefaultCommands
	}
	var tokens TokenGenerator = UUIDv7Generator{}
	if opts.Tokens != nil {
		tokens = opts.Tokens
	}

	return &Scheduler{
		deps:     deps,
		source:   source,
		workers:  workers,
		period:   period,
		commands: commands,
		tokens:   tokens,
		logger:   logger.With(slog.String("component", "scheduler")),
	}
}

// Run ticks immediately and then once per period until ctx is done.
// A tick that outlasts the period delays the next one instead of
// overlapping it.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		slog.String("period", s.period.String()),
		slog.Int("workers", s.workers),
	)

	s.Tick(ctx)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one restore phase followed by one scan phase and returns when
// every dispatched pipeline has finished.
func (s *Scheduler) Tick(ctx context.Context) TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	res := TickResult{Token: s.tokens.Generate()}
	logger := s.logger.With(slog.String("tick", res.Token))

	s.restorePhase(ctx, logger, &res)
	if ctx.Err() == nil {
		s.scanPhase(ctx, logger, &res)
	}

	res.Duration = time.Since(start)
	s.deps.Metrics.ObserveTick(res.Duration)
	logger.Info("tick complete",
		slog.Int("resumed", res.Resumed),
		slog.Int("abandoned", res.Abandoned),
		slog.Int("deferred", res.Deferred),
		slog.Int("locked", res.Locked),
		slog.Int("dispatched", res.Dispatched),
		slog.Duration("duration", res.Duration),
	)
	return res
}

func (s *Scheduler) restorePhase(ctx context.Context, logger *slog.Logger, res *TickResult) {
	pending, err := s.deps.WAL.ListPending()
	if err != nil {
		logger.Error("cannot list pending wal files", slog.String("error", err.Error()))
		return
	}

	for _, walFile := range pending {
		if ctx.Err() != nil {
			return
		}

		deps := s.deps
		deps.Logger = logger
		m, err := pipeline.NewMachine(deps).Restore(ctx, walFile, s.commands)
		switch {
		case err != nil:
			res.Deferred++
			s.deps.Metrics.Recovery(metrics.RecoveryDeferred)
			logger.Warn("restore deferred", slog.String("wal", walFile), slog.String("error", err.Error()))
		case m == nil:
			res.Abandoned++
			s.deps.Metrics.Recovery(metrics.RecoveryAbandoned)
			s.deps.WAL.Remove(walFile)
		default:
			res.Resumed++
			s.deps.Metrics.Recovery(metrics.RecoveryResumed)
			m.Execute(context.WithoutCancel(ctx))
		}
	}
}

func (s *Scheduler) scanPhase(ctx context.Context, logger *slog.Logger, res *TickResult) {
	var g errgroup.Group
	g.SetLimit(s.workers)

	deps := s.deps
	deps.Logger = logger

	// Cancellation stops dispatch only. A pipeline already running finishes,
	// so a shutdown never routes a valid file to the fail directory.
	work := context.WithoutCancel(ctx)

	for path := range s.source.Files(ctx) {
		if ctx.Err() != nil {
			break
		}
		// Still owned by a deferred or locked recovery.
		if s.deps.WAL.HasLog(path) {
			logger.Debug("skipping file with pending wal", slog.String("path", path))
			continue
		}
		if s.deps.Files.IsLocked(path) {
			logger.Debug("skipping locked file", slog.String("path", path))
			s.deps.Metrics.Skipped(metrics.ReasonLocked)
			res.Locked++
			continue
		}

		res.Dispatched++
		g.Go(func() error {
			s.deps.Metrics.WorkerStarted()
			defer s.deps.Metrics.WorkerFinished()

			defer func() {
				if r := recover(); r != nil {
					logger.Error("pipeline panicked",
						slog.String("path", path),
						slog.String("panic", fmt.Sprint(r)),
					)
				}
			}()

			pipeline.NewMachine(deps).
				Init(pipeline.Task{Path: path}, s.commands).
				Execute(work)
			return nil
		})
	}

	_ = g.Wait()
}
