package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/roach88/filecrawler/internal/entry"
	"github.com/roach88/filecrawler/internal/metrics"
	"github.com/roach88/filecrawler/internal/wal"
)

// Task is the state one Machine carries for its source file.
type Task struct {
	// Path is the absolute source path.
	Path string
	// ID is 0 until the repository assigns one.
	ID int64
	// Entry is set by a successful ANALYZE. Never recovered.
	Entry *entry.Entry
	// Destination is the success or fail directory, empty until decided.
	Destination string
}

// Machine runs the command sequence for one file.
type Machine struct {
	deps     Deps
	logger   *slog.Logger
	task     *Task
	commands []Command
	current  int

	// walFile is the log a restored machine resumed from.
	walFile string
}

// NewMachine returns an unbound machine. Bind it with Init or Restore.
func NewMachine(deps Deps) *Machine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		deps:   deps,
		logger: logger.With(slog.String("component", "pipeline")),
	}
}

// Init binds a fresh task and starts at the first command.
func (m *Machine) Init(task Task, commands []Command) *Machine {
	m.task = &task
	m.commands = commands
	m.current = 0
	m.walFile = ""
	return m
}

// Task returns a copy of the bound task state.
func (m *Machine) Task() Task {
	if m.task == nil {
		return Task{}
	}
	return *m.task
}

// Current returns the index of the next command to run.
func (m *Machine) Current() int {
	return m.current
}

// Restore binds the machine to the run recorded in walFile.
//
// It returns (nil, nil) when the WAL cannot be resumed; the caller should
// delete it. An error means the repository could not be asked, and the
// WAL should be kept for a later attempt.
func (m *Machine) Restore(ctx context.Context, walFile string, commands []Command) (*Machine, error) {
	logger := m.logger.With(slog.String("wal", walFile))

	rec, err := wal.ReadLastRecord(walFile)
	if err != nil {
		logger.Warn("unusable wal, abandoning", slog.String("error", err.Error()))
		return nil, nil
	}

	idx, ok := indexOf(commands, rec.Command)
	if !ok {
		logger.Warn("unknown command in wal, abandoning", slog.String("command", rec.Command))
		return nil, nil
	}
	if rec.Path == "" {
		logger.Warn("wal record has no path, abandoning")
		return nil, nil
	}
	// A torn append can leave a path that no longer maps to this log.
	if wal.FileName(rec.Path) != filepath.Base(walFile) {
		logger.Warn("wal record names another source, abandoning", slog.String("path", rec.Path))
		return nil, nil
	}

	exists, err := m.deps.Repo.Exists(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", walFile, err)
	}
	if !exists {
		logger.Warn("entry not found for interrupted step, abandoning",
			slog.Int64("id", rec.ID),
			slog.String("command", rec.Command),
			slog.String("path", rec.Path),
		)
		return nil, nil
	}

	dest := m.deps.FailDir
	if commands[idx] == Insert {
		// The insert landed before the crash.
		idx++
		dest = m.deps.SuccessDir
		if idx >= len(commands) {
			logger.Warn("no command after INSERT, abandoning")
			return nil, nil
		}
	}

	m.task = &Task{Path: rec.Path, ID: rec.ID, Destination: dest}
	m.commands = commands
	m.current = idx
	m.walFile = walFile

	logger.Info("restored pipeline",
		slog.String("path", rec.Path),
		slog.Int64("id", rec.ID),
		slog.String("resume_at", string(commands[idx])),
	)
	return m, nil
}

// Execute runs the remaining commands. Per-file failures are logged and
// routed to the fail directory; nothing is returned.
func (m *Machine) Execute(ctx context.Context) {
	if m.task == nil || len(m.commands) == 0 {
		return
	}
	t := m.task
	logger := m.logger.With(slog.String("path", t.Path))

	if !m.deps.Files.Exists(t.Path) {
		logger.Debug("source file gone, dropping wal")
		m.deleteLog()
		m.deps.Metrics.Skipped(metrics.ReasonMissing)
		return
	}

	if m.deps.Files.IsLocked(t.Path) {
		logger.Debug("source file still open, retrying on a later scan")
		m.deps.Metrics.Skipped(metrics.ReasonLocked)
		return
	}

	if t.ID == 0 {
		id, err := m.deps.Repo.NextID(ctx)
		if err != nil {
			logger.Error("failed to assign id", slog.String("error", err.Error()))
			m.deps.Metrics.Skipped(metrics.ReasonNoID)
			return
		}
		t.ID = id
	}
	logger = logger.With(slog.Int64("id", t.ID))

	for ; m.current < len(m.commands); m.current++ {
		interrupted := false
		switch m.commands[m.current] {
		case Analyze:
			interrupted = m.analyze(ctx, logger)
		case Insert:
			interrupted = m.insert(ctx, logger)
		case Move:
			m.move(logger)
		}
		if interrupted {
			// The file and any WAL stay put; the next tick picks them up.
			logger.Info("pipeline interrupted, leaving file for a later tick",
				slog.String("command", string(m.commands[m.current])),
			)
			return
		}
	}
}

// analyze reports whether the step was cut short by ctx rather than
// rejected by the parser.
func (m *Machine) analyze(ctx context.Context, logger *slog.Logger) bool {
	t := m.task
	e, err := m.deps.Parser.Analyze(ctx, t.Path, t.ID)
	if err == nil && e == nil {
		err = errors.New("parser returned no entry")
	}
	if err != nil && ctx.Err() != nil {
		return true
	}
	if err != nil {
		t.Entry = nil
		t.Destination = m.deps.FailDir
		logger.Error("analysis failed", slog.String("error", err.Error()))
		return false
	}
	t.Entry = e
	logger.Debug("analysis complete")
	return false
}

// insert reports whether the step was cut short by ctx. The OPEN record is
// then left behind, so recovery decides by asking the repository.
func (m *Machine) insert(ctx context.Context, logger *slog.Logger) bool {
	t := m.task
	if t.Entry == nil {
		return false
	}

	_, ok := wal.InTransaction(ctx, m.deps.WAL, t.Path, string(Insert), t.ID,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, m.deps.Repo.Insert(ctx, t.Entry)
		})
	if !ok && ctx.Err() != nil {
		return true
	}
	if !ok {
		t.Destination = m.deps.FailDir
		logger.Error("insert failed")
		return false
	}
	t.Destination = m.deps.SuccessDir
	logger.Debug("entry inserted")
	return false
}

func (m *Machine) move(logger *slog.Logger) {
	t := m.task
	if t.Destination != "" {
		if err := m.deps.Files.MoveTo(t.Path, t.Destination); err != nil {
			logger.Error("move failed",
				slog.String("dest", t.Destination),
				slog.String("error", err.Error()),
			)
		} else {
			outcome := metrics.OutcomeFail
			if t.Destination == m.deps.SuccessDir {
				outcome = metrics.OutcomeSuccess
			}
			m.deps.Metrics.FileDone(outcome)
			logger.Info("file processed", slog.String("dest", t.Destination))
		}
	}
	m.deleteLog()
}

func (m *Machine) deleteLog() {
	if m.walFile != "" {
		m.deps.WAL.Remove(m.walFile)
		return
	}
	m.deps.WAL.DeleteLog(m.task.Path)
}
