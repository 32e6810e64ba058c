package harness

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/filecrawler/internal/analyzer"
	"github.com/roach88/filecrawler/internal/entry"
	"github.com/roach88/filecrawler/internal/fileops"
	"github.com/roach88/filecrawler/internal/metrics"
	"github.com/roach88/filecrawler/internal/pipeline"
	"github.com/roach88/filecrawler/internal/scan"
	"github.com/roach88/filecrawler/internal/scheduler"
	"github.com/roach88/filecrawler/internal/store"
	"github.com/roach88/filecrawler/internal/testutil"
	"github.com/roach88/filecrawler/internal/wal"
)

// DefaultToken is the tick token used when a scenario sets none.
const DefaultToken = "scenario-tick"

// Harness wires one scenario's directories, database and scheduler.
type Harness struct {
	watch   string
	success string
	fail    string

	db        *store.SQLite
	wal       *wal.Store
	files     *testutil.FakeFiles
	scheduler *scheduler.Scheduler
	logger    *slog.Logger

	// walNames maps WAL file names back to scenario file names, so logs
	// that cannot be decoded are still reported by source.
	walNames map[string]string
}

// Run executes a scenario in a fresh temporary workspace and returns the
// result. The workspace is removed afterwards.
//
// Execution flow:
//  1. Create watch, success, fail and WAL directories plus a SQLite database
//  2. Seed files, committed rows and leftover WAL files
//  3. Run the configured number of scheduler ticks, applying lock state
//     before each one
//  4. Capture the final state and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	root, err := os.MkdirTemp("", "filecrawler-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	defer os.RemoveAll(root)

	return RunIn(root, scenario)
}

// RunIn is Run with a caller-owned workspace directory.
func RunIn(root string, scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	h, err := newHarness(root, scenario)
	if err != nil {
		return nil, err
	}
	defer h.db.Close()

	if err := h.seed(ctx, scenario); err != nil {
		return nil, err
	}

	result := NewResult()
	for i := 0; i < scenario.ticks(); i++ {
		h.applyLocks(scenario, i)
		res := h.scheduler.Tick(ctx)
		result.Ticks = append(result.Ticks, TickCounts{
			Resumed:    res.Resumed,
			Abandoned:  res.Abandoned,
			Deferred:   res.Deferred,
			Locked:     res.Locked,
			Dispatched: res.Dispatched,
		})
	}

	state, err := h.capture(ctx)
	if err != nil {
		return nil, err
	}
	result.State = state

	for _, a := range scenario.Assertions {
		if err := evaluate(result, a); err != nil {
			result.AddError(err.Error())
		}
	}
	return result, nil
}

func newHarness(root string, scenario *Scenario) (*Harness, error) {
	h := &Harness{
		watch:    filepath.Join(root, "watch"),
		success:  filepath.Join(root, "success"),
		fail:     filepath.Join(root, "fail"),
		files:    testutil.NewFakeFiles(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		walNames: make(map[string]string),
	}
	for _, dir := range []string{h.watch, h.success, h.fail} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	w, err := wal.New(filepath.Join(root, "wal"), h.logger)
	if err != nil {
		return nil, err
	}
	h.wal = w

	db, err := store.OpenSQLite(filepath.Join(root, "entries.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	h.db = db

	parser, err := analyzer.New(nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	deps := pipeline.Deps{
		WAL:        w,
		Parser:     parser,
		Repo:       db,
		Files:      h.files,
		SuccessDir: h.success,
		FailDir:    h.fail,
		Logger:     h.logger,
		Metrics:    metrics.New(prometheus.NewRegistry()),
	}
	source := scan.New(h.watch, scan.Options{Ignore: []string{"*" + fileops.LockSuffix}}, h.logger)
	h.scheduler = scheduler.New(deps, source, scheduler.Options{
		Workers: scenario.Workers,
		Tokens:  testutil.NewFixedTokenGenerator(tokenFor(scenario)),
	})
	return h, nil
}

func tokenFor(s *Scenario) string {
	if s.Token != "" {
		return s.Token
	}
	return DefaultToken
}

func (h *Harness) seed(ctx context.Context, scenario *Scenario) error {
	for _, f := range scenario.Files {
		path := h.source(f.Name)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("files: %w", err)
		}
		if err := os.WriteFile(path, []byte(f.Body), 0o640); err != nil {
			return fmt.Errorf("files: %w", err)
		}
	}

	for _, r := range scenario.Database {
		created, err := time.Parse(entry.DateLayout, r.CreationDate)
		if err != nil {
			return fmt.Errorf("database: entry %d: %w", r.ID, err)
		}
		e := &entry.Entry{
			ID:           r.ID,
			Content:      r.Content,
			CreationDate: created,
			Source:       h.source(r.File),
		}
		if err := h.db.Insert(ctx, e); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	for _, w := range scenario.WAL {
		path := h.source(w.File)
		h.walNames[wal.FileName(path)] = w.File

		var err error
		switch {
		case w.Raw != "":
			err = os.WriteFile(h.wal.Path(path), []byte(w.Raw+"\n"), 0o640)
		case wal.Phase(w.Phase) == wal.PhaseOpen:
			err = h.wal.WriteOpen(path, w.Command, w.ID)
		default:
			err = h.wal.WriteClose(path, w.Command, w.ID)
		}
		if err != nil {
			return fmt.Errorf("wal: %w", err)
		}
	}
	return nil
}

// applyLocks sets lock state for tick (0-based).
func (h *Harness) applyLocks(scenario *Scenario, tick int) {
	for _, f := range scenario.Files {
		if tick < f.LockedTicks {
			h.files.Lock(h.source(f.Name))
		} else {
			h.files.Unlock(h.source(f.Name))
		}
	}
}

func (h *Harness) source(name string) string {
	return filepath.Join(h.watch, filepath.FromSlash(name))
}

// relative maps an absolute source path back to its scenario name.
func (h *Harness) relative(path string) string {
	rel, err := filepath.Rel(h.watch, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (h *Harness) capture(ctx context.Context) (State, error) {
	var (
		state State
		err   error
	)
	if state.Watch, err = listFiles(h.watch); err != nil {
		return State{}, err
	}
	if state.Success, err = listFiles(h.success); err != nil {
		return State{}, err
	}
	if state.Fail, err = listFiles(h.fail); err != nil {
		return State{}, err
	}

	pending, err := h.wal.ListPending()
	if err != nil {
		return State{}, err
	}
	state.Pending = []string{}
	for _, walFile := range pending {
		state.Pending = append(state.Pending, h.describePending(walFile))
	}
	sort.Strings(state.Pending)

	entries, err := h.db.List(ctx)
	if err != nil {
		return State{}, err
	}
	state.Entries = []EntryState{}
	for _, e := range entries {
		state.Entries = append(state.Entries, EntryState{
			ID:           e.ID,
			Content:      e.Content,
			CreationDate: e.CreationDate.UTC().Format(entry.DateLayout),
			File:         h.relative(e.Source),
		})
	}
	return state, nil
}

// describePending renders a WAL as "<file>: <PHASE> <COMMAND> <ID>".
func (h *Harness) describePending(walFile string) string {
	rec, err := wal.ReadLastRecord(walFile)
	if err != nil {
		name, ok := h.walNames[filepath.Base(walFile)]
		if !ok {
			name = filepath.Base(walFile)
		}
		return name + ": unreadable"
	}
	return fmt.Sprintf("%s: %s %s %d", h.relative(rec.Path), rec.Phase, rec.Command, rec.ID)
}

// listFiles returns the regular files under dir as sorted slash paths.
func listFiles(dir string) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// pendingRecord splits a rendered pending line into file and record.
func pendingRecord(line string) (file, record string) {
	file, record, _ = strings.Cut(line, ": ")
	return file, record
}
