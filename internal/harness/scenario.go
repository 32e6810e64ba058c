package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/filecrawler/internal/entry"
	"github.com/roach88/filecrawler/internal/wal"
)

// Scenario is a crash-recovery test case.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Workers bounds the scan phase. Defaults to 1.
	Workers int `yaml:"workers,omitempty"`

	// Ticks is how many scheduler ticks to run. Defaults to 1.
	Ticks int `yaml:"ticks,omitempty"`

	// Token is the tick token reported by every tick.
	Token string `yaml:"token,omitempty"`

	Files      []File      `yaml:"files,omitempty"`
	Database   []Row       `yaml:"database,omitempty"`
	WAL        []WALEntry  `yaml:"wal,omitempty"`
	Assertions []Assertion `yaml:"assertions"`
}

// File is a source file placed in the watch directory before the first
// tick.
type File struct {
	Name string `yaml:"name"`
	Body string `yaml:"body"`

	// LockedTicks keeps the file locked for the first N ticks.
	LockedTicks int `yaml:"locked_ticks,omitempty"`
}

// Row is an entry committed before the crash.
type Row struct {
	ID           int64  `yaml:"id"`
	Content      string `yaml:"content"`
	CreationDate string `yaml:"creation_date"`
	File         string `yaml:"file"`
}

// WALEntry is a log left behind by an interrupted run. Raw, when set, is
// written verbatim instead of a record.
type WALEntry struct {
	File    string `yaml:"file"`
	Phase   string `yaml:"phase,omitempty"`
	Command string `yaml:"command,omitempty"`
	ID      int64  `yaml:"id,omitempty"`
	Raw     string `yaml:"raw,omitempty"`
}

// Assertion is a check against the state after the last tick.
type Assertion struct {
	Type string `yaml:"type"`

	File    string `yaml:"file,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
	Record  string `yaml:"record,omitempty"`
	ID      int64  `yaml:"id,omitempty"`
	Content string `yaml:"content,omitempty"`
	Count   int    `yaml:"count,omitempty"`
	Tick    int    `yaml:"tick,omitempty"`

	Expect map[string]int `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertFileIn       = "file_in"
	AssertPending      = "pending"
	AssertPendingCount = "pending_count"
	AssertEntry        = "entry"
	AssertEntryCount   = "entry_count"
	AssertTick         = "tick"
)

// Directory names accepted by file_in.
const (
	DirWatch   = "watch"
	DirSuccess = "success"
	DirFail    = "fail"
)

var tickCounters = map[string]bool{
	"resumed":    true,
	"abandoned":  true,
	"deferred":   true,
	"locked":     true,
	"dispatched": true,
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if scenario.Workers == 0 {
		scenario.Workers = 1
	}
	if scenario.Ticks == 0 {
		scenario.Ticks = 1
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}
	if s.Ticks < 0 {
		return fmt.Errorf("ticks must be non-negative")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	seen := make(map[string]bool)
	for i, f := range s.Files {
		if err := validateName(f.Name); err != nil {
			return fmt.Errorf("files[%d]: %w", i, err)
		}
		if seen[f.Name] {
			return fmt.Errorf("files[%d]: duplicate file %q", i, f.Name)
		}
		seen[f.Name] = true
		if f.LockedTicks < 0 {
			return fmt.Errorf("files[%d]: locked_ticks must be non-negative", i)
		}
	}

	for i, r := range s.Database {
		if r.ID <= 0 {
			return fmt.Errorf("database[%d]: id must be positive", i)
		}
		if err := validateName(r.File); err != nil {
			return fmt.Errorf("database[%d]: %w", i, err)
		}
		if _, err := time.Parse(entry.DateLayout, r.CreationDate); err != nil {
			return fmt.Errorf("database[%d]: creation_date: %w", i, err)
		}
	}

	for i, w := range s.WAL {
		if err := validateName(w.File); err != nil {
			return fmt.Errorf("wal[%d]: %w", i, err)
		}
		if w.Raw != "" {
			continue
		}
		switch wal.Phase(w.Phase) {
		case wal.PhaseOpen, wal.PhaseClose:
		default:
			return fmt.Errorf("wal[%d]: phase must be OPEN or CLOSE, got %q", i, w.Phase)
		}
		if w.Command == "" {
			return fmt.Errorf("wal[%d]: command is required", i)
		}
		if w.ID <= 0 {
			return fmt.Errorf("wal[%d]: id must be positive", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], s.ticks()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scenario) ticks() int {
	if s.Ticks == 0 {
		return 1
	}
	return s.Ticks
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("file is required")
	}
	if filepath.IsAbs(name) || strings.HasPrefix(filepath.Clean(name), "..") {
		return fmt.Errorf("file %q must be relative to the watch directory", name)
	}
	return nil
}

func validateAssertion(index int, a *Assertion, ticks int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFileIn:
		if a.File == "" {
			return fmt.Errorf("assertions[%d]: file is required for file_in", index)
		}
		switch a.Dir {
		case DirWatch, DirSuccess, DirFail:
		default:
			return fmt.Errorf("assertions[%d]: dir must be watch, success or fail, got %q", index, a.Dir)
		}
	case AssertPending:
		if a.File == "" {
			return fmt.Errorf("assertions[%d]: file is required for pending", index)
		}
	case AssertPendingCount, AssertEntryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertEntry:
		if a.ID <= 0 {
			return fmt.Errorf("assertions[%d]: id is required for entry", index)
		}
	case AssertTick:
		if a.Tick < 1 || a.Tick > ticks {
			return fmt.Errorf("assertions[%d]: tick must be between 1 and %d", index, ticks)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for tick", index)
		}
		for k := range a.Expect {
			if !tickCounters[k] {
				return fmt.Errorf("assertions[%d]: unknown tick counter %q", index, k)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
