// Package analyzer turns XML entry files into entries.
//
// A file must look like:
//
//	<Entry>
//	  <content>text</content>
//	  <creationDate>2024-03-01 12:30:00</creationDate>
//	</Entry>
//
// Decoded fields are checked against a CUE schema (#Entry) before the date
// is parsed, and content is NFC-normalised.
package analyzer

import (
	"context"
	_ "embed"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/filecrawler/internal/entry"
)

//go:embed entry.cue
var defaultSchema []byte

// MaxFileSize bounds how much of a file is read.
const MaxFileSize = 16 << 20

type xmlEntry struct {
	XMLName      xml.Name `xml:"Entry"`
	Content      *string  `xml:"content"`
	CreationDate *string  `xml:"creationDate"`
}

// XML parses entry files. Safe for concurrent use.
type XML struct {
	// cue values are not safe for concurrent evaluation.
	mu     sync.Mutex
	schema cue.Value
}

// New compiles schema, or the built-in schema when schema is empty.
func New(schema []byte) (*XML, error) {
	src := schema
	if len(src) == 0 {
		src = defaultSchema
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename("entry.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	def := v.LookupPath(cue.ParsePath("#Entry"))
	if !def.Exists() {
		return nil, fmt.Errorf("compile schema: #Entry is not defined")
	}
	return &XML{schema: def}, nil
}

// NewFromFile is New with the schema read from path. An empty path selects
// the built-in schema.
func NewFromFile(path string) (*XML, error) {
	if path == "" {
		return New(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return New(data)
}

// Analyze reads path and returns its entry stamped with id.
// Failures are *AnalysisError.
func (a *XML) Analyze(ctx context.Context, path string, id int64) (*entry.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := readLimited(path)
	if err != nil {
		return nil, &AnalysisError{Path: path, Message: err.Error(), Code: ErrCodeRead}
	}

	var doc xmlEntry
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &AnalysisError{Path: path, Message: err.Error(), Code: ErrCodeMalformed}
	}

	if err := a.validate(doc); err != nil {
		return nil, &AnalysisError{Path: path, Message: err.Error(), Code: ErrCodeSchema}
	}

	if doc.Content == nil || doc.CreationDate == nil {
		return nil, &AnalysisError{Path: path, Message: "content and creationDate are required", Code: ErrCodeSchema}
	}

	created, err := time.Parse(entry.DateLayout, *doc.CreationDate)
	if err != nil {
		return nil, &AnalysisError{Path: path, Field: "creationDate", Message: err.Error(), Code: ErrCodeDate}
	}

	return &entry.Entry{
		ID:           id,
		Content:      norm.NFC.String(*doc.Content),
		CreationDate: created,
		Source:       path,
	}, nil
}

func (a *XML) validate(doc xmlEntry) error {
	fields := make(map[string]string, 2)
	if doc.Content != nil {
		fields["content"] = *doc.Content
	}
	if doc.CreationDate != nil {
		fields["creationDate"] = *doc.CreationDate
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	v := a.schema.Context().Encode(fields)
	return a.schema.Unify(v).Validate(cue.Concrete(true))
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("file is %d bytes, limit is %d", info.Size(), MaxFileSize)
	}
	return io.ReadAll(f)
}
