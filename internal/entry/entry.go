// Package entry defines the record produced by the analyzer and persisted by
// the store.
package entry

import "time"

// DateLayout is the layout of the creationDate element in ingested files.
const DateLayout = "2006-01-02 15:04:05"

// Entry is one ingested document.
type Entry struct {
	// ID is assigned by the store's sequence before parsing.
	ID int64

	// Content is the NFC-normalised document body.
	Content string

	// CreationDate is the document's own timestamp (no zone, stored as UTC).
	CreationDate time.Time

	// Source is the absolute path the entry was ingested from.
	Source string
}
