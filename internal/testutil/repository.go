package testutil

import (
	"context"
	"sync"

	"github.com/roach88/filecrawler/internal/entry"
)

// FakeRepository is an in-memory entry repository.
//
// InsertErr, ExistsErr and NextIDErr, when set, are returned by the
// matching method instead of touching state. Safe for concurrent use.
type FakeRepository struct {
	mu      sync.Mutex
	entries map[int64]entry.Entry
	ids     *DeterministicIDs
	inserts int

	InsertErr error
	ExistsErr error
	NextIDErr error
}

// NewFakeRepository returns an empty repository whose first id is 1.
func NewFakeRepository() *FakeRepository {
	return &FakeRepository{
		entries: make(map[int64]entry.Entry),
		ids:     NewDeterministicIDs(0),
	}
}

// Insert stores a copy of e, replacing any entry with the same id.
func (r *FakeRepository) Insert(_ context.Context, e *entry.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.InsertErr != nil {
		return r.InsertErr
	}
	r.entries[e.ID] = *e
	r.inserts++
	return nil
}

// Exists reports whether id has been inserted or seeded.
func (r *FakeRepository) Exists(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ExistsErr != nil {
		return false, r.ExistsErr
	}
	_, ok := r.entries[id]
	return ok, nil
}

// NextID returns the next id from the deterministic sequence.
func (r *FakeRepository) NextID(context.Context) (int64, error) {
	r.mu.Lock()
	err := r.NextIDErr
	r.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return r.ids.Next(), nil
}

// Seed records id as present without counting an insert.
func (r *FakeRepository) Seed(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = entry.Entry{ID: id}
}

// Get returns the stored entry for id.
func (r *FakeRepository) Get(id int64) (entry.Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

// Inserts returns how many successful Insert calls were made.
func (r *FakeRepository) Inserts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inserts
}
