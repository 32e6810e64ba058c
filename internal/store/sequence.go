package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Sequence hands out monotonically increasing entry ids.
//
// The counter is seeded exactly once from the repository's current maximum
// id, on the first call to Next. Concurrent first callers block on the seed
// instead of racing to initialise twice; a failed seed is retried by the
// next caller.
//
// Thread-safety: Sequence is safe for concurrent use.
type Sequence struct {
	load  func(context.Context) (int64, error)
	mu    sync.Mutex
	ready atomic.Bool
	seq   atomic.Int64
}

// NewSequence creates a sequence seeded lazily by load.
func NewSequence(load func(context.Context) (int64, error)) *Sequence {
	return &Sequence{load: load}
}

// NewSequenceAt creates an already seeded sequence. The first Next returns
// start+1.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	s.ready.Store(true)
	return s
}

// Next returns the next id.
func (s *Sequence) Next(ctx context.Context) (int64, error) {
	if !s.ready.Load() {
		if err := s.seed(ctx); err != nil {
			return 0, err
		}
	}
	return s.seq.Add(1), nil
}

// Current returns the last id handed out without incrementing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}

func (s *Sequence) seed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready.Load() {
		return nil
	}

	start, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("seed sequence: %w", err)
	}
	s.seq.Store(start)
	s.ready.Store(true)
	return nil
}
