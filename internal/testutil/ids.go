package testutil

import "sync"

// DeterministicIDs hands out monotonic ids for tests.
//
// The first call to Next returns 1. Reset makes a scenario repeatable.
// Safe for concurrent use.
type DeterministicIDs struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicIDs returns a generator whose next id is start+1.
func NewDeterministicIDs(start int64) *DeterministicIDs {
	return &DeterministicIDs{seq: start}
}

// Next increments and returns the next id.
func (c *DeterministicIDs) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last id handed out without advancing.
func (c *DeterministicIDs) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds to zero.
func (c *DeterministicIDs) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
