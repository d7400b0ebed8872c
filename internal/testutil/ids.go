// Package testutil holds deterministic helpers shared by tests: run id
// generators and a builder for small programs.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates run ids "run-0001", "run-0002", ...
//
// It can be reset so the same scenario yields the same ids when run twice.
// SequentialIDs is safe for concurrent use.
type SequentialIDs struct {
	mu  sync.Mutex
	seq int64
}

// NewSequentialIDs creates a generator whose first id is run-0001.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("run-%04d", g.seq)
}

// Current returns the number of ids handed out.
func (g *SequentialIDs) Current() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset starts the sequence over.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// FixedID returns the same id every time. An empty id becomes
// "run-default".
type FixedID string

// Generate returns the fixed id.
func (f FixedID) Generate() string {
	if f == "" {
		return "run-default"
	}
	return string(f)
}
