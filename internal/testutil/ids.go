package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs generates run IDs "<prefix>-0001", "<prefix>-0002", ...
//
// It satisfies store.IDGenerator so run history written in tests is
// byte-identical across runs. Reset rewinds the sequence for test reuse.
//
// Thread-safety: all methods are safe for concurrent use.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequenceIDs creates a generator. An empty prefix defaults to "run".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequenceIDs{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequenceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%04d", g.prefix, g.seq)
}

// Reset rewinds the sequence so the next ID is "<prefix>-0001" again.
func (g *SequenceIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
