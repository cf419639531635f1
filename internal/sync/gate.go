package sync

import "sync"

// Gate serializes operations that own the project tables: reconciliation runs
// and admin maintenance must never overlap.
type Gate struct {
	mu sync.Mutex
}

func (g *Gate) TryLock() bool { return g.mu.TryLock() }
func (g *Gate) Unlock()       { g.mu.Unlock() }
