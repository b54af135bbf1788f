// Package keylock provides named mutual exclusion with reference-counted
// garbage collection of idle locks. Commerce operations use it to make their
// precondition check and mutation a single critical section per entity.
package keylock

import (
	"sort"
	"sync"
)

// entry holds the mutex and the reference count for one key.
type entry struct {
	mu   sync.Mutex
	refs int
}

// Guard is a set of keyed mutexes. The zero value is not usable; call New.
type Guard struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New creates an empty Guard.
func New() *Guard {
	return &Guard{locks: make(map[string]*entry)}
}

// acquire gets or creates the entry for a key and increments its refcount.
func (g *Guard) acquire(key string) *entry {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.locks[key]
	if !ok {
		e = &entry{}
		g.locks[key] = e
	}
	e.refs++
	return e
}

// release decrements the refcount and drops the entry at zero.
func (g *Guard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.locks[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(g.locks, key)
	}
}

// Lock acquires exclusive access to every key and returns the release
// function. Keys are deduplicated and acquired in sorted order, so two
// operations touching overlapping entity sets cannot deadlock.
func (g *Guard) Lock(keys ...string) (unlock func()) {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	entries := make([]*entry, len(sorted))
	for i, k := range sorted {
		entries[i] = g.acquire(k)
		entries[i].mu.Lock()
	}

	return func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
			g.release(sorted[i])
		}
	}
}

// With runs fn while holding the locks for keys.
func (g *Guard) With(fn func(), keys ...string) {
	unlock := g.Lock(keys...)
	defer unlock()
	fn()
}
