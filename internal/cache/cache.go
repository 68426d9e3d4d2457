// Package cache holds query results for the dashboard and decides when they
// must be recomputed after a change notification. Each cached query key runs
// a small freshness state machine: Fresh until a notification for one of its
// bound tables arrives, then Stale until the next read refreshes it.
// Notifications carry no row payload worth trusting, so a refresh always
// re-runs the full query.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Freshness is the state of one cached query key.
type Freshness int

const (
	Fresh Freshness = iota
	Stale
	Refreshing
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Refreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// Notification signals that a row changed in a table. Timestamp is
// informational only.
type Notification struct {
	Table     string    `json:"table"`
	Operation string    `json:"operation"` // insert, update
	Timestamp time.Time `json:"timestamp"`
}

// QueryFunc recomputes the value for a key. It is invoked outside any cache
// lock and may block on I/O.
type QueryFunc func(ctx context.Context) (interface{}, error)

type entry struct {
	mu      sync.Mutex
	cond    *sync.Cond
	state   Freshness
	value   interface{}
	loaded  bool
	pending bool // another invalidation arrived while refreshing
	query   QueryFunc
	tables  map[string]bool
}

// Store is a cache of query results keyed by query identity. The only shared
// mutable state is the per-key value, replaced whole on refresh so readers
// always see a complete snapshot.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Register binds a query key to the tables that invalidate it. The key
// starts Stale so the first read populates it.
func (s *Store) Register(key string, tables []string, query QueryFunc) {
	e := &entry{
		state:  Stale,
		query:  query,
		tables: make(map[string]bool, len(tables)),
	}
	e.cond = sync.NewCond(&e.mu)
	for _, t := range tables {
		e.tables[t] = true
	}

	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
}

func (s *Store) lookup(key string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown cache key: %s", key)
	}
	return e, nil
}

// Get returns the cached value for key, refreshing it first when stale.
// At most one refresh per key is ever in flight: a reader that finds a
// refresh already running returns the previous snapshot, or waits when no
// snapshot exists yet. A failed refresh leaves the key Stale so the next
// read retries.
func (s *Store) Get(ctx context.Context, key string) (interface{}, error) {
	e, err := s.lookup(key)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	for {
		switch e.state {
		case Fresh:
			value := e.value
			e.mu.Unlock()
			return value, nil

		case Stale:
			e.state = Refreshing
			e.mu.Unlock()

			value, qerr := e.query(ctx)

			e.mu.Lock()
			if qerr != nil {
				e.state = Stale
				e.cond.Broadcast()
				e.mu.Unlock()
				return nil, qerr
			}
			e.value = value
			e.loaded = true
			if e.pending {
				// Invalidations that arrived mid-refresh collapse into one
				// re-check on the next read.
				e.pending = false
				e.state = Stale
			} else {
				e.state = Fresh
			}
			e.cond.Broadcast()
			e.mu.Unlock()
			return value, nil

		case Refreshing:
			if e.loaded {
				value := e.value
				e.mu.Unlock()
				return value, nil
			}
			e.cond.Wait()
		}
	}
}

// Invalidate marks every key bound to the notification's table as needing a
// refresh. Keys already refreshing record at most one pending re-check.
func (s *Store) Invalidate(n Notification) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if !e.tables[n.Table] {
			continue
		}
		e.mu.Lock()
		switch e.state {
		case Fresh:
			e.state = Stale
		case Refreshing:
			e.pending = true
		}
		// Stale stays stale; the next read already re-queries.
		e.mu.Unlock()
	}
}

// State reports the freshness of a key, for inspection and tests.
func (s *Store) State(key string) (Freshness, error) {
	e, err := s.lookup(key)
	if err != nil {
		return Fresh, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, nil
}
