package catalog

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orbitwatch/orbitwatch/internal/elements"
)

// Snapshot is one immutable, fully parsed catalog state. Readers hold a
// snapshot pointer for as long as they need a consistent view; a refresh
// never mutates a published snapshot.
type Snapshot struct {
	// Sets maps catalog number to its element set.
	Sets map[int]elements.ElementSet
	// Groups lists the source groups that contributed records.
	Groups []string
	// FetchedAt is when the underlying text was obtained.
	FetchedAt time.Time
	// Stale marks a snapshot rebuilt from cache files older than the TTL.
	Stale bool
}

// Get looks up one element set by catalog number.
func (s *Snapshot) Get(catalogNumber int) (elements.ElementSet, bool) {
	set, ok := s.Sets[catalogNumber]
	return set, ok
}

// All returns every element set ordered by catalog number.
func (s *Snapshot) All() []elements.ElementSet {
	out := make([]elements.ElementSet, 0, len(s.Sets))
	for _, set := range s.Sets {
		out = append(out, set)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CatalogNumber < out[j].CatalogNumber
	})
	return out
}

// Len returns the number of tracked objects.
func (s *Snapshot) Len() int { return len(s.Sets) }

// Store publishes the current Snapshot to concurrent readers. Reads are
// a single atomic load; refreshes are serialized by the fetch mutex.
type Store struct {
	snap atomic.Pointer[Snapshot]
	mu   sync.Mutex
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Snapshot returns the current catalog state, or nil before the first
// successful load.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Replace atomically publishes a new snapshot.
func (s *Store) Replace(snap *Snapshot) {
	s.snap.Store(snap)
}

// Ready reports whether a non-empty snapshot has been published.
func (s *Store) Ready() bool {
	snap := s.snap.Load()
	return snap != nil && snap.Len() > 0
}

// AgeSeconds returns the age of the current snapshot in seconds, or -1
// before the first load.
func (s *Store) AgeSeconds() float64 {
	snap := s.snap.Load()
	if snap == nil {
		return -1
	}
	return time.Since(snap.FetchedAt).Seconds()
}

// Lock acquires the refresh mutex so overlapping refresh triggers run
// one at a time.
func (s *Store) Lock() { s.mu.Lock() }

// Unlock releases the refresh mutex.
func (s *Store) Unlock() { s.mu.Unlock() }
