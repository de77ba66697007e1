// Package session keeps uploaded datasets in memory, keyed by a random id carried in a
// browser cookie or returned by the dataset API.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/ecomdash/internal/analysis"
	"github.com/KaramelBytes/ecomdash/internal/charts"
	"github.com/KaramelBytes/ecomdash/internal/logging"
	"github.com/KaramelBytes/ecomdash/internal/metrics"
)

// Dataset is an uploaded table together with its rendered charts.
type Dataset struct {
	ID       string
	Name     string
	Table    *analysis.Table
	Charts   *charts.Output
	Uploaded time.Time
}

type entry struct {
	data    *Dataset
	touched time.Time
}

// Store is a size- and age-bounded map of datasets. Safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	ttl   time.Duration
	max   int // 0 = unbounded
	items map[string]*entry

	now func() time.Time
}

// NewStore returns a store evicting entries idle for longer than ttl and keeping at
// most max entries (least recently used go first). Zero disables either bound.
func NewStore(ttl time.Duration, maxEntries int) *Store {
	return &Store{ttl: ttl, max: maxEntries, items: map[string]*entry{}, now: time.Now}
}

// NewID returns a fresh random id.
func NewID() string { return uuid.NewString() }

// Valid reports whether id has the shape of an id issued by NewID.
func Valid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Put stores d under d.ID, replacing any previous dataset for that id.
func (s *Store) Put(d *Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if d.Uploaded.IsZero() {
		d.Uploaded = now
	}
	s.items[d.ID] = &entry{data: d, touched: now}
	s.sweepLocked(now)
	if s.max > 0 && len(s.items) > s.max {
		s.evictOldestLocked(len(s.items) - s.max)
	}
	metrics.SessionsActive.Set(float64(len(s.items)))
}

// Get returns the dataset for id and marks it as recently used.
func (s *Store) Get(id string) (*Dataset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(e, now) {
		delete(s.items, id)
		metrics.SessionsActive.Set(float64(len(s.items)))
		return nil, false
	}
	e.touched = now
	return e.data, true
}

// Delete drops id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	metrics.SessionsActive.Set(float64(len(s.items)))
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep removes expired entries and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.sweepLocked(s.now())
	metrics.SessionsActive.Set(float64(len(s.items)))
	return n
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if n := s.Sweep(); n > 0 {
				logging.Debug().Int("evicted", n).Msg("session sweep")
			}
		}
	}
}

func (s *Store) expired(e *entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.touched) > s.ttl
}

func (s *Store) sweepLocked(now time.Time) int {
	n := 0
	for id, e := range s.items {
		if s.expired(e, now) {
			delete(s.items, id)
			n++
		}
	}
	return n
}

func (s *Store) evictOldestLocked(n int) {
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s.items[ids[i]].touched.Before(s.items[ids[j]].touched) })
	for _, id := range ids[:n] {
		delete(s.items, id)
	}
}
