package session

import (
	"sync"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestStore(ttl time.Duration, maxEntries int) (*Store, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(ttl, maxEntries)
	s.now = c.now
	return s, c
}

func TestPutGetReplace(t *testing.T) {
	s, _ := newTestStore(time.Hour, 0)
	id := NewID()
	if !Valid(id) {
		t.Fatalf("NewID produced invalid id %q", id)
	}
	s.Put(&Dataset{ID: id, Name: "a.csv"})
	s.Put(&Dataset{ID: id, Name: "b.csv"})
	d, ok := s.Get(id)
	if !ok || d.Name != "b.csv" {
		t.Fatalf("a new upload should replace the old one: %+v %v", d, ok)
	}
	if s.Len() != 1 {
		t.Fatalf("len %d", s.Len())
	}
	if Valid("../etc/passwd") {
		t.Fatalf("garbage id accepted")
	}
}

func TestExpiry(t *testing.T) {
	s, c := newTestStore(10*time.Minute, 0)
	s.Put(&Dataset{ID: "a"})
	c.t = c.t.Add(5 * time.Minute)
	if _, ok := s.Get("a"); !ok {
		t.Fatalf("entry should still be live")
	}
	// Get refreshed it; 9 more minutes is still within the ttl
	c.t = c.t.Add(9 * time.Minute)
	if _, ok := s.Get("a"); !ok {
		t.Fatalf("touch should extend the lifetime")
	}
	c.t = c.t.Add(11 * time.Minute)
	if _, ok := s.Get("a"); ok {
		t.Fatalf("entry should have expired")
	}
}

func TestSweep(t *testing.T) {
	s, c := newTestStore(time.Minute, 0)
	s.Put(&Dataset{ID: "a"})
	s.Put(&Dataset{ID: "b"})
	c.t = c.t.Add(2 * time.Minute)
	if n := s.Sweep(); n != 2 {
		t.Fatalf("swept %d", n)
	}
}

func TestMaxEntriesEvictsLeastRecentlyUsed(t *testing.T) {
	s, c := newTestStore(0, 2)
	s.Put(&Dataset{ID: "a"})
	c.t = c.t.Add(time.Second)
	s.Put(&Dataset{ID: "b"})
	c.t = c.t.Add(time.Second)
	s.Get("a")
	c.t = c.t.Add(time.Second)
	s.Put(&Dataset{ID: "c"})
	if _, ok := s.Get("b"); ok {
		t.Fatalf("b was least recently used and should be gone")
	}
	for _, id := range []string{"a", "c"} {
		if _, ok := s.Get(id); !ok {
			t.Fatalf("%s should survive", id)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore(time.Hour, 50)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := NewID()
				s.Put(&Dataset{ID: id})
				s.Get(id)
			}
		}()
	}
	wg.Wait()
	if s.Len() > 50 {
		t.Fatalf("store exceeded its bound: %d", s.Len())
	}
}
