package live

import (
	"sync"
	"time"
)

// Store keeps the latest live stats and a bounded list of recent donation
// events, newest first.
type Store struct {
	mu        sync.RWMutex
	stats     DashboardStats
	statsAt   time.Time
	hasStats  bool
	recent    []RecordedEvent
	maxRecent int
}

func NewStore(maxRecent int) *Store {
	if maxRecent <= 0 {
		maxRecent = 1
	}
	return &Store{maxRecent: maxRecent}
}

func (s *Store) SetStats(stats DashboardStats, at time.Time) {
	s.mu.Lock()
	s.stats = stats
	s.statsAt = at
	s.hasStats = true
	s.mu.Unlock()
}

// Stats returns the last stats_update payload and when it arrived. ok is
// false until the first update.
func (s *Store) Stats() (stats DashboardStats, at time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, s.statsAt, s.hasStats
}

func (s *Store) Record(ev RecordedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]RecordedEvent, 0, s.maxRecent)
	next = append(next, ev)
	for _, old := range s.recent {
		if len(next) == s.maxRecent {
			break
		}
		next = append(next, old)
	}
	s.recent = next
}

func (s *Store) Recent() []RecordedEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RecordedEvent, len(s.recent))
	copy(out, s.recent)
	return out
}
