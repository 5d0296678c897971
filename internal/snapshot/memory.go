package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	commonerrors "github.com/AlibekovAA/givematch-portal/internal/common/errors"
)

// MemoryStore keeps snapshots in process. Used when no database is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[snapshotKey]Snapshot
}

type snapshotKey struct {
	owner    string
	resource string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[snapshotKey]Snapshot)}
}

func (s *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	body := make([]byte, len(snap.Body))
	copy(body, snap.Body)
	snap.Body = body

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[snapshotKey{owner: snap.Owner, resource: snap.Resource}] = snap
	return nil
}

func (s *MemoryStore) Get(_ context.Context, owner, resource string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.items[snapshotKey{owner: owner, resource: resource}]
	if !ok {
		return Snapshot{}, commonerrors.ErrSnapshotNotFound.WithCause(fmt.Errorf("%s for %q", resource, owner))
	}
	return snap, nil
}

func (s *MemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for key, snap := range s.items {
		if snap.FetchedAt.Before(cutoff) {
			delete(s.items, key)
			deleted++
		}
	}
	return deleted, nil
}
