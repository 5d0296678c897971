package snapshot

import (
	"context"
	"encoding/json"
	"time"
)

// Snapshot is the last good normalised answer for one upstream resource,
// as seen by one caller. Owner is the caller's user id, empty for anonymous.
type Snapshot struct {
	Owner     string
	Resource  string
	Body      json.RawMessage
	FetchedAt time.Time
}

type Repository interface {
	Save(ctx context.Context, s Snapshot) error
	Get(ctx context.Context, owner, resource string) (Snapshot, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
