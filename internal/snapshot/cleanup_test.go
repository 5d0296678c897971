package snapshot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AlibekovAA/givematch-portal/internal/common/clock"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
)

type mockDeleter struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (m *mockDeleter) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoffs = append(m.cutoffs, cutoff)
	return 1, m.err
}

func (m *mockDeleter) calls() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Time, len(m.cutoffs))
	copy(out, m.cutoffs)
	return out
}

func runCleanup(t *testing.T, repo *mockDeleter) (*clock.MockClock, func()) {
	t.Helper()
	mockClock := clock.NewMockClock(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	log, _ := logger.New("", "test", "error")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		StartCleanup(ctx, repo, mockClock, 24*time.Hour, 5*time.Millisecond, log)
		close(done)
	}()

	return mockClock, func() {
		cancel()
		<-done
	}
}

func TestStartCleanup_UsesMaxAgeCutoff(t *testing.T) {
	repo := &mockDeleter{}
	mockClock, stop := runCleanup(t, repo)
	defer stop()

	deadline := time.Now().Add(2 * time.Second)
	for len(repo.calls()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	calls := repo.calls()
	if len(calls) == 0 {
		t.Fatal("expected cleanup to run")
	}
	want := mockClock.Now().Add(-24 * time.Hour)
	if !calls[0].Equal(want) {
		t.Errorf("expected cutoff %v, got %v", want, calls[0])
	}
}

func TestStartCleanup_KeepsRunningAfterError(t *testing.T) {
	repo := &mockDeleter{err: errors.New("db down")}
	_, stop := runCleanup(t, repo)

	deadline := time.Now().Add(2 * time.Second)
	for len(repo.calls()) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	stop()

	if got := len(repo.calls()); got < 2 {
		t.Errorf("expected cleanup to retry after failure, got %d runs", got)
	}
}
