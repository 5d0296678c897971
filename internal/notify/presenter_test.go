package notify

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/AlibekovAA/givematch-portal/internal/common/clock"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
)

type mockIDGenerator struct {
	next int
}

func (g *mockIDGenerator) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("toast-%d", g.next), nil
}

type failingIDGenerator struct{}

func (failingIDGenerator) NewID() (string, error) {
	return "", errors.New("entropy exhausted")
}

func setupPresenter(t *testing.T, capacity int) (*Presenter, *clock.MockClock) {
	t.Helper()
	mockClock := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	log, _ := logger.New("", "test", "error")
	return NewPresenter(mockClock, &mockIDGenerator{}, 8*time.Second, capacity, log), mockClock
}

func TestPresenter_PushAndActive(t *testing.T) {
	p, mockClock := setupPresenter(t, 10)

	p.Push("new_donation", LevelInfo, "New donation", "Ada gave $25")
	mockClock.Advance(time.Second)
	p.Push("match_completed", LevelSuccess, "Match completed", "Acme matched $25")

	active := p.Active()
	if len(active) != 2 {
		t.Fatalf("expected 2 toasts, got %d", len(active))
	}
	if active[0].Kind != "match_completed" || active[1].Kind != "new_donation" {
		t.Errorf("expected newest first, got %s then %s", active[0].Kind, active[1].Kind)
	}
	if active[0].ID != "toast-2" {
		t.Errorf("unexpected id %s", active[0].ID)
	}
}

func TestPresenter_Expiry(t *testing.T) {
	p, mockClock := setupPresenter(t, 10)

	p.Push("new_donation", LevelInfo, "New donation", "")
	mockClock.Advance(5 * time.Second)
	p.Push("new_donation", LevelInfo, "New donation", "")
	mockClock.Advance(4 * time.Second)

	active := p.Active()
	if len(active) != 1 {
		t.Fatalf("expected 1 unexpired toast, got %d", len(active))
	}
	if active[0].ID != "toast-2" {
		t.Errorf("expected the later toast to survive, got %s", active[0].ID)
	}
}

func TestPresenter_CapacityEvictsOldest(t *testing.T) {
	p, _ := setupPresenter(t, 2)

	p.Push("a", LevelInfo, "", "")
	p.Push("b", LevelInfo, "", "")
	p.Push("c", LevelInfo, "", "")

	active := p.Active()
	if len(active) != 2 {
		t.Fatalf("expected 2 toasts, got %d", len(active))
	}
	for _, toast := range active {
		if toast.Kind == "a" {
			t.Error("expected oldest toast to be evicted")
		}
	}
}

func TestPresenter_Dismiss(t *testing.T) {
	p, _ := setupPresenter(t, 10)

	toast := p.Push("a", LevelInfo, "", "")
	if !p.Dismiss(toast.ID) {
		t.Fatal("expected dismiss to succeed")
	}
	if p.Dismiss(toast.ID) {
		t.Error("expected second dismiss to report false")
	}
	if len(p.Active()) != 0 {
		t.Error("expected feed to be empty")
	}
}

func TestPresenter_FallbackIDWhenGeneratorFails(t *testing.T) {
	mockClock := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	log, _ := logger.New("", "test", "error")
	p := NewPresenter(mockClock, failingIDGenerator{}, 8*time.Second, 10, log)

	first := p.Push("new_donation", LevelInfo, "New donation", "")
	second := p.Push("new_donation", LevelInfo, "New donation", "")

	if first.ID == "" || second.ID == "" {
		t.Fatalf("expected fallback ids, got %q and %q", first.ID, second.ID)
	}
	if first.ID == second.ID {
		t.Errorf("expected distinct fallback ids, got %s twice", first.ID)
	}
	if !p.Dismiss(first.ID) {
		t.Error("expected toast with fallback id to be dismissable")
	}
	if active := p.Active(); len(active) != 1 || active[0].ID != second.ID {
		t.Errorf("expected only the second toast left, got %+v", active)
	}
}
