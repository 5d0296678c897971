package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AlibekovAA/givematch-portal/internal/common/clock"
	commonerrors "github.com/AlibekovAA/givematch-portal/internal/common/errors"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
)

var errBoom = errors.New("boom")
var errMissing = errors.New("missing")

func setupBreaker(t *testing.T) (*CircuitBreaker, *clock.MockClock) {
	t.Helper()
	mockClock := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	log, _ := logger.New("", "test", "error")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Threshold:  2,
		Timeout:    time.Second,
		ResetAfter: 30 * time.Second,
		Name:       "test",
		Ignore:     func(err error) bool { return errors.Is(err, errMissing) },
		Clock:      mockClock,
		Logger:     log,
	})
	return cb, mockClock
}

func fail(context.Context) error { return errBoom }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := setupBreaker(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := cb.Call(ctx, fail); !errors.Is(err, errBoom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}

	called := false
	err := cb.Call(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, commonerrors.ErrCircuitOpen) {
		t.Fatalf("expected circuit open, got %v", err)
	}
	if called {
		t.Error("expected fn not to run while open")
	}
}

func TestCircuitBreaker_ResetsAfterWindow(t *testing.T) {
	cb, mockClock := setupBreaker(t)
	ctx := context.Background()

	cb.Call(ctx, fail)
	cb.Call(ctx, fail)
	if !cb.IsOpen() {
		t.Fatal("expected open circuit")
	}

	mockClock.Advance(31 * time.Second)
	if cb.IsOpen() {
		t.Fatal("expected circuit to close after reset window")
	}
	if err := cb.Call(ctx, func(context.Context) error { return nil }); err != nil {
		t.Errorf("expected success, got %v", err)
	}
}

func TestCircuitBreaker_IgnoredErrorsDoNotCount(t *testing.T) {
	cb, _ := setupBreaker(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := cb.Call(ctx, func(context.Context) error { return errMissing }); !errors.Is(err, errMissing) {
			t.Fatalf("expected missing, got %v", err)
		}
	}
	if cb.IsOpen() {
		t.Error("expected ignored errors to keep circuit closed")
	}
}

func TestCircuitBreaker_Fallback(t *testing.T) {
	cb, _ := setupBreaker(t)
	ctx := context.Background()

	var seen []error
	fallback := func(err error) error {
		seen = append(seen, err)
		return nil
	}

	for i := 0; i < 3; i++ {
		if err := cb.CallWithFallback(ctx, fail, fallback); err != nil {
			t.Fatalf("expected fallback to absorb error, got %v", err)
		}
	}

	if len(seen) != 3 {
		t.Fatalf("expected 3 fallbacks, got %d", len(seen))
	}
	if !errors.Is(seen[0], errBoom) || !errors.Is(seen[2], commonerrors.ErrCircuitOpen) {
		t.Errorf("unexpected fallback causes %v", seen)
	}
}
