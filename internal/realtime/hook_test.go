package realtime

import (
	"encoding/json"
	"sync"
	"testing"
)

type fakeSubscriber struct {
	mu        sync.Mutex
	listeners map[int]Listener
	next      int
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{listeners: make(map[int]Listener)}
}

func (s *fakeSubscriber) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *fakeSubscriber) emit(kind, payload string) {
	s.mu.Lock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	msg := Message{Kind: kind}
	if payload != "" {
		msg.Payload = json.RawMessage(payload)
	}
	for _, l := range ls {
		l(msg)
	}
}

func (s *fakeSubscriber) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

type statsPayload struct {
	TotalDonations float64 `json:"total_donations"`
}

func TestHook_FiltersByKindAndDecodes(t *testing.T) {
	sub := newFakeSubscriber()
	var got []statsPayload
	hook := NewHook(sub, "stats_update", func(p statsPayload) { got = append(got, p) }, testLogger())
	hook.Activate()

	sub.emit("new_donation", `{"total_donations":1}`)
	sub.emit("stats_update", `{"total_donations":42.5}`)

	if len(got) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(got))
	}
	if got[0].TotalDonations != 42.5 {
		t.Errorf("expected 42.5, got %v", got[0].TotalDonations)
	}
}

func TestHook_DecodeFailureIsSkipped(t *testing.T) {
	sub := newFakeSubscriber()
	calls := 0
	hook := NewHook(sub, "stats_update", func(statsPayload) { calls++ }, testLogger())
	hook.Activate()

	sub.emit("stats_update", `"not an object"`)
	if calls != 0 {
		t.Fatalf("expected undecodable payload to be skipped, got %d calls", calls)
	}

	sub.emit("stats_update", "")
	if calls != 1 {
		t.Errorf("expected empty payload to deliver a zero value, got %d calls", calls)
	}
}

func TestHook_ActivateIsIdempotent(t *testing.T) {
	sub := newFakeSubscriber()
	calls := 0
	hook := NewHook(sub, "stats_update", func(statsPayload) { calls++ }, testLogger())

	hook.Activate()
	hook.Activate()
	if sub.count() != 1 {
		t.Fatalf("expected exactly one listener, got %d", sub.count())
	}

	sub.emit("stats_update", `{}`)
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestHook_ActivationCyclesDoNotLeak(t *testing.T) {
	sub := newFakeSubscriber()
	hook := NewHook(sub, "stats_update", func(statsPayload) {}, testLogger())

	for i := 0; i < 10; i++ {
		hook.Activate()
		hook.Deactivate()
		hook.Deactivate()
	}

	if sub.count() != 0 {
		t.Errorf("expected no listeners left, got %d", sub.count())
	}
	if hook.Active() {
		t.Error("expected hook to be inactive")
	}
}

func TestHook_DeactivatedReceivesNothing(t *testing.T) {
	sub := newFakeSubscriber()
	calls := 0
	hook := NewHook(sub, "stats_update", func(statsPayload) { calls++ }, testLogger())

	hook.Activate()
	hook.Deactivate()
	sub.emit("stats_update", `{}`)

	if calls != 0 {
		t.Errorf("expected no calls after deactivate, got %d", calls)
	}
}

func TestHook_OnManager(t *testing.T) {
	dialer := &fakeDialer{}
	m, _ := setupManager(t, testPolicy(), dialer)
	m.Connect()
	connected(t, m)

	got := make(chan statsPayload, 1)
	hook := NewHook(m, "stats_update", func(p statsPayload) { got <- p }, testLogger())
	hook.Activate()
	defer hook.Deactivate()

	dialer.lastConn().push(`{"type":"stats_update","data":{"total_donations":7}}`)

	if p := <-got; p.TotalDonations != 7 {
		t.Errorf("expected 7, got %v", p.TotalDonations)
	}
	if got := m.Status().Listeners; got != 1 {
		t.Errorf("expected 1 listener, got %d", got)
	}
}
