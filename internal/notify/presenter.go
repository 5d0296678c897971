package notify

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AlibekovAA/givematch-portal/internal/common/clock"
	"github.com/AlibekovAA/givematch-portal/internal/common/crypto"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
	"github.com/AlibekovAA/givematch-portal/internal/observability/metrics"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
)

type Toast struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Level     Level     `json:"level"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Presenter keeps a short-lived feed of toasts. Entries expire after ttl and
// the oldest are evicted once capacity is reached.
type Presenter struct {
	clock    clock.Clock
	ids      crypto.IDGenerator
	ttl      time.Duration
	capacity int
	log      *logger.Logger
	seq      atomic.Uint64

	mu     sync.Mutex
	toasts []Toast
}

func NewPresenter(clk clock.Clock, ids crypto.IDGenerator, ttl time.Duration, capacity int, log *logger.Logger) *Presenter {
	return &Presenter{
		clock:    clk,
		ids:      ids,
		ttl:      ttl,
		capacity: capacity,
		log:      log,
	}
}

func (p *Presenter) Push(kind string, level Level, title, body string) Toast {
	now := p.clock.Now()
	id, err := p.ids.NewID()
	if err != nil || id == "" {
		id = fmt.Sprintf("local-%d-%d", now.UnixNano(), p.seq.Add(1))
		p.log.Warnf("toast id generation failed, using %s: %v", id, err)
	}

	toast := Toast{
		ID:        id,
		Kind:      kind,
		Level:     level,
		Title:     title,
		Body:      body,
		CreatedAt: now,
		ExpiresAt: now.Add(p.ttl),
	}

	p.mu.Lock()
	p.pruneLocked(now)
	p.toasts = append(p.toasts, toast)
	if over := len(p.toasts) - p.capacity; over > 0 {
		p.toasts = append([]Toast(nil), p.toasts[over:]...)
	}
	p.mu.Unlock()

	metrics.NotificationsPresented.WithLabelValues(kind).Inc()
	return toast
}

// Active returns unexpired toasts, newest first.
func (p *Presenter) Active() []Toast {
	p.mu.Lock()
	p.pruneLocked(p.clock.Now())
	out := make([]Toast, len(p.toasts))
	copy(out, p.toasts)
	p.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (p *Presenter) Dismiss(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, t := range p.toasts {
		if t.ID == id {
			p.toasts = append(p.toasts[:i], p.toasts[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Presenter) pruneLocked(now time.Time) {
	kept := p.toasts[:0]
	for _, t := range p.toasts {
		if now.Before(t.ExpiresAt) {
			kept = append(kept, t)
		}
	}
	p.toasts = kept
}
