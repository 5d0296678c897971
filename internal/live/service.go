package live

import (
	"fmt"
	"sync"

	"github.com/AlibekovAA/givematch-portal/internal/common/clock"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
	"github.com/AlibekovAA/givematch-portal/internal/notify"
	"github.com/AlibekovAA/givematch-portal/internal/realtime"
)

type Notifier interface {
	Push(kind string, level notify.Level, title, body string) notify.Toast
}

type hook interface {
	Activate()
	Deactivate()
}

// Service binds the dashboard and donations channels to the live store and
// the toast feed.
type Service struct {
	store    *Store
	notifier Notifier
	clock    clock.Clock
	log      *logger.Logger
	hooks    []hook

	mu      sync.Mutex
	running bool
}

func NewService(dashboard, donations realtime.Subscriber, store *Store, notifier Notifier, clk clock.Clock, log *logger.Logger) *Service {
	s := &Service{
		store:    store,
		notifier: notifier,
		clock:    clk,
		log:      log,
	}
	s.hooks = []hook{
		realtime.NewHook(dashboard, KindStatsUpdate, s.onStats, log),
		realtime.NewHook(donations, KindNewDonation, s.onNewDonation, log),
		realtime.NewHook(donations, KindMatchCompleted, s.onMatchCompleted, log),
	}
	return s
}

func (s *Service) Store() *Store {
	return s.store
}

func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	for _, h := range s.hooks {
		h.Activate()
	}
	s.running = true
	s.log.Infof("live hooks activated count=%d", len(s.hooks))
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	for _, h := range s.hooks {
		h.Deactivate()
	}
	s.running = false
	s.log.Infof("live hooks deactivated")
}

func (s *Service) onStats(stats DashboardStats) {
	s.store.SetStats(stats, s.clock.Now())
}

func (s *Service) onNewDonation(ev DonationEvent) {
	s.store.Record(RecordedEvent{Kind: KindNewDonation, Donation: ev, ReceivedAt: s.clock.Now()})
	s.notifier.Push(KindNewDonation, notify.LevelInfo, "New donation",
		fmt.Sprintf("%s donated %s to %s", displayName(ev.Donor, "Someone"), formatAmount(ev.Amount.Float64()), displayName(ev.Nonprofit, "a nonprofit")))
}

func (s *Service) onMatchCompleted(ev DonationEvent) {
	s.store.Record(RecordedEvent{Kind: KindMatchCompleted, Donation: ev, ReceivedAt: s.clock.Now()})
	s.notifier.Push(KindMatchCompleted, notify.LevelSuccess, "Match completed",
		fmt.Sprintf("%s matched %s for %s", displayName(ev.Company, "Your company"), formatAmount(ev.MatchedAmount.Float64()), displayName(ev.Nonprofit, "a nonprofit")))
}

func displayName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func formatAmount(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
