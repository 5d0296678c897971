package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/AlibekovAA/givematch-portal/internal/common/clock"
	"github.com/AlibekovAA/givematch-portal/internal/common/constants"
	commonerrors "github.com/AlibekovAA/givematch-portal/internal/common/errors"
	"github.com/AlibekovAA/givematch-portal/internal/common/jwtverify"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
	"github.com/AlibekovAA/givematch-portal/internal/live"
	"github.com/AlibekovAA/givematch-portal/internal/observability/metrics"
	"github.com/AlibekovAA/givematch-portal/internal/realtime"
	"github.com/AlibekovAA/givematch-portal/internal/snapshot"
	"github.com/AlibekovAA/givematch-portal/internal/upstream"
)

const (
	SourceUpstream = "upstream"
	SourceCache    = "cache"
	SourceDefault  = "default"
	SourceLive     = "live"
	SourceComputed = "computed"
)

type Fetcher interface {
	Fetch(ctx context.Context, resource string) (any, error)
}

type StatusSource interface {
	Statuses() []realtime.Status
}

type ResourceResult struct {
	Resource  string          `json:"resource"`
	Items     json.RawMessage `json:"items"`
	Source    string          `json:"source"`
	FetchedAt *time.Time      `json:"fetched_at,omitempty"`
}

type Dashboard struct {
	Stats           live.DashboardStats         `json:"stats"`
	StatsSource     string                      `json:"stats_source"`
	StatsUpdatedAt  *time.Time                  `json:"stats_updated_at,omitempty"`
	ActiveCampaigns []upstream.Campaign         `json:"active_campaigns"`
	Leaderboard     []upstream.LeaderboardEntry `json:"leaderboard"`
	RecentDonations []upstream.Donation         `json:"recent_donations"`
	LiveEvents      []live.RecordedEvent        `json:"live_events"`
	Channels        []realtime.Status           `json:"channels"`
	Sources         map[string]string           `json:"sources"`
}

type Config struct {
	RecentDonations   int
	LeaderboardLength int
}

// PortalService serves upstream resources with a last-known-good fallback and
// assembles the dashboard view. Views degrade to cached or empty data instead
// of failing when the upstream API or the realtime channels are down.
type PortalService struct {
	upstream  Fetcher
	snapshots snapshot.Repository
	live      *live.Store
	channels  StatusSource
	clock     clock.Clock
	cfg       Config
	log       *logger.Logger
}

func NewPortalService(
	fetcher Fetcher,
	snapshots snapshot.Repository,
	liveStore *live.Store,
	channels StatusSource,
	clk clock.Clock,
	cfg Config,
	log *logger.Logger,
) *PortalService {
	if cfg.RecentDonations <= 0 {
		cfg.RecentDonations = constants.DefaultDashboardRecent
	}
	if cfg.LeaderboardLength <= 0 {
		cfg.LeaderboardLength = constants.DefaultLeaderboardLength
	}
	return &PortalService{
		upstream:  fetcher,
		snapshots: snapshots,
		live:      liveStore,
		channels:  channels,
		clock:     clk,
		cfg:       cfg,
		log:       log,
	}
}

// Resource returns the normalised list for resource. Upstream outages fall
// back to the caller's stored snapshot, then to an empty list. Client errors
// from the upstream (bad token, forbidden) are returned as they are the caller's.
func (s *PortalService) Resource(ctx context.Context, resource string) (ResourceResult, error) {
	if !upstream.IsResource(resource) {
		return ResourceResult{}, commonerrors.ErrUnknownResource
	}
	owner := snapshotOwner(ctx)

	items, err := s.upstream.Fetch(ctx, resource)
	if err == nil {
		body, mErr := json.Marshal(items)
		if mErr != nil {
			return ResourceResult{}, commonerrors.ErrInternalError.WithCause(mErr)
		}
		if string(body) == "null" {
			body = []byte("[]")
		}
		now := s.clock.Now()
		s.saveSnapshot(ctx, owner, resource, body, now)
		return ResourceResult{Resource: resource, Items: body, Source: SourceUpstream, FetchedAt: &now}, nil
	}

	if clientErr := mapClientError(err); clientErr != nil {
		return ResourceResult{}, clientErr
	}

	s.log.WithFields(ctx, logger.Fields{
		"resource": resource,
		"action":   "upstream_fallback",
	}).Warnf("upstream fetch failed, falling back: %v", err)

	snap, snapErr := s.snapshots.Get(ctx, owner, resource)
	if snapErr == nil {
		metrics.PortalFallbacksTotal.WithLabelValues(resource, SourceCache).Inc()
		fetchedAt := snap.FetchedAt
		return ResourceResult{Resource: resource, Items: snap.Body, Source: SourceCache, FetchedAt: &fetchedAt}, nil
	}
	if !snapshot.IsNotFound(snapErr) {
		s.log.Errorf("snapshot lookup failed resource=%s: %v", resource, snapErr)
	}

	metrics.PortalFallbacksTotal.WithLabelValues(resource, SourceDefault).Inc()
	return ResourceResult{Resource: resource, Items: json.RawMessage("[]"), Source: SourceDefault}, nil
}

// snapshotOwner scopes cached answers to the authenticated user so one
// caller's data is never served to another.
func snapshotOwner(ctx context.Context) string {
	claims, ok := jwtverify.FromContext(ctx)
	if !ok {
		return ""
	}
	return claims.UserID
}

func (s *PortalService) saveSnapshot(ctx context.Context, owner, resource string, body []byte, at time.Time) {
	err := s.snapshots.Save(ctx, snapshot.Snapshot{Owner: owner, Resource: resource, Body: body, FetchedAt: at})
	if err != nil {
		s.log.Warnf("snapshot save failed resource=%s: %v", resource, err)
		return
	}
	metrics.SnapshotsSaved.WithLabelValues(resource).Inc()
}

func mapClientError(err error) error {
	var se *upstream.StatusError
	if !errors.As(err, &se) || !se.ClientError() {
		return nil
	}
	switch se.StatusCode {
	case http.StatusUnauthorized:
		return commonerrors.ErrInvalidToken.WithCause(err)
	case http.StatusForbidden:
		return commonerrors.ErrForbidden.WithCause(err)
	default:
		return commonerrors.ErrUpstreamBadResponse.WithCause(err)
	}
}

// Dashboard never fails: every section degrades independently.
func (s *PortalService) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		wg          sync.WaitGroup
		donations   []upstream.Donation
		campaigns   []upstream.Campaign
		leaderboard []upstream.LeaderboardEntry
		sources     = make(map[string]string, 4)
		sourcesMu   sync.Mutex
	)

	load := func(resource string, into any) {
		defer wg.Done()
		source, err := s.loadInto(ctx, resource, into)
		if err != nil {
			s.log.Warnf("dashboard section %s unavailable: %v", resource, err)
			source = SourceDefault
		}
		sourcesMu.Lock()
		sources[resource] = source
		sourcesMu.Unlock()
	}

	wg.Add(3)
	go load(upstream.ResourceDonations, &donations)
	go load(upstream.ResourceCampaigns, &campaigns)
	go load(upstream.ResourceLeaderboard, &leaderboard)
	wg.Wait()

	d := Dashboard{
		ActiveCampaigns: activeCampaigns(campaigns),
		Leaderboard:     topLeaderboard(leaderboard, s.cfg.LeaderboardLength),
		RecentDonations: recentDonations(donations, s.cfg.RecentDonations),
		LiveEvents:      s.live.Recent(),
		Channels:        s.channels.Statuses(),
		Sources:         sources,
	}

	if stats, at, ok := s.live.Stats(); ok {
		d.Stats = stats
		d.StatsSource = SourceLive
		d.StatsUpdatedAt = &at
	} else if len(donations) > 0 || len(campaigns) > 0 {
		d.Stats = computeStats(donations, campaigns)
		d.StatsSource = SourceComputed
	} else {
		d.StatsSource = SourceDefault
	}
	sources["stats"] = d.StatsSource

	return d, nil
}

func (s *PortalService) loadInto(ctx context.Context, resource string, into any) (string, error) {
	res, err := s.Resource(ctx, resource)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(res.Items, into); err != nil {
		return "", commonerrors.ErrUpstreamBadResponse.WithCause(err)
	}
	return res.Source, nil
}

func computeStats(donations []upstream.Donation, campaigns []upstream.Campaign) live.DashboardStats {
	var stats live.DashboardStats
	donors := make(map[string]struct{})
	for _, d := range donations {
		stats.TotalDonations += d.Amount
		stats.TotalMatched += d.MatchedAmount
		if d.Donor != "" {
			donors[d.Donor] = struct{}{}
		}
	}
	for _, c := range campaigns {
		if c.Active() {
			stats.ActiveCampaigns++
		}
	}
	stats.DonorCount = upstream.Number(len(donors))
	return stats
}

func activeCampaigns(campaigns []upstream.Campaign) []upstream.Campaign {
	out := make([]upstream.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if c.Active() {
			out = append(out, c)
		}
	}
	return out
}

func topLeaderboard(entries []upstream.LeaderboardEntry, n int) []upstream.LeaderboardEntry {
	out := append([]upstream.LeaderboardEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	if len(out) > n {
		out = out[:n]
	}
	if out == nil {
		out = []upstream.LeaderboardEntry{}
	}
	return out
}

// recentDonations orders by created_at descending; upstream timestamps are
// RFC 3339 so string order matches time order.
func recentDonations(donations []upstream.Donation, n int) []upstream.Donation {
	out := append([]upstream.Donation(nil), donations...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if len(out) > n {
		out = out[:n]
	}
	if out == nil {
		out = []upstream.Donation{}
	}
	return out
}
