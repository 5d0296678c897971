package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AlibekovAA/givematch-portal/internal/common/bootstrap"
	"github.com/AlibekovAA/givematch-portal/internal/common/constants"
	"github.com/AlibekovAA/givematch-portal/internal/common/crypto"
	commonhttp "github.com/AlibekovAA/givematch-portal/internal/common/http"
	"github.com/AlibekovAA/givematch-portal/internal/common/jwtverify"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
	"github.com/AlibekovAA/givematch-portal/internal/common/resilience"
	srv "github.com/AlibekovAA/givematch-portal/internal/common/server"
	"github.com/AlibekovAA/givematch-portal/internal/live"
	"github.com/AlibekovAA/givematch-portal/internal/notify"
	portalhttp "github.com/AlibekovAA/givematch-portal/internal/portal/http"
	portalservice "github.com/AlibekovAA/givematch-portal/internal/portal/service"
	"github.com/AlibekovAA/givematch-portal/internal/realtime"
	"github.com/AlibekovAA/givematch-portal/internal/realtime/transport"
	"github.com/AlibekovAA/givematch-portal/internal/snapshot"
	"github.com/AlibekovAA/givematch-portal/internal/upstream"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.NewPortalApp(ctx)
	if err != nil {
		logger.GetInstance().Fatalf("failed to start portal: %v", err)
	}
	defer app.Close()

	log := app.Log
	cfg := app.Config

	go snapshot.StartCleanup(ctx, app.Snapshots, app.Clock, cfg.SnapshotMaxAge, constants.SnapshotCleanupInterval, log)

	upstreamBreaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  cfg.CircuitBreakerThreshold,
		Timeout:    cfg.CircuitBreakerTimeout,
		ResetAfter: cfg.CircuitBreakerReset,
		Name:       "upstream_api",
		Ignore:     upstream.IsClientError,
		Clock:      app.Clock,
		Logger:     log,
	})
	upstreamClient := upstream.NewClient(cfg.UpstreamBaseURL, log,
		upstream.WithTimeout(cfg.UpstreamTimeout),
		upstream.WithBreaker(upstreamBreaker),
	)

	dialer := transport.NewDialer(transport.Config{
		AuthMode:   cfg.Realtime.AuthMode,
		Token:      cfg.Realtime.Token,
		PingPeriod: cfg.Realtime.PingPeriod,
		PongWait:   cfg.Realtime.PongWait,
	}, log)
	registry := realtime.NewRegistry(realtime.RegistryConfigFrom(cfg.Realtime), dialer, app.Clock, log)

	presenter := notify.NewPresenter(app.Clock, crypto.NewUUIDGenerator(), cfg.NotifyTTL, cfg.NotifyCapacity, log)
	liveStore := live.NewStore(constants.DefaultDashboardRecent)
	liveSvc := live.NewService(
		registry.Channel(constants.ChannelDashboard),
		registry.Channel(constants.ChannelDonations),
		liveStore,
		presenter,
		app.Clock,
		log,
	)

	portal := portalservice.NewPortalService(upstreamClient, app.Snapshots, liveStore, registry, app.Clock, portalservice.Config{
		RecentDonations:   constants.DefaultDashboardRecent,
		LeaderboardLength: constants.DefaultLeaderboardLength,
	}, log)

	generalLimiter := commonhttp.NewRateLimiter("general",
		constants.RateLimitGeneralRequestsPerSecond, constants.RateLimitGeneralBurst, jwtverify.ClientKey)
	adminLimiter := commonhttp.NewRateLimiter("admin",
		constants.RateLimitAdminRequestsPerSecond, constants.RateLimitAdminBurst, jwtverify.ClientKey)

	apiHandler := portalhttp.NewHandler(portal, registry, presenter, portalhttp.Config{
		JWTSecret:      cfg.JWTSecret,
		AdminRole:      cfg.AdminRole,
		RequestTimeout: cfg.RequestTimeout,
	}, generalLimiter, adminLimiter, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", commonhttp.HealthHandler(log, commonhttp.HealthCheck{Name: "database", Check: app.HealthCheck}))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/api/", apiHandler)

	liveSvc.Start()
	registry.ConnectAll()

	server := srv.NewServer(srv.DefaultServerConfig(cfg.HTTPPort), commonhttp.BuildBaseHandler(log, mux))

	srv.StartWithGracefulShutdownAndHooks(server, log, "portal", []srv.ShutdownHook{
		func(context.Context) error {
			liveSvc.Stop()
			registry.DisconnectAll()
			return nil
		},
		func(context.Context) error {
			generalLimiter.Stop()
			adminLimiter.Stop()
			cancel()
			return nil
		},
	})
}
