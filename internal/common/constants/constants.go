package constants

import "time"

const (
	JWTSecretMinLength = 32

	DefaultMaxRequestSize = 1 << 20

	DefaultPortalHTTPPort = "8080"

	DefaultRealtimeMaxAttempts = 5
	DefaultRealtimeBaseDelay   = 1 * time.Second
	DefaultRealtimeMultiplier  = 2.0
	DefaultRealtimeMaxDelay    = 30 * time.Second
	DefaultRealtimeAuthMode    = "none"

	RealtimeHandshakeTimeout = 10 * time.Second
	RealtimeWriteWait        = 10 * time.Second
	DefaultRealtimePongWait  = 60 * time.Second
	DefaultRealtimePingEvery = 54 * time.Second
	RealtimeMaxMessageSize   = 1 << 20
	RealtimeReadBufferSize   = 1024
	RealtimeWriteBufferSize  = 1024

	ChannelDashboard = "dashboard"
	ChannelDonations = "donations"

	DefaultUpstreamTimeout = 10 * time.Second
	UpstreamMaxBodyBytes   = 8 << 20

	DefaultCircuitBreakerThreshold = 5
	DefaultCircuitBreakerTimeout   = 10 * time.Second
	DefaultCircuitBreakerReset     = 30 * time.Second

	DefaultNotifyTTL      = 8 * time.Second
	DefaultNotifyCapacity = 50

	DefaultSnapshotMaxAge    = 24 * time.Hour
	SnapshotCleanupInterval  = 1 * time.Hour
	DefaultDashboardRecent   = 5
	DefaultLeaderboardLength = 10

	DBPoolMaxConns        = 10
	DBPoolMinConns        = 1
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = 1 * time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 5
	DBPoolRetryDelay      = 1 * time.Second
	DBPoolMetricsInterval = 30 * time.Second

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	DefaultRequestTimeout = 15 * time.Second

	RateLimitCleanupInterval          = 5 * time.Minute
	RateLimitGeneralRequestsPerSecond = 20
	RateLimitGeneralBurst             = 40
	RateLimitAdminRequestsPerSecond   = 1
	RateLimitAdminBurst               = 5

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
