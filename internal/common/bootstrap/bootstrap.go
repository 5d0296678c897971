package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AlibekovAA/givematch-portal/internal/common/clock"
	"github.com/AlibekovAA/givematch-portal/internal/common/config"
	"github.com/AlibekovAA/givematch-portal/internal/common/constants"
	"github.com/AlibekovAA/givematch-portal/internal/common/db"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
	"github.com/AlibekovAA/givematch-portal/internal/common/resilience"
	"github.com/AlibekovAA/givematch-portal/internal/snapshot"
)

// App holds the process-wide dependencies shared by the portal components.
// Pool is nil when no database is configured; Snapshots then lives in memory.
type App struct {
	Log       *logger.Logger
	Config    config.PortalConfig
	Clock     clock.Clock
	Pool      *pgxpool.Pool
	Snapshots snapshot.Repository
}

func NewPortalApp(ctx context.Context) (*App, error) {
	log, err := initializeLogger("portal")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.LoadPortalConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	app := &App{
		Log:    log,
		Config: cfg,
		Clock:  clock.NewRealClock(),
	}

	if err := app.initializeSnapshots(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) initializeSnapshots(ctx context.Context) error {
	if a.Config.DatabaseURL == "" {
		a.Log.Info("DATABASE_URL not set, snapshots kept in memory")
		a.Snapshots = snapshot.NewMemoryStore()
		return nil
	}

	pool, err := db.NewPool(ctx, a.Log, a.Config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database pool: %w", err)
	}
	db.StartPoolMetrics(ctx, pool, constants.DBPoolMetricsInterval)

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  constants.DefaultCircuitBreakerThreshold,
		Timeout:    constants.DefaultCircuitBreakerTimeout,
		ResetAfter: constants.DefaultCircuitBreakerReset,
		Name:       "snapshot_db",
		Ignore:     snapshot.IsNotFound,
		Clock:      a.Clock,
		Logger:     a.Log,
	})

	repo := snapshot.NewPgRepository(pool, breaker, a.Log)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to prepare snapshot schema: %w", err)
	}

	a.Pool = pool
	a.Snapshots = repo
	return nil
}

// HealthCheck pings the database when one is configured.
func (a *App) HealthCheck(ctx context.Context) error {
	if a.Pool == nil {
		return nil
	}
	conn, err := a.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return conn.Conn().Ping(ctx)
}

func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

func initializeLogger(serviceName string) (*logger.Logger, error) {
	return logger.New(os.Getenv("LOG_DIR"), serviceName, os.Getenv("LOG_LEVEL"))
}
