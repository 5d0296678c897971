package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AlibekovAA/givematch-portal/internal/common/db"
	commonerrors "github.com/AlibekovAA/givematch-portal/internal/common/errors"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
	"github.com/AlibekovAA/givematch-portal/internal/common/resilience"
)

const schema = `
CREATE TABLE IF NOT EXISTS upstream_snapshots (
	owner      TEXT NOT NULL DEFAULT '',
	resource   TEXT NOT NULL,
	body       JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (owner, resource)
);
CREATE INDEX IF NOT EXISTS upstream_snapshots_fetched_at_idx ON upstream_snapshots (fetched_at);
`

type PgRepository struct {
	pool    *pgxpool.Pool
	breaker *resilience.CircuitBreaker
	log     *logger.Logger
}

func NewPgRepository(pool *pgxpool.Pool, breaker *resilience.CircuitBreaker, log *logger.Logger) *PgRepository {
	return &PgRepository{pool: pool, breaker: breaker, log: log}
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, commonerrors.ErrSnapshotNotFound)
}

func (r *PgRepository) EnsureSchema(ctx context.Context) error {
	return db.RetryWithBackoff(ctx, r.log, db.DefaultRetryConfig, func() error {
		_, err := r.pool.Exec(ctx, schema)
		if err != nil {
			return fmt.Errorf("create snapshot schema: %w", err)
		}
		return nil
	})
}

func (r *PgRepository) Save(ctx context.Context, s Snapshot) error {
	return r.breaker.Call(ctx, func(ctx context.Context) error {
		return db.RetryWithBackoff(ctx, r.log, db.DefaultRetryConfig, func() error {
			start := time.Now()
			_, err := r.pool.Exec(
				ctx,
				`INSERT INTO upstream_snapshots (owner, resource, body, fetched_at)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (owner, resource) DO UPDATE SET body = EXCLUDED.body, fetched_at = EXCLUDED.fetched_at`,
				s.Owner,
				s.Resource,
				[]byte(s.Body),
				s.FetchedAt,
			)
			return db.HandleExecError(err, "save snapshot", start)
		})
	})
}

func (r *PgRepository) Get(ctx context.Context, owner, resource string) (Snapshot, error) {
	var snap Snapshot
	err := r.breaker.Call(ctx, func(ctx context.Context) error {
		start := time.Now()
		row := r.pool.QueryRow(
			ctx,
			`SELECT owner, resource, body, fetched_at FROM upstream_snapshots WHERE owner = $1 AND resource = $2`,
			owner,
			resource,
		)

		var body []byte
		err := row.Scan(&snap.Owner, &snap.Resource, &body, &snap.FetchedAt)
		if err := db.HandleQueryError(err, commonerrors.ErrSnapshotNotFound, "get snapshot", start); err != nil {
			return err
		}
		snap.Body = body
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (r *PgRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.breaker.Call(ctx, func(ctx context.Context) error {
		start := time.Now()
		tag, err := r.pool.Exec(ctx, `DELETE FROM upstream_snapshots WHERE fetched_at < $1`, cutoff)
		if err := db.HandleExecError(err, "prune snapshots", start); err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	return deleted, err
}
