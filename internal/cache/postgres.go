package cache

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Querier is the subset of pgxpool.Pool the Postgres backend uses. Tests
// substitute a pgxmock implementation.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store against a shared Postgres database.
type PostgresStore struct {
	pool    Querier
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool and runs the
// migration.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "cache: parse postgres config")
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "cache: connect postgres")
	}

	s := &PostgresStore{pool: pool, closeFn: pool.Close}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresWithQuerier wraps an existing querier without migration. Used by
// tests.
func NewPostgresWithQuerier(q Querier) *PostgresStore {
	return &PostgresStore{pool: q}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS artifacts (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ,
	PRIMARY KEY (namespace, key)
);

CREATE INDEX IF NOT EXISTS idx_artifacts_expires_at ON artifacts(expires_at);
`

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "cache: migrate postgres")
}

func (s *PostgresStore) Get(ctx context.Context, ns, key string) ([]byte, bool, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM artifacts
		 WHERE namespace = $1 AND key = $2
		   AND (expires_at IS NULL OR expires_at > now())`,
		ns, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "cache: get")
	}
	return value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, ns, key string, value []byte, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().UTC().Add(ttl)
		expiresAt = &t
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO artifacts (namespace, key, value, created_at, expires_at)
		 VALUES ($1, $2, $3, now(), $4)
		 ON CONFLICT (namespace, key)
		 DO UPDATE SET value = EXCLUDED.value, created_at = now(), expires_at = EXCLUDED.expires_at`,
		ns, key, value, expiresAt,
	)
	return eris.Wrap(err, "cache: set")
}

func (s *PostgresStore) Delete(ctx context.Context, ns, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM artifacts WHERE namespace = $1 AND key = $2`, ns, key)
	return eris.Wrap(err, "cache: delete")
}

func (s *PostgresStore) ClearNamespace(ctx context.Context, ns string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM artifacts WHERE namespace = $1`, ns)
	if err != nil {
		return 0, eris.Wrap(err, "cache: clear namespace")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Count(ctx context.Context, ns string) (int64, error) {
	query := `SELECT COUNT(*) FROM artifacts WHERE (expires_at IS NULL OR expires_at > now())`
	var args []any
	if ns != "" {
		query += ` AND namespace = $1`
		args = append(args, ns)
	}

	var n int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "cache: count")
	}
	return n, nil
}

func (s *PostgresStore) Keys(ctx context.Context, ns string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT key FROM artifacts
		 WHERE namespace = $1 AND (expires_at IS NULL OR expires_at > now())
		 ORDER BY key LIMIT $2`,
		ns, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "cache: keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, eris.Wrap(err, "cache: scan key")
		}
		keys = append(keys, k)
	}
	return keys, eris.Wrap(rows.Err(), "cache: keys iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT namespace, COUNT(*) FROM artifacts
		 WHERE expires_at IS NULL OR expires_at > now()
		 GROUP BY namespace`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "cache: stats")
	}
	defer rows.Close()

	stats := &Stats{ByNamespace: make(map[string]int64)}
	for rows.Next() {
		var ns string
		var n int64
		if err := rows.Scan(&ns, &n); err != nil {
			return nil, eris.Wrap(err, "cache: scan stats")
		}
		stats.ByNamespace[ns] = n
		stats.Entries += n
	}
	return stats, eris.Wrap(rows.Err(), "cache: stats iterate")
}

func (s *PostgresStore) Sweep(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM artifacts WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "cache: sweep")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
