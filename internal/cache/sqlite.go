package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) a SQLite cache at the given path and
// configures WAL mode. busyTimeoutMS serializes concurrent writers; the
// pipeline runs many workers against one file, so it should be >= 30000.
func NewSQLite(path string, busyTimeoutMS int) (*SQLiteStore, error) {
	if busyTimeoutMS <= 0 {
		busyTimeoutMS = 30000
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "cache: create dir %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMS),
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS artifacts (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME,
	PRIMARY KEY (namespace, key)
);

CREATE INDEX IF NOT EXISTS idx_artifacts_expires_at ON artifacts(expires_at);
`

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(sqliteMigration)
	return eris.Wrap(err, "cache: migrate")
}

func (s *SQLiteStore) Get(ctx context.Context, ns, key string) ([]byte, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value FROM artifacts
		 WHERE namespace = ? AND key = ?
		   AND (expires_at IS NULL OR expires_at > ?)`,
		ns, key, time.Now().UTC(),
	)

	var value []byte
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "cache: get")
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, ns, key string, value []byte, ttl time.Duration) error {
	var expiresAt any
	if ttl > 0 {
		expiresAt = time.Now().UTC().Add(ttl)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (namespace, key, value, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (namespace, key)
		 DO UPDATE SET value = excluded.value, created_at = excluded.created_at, expires_at = excluded.expires_at`,
		ns, key, value, time.Now().UTC(), expiresAt,
	)
	return eris.Wrap(err, "cache: set")
}

func (s *SQLiteStore) Delete(ctx context.Context, ns, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM artifacts WHERE namespace = ? AND key = ?`, ns, key)
	return eris.Wrap(err, "cache: delete")
}

func (s *SQLiteStore) ClearNamespace(ctx context.Context, ns string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM artifacts WHERE namespace = ?`, ns)
	if err != nil {
		return 0, eris.Wrap(err, "cache: clear namespace")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "cache: rows affected")
}

func (s *SQLiteStore) Count(ctx context.Context, ns string) (int64, error) {
	query := `SELECT COUNT(*) FROM artifacts WHERE (expires_at IS NULL OR expires_at > ?)`
	args := []any{time.Now().UTC()}
	if ns != "" {
		query += ` AND namespace = ?`
		args = append(args, ns)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "cache: count")
	}
	return n, nil
}

func (s *SQLiteStore) Keys(ctx context.Context, ns string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM artifacts
		 WHERE namespace = ? AND (expires_at IS NULL OR expires_at > ?)
		 ORDER BY key LIMIT ?`,
		ns, time.Now().UTC(), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "cache: keys")
	}
	defer rows.Close() //nolint:errcheck

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

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT namespace, COUNT(*) FROM artifacts
		 WHERE expires_at IS NULL OR expires_at > ?
		 GROUP BY namespace`,
		time.Now().UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "cache: stats")
	}
	defer rows.Close() //nolint:errcheck

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

func (s *SQLiteStore) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM artifacts WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "cache: sweep")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "cache: rows affected")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
