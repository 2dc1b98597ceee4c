// ABOUTME: SQLite-backed key/value store for persisted app state
// ABOUTME: Values are JSON documents; multi-key changes run in one transaction
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Well-known keys
const (
	KeyPendingScans         = "pending_scans"
	KeyScanHistory          = "scan_history"
	KeyLastDetectedLocation = "last_detected_location"
	KeyFavoriteMarket       = "favorite_market"
)

// PricesKey is the cached price snapshot key for a location
func PricesKey(location string) string {
	return "cached_prices_" + location
}

// AdvisoryKey is the cached sale advisory key for a location
func AdvisoryKey(location string) string {
	return "cached_advisory_" + location
}

// Store wraps the SQLite database connection and schema lifecycle
type Store struct {
	db *sql.DB
}

// Open initializes the database, creating directories and the schema as needed
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	);`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Get decodes the value under key into dst; false means the key is absent
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	return get(ctx, s.db, key, dst)
}

// Put stores v as JSON under key
func (s *Store) Put(ctx context.Context, key string, v any) error {
	return put(ctx, s.db, key, v)
}

// Delete removes key
func (s *Store) Delete(ctx context.Context, key string) error {
	return del(ctx, s.db, key)
}

// Tx is a transactional view of the store
type Tx struct {
	ctx context.Context
	tx  *sql.Tx
}

// Get decodes the value under key into dst
func (t *Tx) Get(key string, dst any) (bool, error) {
	return get(t.ctx, t.tx, key, dst)
}

// Put stores v as JSON under key
func (t *Tx) Put(key string, v any) error {
	return put(t.ctx, t.tx, key, v)
}

// Delete removes key
func (t *Tx) Delete(key string) error {
	return del(t.ctx, t.tx, key)
}

// Update runs fn in a transaction, committing only when fn returns nil
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&Tx{ctx: ctx, tx: sqlTx}); err != nil {
		sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func get(ctx context.Context, q querier, key string, dst any) (bool, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?;`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func put(ctx context.Context, q querier, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`,
		key,
		string(raw),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func del(ctx context.Context, q querier, key string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM kv WHERE key = ?;`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
