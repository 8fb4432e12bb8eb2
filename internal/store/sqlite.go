package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vehiclepush/internal/config"
	"vehiclepush/internal/parser"
)

//go:embed migrations.sql
var sqliteMigrations string

// SQLiteStore persists the history in a local SQLite file. Records are
// append-only; dedup keys live in their own table.
type SQLiteStore struct {
	db     *sql.DB
	hasher *Hasher
	window time.Duration
	now    func() time.Time
}

func NewSQLiteStore(ctx context.Context, cfg config.SQLiteConfig, hasher *Hasher, window time.Duration) (*SQLiteStore, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{"PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL"}
	if cfg.BusyTimeout > 0 {
		pragmas = append([]string{fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds())}, pragmas...)
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite %q failed: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteMigrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db, hasher: hasher, window: window, now: time.Now}, nil
}

// DB exposes the handle for health checks.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// InsertIfNew claims the dedup key and appends n in one transaction. Within
// a non-zero window an expired key is claimed again, so the repeat is
// appended next to the earlier record.
func (s *SQLiteStore) InsertIfNew(ctx context.Context, n Notification) (isNew bool, err error) {
	now := s.now()

	expiredBefore := int64(math.MinInt64)
	if s.window > 0 {
		expiredBefore = now.Add(-s.window).UnixNano()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite begin failed: %w", err)
	}
	defer func() {
		if !isNew || err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO dedup_keys (key, recorded_at) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET recorded_at = excluded.recorded_at
		 WHERE dedup_keys.recorded_at <= ?`,
		s.hasher.Key(n), now.UnixNano(), expiredBefore,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite dedup key failed: %w", err)
	}
	claimed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite rows affected: %w", err)
	}
	if claimed != 1 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO notifications (kind, title, text, timestamp, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		n.Kind.Code(), n.Title, n.Text, n.Timestamp.UTC().UnixNano(), now.UnixNano(),
	); err != nil {
		return false, fmt.Errorf("sqlite insert failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite commit failed: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Notification, error) {
	query := `SELECT kind, title, text, timestamp FROM notifications ORDER BY recorded_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite list failed: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var (
			kind string
			n    Notification
			ts   int64
		)
		if err := rows.Scan(&kind, &n.Title, &n.Text, &ts); err != nil {
			return nil, fmt.Errorf("sqlite scan failed: %w", err)
		}
		n.Kind = parser.Kind(kind)
		n.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite count failed: %w", err)
	}
	return count, nil
}

// PruneBefore deletes records and dedup keys recorded before cutoff and
// reports the number of records removed.
func (s *SQLiteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE recorded_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite prune failed: %w", err)
	}
	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite rows affected: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dedup_keys WHERE recorded_at < ?`, cutoff.UnixNano()); err != nil {
		return 0, fmt.Errorf("sqlite prune keys failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite commit failed: %w", err)
	}
	return pruned, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
