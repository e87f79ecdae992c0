package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"TradeDash/internal/domain/models"
	"TradeDash/pkg/util"

	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS signal_events (
		id          TEXT PRIMARY KEY,
		symbol      TEXT NOT NULL,
		trade_date  TEXT NOT NULL,
		signal      TEXT NOT NULL,
		close       REAL,
		buy_count   INTEGER NOT NULL DEFAULT 0,
		sell_count  INTEGER NOT NULL DEFAULT 0,
		detected_at INTEGER NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_signal_events_key ON signal_events (symbol, trade_date, signal)`,
	`CREATE INDEX IF NOT EXISTS ix_signal_events_symbol_date ON signal_events (symbol, trade_date DESC)`,
}

// SQLiteSignalStore keeps signal history in an embedded database file.
type SQLiteSignalStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteSignalStore opens (or creates) the database in WAL mode.
func NewSQLiteSignalStore(path string) (*SQLiteSignalStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return &SQLiteSignalStore{db: db}, nil
}

func (s *SQLiteSignalStore) Init(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate signal_events: %w", err)
		}
	}
	return nil
}

// Save inserts events in one transaction; a repeated (symbol, date, signal)
// is ignored.
func (s *SQLiteSignalStore) Save(ctx context.Context, events []models.SignalEvent) error {
	if len(events) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO signal_events
		(id, symbol, trade_date, signal, close, buy_count, sell_count, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.Symbol, util.FormatDate(e.Date), e.Signal,
			e.Close, e.BuyCount, e.SellCount, e.DetectedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("insert %s: %w", e.Key(), err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit events for symbol, newest trading date first.
func (s *SQLiteSignalStore) Recent(ctx context.Context, symbol string, limit int) ([]models.SignalEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, symbol, trade_date, signal, close, buy_count, sell_count, detected_at
		FROM signal_events WHERE symbol = ? ORDER BY trade_date DESC, signal ASC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query signal_events: %w", err)
	}
	defer rows.Close()

	out := []models.SignalEvent{}
	for rows.Next() {
		var (
			e        models.SignalEvent
			date     string
			detected int64
		)
		if err := rows.Scan(&e.ID, &e.Symbol, &date, &e.Signal, &e.Close, &e.BuyCount, &e.SellCount, &detected); err != nil {
			return nil, fmt.Errorf("scan signal event: %w", err)
		}
		if e.Date, err = time.Parse(util.DateLayout, date); err != nil {
			return nil, fmt.Errorf("signal event %s: %w", e.ID, err)
		}
		e.DetectedAt = time.UnixMilli(detected).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteSignalStore) Close() error { return s.db.Close() }
