package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"TradeDash/internal/domain/models"
	pkgch "TradeDash/pkg/clickhouse"
	applogger "TradeDash/pkg/logger"
)

// ReplacingMergeTree collapses repeated (symbol, trade_date, signal) rows on
// merge; reads use FINAL so duplicates never surface before that.
var clickhouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS signal_events (
		id          String,
		symbol      LowCardinality(String),
		trade_date  Date,
		signal      LowCardinality(String),
		close       Float64,
		buy_count   UInt8,
		sell_count  UInt8,
		detected_at DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree
	ORDER BY (symbol, trade_date, signal)`,
}

const chInsertChunk = 500

// CHSignalStore keeps signal history in ClickHouse.
type CHSignalStore struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewCHSignalStore(client *pkgch.Client, l *applogger.Logger) *CHSignalStore {
	return &CHSignalStore{client: client, db: client.DB(), l: l.Named("clickhouse")}
}

func (s *CHSignalStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, clickhouseSchema)
}

// Save writes events with multi-row inserts.
func (s *CHSignalStore) Save(ctx context.Context, events []models.SignalEvent) error {
	for start := 0; start < len(events); start += chInsertChunk {
		end := start + chInsertChunk
		if end > len(events) {
			end = len(events)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, e := range events[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, e.ID, e.Symbol, e.Date, e.Signal, e.Close, uint8(e.BuyCount), uint8(e.SellCount), e.DetectedAt)
		}
		q := "INSERT INTO signal_events (id, symbol, trade_date, signal, close, buy_count, sell_count, detected_at) VALUES " +
			strings.Join(values, ",")
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse signal insert failed", applogger.Int("rows", end-start), applogger.Error(err))
			return fmt.Errorf("insert signal_events: %w", err)
		}
	}
	return nil
}

func (s *CHSignalStore) Recent(ctx context.Context, symbol string, limit int) ([]models.SignalEvent, error) {
	const q = `
		SELECT id, symbol, trade_date, signal, close, buy_count, sell_count, detected_at
		FROM signal_events FINAL
		WHERE symbol = ?
		ORDER BY trade_date DESC, signal ASC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query signal_events: %w", err)
	}
	defer rows.Close()

	out := []models.SignalEvent{}
	for rows.Next() {
		var (
			e           models.SignalEvent
			buys, sells uint8
		)
		if err := rows.Scan(&e.ID, &e.Symbol, &e.Date, &e.Signal, &e.Close, &buys, &sells, &e.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan signal event: %w", err)
		}
		e.BuyCount, e.SellCount = int(buys), int(sells)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close leaves the shared client open; its owner closes it.
func (s *CHSignalStore) Close() error { return nil }
