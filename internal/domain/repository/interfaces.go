package repository

import (
	"context"
	"time"

	"TradeDash/internal/domain/models"
)

// PriceProvider fetches daily bars for a symbol, ascending by date.
type PriceProvider interface {
	Name() string
	DailyBars(ctx context.Context, symbol string) ([]models.Bar, error)
}

// PositionSource returns current brokerage holdings.
type PositionSource interface {
	Positions(ctx context.Context) ([]models.Position, error)
}

// Brokerage reads accounts, positions and trades from a broker API.
type Brokerage interface {
	Configured() bool
	AccountIDs(ctx context.Context) ([]string, error)
	Positions(ctx context.Context, accountID string) ([]models.Position, error)
	Transactions(ctx context.Context, accountID string, from, to time.Time) ([]models.Transaction, error)
}

// WatchlistStore persists the flat symbol list.
type WatchlistStore interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, symbols []string) error
}

// SignalStore records consensus signals. Save is idempotent per
// (symbol, date, signal).
type SignalStore interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, events []models.SignalEvent) error
	Recent(ctx context.Context, symbol string, limit int) ([]models.SignalEvent, error)
	Close() error
}

// EventPublisher delivers a signal event to a downstream bus.
type EventPublisher interface {
	Name() string
	Publish(ctx context.Context, event models.SignalEvent) error
	Close() error
}

// Broadcaster pushes a payload to live subscribers.
type Broadcaster interface {
	Broadcast(kind string, payload interface{})
}

type Metrics interface {
	RecordProviderFetch(provider, result string)
	RecordCacheLookup(layer, result string)
	RecordSignal(signal string)
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastClose(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) RecordProviderFetch(string, string) {}
func (NopMetrics) RecordCacheLookup(string, string)   {}
func (NopMetrics) RecordSignal(string)                {}
func (NopMetrics) RecordMessageSent(string, string)   {}
func (NopMetrics) RecordError(string)                 {}
func (NopMetrics) RecordLastClose(string, float64)    {}
func (NopMetrics) RecordLatency(string, float64)      {}
