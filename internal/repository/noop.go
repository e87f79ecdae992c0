package repository

import (
	"context"

	"TradeDash/internal/domain/models"
)

// NoopSignalStore is used when history.backend is "none".
type NoopSignalStore struct{}

func (NoopSignalStore) Init(context.Context) error                       { return nil }
func (NoopSignalStore) Save(context.Context, []models.SignalEvent) error { return nil }
func (NoopSignalStore) Close() error                                     { return nil }

func (NoopSignalStore) Recent(context.Context, string, int) ([]models.SignalEvent, error) {
	return []models.SignalEvent{}, nil
}

// NoopPublisher is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Name() string                                      { return "noop" }
func (NoopPublisher) Publish(context.Context, models.SignalEvent) error { return nil }
func (NoopPublisher) Close() error                                      { return nil }
