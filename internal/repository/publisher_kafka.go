package repository

import (
	"context"

	"TradeDash/internal/domain/models"
	"TradeDash/internal/domain/repository"
	pkgkafka "TradeDash/pkg/kafka"
)

// KafkaPublisher sends signal events as JSON keyed by symbol.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.EventPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, e models.SignalEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(e.Symbol), e)
}

// Close is a no-op; the producer is shared with the log collector and
// closed by its owner.
func (p *KafkaPublisher) Close() error { return nil }
