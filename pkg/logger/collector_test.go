package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestCollector_AggregatesDuplicates(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("fetch failed", String("provider", "yahoo"), Error(errors.New("timeout")))
	}
	l.Error("fetch failed", String("provider", "polygon"))
	l.Info("ignored")
	l.Warn("ignored too")
	l.RemoveCollector()

	if pub.topic != "logs" {
		t.Fatalf("topic = %q, want logs", pub.topic)
	}
	var entries []AggregatedLogEntry
	for _, b := range pub.batches {
		entries = append(entries, b...)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d distinct entries, want 2", len(entries))
	}
	counts := map[interface{}]int{}
	for _, e := range entries {
		counts[e.Fields["provider"]] = e.Count
	}
	if counts["yahoo"] != 3 || counts["polygon"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestCollector_ThresholdFlush(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub, Levels: []string{"warn"}})
	c.AddLog("warn", "a", nil, "x.go:1")
	c.AddLog("warn", "b", nil, "x.go:2")
	c.Close()

	if len(pub.batches) != 1 || len(pub.batches[0]) != 2 {
		t.Fatalf("expected one batch of 2, got %v", pub.batches)
	}
	if !c.accepts("warn") || c.accepts("error") {
		t.Fatalf("level filter not applied")
	}
}
