package clickhouse

import (
	"context"
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

func TestOptions(t *testing.T) {
	cfg := &ClientConfig{}
	for _, opt := range []ClientOption{
		WithAddress("ch.local", 8123),
		WithDatabase("tradedash"),
		WithCredentials("u", "p"),
		WithHTTP(true),
		WithAsyncInsert(true),
		WithMaxExecutionTime(90 * time.Second),
	} {
		opt(cfg)
	}
	o := options(cfg)
	if o.Addr[0] != "ch.local:8123" || o.Protocol != ch.HTTP || o.Auth.Database != "tradedash" {
		t.Fatalf("unexpected options: %+v", o)
	}
	if o.Settings["max_execution_time"] != 90 || o.Settings["wait_for_async_insert"] != 1 {
		t.Fatalf("unexpected settings: %v", o.Settings)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(context.Background()); err == nil {
		t.Fatalf("expected an error without a host")
	}
}
