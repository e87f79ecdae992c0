package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"TradeDash/internal/domain/models"
	"TradeDash/internal/domain/repository"
	"TradeDash/internal/services/indicators"
	"TradeDash/internal/services/signals"
	"TradeDash/pkg/logger"
)

type stubFetcher struct {
	series models.PriceSeries
	err    error
}

func (f stubFetcher) Fetch(context.Context, string) (models.PriceSeries, error) { return f.series, f.err }

type memSignalStore struct {
	events map[string]models.SignalEvent
}

func (s *memSignalStore) Init(context.Context) error { return nil }

func (s *memSignalStore) Save(_ context.Context, events []models.SignalEvent) error {
	if s.events == nil {
		s.events = map[string]models.SignalEvent{}
	}
	for _, e := range events {
		if _, ok := s.events[e.Key()]; !ok {
			s.events[e.Key()] = e
		}
	}
	return nil
}

func (s *memSignalStore) Recent(_ context.Context, symbol string, limit int) ([]models.SignalEvent, error) {
	var out []models.SignalEvent
	for _, e := range s.events {
		if e.Symbol == symbol && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memSignalStore) Close() error { return nil }

type recordingSink struct{ events []models.SignalEvent }

func (r *recordingSink) Enqueue(e models.SignalEvent) bool {
	r.events = append(r.events, e)
	return true
}

type recordingHub struct{ kinds []string }

func (h *recordingHub) Broadcast(kind string, _ interface{}) { h.kinds = append(h.kinds, kind) }

// dropSeries rises for ten sessions, holds flat, then gaps down on the last
// bar: RSI falls through 30 and close breaks the lower band together.
func dropSeries() models.PriceSeries {
	var closes []float64
	for c := 100.0; c <= 110; c++ {
		closes = append(closes, c)
	}
	closes = append(closes, 110, 110, 110, 110, 110, 90)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return models.PriceSeries{Symbol: "TEST", Source: "stub", Bars: bars}
}

// testParams leaves the SMA windows longer than the series and collapses
// MACD to zero, so only RSI and Bollinger can vote.
func testParams() AnalysisParams {
	ip := indicators.DefaultParams()
	ip.SMAWindows = []int{50, 100}
	ip.MACDFast, ip.MACDSlow, ip.MACDSignal = 5, 5, 3
	ip.BollingerWindow = 10
	sp := signals.DefaultParams()
	sp.SMAShort, sp.SMALong = 50, 100
	return AnalysisParams{Indicators: ip, Signals: sp}
}

func TestAnalysis_StrongBuyOnLatestBar(t *testing.T) {
	ctx := context.Background()
	store := &memSignalStore{}
	sink := &recordingSink{}
	hub := &recordingHub{}
	uc := NewAnalysisUseCase(stubFetcher{series: dropSeries()}, store, sink, hub, repository.NopMetrics{}, testParams(), logger.Nop())

	res, err := uc.Analyze(ctx, " test ")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Empty || res.Symbol != "TEST" || len(res.Dates) != 17 || res.Dates[16] != "2024-01-17" {
		t.Fatalf("unexpected result header: %+v", res)
	}
	latest := res.Latest
	if latest == nil || latest.Consensus != models.SignalStrongBuy || latest.BuyCount != 2 || latest.SellCount != 0 {
		t.Fatalf("unexpected snapshot: %+v", latest)
	}
	want := []string{signals.ColBBBuy, signals.ColRSIBuy, signals.ColStrongBuy}
	if strings.Join(latest.Active, ",") != strings.Join(want, ",") {
		t.Fatalf("active = %v, want %v", latest.Active, want)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"sma_50":[null,null`) {
		t.Fatalf("undefined values must encode as null")
	}

	if len(sink.events) != 1 || sink.events[0].Signal != models.SignalStrongBuy || sink.events[0].Close != 90 {
		t.Fatalf("sink events = %+v", sink.events)
	}
	if len(hub.kinds) != 1 || hub.kinds[0] != BroadcastAnalysis {
		t.Fatalf("broadcasts = %v", hub.kinds)
	}

	stored := len(store.events)
	if stored == 0 {
		t.Fatalf("strong signals were not recorded")
	}
	if _, err := uc.Analyze(ctx, "TEST"); err != nil {
		t.Fatalf("second Analyze: %v", err)
	}
	if len(store.events) != stored {
		t.Fatalf("history must be idempotent: %d then %d", stored, len(store.events))
	}

	hist, err := uc.History(ctx, "test", 10)
	if err != nil || len(hist) != stored {
		t.Fatalf("History = %v, %v", hist, err)
	}
}

func TestAnalysis_MarkersFollowSignals(t *testing.T) {
	uc := NewAnalysisUseCase(stubFetcher{series: dropSeries()}, nil, nil, nil, nil, testParams(), logger.Nop())
	res, err := uc.Analyze(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	active := 0
	for _, vals := range res.Signals {
		for _, on := range vals {
			if on {
				active++
			}
		}
	}
	if len(res.Markers) != active {
		t.Fatalf("markers = %d, active signal cells = %d", len(res.Markers), active)
	}
	for i := 1; i < len(res.Markers); i++ {
		if res.Markers[i].Date < res.Markers[i-1].Date {
			t.Fatalf("markers out of order at %d", i)
		}
	}
	for _, m := range res.Markers {
		if strings.HasSuffix(m.Column, "sell_signal") != (m.Side == "sell") {
			t.Errorf("marker %+v has wrong side", m)
		}
	}
}

func TestAnalysis_NoDataIsNeutral(t *testing.T) {
	sink := &recordingSink{}
	fetcher := stubFetcher{series: models.PriceSeries{Symbol: "NOPE"}, err: errors.New("all providers failed")}
	uc := NewAnalysisUseCase(fetcher, nil, sink, nil, nil, DefaultAnalysisParams(), logger.Nop())

	res, err := uc.Analyze(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !res.Empty || res.Latest != nil || len(res.Dates) != 0 || len(sink.events) != 0 {
		t.Fatalf("expected empty neutral result, got %+v", res)
	}

	if _, err := uc.Analyze(context.Background(), ""); !errors.Is(err, ErrEmptySymbol) {
		t.Fatalf("expected ErrEmptySymbol, got %v", err)
	}

	cancelled := NewAnalysisUseCase(stubFetcher{err: context.Canceled}, nil, nil, nil, nil, DefaultAnalysisParams(), logger.Nop())
	if _, err := cancelled.Analyze(context.Background(), "AAPL"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
