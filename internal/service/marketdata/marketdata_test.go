package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"TradeDash/internal/domain/models"
	"TradeDash/internal/domain/repository"
	"TradeDash/internal/service/ratelimit"
	"TradeDash/pkg/cache"
	apphttp "TradeDash/pkg/http"
	"TradeDash/pkg/logger"

	rmodels "github.com/polygon-io/client-go/rest/models"
)

const avCSV = `timestamp,open,high,low,close,volume
2024-03-05,102,104,101,103,1200
2024-03-04,101,103,100,102,1100
2024-03-01,100,101,99,100.5,1000
`

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestAlphaVantage_ParsesAndSortsAscending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("function") != "TIME_SERIES_DAILY" || q.Get("datatype") != "csv" || q.Get("apikey") != "k" {
			t.Errorf("unexpected query %v", q)
		}
		switch q.Get("symbol") {
		case "AAPL":
			fmt.Fprint(w, avCSV)
		case "BAD":
			fmt.Fprint(w, `{"Error Message": "Invalid API call."}`)
		default:
			fmt.Fprint(w, `{"Meta Data": {}}`)
		}
	}))
	defer srv.Close()

	p := NewAlphaVantageProvider(apphttp.NewClient(), srv.URL, "k", nil, 0)
	bars, err := p.DailyBars(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("DailyBars: %v", err)
	}
	if len(bars) != 3 || !bars[0].Date.Equal(day("2024-03-01")) || bars[2].Close != 103 {
		t.Fatalf("unexpected bars: %+v", bars)
	}

	var apiErr *APIError
	if _, err := p.DailyBars(context.Background(), "BAD"); !errors.As(err, &apiErr) || !strings.Contains(apiErr.Message, "Invalid") {
		t.Fatalf("expected APIError, got %v", err)
	}
	if _, err := p.DailyBars(context.Background(), "ODD"); !errors.As(err, &apiErr) {
		t.Fatalf("unexpected JSON must be an error, got %v", err)
	}
}

func TestAlphaVantage_KeyAndRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, avCSV)
	}))
	defer srv.Close()

	if _, err := NewAlphaVantageProvider(apphttp.NewClient(), srv.URL, "", nil, 5).DailyBars(context.Background(), "AAPL"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	p := NewAlphaVantageProvider(apphttp.NewClient(), srv.URL, "k", ratelimit.New(), 2)
	for i := 0; i < 2; i++ {
		if _, err := p.DailyBars(context.Background(), "AAPL"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if _, err := p.DailyBars(context.Background(), "AAPL"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestYahoo_SkipsNullBars(t *testing.T) {
	d1 := day("2024-03-01").Add(14 * time.Hour).Unix()
	d2 := day("2024-03-04").Add(14 * time.Hour).Unix()
	d3 := day("2024-03-05").Add(14 * time.Hour).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/MSFT" || r.URL.Query().Get("interval") != "1d" || r.Header.Get("User-Agent") != "Mozilla/5.0" {
			t.Errorf("unexpected request %s %v", r.URL, r.Header)
		}
		fmt.Fprintf(w, `{"chart":{"result":[{"timestamp":[%d,%d,%d],"indicators":{"quote":[{
			"open":[10,null,12],"high":[11,null,13],"low":[9,null,11],"close":[10.5,null,12.5],"volume":[100,null,300]}]}}],"error":null}}`, d3, d2, d1)
	}))
	defer srv.Close()

	bars, err := NewYahooProvider(apphttp.NewClient(), srv.URL, "1y", "Mozilla/5.0").DailyBars(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("DailyBars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
	if !bars[0].Date.Equal(day("2024-03-01")) || bars[0].Close != 12.5 || bars[1].Close != 10.5 {
		t.Fatalf("unexpected bars: %+v", bars)
	}
}

func TestYahoo_ErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	}))
	defer srv.Close()

	var apiErr *APIError
	if _, err := NewYahooProvider(apphttp.NewClient(), srv.URL, "1y", "ua").DailyBars(context.Background(), "ZZZZ"); !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
}

func TestPolygon_MapsAggregates(t *testing.T) {
	p := NewPolygonProvider("key", http.DefaultClient, 30)
	now := day("2024-03-10")
	p.now = func() time.Time { return now }
	p.fetch = func(_ context.Context, params *rmodels.ListAggsParams) ([]rmodels.Agg, error) {
		if params.Ticker != "NVDA" || params.Timespan != rmodels.Day {
			t.Errorf("unexpected params %+v", params)
		}
		if from := time.Time(params.From); !from.Equal(now.AddDate(0, 0, -30)) {
			t.Errorf("from = %v", from)
		}
		return []rmodels.Agg{
			{Open: 2, High: 3, Low: 1, Close: 2.5, Volume: 20, Timestamp: rmodels.Millis(day("2024-03-05").Add(5 * time.Hour))},
			{Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10, Timestamp: rmodels.Millis(day("2024-03-04").Add(5 * time.Hour))},
		}, nil
	}

	bars, err := p.DailyBars(context.Background(), "NVDA")
	if err != nil {
		t.Fatalf("DailyBars: %v", err)
	}
	if len(bars) != 2 || !bars[0].Date.Equal(day("2024-03-04")) || bars[1].Close != 2.5 {
		t.Fatalf("unexpected bars: %+v", bars)
	}

	p.fetch = func(context.Context, *rmodels.ListAggsParams) ([]rmodels.Agg, error) { return nil, nil }
	if _, err := p.DailyBars(context.Background(), "NVDA"); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

type stubProvider struct {
	name  string
	bars  []models.Bar
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) DailyBars(context.Context, string) ([]models.Bar, error) {
	s.calls++
	return s.bars, s.err
}

func sampleBars() []models.Bar {
	return []models.Bar{
		{Date: day("2024-03-01"), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Date: day("2024-03-04"), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 12},
	}
}

func TestChain_FallsThroughInOrder(t *testing.T) {
	limited := &stubProvider{name: "alpha_vantage", err: ErrRateLimited}
	empty := &stubProvider{name: "yahoo"}
	good := &stubProvider{name: "polygon", bars: sampleBars()}
	unused := &stubProvider{name: "never", bars: sampleBars()}

	c := NewChain(logger.Nop(), repository.NopMetrics{}, limited, empty, good, unused)
	series, err := c.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if series.Source != "polygon" || len(series.Bars) != 2 {
		t.Fatalf("unexpected series: %+v", series)
	}
	if limited.calls != 1 || empty.calls != 1 || unused.calls != 0 {
		t.Fatalf("unexpected call counts: %d %d %d", limited.calls, empty.calls, unused.calls)
	}
}

func TestChain_AllFail(t *testing.T) {
	c := NewChain(logger.Nop(), repository.NopMetrics{},
		&stubProvider{name: "a", err: errors.New("boom")},
		&stubProvider{name: "b", err: ErrNotConfigured},
	)
	series, err := c.Fetch(context.Background(), "AAPL")
	if !errors.Is(err, ErrUpstreamUnavailable) || !series.Empty() {
		t.Fatalf("expected empty series and ErrUpstreamUnavailable, got %+v %v", series, err)
	}
}

func TestCSVStore_FreshnessAndValidity(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVStore(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewCSVStore: %v", err)
	}
	if err := s.Save("AAPL", sampleBars()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, _ := os.ReadFile(filepath.Join(dir, "AAPL.csv"))
	if !strings.HasPrefix(string(raw), "timestamp,open,high,low,close,volume") {
		t.Fatalf("unexpected header: %q", strings.SplitN(string(raw), "\n", 2)[0])
	}

	bars, ok := s.Load("AAPL")
	if !ok || len(bars) != 2 || bars[1].Close != 2 {
		t.Fatalf("Load = %+v, %v", bars, ok)
	}

	s.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	if _, ok := s.Load("AAPL"); ok {
		t.Fatalf("expected stale file to miss")
	}

	s.now = time.Now
	_ = os.WriteFile(filepath.Join(dir, "MSFT.csv"), []byte("timestamp,open\n2024-03-01,1\n"), 0o644)
	if _, ok := s.Load("MSFT"); ok {
		t.Fatalf("file without close must be refetched")
	}
}

type countingFetcher struct {
	series models.PriceSeries
	err    error
	calls  int
}

func (f *countingFetcher) Fetch(context.Context, string) (models.PriceSeries, error) {
	f.calls++
	return f.series, f.err
}

func TestCachedProvider_LayersAndWriteBack(t *testing.T) {
	ctx := context.Background()
	disk, _ := NewCSVStore(t.TempDir(), 24*time.Hour)
	mem := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mem.Close()
	up := &countingFetcher{series: models.PriceSeries{Symbol: "AAPL", Source: "yahoo", Bars: sampleBars()}}

	p := NewCachedProvider(mem, disk, up, time.Hour, logger.Nop(), repository.NopMetrics{})
	first, err := p.Fetch(ctx, "AAPL")
	if err != nil || first.Source != "yahoo" {
		t.Fatalf("first fetch = %+v, %v", first, err)
	}
	second, err := p.Fetch(ctx, "AAPL")
	if err != nil || second.Source != "cache" || len(second.Bars) != 2 {
		t.Fatalf("second fetch = %+v, %v", second, err)
	}

	// a fresh process sees only the disk layer
	p2 := NewCachedProvider(nil, disk, up, time.Hour, logger.Nop(), repository.NopMetrics{})
	third, err := p2.Fetch(ctx, "AAPL")
	if err != nil || third.Source != "disk" || !third.Bars[0].Date.Equal(day("2024-03-01")) {
		t.Fatalf("disk fetch = %+v, %v", third, err)
	}
	if up.calls != 1 {
		t.Fatalf("upstream called %d times, want 1", up.calls)
	}
}

func TestCachedProvider_EmptyResultNotCached(t *testing.T) {
	ctx := context.Background()
	disk, _ := NewCSVStore(t.TempDir(), 24*time.Hour)
	up := &countingFetcher{series: models.PriceSeries{Symbol: "NOPE"}, err: ErrUpstreamUnavailable}
	p := NewCachedProvider(nil, disk, up, time.Hour, logger.Nop(), repository.NopMetrics{})

	for i := 0; i < 2; i++ {
		if _, err := p.Fetch(ctx, "NOPE"); !errors.Is(err, ErrUpstreamUnavailable) {
			t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
		}
	}
	if up.calls != 2 {
		t.Fatalf("empty results must not be cached; upstream calls = %d", up.calls)
	}

	v := NewSymbolValidator(p, true)
	if !v.Available() || v.Valid(ctx, "NOPE") {
		t.Fatalf("unexpected validator result")
	}
}
