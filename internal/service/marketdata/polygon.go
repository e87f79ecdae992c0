package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"TradeDash/internal/domain/models"
	"TradeDash/pkg/util"

	polygonrest "github.com/polygon-io/client-go/rest"
	rmodels "github.com/polygon-io/client-go/rest/models"
)

// aggFetcher lists daily aggregates; it is swapped out in tests.
type aggFetcher func(ctx context.Context, params *rmodels.ListAggsParams) ([]rmodels.Agg, error)

// PolygonProvider reads daily aggregates through the Polygon REST SDK.
type PolygonProvider struct {
	lookback time.Duration
	fetch    aggFetcher
	now      func() time.Time
}

func NewPolygonProvider(apiKey string, hc *http.Client, lookbackDays int) *PolygonProvider {
	rest := polygonrest.NewWithClient(apiKey, hc)
	return &PolygonProvider{
		lookback: time.Duration(lookbackDays) * 24 * time.Hour,
		now:      time.Now,
		fetch: func(ctx context.Context, params *rmodels.ListAggsParams) ([]rmodels.Agg, error) {
			iter := rest.ListAggs(ctx, params)
			var aggs []rmodels.Agg
			for iter.Next() {
				aggs = append(aggs, iter.Item())
			}
			return aggs, iter.Err()
		},
	}
}

func (p *PolygonProvider) Name() string { return "polygon" }

func (p *PolygonProvider) DailyBars(ctx context.Context, symbol string) ([]models.Bar, error) {
	to := p.now().UTC()
	params := &rmodels.ListAggsParams{
		Ticker:     symbol,
		Timespan:   rmodels.Day,
		Multiplier: 1,
		From:       rmodels.Millis(to.Add(-p.lookback)),
		To:         rmodels.Millis(to),
	}
	limit := 5000
	asc := rmodels.Asc
	adj := true
	params.Limit = &limit
	params.Order = &asc
	params.Adjusted = &adj

	aggs, err := p.fetch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("polygon %s: %w", symbol, err)
	}
	bars := make([]models.Bar, 0, len(aggs))
	for _, a := range aggs {
		bars = append(bars, models.Bar{
			Date:   util.Day(time.Time(a.Timestamp).UTC()),
			Open:   a.Open,
			High:   a.High,
			Low:    a.Low,
			Close:  a.Close,
			Volume: a.Volume,
		})
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return normalize(bars), nil
}
