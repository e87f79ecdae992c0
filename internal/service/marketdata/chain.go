package marketdata

import (
	"context"
	"errors"
	"time"

	"TradeDash/internal/domain/models"
	"TradeDash/internal/domain/repository"
	"TradeDash/pkg/logger"
)

// Chain tries providers in order and returns the first non-empty series.
type Chain struct {
	providers []repository.PriceProvider
	log       *logger.Logger
	metrics   repository.Metrics
}

func NewChain(log *logger.Logger, metrics repository.Metrics, providers ...repository.PriceProvider) *Chain {
	return &Chain{providers: providers, log: log, metrics: metrics}
}

// Providers lists provider names in fallback order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Fetch returns the first provider's non-empty bars. When every provider
// fails the series is empty and the error is ErrUpstreamUnavailable.
func (c *Chain) Fetch(ctx context.Context, symbol string) (models.PriceSeries, error) {
	series := models.PriceSeries{Symbol: symbol}
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return series, err
		}
		start := time.Now()
		bars, err := p.DailyBars(ctx, symbol)
		c.metrics.RecordLatency("fetch_"+p.Name(), time.Since(start).Seconds())

		if err == nil && len(bars) == 0 {
			err = ErrNoData
		}
		if err != nil {
			c.metrics.RecordProviderFetch(p.Name(), result(err))
			if !errors.Is(err, ErrNotConfigured) {
				c.log.Warn("price provider failed, falling back",
					logger.Symbol(symbol),
					logger.String("provider", p.Name()),
					logger.Error(err),
				)
			}
			continue
		}

		c.metrics.RecordProviderFetch(p.Name(), "ok")
		c.log.Debug("price provider served", logger.Symbol(symbol), logger.String("provider", p.Name()), logger.Int("bars", len(bars)))
		series.Bars = bars
		series.Source = p.Name()
		return series, nil
	}
	return series, ErrUpstreamUnavailable
}

func result(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrNoData):
		return "empty"
	case errors.Is(err, ErrNotConfigured):
		return "skipped"
	default:
		return "error"
	}
}
