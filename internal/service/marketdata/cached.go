package marketdata

import (
	"context"
	"errors"
	"time"

	"TradeDash/internal/domain/models"
	"TradeDash/internal/domain/repository"
	"TradeDash/pkg/cache"
	"TradeDash/pkg/logger"
)

// Fetcher returns a price series for a symbol.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string) (models.PriceSeries, error)
}

// CachedProvider looks in the shared cache, then the CSV store, then the chain.
// Only non-empty results are written back.
type CachedProvider struct {
	shared   cache.Service // optional; memory or memory-over-Redis
	disk     *CSVStore
	upstream Fetcher
	ttl      time.Duration
	log      *logger.Logger
	metrics  repository.Metrics
}

func NewCachedProvider(shared cache.Service, disk *CSVStore, upstream Fetcher, ttl time.Duration, log *logger.Logger, metrics repository.Metrics) *CachedProvider {
	return &CachedProvider{
		shared:   shared,
		disk:     disk,
		upstream: upstream,
		ttl:      ttl,
		log:      log,
		metrics:  metrics,
	}
}

func sharedKey(symbol string) string { return cache.GenerateKey("bars", symbol) }

func (p *CachedProvider) Fetch(ctx context.Context, symbol string) (models.PriceSeries, error) {
	if p.shared != nil {
		var bars []models.Bar
		err := p.shared.Get(ctx, sharedKey(symbol), &bars)
		switch {
		case err == nil && len(bars) > 0:
			p.metrics.RecordCacheLookup("shared", "hit")
			return models.PriceSeries{Symbol: symbol, Source: "cache", Bars: bars}, nil
		case err != nil && !errors.Is(err, cache.ErrCacheMiss):
			p.metrics.RecordError("cache_get")
			p.log.Warn("shared price cache read failed", logger.Symbol(symbol), logger.Error(err))
		}
		p.metrics.RecordCacheLookup("shared", "miss")
	}

	if p.disk != nil {
		if bars, ok := p.disk.Load(symbol); ok {
			p.metrics.RecordCacheLookup("disk", "hit")
			p.remember(ctx, symbol, bars)
			return models.PriceSeries{Symbol: symbol, Source: "disk", Bars: bars}, nil
		}
		p.metrics.RecordCacheLookup("disk", "miss")
	}

	series, err := p.upstream.Fetch(ctx, symbol)
	if err != nil || series.Empty() {
		return series, err
	}
	if p.disk != nil {
		if err := p.disk.Save(symbol, series.Bars); err != nil {
			p.metrics.RecordError("cache_write")
			p.log.Warn("price csv write failed", logger.Symbol(symbol), logger.Error(err))
		}
	}
	p.remember(ctx, symbol, series.Bars)
	return series, nil
}

func (p *CachedProvider) remember(ctx context.Context, symbol string, bars []models.Bar) {
	if p.shared == nil {
		return
	}
	if err := p.shared.Set(ctx, sharedKey(symbol), bars, p.ttl); err != nil {
		p.metrics.RecordError("cache_set")
		p.log.Warn("shared price cache write failed", logger.Symbol(symbol), logger.Error(err))
	}
}

// SymbolValidator treats a symbol as valid when price data can be found for it.
type SymbolValidator struct {
	fetcher Fetcher
	keyed   bool
}

// NewSymbolValidator builds a validator. keyed reports whether the primary
// provider has an API key; without one validation is unavailable.
func NewSymbolValidator(fetcher Fetcher, keyed bool) *SymbolValidator {
	return &SymbolValidator{fetcher: fetcher, keyed: keyed}
}

func (v *SymbolValidator) Available() bool { return v.keyed }

func (v *SymbolValidator) Valid(ctx context.Context, symbol string) bool {
	series, err := v.fetcher.Fetch(ctx, symbol)
	return err == nil && !series.Empty()
}
