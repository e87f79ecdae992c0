package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	domrepo "TradeDash/internal/domain/repository"
	"TradeDash/internal/handler/api"
	"TradeDash/internal/handler/ws"
	mid "TradeDash/internal/middleware"
	internalrepo "TradeDash/internal/repository"
	"TradeDash/internal/service/marketdata"
	svcmetrics "TradeDash/internal/service/metrics"
	"TradeDash/internal/service/ratelimit"
	"TradeDash/internal/service/schwab"
	"TradeDash/internal/services/indicators"
	"TradeDash/internal/services/signals"
	"TradeDash/internal/usecase"
	"TradeDash/pkg/cache"
	pkgch "TradeDash/pkg/clickhouse"
	"TradeDash/pkg/config"
	xhttp "TradeDash/pkg/http"
	pkgkafka "TradeDash/pkg/kafka"
	applogger "TradeDash/pkg/logger"
	"TradeDash/pkg/metrics"
	"TradeDash/pkg/server"
)

const chSchemaTimeout = 10 * time.Second

// ProvideKafkaProducer returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.BatchSize, cfg.Kafka.BatchTimeout),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Async),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the root logger. With Kafka enabled, warnings and
// errors are also aggregated onto the log topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if producer == nil {
		return l, func() {}, nil
	}
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          cfg.Kafka.LogTopic,
		Publisher:      producer,
		Levels:         []string{"warn", "error"},
		Service:        "tradedash",
	})
	return l, l.RemoveCollector, nil
}

// ProvideMetrics registers the Prometheus recorders on the default registry.
func ProvideMetrics(cfg *config.Config) domrepo.Metrics {
	if !cfg.Metrics.Enabled {
		return domrepo.NopMetrics{}
	}
	svcmetrics.Register()
	return metrics.New(nil)
}

func ProvideRateLimiter() *ratelimit.Limiter { return ratelimit.New() }

func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.MarketData.Timeout))
}

// ProvidePriceChain assembles providers in the configured fallback order.
// Providers without credentials are left out.
func ProvidePriceChain(
	cfg *config.Config,
	client *xhttp.Client,
	limiter *ratelimit.Limiter,
	log *applogger.Logger,
	m domrepo.Metrics,
) *marketdata.Chain {
	md := cfg.MarketData
	var providers []domrepo.PriceProvider
	for _, name := range md.Providers {
		switch name {
		case "alpha_vantage":
			providers = append(providers, marketdata.NewAlphaVantageProvider(
				client, md.AlphaVantage.BaseURL, cfg.AlphaVantageKey(), limiter, md.AlphaVantage.RequestsPerMinute))
		case "yahoo":
			if md.Yahoo.Enabled {
				providers = append(providers, marketdata.NewYahooProvider(client, md.Yahoo.BaseURL, md.Yahoo.Range, md.Yahoo.UserAgent))
			}
		case "polygon":
			if md.Polygon.APIKey != "" {
				providers = append(providers, marketdata.NewPolygonProvider(md.Polygon.APIKey, client.HTTPClient(), md.Polygon.LookbackDays))
			}
		}
	}
	chain := marketdata.NewChain(log.Named("marketdata"), m, providers...)
	log.Info("price providers configured", applogger.Strings("providers", chain.Providers()))
	return chain
}

// ProvideSharedCache returns a memory cache, layered over Redis when enabled.
// A Redis outage at startup degrades to memory only.
func ProvideSharedCache(cfg *config.Config, log *applogger.Logger) (cache.Service, func()) {
	mem := func() (cache.Service, func()) {
		c := cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.MarketData.MemoryCacheSize),
			cache.WithMemoryDefaultTTL(cfg.MarketData.CacheTTL),
		)
		return c, func() { _ = c.Close() }
	}
	if !cfg.Redis.Enabled {
		return mem()
	}
	redis, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
	)
	if err != nil {
		log.Warn("redis unavailable, using memory cache", applogger.Error(err))
		return mem()
	}
	layered := cache.NewLayeredCache(redis,
		cache.WithLayeredMemorySize(cfg.MarketData.MemoryCacheSize),
		cache.WithLayeredPromoteTTL(cfg.MarketData.CacheTTL),
	)
	return layered, func() { _ = layered.Close() }
}

func ProvideCSVStore(cfg *config.Config) (*marketdata.CSVStore, error) {
	return marketdata.NewCSVStore(cfg.MarketData.CacheDir, cfg.MarketData.CacheTTL)
}

func ProvideCachedProvider(
	cfg *config.Config,
	shared cache.Service,
	disk *marketdata.CSVStore,
	chain *marketdata.Chain,
	log *applogger.Logger,
	m domrepo.Metrics,
) *marketdata.CachedProvider {
	return marketdata.NewCachedProvider(shared, disk, chain, cfg.MarketData.CacheTTL, log.Named("price_cache"), m)
}

// ProvideSymbolValidator is available only with an Alpha Vantage key.
func ProvideSymbolValidator(cfg *config.Config, prices *marketdata.CachedProvider) usecase.SymbolValidator {
	return marketdata.NewSymbolValidator(prices, cfg.AlphaVantageKey() != "")
}

// ProvideBrokerage returns a client that reports itself unconfigured when
// the broker is disabled or its credentials are missing.
func ProvideBrokerage(cfg *config.Config) domrepo.Brokerage {
	b := cfg.Broker
	client := xhttp.NewClient(xhttp.WithHTTPClient(&http.Client{Timeout: b.Timeout}))
	if !b.Enabled {
		return schwab.NewClient(client, b.BaseURL, "", "")
	}
	return schwab.NewClient(client, b.BaseURL, b.ConfigFile, b.TokenFile)
}

func ProvidePortfolio(cfg *config.Config, broker domrepo.Brokerage, log *applogger.Logger) (*usecase.PortfolioUseCase, error) {
	positions, err := cache.NewFileCache(cfg.Broker.CacheDir, cfg.Broker.PositionsTTL)
	if err != nil {
		return nil, fmt.Errorf("positions cache: %w", err)
	}
	history, err := cache.NewFileCache(cfg.Broker.CacheDir, 0)
	if err != nil {
		return nil, fmt.Errorf("trade history cache: %w", err)
	}
	return usecase.NewPortfolioUseCase(broker, positions, history, log), nil
}

func ProvideWatchlistStore(cfg *config.Config) domrepo.WatchlistStore {
	return internalrepo.NewFileWatchlist(cfg.Watchlist.File)
}

func ProvideWatchlist(
	store domrepo.WatchlistStore,
	validator usecase.SymbolValidator,
	portfolio *usecase.PortfolioUseCase,
	log *applogger.Logger,
) *usecase.WatchlistUseCase {
	return usecase.NewWatchlistUseCase(store, validator, portfolio, log)
}

// ProvideSignalStore opens the configured history backend and creates its schema.
func ProvideSignalStore(cfg *config.Config, log *applogger.Logger) (domrepo.SignalStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), chSchemaTimeout)
	defer cancel()

	var (
		store   domrepo.SignalStore
		cleanup = func() {}
	)
	switch cfg.History.Backend {
	case "sqlite":
		s, err := internalrepo.NewSQLiteSignalStore(cfg.History.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, cleanup = s, func() { _ = s.Close() }
	case "clickhouse":
		ch := cfg.ClickHouse
		client, err := pkgch.NewClient(ctx,
			pkgch.WithAddress(ch.Host, ch.Port),
			pkgch.WithDatabase(ch.Database),
			pkgch.WithCredentials(ch.User, ch.Password),
			pkgch.WithHTTP(ch.UseHTTP),
			pkgch.WithAsyncInsert(ch.AsyncInsert),
			pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
			pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		if err := client.InitSchema(ctx, []string{"CREATE DATABASE IF NOT EXISTS " + ch.Database}); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		store, cleanup = internalrepo.NewCHSignalStore(client, log), func() { _ = client.Close() }
	default:
		store = internalrepo.NoopSignalStore{}
	}

	if err := store.Init(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("signal store init: %w", err)
	}
	log.Info("signal history ready", applogger.String("backend", cfg.History.Backend))
	return store, cleanup, nil
}

func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.EventPublisher {
	if producer == nil {
		return internalrepo.NoopPublisher{}
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.SignalTopic)
}

func ProvideEventPipeline(cfg *config.Config, pub domrepo.EventPublisher, m domrepo.Metrics, log *applogger.Logger) *mid.EventPipeline {
	p := cfg.Pipeline
	return mid.NewEventPipeline(pub, m,
		mid.WithBufferSize(p.BufferSize),
		mid.WithMaxRPS(p.MaxRPS),
		mid.WithRetry(p.RetryMax, p.BackoffMin, p.BackoffMax),
		mid.WithPipelineLogger(log),
	)
}

// ProvideHub returns nil when websockets are disabled.
func ProvideHub(cfg *config.Config, log *applogger.Logger) *ws.Hub {
	if !cfg.WebSocket.Enabled {
		return nil
	}
	return ws.NewHub(log, ws.WithSendBuffer(cfg.WebSocket.SendBuffer), ws.WithWriteTimeout(cfg.WebSocket.WriteTimeout))
}

// ProvideBroadcaster keeps a disabled hub out of the interface as a typed nil.
func ProvideBroadcaster(hub *ws.Hub) domrepo.Broadcaster {
	if hub == nil {
		return nil
	}
	return hub
}

// ProvideAnalysisParams maps the analysis config onto indicator windows and
// strategy thresholds.
func ProvideAnalysisParams(cfg *config.Config) usecase.AnalysisParams {
	a := cfg.Analysis
	return usecase.AnalysisParams{
		Indicators: indicators.Params{
			SMAWindows:      []int{a.SMAShort, a.SMALong},
			EMAWindows:      []int{a.EMAWindow},
			RSIWindow:       a.RSIWindow,
			MACDFast:        a.MACDFast,
			MACDSlow:        a.MACDSlow,
			MACDSignal:      a.MACDSignal,
			BollingerWindow: a.BollingerWindow,
			BollingerK:      a.BollingerK,
			StochK:          a.StochK,
			StochD:          a.StochD,
		},
		Signals: signals.Params{
			SMAShort:        a.SMAShort,
			SMALong:         a.SMALong,
			RSIOversold:     a.RSIOversold,
			RSIOverbought:   a.RSIOverbought,
			StochOversold:   a.StochOversold,
			StochOverbought: a.StochOverbought,
		},
	}
}

func ProvideAnalysis(
	prices *marketdata.CachedProvider,
	store domrepo.SignalStore,
	pipeline *mid.EventPipeline,
	hub domrepo.Broadcaster,
	m domrepo.Metrics,
	params usecase.AnalysisParams,
	log *applogger.Logger,
) *usecase.AnalysisUseCase {
	return usecase.NewAnalysisUseCase(prices, store, pipeline, hub, m, params, log)
}

// ProvideRefresher returns nil when the scheduler is disabled.
func ProvideRefresher(cfg *config.Config, store domrepo.WatchlistStore, analysis *usecase.AnalysisUseCase, log *applogger.Logger) (*usecase.Refresher, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}
	return usecase.NewRefresher(cfg.Scheduler.RefreshCron, cfg.Scheduler.Timezone, store, analysis, log)
}

func ProvideHTTPServer(
	cfg *config.Config,
	log *applogger.Logger,
	analysis *usecase.AnalysisUseCase,
	watchlist *usecase.WatchlistUseCase,
	portfolio *usecase.PortfolioUseCase,
	hub *ws.Hub,
) *xhttp.Server {
	handlers := []xhttp.Handler{
		api.NewHealthHandler(),
		api.NewAnalysisHandler(log, analysis),
		api.NewWatchlistHandler(log, watchlist),
		api.NewPortfolioHandler(log, portfolio),
	}
	if hub != nil {
		handlers = append(handlers, hub)
	}
	s := cfg.Server
	return xhttp.NewServer(log, handlers,
		xhttp.WithHost(s.Host),
		xhttp.WithPort(s.Port),
		xhttp.WithTimeouts(s.ReadTimeout, s.WriteTimeout, s.ShutdownTimeout),
		xhttp.WithCORS(s.AllowOrigins...),
		xhttp.WithMetrics(cfg.Metrics.Enabled),
	)
}

func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	refresher *usecase.Refresher,
	pipeline *mid.EventPipeline,
	hub *ws.Hub,
) *server.App {
	return server.New(cfg, log, httpServer, refresher, pipeline, hub)
}
