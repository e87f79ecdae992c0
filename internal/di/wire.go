//go:build wireinject
// +build wireinject

package di

import (
	"TradeDash/pkg/config"
	"TradeDash/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// The cleanup releases infrastructure handles after App.Run returns.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Infrastructure
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideRateLimiter,
		ProvideHTTPClient,
		ProvideSharedCache,

		// Market data
		ProvidePriceChain,
		ProvideCSVStore,
		ProvideCachedProvider,
		ProvideSymbolValidator,

		// Brokerage and watchlist
		ProvideBrokerage,
		ProvidePortfolio,
		ProvideWatchlistStore,
		ProvideWatchlist,

		// Signal fan-out
		ProvideSignalStore,
		ProvideEventPublisher,
		ProvideEventPipeline,
		ProvideHub,
		ProvideBroadcaster,

		// Use cases
		ProvideAnalysisParams,
		ProvideAnalysis,
		ProvideRefresher,

		// Application server
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
