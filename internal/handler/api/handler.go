// Package api exposes the dashboard use cases over Echo.
package api

import (
	"context"
	"errors"
	"time"

	"TradeDash/internal/domain/models"
	"TradeDash/internal/service/metrics"
	"TradeDash/internal/usecase"
	xhttp "TradeDash/pkg/http"
	xlogger "TradeDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*models.AnalysisResult, error)
	History(ctx context.Context, symbol string, limit int) ([]models.SignalEvent, error)
}

type Watchlist interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, symbol string) (models.WatchlistResponse, error)
	Remove(ctx context.Context, symbol string) (models.WatchlistResponse, error)
	Symbols(ctx context.Context) (models.SymbolOptions, error)
}

type Portfolio interface {
	Positions(ctx context.Context) ([]models.Position, error)
	Summary(ctx context.Context) (models.PortfolioSummary, error)
	TradeHistory(ctx context.Context, q usecase.TradeHistoryQuery) ([]models.Transaction, error)
	LongTermHoldings(ctx context.Context) ([]models.LongTermHolding, error)
}

// observe records latency for endpoint and counts responses of 400 and up.
func observe(c echo.Context, endpoint string, start time.Time) {
	metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if c.Response().Status >= 400 {
		metrics.EndpointErrors.WithLabelValues(endpoint).Inc()
	}
}

// failure maps use case errors onto the API error envelope.
func failure(c echo.Context, l *xlogger.Logger, endpoint string, err error) error {
	switch {
	case errors.Is(err, usecase.ErrEmptySymbol):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("symbol is required").WithError(err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("request cancelled").WithError(err))
	}
	l.Error(endpoint+" failed", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}
