package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"TradeDash/internal/domain/models"
	domrepo "TradeDash/internal/domain/repository"
	"TradeDash/internal/services/indicators"
	"TradeDash/internal/services/signals"
	"TradeDash/pkg/logger"
	"TradeDash/pkg/util"
)

// BroadcastAnalysis is the websocket message kind for analysis summaries.
const BroadcastAnalysis = "analysis"

// PriceFetcher returns the cached-or-fetched price series for a symbol.
type PriceFetcher interface {
	Fetch(ctx context.Context, symbol string) (models.PriceSeries, error)
}

// EventSink accepts a signal event for asynchronous delivery. It reports
// false when the event was dropped.
type EventSink interface {
	Enqueue(event models.SignalEvent) bool
}

// AnalysisParams binds the indicator windows and strategy thresholds.
type AnalysisParams struct {
	Indicators indicators.Params
	Signals    signals.Params
}

// DefaultAnalysisParams uses the standard windows and thresholds.
func DefaultAnalysisParams() AnalysisParams {
	return AnalysisParams{Indicators: indicators.DefaultParams(), Signals: signals.DefaultParams()}
}

// AnalysisSummary is what live subscribers receive after each run.
type AnalysisSummary struct {
	Symbol string           `json:"symbol"`
	Source string           `json:"source,omitempty"`
	Latest *models.Snapshot `json:"latest"`
}

// AnalysisUseCase runs the indicator and signal pipeline for one symbol and
// fans the outcome out to history, the event pipeline and live clients.
type AnalysisUseCase struct {
	prices  PriceFetcher
	store   domrepo.SignalStore
	sink    EventSink
	hub     domrepo.Broadcaster
	metrics domrepo.Metrics
	params  AnalysisParams
	log     *logger.Logger
}

// NewAnalysisUseCase accepts nil store, sink and hub.
func NewAnalysisUseCase(
	prices PriceFetcher,
	store domrepo.SignalStore,
	sink EventSink,
	hub domrepo.Broadcaster,
	metrics domrepo.Metrics,
	params AnalysisParams,
	log *logger.Logger,
) *AnalysisUseCase {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	return &AnalysisUseCase{
		prices:  prices,
		store:   store,
		sink:    sink,
		hub:     hub,
		metrics: metrics,
		params:  params,
		log:     log.Named("analysis"),
	}
}

// Analyze returns the chart-ready analysis for symbol. A symbol without
// data yields an empty, neutral result rather than an error.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, symbol string) (*models.AnalysisResult, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	start := time.Now()
	defer func() { uc.metrics.RecordLatency("analyze", time.Since(start).Seconds()) }()

	series, err := uc.prices.Fetch(ctx, symbol)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		uc.log.Warn("no price data", logger.Symbol(symbol), logger.Error(err))
	}
	if series.Empty() {
		return models.EmptyAnalysis(symbol), nil
	}

	table, err := indicators.Apply(indicators.NewTable(series.Bars), uc.params.Indicators)
	if err != nil {
		return nil, fmt.Errorf("indicators for %s: %w", symbol, err)
	}
	if table, err = signals.Apply(table, uc.params.Signals); err != nil {
		return nil, fmt.Errorf("signals for %s: %w", symbol, err)
	}

	result, err := buildResult(symbol, series.Source, table)
	if err != nil {
		return nil, err
	}
	uc.metrics.RecordLastClose(symbol, float64(result.Latest.Close))

	events, err := strongEvents(symbol, table)
	if err != nil {
		return nil, err
	}
	uc.record(ctx, symbol, events)
	if len(events) > 0 {
		last := events[len(events)-1]
		if dates := table.Dates(); last.Date.Equal(dates[len(dates)-1]) {
			uc.emit(last)
		}
	}
	if uc.hub != nil {
		uc.hub.Broadcast(BroadcastAnalysis, AnalysisSummary{Symbol: symbol, Source: series.Source, Latest: result.Latest})
	}
	return result, nil
}

// History returns the most recent recorded signals for symbol.
func (uc *AnalysisUseCase) History(ctx context.Context, symbol string, limit int) ([]models.SignalEvent, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if uc.store == nil {
		return []models.SignalEvent{}, nil
	}
	return uc.store.Recent(ctx, symbol, limit)
}

func (uc *AnalysisUseCase) record(ctx context.Context, symbol string, events []models.SignalEvent) {
	if uc.store == nil || len(events) == 0 {
		return
	}
	if err := uc.store.Save(ctx, events); err != nil {
		uc.metrics.RecordError("signal_store")
		uc.log.Warn("signal history write failed", logger.Symbol(symbol), logger.Error(err))
	}
}

func (uc *AnalysisUseCase) emit(ev models.SignalEvent) {
	uc.metrics.RecordSignal(ev.Signal)
	uc.log.Info("consensus signal on latest bar",
		logger.Symbol(ev.Symbol),
		logger.String("signal", ev.Signal),
		logger.Float64("close", ev.Close),
	)
	if uc.sink != nil && !uc.sink.Enqueue(ev) {
		uc.log.Warn("signal event dropped", logger.Symbol(ev.Symbol), logger.String("signal", ev.Signal))
	}
}

// strongEvents lists every strong consensus row in date order.
func strongEvents(symbol string, t indicators.Table) ([]models.SignalEvent, error) {
	closes, err := t.Float(indicators.ColClose)
	if err != nil {
		return nil, err
	}
	strongBuy, err := t.Bool(signals.ColStrongBuy)
	if err != nil {
		return nil, err
	}
	strongSell, err := t.Bool(signals.ColStrongSell)
	if err != nil {
		return nil, err
	}
	buys, err := t.Float(signals.ColBuyCount)
	if err != nil {
		return nil, err
	}
	sells, err := t.Float(signals.ColSellCount)
	if err != nil {
		return nil, err
	}

	var out []models.SignalEvent
	for i, d := range t.Dates() {
		var sig string
		switch {
		case strongBuy[i]:
			sig = models.SignalStrongBuy
		case strongSell[i]:
			sig = models.SignalStrongSell
		default:
			continue
		}
		out = append(out, models.NewSignalEvent(symbol, d, sig, closes[i], int(buys[i]), int(sells[i])))
	}
	return out, nil
}

// buildResult flattens the enriched table for the chart: numeric columns
// with NaN as null, boolean columns as-is, a marker per active signal and a
// snapshot of the last bar.
func buildResult(symbol, source string, t indicators.Table) (*models.AnalysisResult, error) {
	dates := t.Dates()
	res := &models.AnalysisResult{
		Symbol:  symbol,
		Source:  source,
		Dates:   make([]string, len(dates)),
		Columns: map[string][]models.NullFloat{},
		Signals: map[string][]bool{},
		Markers: []models.SignalMarker{},
	}
	for i, d := range dates {
		res.Dates[i] = util.FormatDate(d)
	}

	closes, err := t.Float(indicators.ColClose)
	if err != nil {
		return nil, err
	}
	for _, name := range t.Names() {
		if t.IsBool(name) {
			vals, err := t.Bool(name)
			if err != nil {
				return nil, err
			}
			res.Signals[name] = vals
			continue
		}
		vals, err := t.Float(name)
		if err != nil {
			return nil, err
		}
		res.Columns[name] = models.NullFloats(vals)
	}

	for _, name := range t.Names() {
		vals, ok := res.Signals[name]
		if !ok {
			continue
		}
		side := markerSide(name)
		for i, on := range vals {
			if on {
				res.Markers = append(res.Markers, models.SignalMarker{
					Date:   res.Dates[i],
					Column: name,
					Side:   side,
					Price:  models.NullFloat(closes[i]),
				})
			}
		}
	}
	sort.SliceStable(res.Markers, func(i, j int) bool { return res.Markers[i].Date < res.Markers[j].Date })

	if n := len(dates); n > 0 {
		res.Latest = snapshot(res, n-1)
	}
	return res, nil
}

func markerSide(column string) string {
	if strings.HasSuffix(column, "sell_signal") {
		return "sell"
	}
	return "buy"
}

func snapshot(res *models.AnalysisResult, i int) *models.Snapshot {
	s := &models.Snapshot{
		Date:      res.Dates[i],
		Close:     res.Columns[indicators.ColClose][i],
		Values:    make(map[string]models.NullFloat, len(res.Columns)),
		Active:    []string{},
		Consensus: "neutral",
	}
	for name, vals := range res.Columns {
		s.Values[name] = vals[i]
	}
	for name, vals := range res.Signals {
		if vals[i] {
			s.Active = append(s.Active, name)
		}
	}
	sort.Strings(s.Active)
	s.BuyCount = count(res.Columns[signals.ColBuyCount], i)
	s.SellCount = count(res.Columns[signals.ColSellCount], i)

	switch {
	case res.Signals[signals.ColStrongBuy][i]:
		s.Consensus = models.SignalStrongBuy
	case res.Signals[signals.ColStrongSell][i]:
		s.Consensus = models.SignalStrongSell
	}
	return s
}

func count(col []models.NullFloat, i int) int {
	if i >= len(col) || math.IsNaN(float64(col[i])) {
		return 0
	}
	return int(col[i])
}
