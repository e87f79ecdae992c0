package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"TradeDash/internal/domain/models"
	domrepo "TradeDash/internal/domain/repository"
	"TradeDash/pkg/cache"
	"TradeDash/pkg/logger"
	"TradeDash/pkg/util"

	"github.com/shopspring/decimal"
)

const (
	positionsKey    = "positions"
	tradeHistoryKey = "trade_history"
	// the transactions endpoint rejects ranges longer than a year
	maxHistoryDays = 365
	longTermDays   = 365
	asOfLayout     = "2006-01-02 15:04:05"
)

// TradeHistoryQuery narrows a trade history request. Empty fields mean
// "one year back", "today" and "all accounts".
type TradeHistoryQuery struct {
	StartDate string
	EndDate   string
	AccountID string
}

// PortfolioUseCase serves positions and trade history from the broker,
// backed by file caches under the broker cache directory.
type PortfolioUseCase struct {
	broker    domrepo.Brokerage
	positions cache.Service
	history   cache.Service
	log       *logger.Logger
	now       func() time.Time
}

// NewPortfolioUseCase takes a short-lived cache for positions and a
// non-expiring one for the accumulated trade history.
func NewPortfolioUseCase(broker domrepo.Brokerage, positions, history cache.Service, log *logger.Logger) *PortfolioUseCase {
	return &PortfolioUseCase{
		broker:    broker,
		positions: positions,
		history:   history,
		log:       log.Named("portfolio"),
		now:       time.Now,
	}
}

// Positions returns holdings across every account. A failing account is
// skipped; an unconfigured broker yields an empty list.
func (uc *PortfolioUseCase) Positions(ctx context.Context) ([]models.Position, error) {
	var cached []models.Position
	err := uc.positions.Get(ctx, positionsKey, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		uc.log.Warn("positions cache read failed", logger.Error(err))
	}

	if !uc.broker.Configured() {
		return []models.Position{}, nil
	}
	accounts, err := uc.broker.AccountIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	asOf := uc.now().Format(asOfLayout)
	out := []models.Position{}
	for _, id := range accounts {
		positions, err := uc.broker.Positions(ctx, id)
		if err != nil {
			uc.log.Warn("skipping account positions", logger.String("account", id), logger.Error(err))
			continue
		}
		for _, p := range positions {
			p.AsOfTimestamp = asOf
			out = append(out, p)
		}
	}

	if err := uc.positions.Set(ctx, positionsKey, out, 0); err != nil {
		uc.log.Warn("positions cache write failed", logger.Error(err))
	}
	return out, nil
}

// Summary totals market value and cost basis in decimal to keep cents exact.
func (uc *PortfolioUseCase) Summary(ctx context.Context) (models.PortfolioSummary, error) {
	positions, err := uc.Positions(ctx)
	if err != nil {
		return models.PortfolioSummary{}, err
	}

	value, cost := decimal.Zero, decimal.Zero
	for _, p := range positions {
		value = value.Add(decimal.NewFromFloat(p.MarketValue))
		cost = cost.Add(decimal.NewFromFloat(p.Quantity).Mul(decimal.NewFromFloat(p.AveragePrice)))
	}

	summary := models.PortfolioSummary{
		TotalMarketValue: value.Round(2).InexactFloat64(),
		TotalCostBasis:   cost.Round(2).InexactFloat64(),
		UnrealizedPnL:    value.Sub(cost).Round(2).InexactFloat64(),
		PositionCount:    len(positions),
	}
	if len(positions) > 0 {
		summary.AsOfTimestamp = positions[0].AsOfTimestamp
	}
	return summary, nil
}

// TradeHistory merges newly fetched trades into the cached history. Each
// account resumes the day after its latest cached trade.
func (uc *PortfolioUseCase) TradeHistory(ctx context.Context, q TradeHistoryQuery) ([]models.Transaction, error) {
	today := util.Day(uc.now())
	end := today
	if q.EndDate != "" {
		d, err := time.Parse(util.DateLayout, q.EndDate)
		if err != nil {
			return nil, fmt.Errorf("end_date: %w", err)
		}
		end = d
	}
	var start time.Time
	if q.StartDate != "" {
		d, err := time.Parse(util.DateLayout, q.StartDate)
		if err != nil {
			return nil, fmt.Errorf("start_date: %w", err)
		}
		start = d
	}

	var all []models.Transaction
	if err := uc.history.Get(ctx, tradeHistoryKey, &all); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		uc.log.Warn("trade history cache read failed", logger.Error(err))
	}
	if !uc.broker.Configured() {
		return forAccount(all, q.AccountID), nil
	}

	accounts, err := uc.broker.AccountIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if q.AccountID != "" {
		if indexOf(accounts, q.AccountID) < 0 {
			uc.log.Warn("unknown account requested", logger.String("account", q.AccountID))
			return forAccount(all, q.AccountID), nil
		}
		accounts = []string{q.AccountID}
	}

	var fetched []models.Transaction
	for _, id := range accounts {
		from := start
		if latest, ok := latestTradeDate(all, id); ok {
			from = latest.AddDate(0, 0, 1)
		} else if from.IsZero() {
			from = today.AddDate(0, 0, -maxHistoryDays)
		}
		if from.After(end) {
			continue
		}
		from, to := util.ClampRange(from, end, maxHistoryDays)

		txs, err := uc.broker.Transactions(ctx, id, from, to)
		if err != nil {
			uc.log.Warn("skipping account transactions", logger.String("account", id), logger.Error(err))
			continue
		}
		uc.log.Debug("fetched transactions",
			logger.String("account", id),
			logger.String("from", util.FormatDate(from)),
			logger.String("to", util.FormatDate(to)),
			logger.Int("count", len(txs)),
		)
		fetched = append(fetched, txs...)
	}

	all = mergeTransactions(all, fetched)
	if err := uc.history.Set(ctx, tradeHistoryKey, all, 0); err != nil {
		uc.log.Warn("trade history cache write failed", logger.Error(err))
	}
	return forAccount(all, q.AccountID), nil
}

type txKey struct {
	account, date, symbol string
	quantity              float64
}

// mergeTransactions appends unseen trades and orders by (trade_date, account_id).
func mergeTransactions(existing, fetched []models.Transaction) []models.Transaction {
	seen := make(map[txKey]struct{}, len(existing)+len(fetched))
	out := make([]models.Transaction, 0, len(existing)+len(fetched))
	for _, batch := range [][]models.Transaction{existing, fetched} {
		for _, t := range batch {
			k := txKey{t.AccountID, t.TradeDate, t.Symbol, t.Quantity}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TradeDate != out[j].TradeDate {
			return out[i].TradeDate < out[j].TradeDate
		}
		return out[i].AccountID < out[j].AccountID
	})
	return out
}

func latestTradeDate(txs []models.Transaction, account string) (time.Time, bool) {
	var latest time.Time
	for _, t := range txs {
		if t.AccountID != account {
			continue
		}
		if d, ok := util.ParseTradeDate(t.TradeDate); ok && d.After(latest) {
			latest = d
		}
	}
	return latest, !latest.IsZero()
}

func forAccount(txs []models.Transaction, account string) []models.Transaction {
	if account == "" {
		if txs == nil {
			return []models.Transaction{}
		}
		return txs
	}
	out := []models.Transaction{}
	for _, t := range txs {
		if t.AccountID == account {
			out = append(out, t)
		}
	}
	return out
}

// LongTermHoldings estimates units held for over a year. Buys older than a
// year add, any sell subtracts (floored at zero), and the result is capped
// at the quantity still held. This is not lot accounting.
func (uc *PortfolioUseCase) LongTermHoldings(ctx context.Context) ([]models.LongTermHolding, error) {
	txs, err := uc.TradeHistory(ctx, TradeHistoryQuery{})
	if err != nil {
		return nil, err
	}
	positions, err := uc.Positions(ctx)
	if err != nil {
		return nil, err
	}

	held := map[string]float64{}
	for _, p := range positions {
		held[p.Symbol] += p.Quantity
	}

	cutoff := util.Day(uc.now()).AddDate(0, 0, -longTermDays)
	longTerm := map[string]float64{}
	for _, t := range txs {
		if t.Type != "TRADE" || t.Symbol == "" {
			continue
		}
		d, ok := util.ParseTradeDate(t.TradeDate)
		if !ok {
			continue
		}
		qty := math.Abs(t.Quantity)
		switch {
		case t.IsBuy() && d.Before(cutoff):
			longTerm[t.Symbol] += qty
		case t.NetAmount > 0:
			longTerm[t.Symbol] = math.Max(0, longTerm[t.Symbol]-qty)
		}
	}

	out := []models.LongTermHolding{}
	for sym, qty := range longTerm {
		if qty <= 0 || held[sym] <= 0 {
			continue
		}
		out = append(out, models.LongTermHolding{
			Symbol:           sym,
			LongTermQuantity: math.Min(qty, held[sym]),
			HeldQuantity:     held[sym],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}
