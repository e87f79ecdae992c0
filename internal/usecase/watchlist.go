package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"TradeDash/internal/domain/models"
	domrepo "TradeDash/internal/domain/repository"
	"TradeDash/pkg/logger"
	"TradeDash/pkg/util"
)

// ErrEmptySymbol is returned when a watchlist mutation carries no symbol.
var ErrEmptySymbol = errors.New("symbol is required")

// SymbolValidator decides whether a ticker has price data. Available is
// false when no provider key is configured.
type SymbolValidator interface {
	Available() bool
	Valid(ctx context.Context, symbol string) bool
}

// WatchlistUseCase edits the watchlist and builds the symbol dropdown.
type WatchlistUseCase struct {
	store     domrepo.WatchlistStore
	validator SymbolValidator
	positions domrepo.PositionSource
	log       *logger.Logger
	mu        sync.Mutex
}

// NewWatchlistUseCase accepts a nil positions source.
func NewWatchlistUseCase(store domrepo.WatchlistStore, validator SymbolValidator, positions domrepo.PositionSource, log *logger.Logger) *WatchlistUseCase {
	return &WatchlistUseCase{
		store:     store,
		validator: validator,
		positions: positions,
		log:       log.Named("watchlist"),
	}
}

func (uc *WatchlistUseCase) List(ctx context.Context) ([]string, error) {
	return uc.store.Load(ctx)
}

// Add appends symbol after validating it. Rejections are reported in the
// message, not as errors.
func (uc *WatchlistUseCase) Add(ctx context.Context, symbol string) (models.WatchlistResponse, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.WatchlistResponse{}, ErrEmptySymbol
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	symbols, err := uc.store.Load(ctx)
	if err != nil {
		return models.WatchlistResponse{}, err
	}
	resp := models.WatchlistResponse{Symbols: symbols}

	switch {
	case !uc.validator.Available():
		resp.Message = "API key not found. Cannot validate symbol."
	case !uc.validator.Valid(ctx, symbol):
		resp.Message = fmt.Sprintf("%s is not a valid stock symbol.", symbol)
	case indexOf(symbols, symbol) >= 0:
		resp.Message = fmt.Sprintf("%s is already in watchlist.", symbol)
	default:
		updated := append(append([]string{}, symbols...), symbol)
		if err := uc.store.Save(ctx, updated); err != nil {
			return models.WatchlistResponse{}, err
		}
		uc.log.Info("symbol added", logger.Symbol(symbol))
		resp.Symbols = updated
		resp.Message = fmt.Sprintf("%s added to watchlist.", symbol)
	}
	return resp, nil
}

func (uc *WatchlistUseCase) Remove(ctx context.Context, symbol string) (models.WatchlistResponse, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.WatchlistResponse{}, ErrEmptySymbol
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	symbols, err := uc.store.Load(ctx)
	if err != nil {
		return models.WatchlistResponse{}, err
	}

	i := indexOf(symbols, symbol)
	if i < 0 {
		return models.WatchlistResponse{
			Symbols: symbols,
			Message: fmt.Sprintf("%s not found in watchlist.", symbol),
		}, nil
	}
	updated := append(append([]string{}, symbols[:i]...), symbols[i+1:]...)
	if err := uc.store.Save(ctx, updated); err != nil {
		return models.WatchlistResponse{}, err
	}
	uc.log.Info("symbol removed", logger.Symbol(symbol))
	return models.WatchlistResponse{
		Symbols: updated,
		Message: fmt.Sprintf("%s removed from watchlist.", symbol),
	}, nil
}

// Symbols is the sorted union of the watchlist and held symbols. The first
// entry is the default selection.
func (uc *WatchlistUseCase) Symbols(ctx context.Context) (models.SymbolOptions, error) {
	watch, err := uc.store.Load(ctx)
	if err != nil {
		return models.SymbolOptions{}, err
	}
	set := make(map[string]struct{}, len(watch))
	for _, s := range watch {
		set[s] = struct{}{}
	}
	if uc.positions != nil {
		positions, err := uc.positions.Positions(ctx)
		if err != nil {
			uc.log.Warn("positions unavailable for symbol list", logger.Error(err))
		}
		for _, p := range positions {
			if p.Symbol != "" {
				set[p.Symbol] = struct{}{}
			}
		}
	}

	opts := models.SymbolOptions{Options: make([]string, 0, len(set))}
	for s := range set {
		opts.Options = append(opts.Options, s)
	}
	sort.Strings(opts.Options)
	if len(opts.Options) > 0 {
		opts.Default = opts.Options[0]
	}
	return opts, nil
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}
