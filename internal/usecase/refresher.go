package usecase

import (
	"context"
	"fmt"
	"time"

	"TradeDash/internal/domain/models"
	domrepo "TradeDash/internal/domain/repository"
	"TradeDash/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Analyzer runs the analysis pipeline for one symbol.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*models.AnalysisResult, error)
}

// Refresher re-analyzes the watchlist on a cron schedule so signal history
// and live clients stay current without a browser open.
type Refresher struct {
	cron      *cron.Cron
	watchlist domrepo.WatchlistStore
	analyzer  Analyzer
	perSymbol time.Duration
	log       *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRefresher parses spec (with seconds) in the given IANA timezone.
func NewRefresher(spec, timezone string, watchlist domrepo.WatchlistStore, analyzer Analyzer, log *logger.Logger) (*Refresher, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone %q: %w", timezone, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Refresher{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		watchlist: watchlist,
		analyzer:  analyzer,
		perSymbol: 2 * time.Minute,
		log:       log.Named("refresher"),
		ctx:       ctx,
		cancel:    cancel,
	}
	if _, err := r.cron.AddFunc(spec, r.scheduled); err != nil {
		cancel()
		return nil, fmt.Errorf("register refresh job %q: %w", spec, err)
	}
	return r, nil
}

func (r *Refresher) Start() {
	r.cron.Start()
	r.log.Info("scheduler started", logger.Int("jobs", len(r.cron.Entries())))
}

// Stop cancels a running refresh and waits for it to return.
func (r *Refresher) Stop(ctx context.Context) error {
	r.cancel()
	done := r.cron.Stop()
	select {
	case <-done.Done():
		r.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Refresher) scheduled() {
	ok, failed := r.RunOnce(r.ctx)
	r.log.Info("watchlist refresh finished", logger.Int("ok", ok), logger.Int("failed", failed))
}

// RunOnce analyzes every watchlist symbol. A failing symbol is logged and
// does not stop the run.
func (r *Refresher) RunOnce(ctx context.Context) (ok, failed int) {
	symbols, err := r.watchlist.Load(ctx)
	if err != nil {
		r.log.Error("load watchlist", logger.Error(err))
		return 0, 0
	}
	for _, sym := range symbols {
		if ctx.Err() != nil {
			break
		}
		sctx, cancel := context.WithTimeout(ctx, r.perSymbol)
		_, err := r.analyzer.Analyze(sctx, sym)
		cancel()
		if err != nil {
			failed++
			r.log.Warn("refresh failed", logger.Symbol(sym), logger.Error(err))
			continue
		}
		ok++
	}
	return ok, failed
}
