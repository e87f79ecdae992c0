package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TradeDash/internal/handler/ws"
	"TradeDash/internal/middleware"
	"TradeDash/internal/usecase"
	"TradeDash/pkg/config"
	xhttp "TradeDash/pkg/http"
	applogger "TradeDash/pkg/logger"
)

// App encapsulates the application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	refresher  *usecase.Refresher // nil when the scheduler is disabled
	pipeline   *middleware.EventPipeline
	hub        *ws.Hub // nil when websockets are disabled
}

func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	refresher *usecase.Refresher,
	pipeline *middleware.EventPipeline,
	hub *ws.Hub,
) *App {
	return &App{
		cfg:        cfg,
		log:        log.Named("app"),
		httpServer: httpServer,
		refresher:  refresher,
		pipeline:   pipeline,
		hub:        hub,
	}
}

// Run starts every component and blocks until SIGINT or SIGTERM.
// Infrastructure handles are released by the injector's cleanup.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Components run on their own context so shutdown can drain them.
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.hub != nil {
		a.hub.Start(runCtx)
	}
	a.pipeline.Start(runCtx)
	if a.refresher != nil {
		a.refresher.Start()
	}
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		_ = a.shutdown()
		return err
	}
	a.log.Info("tradedash started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("history", a.cfg.History.Backend),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops components in reverse start order.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()

	var failed int
	step := func(name string, fn func(context.Context) error) {
		if err := fn(ctx); err != nil {
			failed++
			a.log.Warn(name+" stop error", applogger.Error(err))
		}
	}

	step("http server", a.httpServer.Stop)
	if a.refresher != nil {
		step("scheduler", a.refresher.Stop)
	}
	step("event pipeline", a.pipeline.Stop)
	if a.hub != nil {
		step("websocket hub", a.hub.Stop)
	}

	a.log.Info("shutdown complete", applogger.Int("errors", failed))
	if failed > 0 {
		return fmt.Errorf("shutdown finished with %d errors", failed)
	}
	return nil
}
