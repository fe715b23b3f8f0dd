package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "TradeWatch/internal/domain/repository"
	"TradeWatch/internal/usecase"
	"TradeWatch/pkg/config"
	xhttp "TradeWatch/pkg/http"
	applogger "TradeWatch/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	store      domrepo.GraphStore
	publisher  domrepo.AlertPublisher
	monitor    *usecase.Monitor
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. The monitor and
// publisher may be nil when continuous monitoring is disabled.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	store domrepo.GraphStore,
	publisher domrepo.AlertPublisher,
	monitor *usecase.Monitor,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		publisher: publisher,
		monitor:   monitor,
		httpServer: xhttp.NewServer(handler,
			xhttp.WithPort(cfg.Server.Port),
			xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		),
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.monitor != nil {
		go a.monitor.Run(ctx)
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops the HTTP server and closes infrastructure clients.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("alert publisher close error", applogger.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("graph store close error", applogger.Error(err))
	}

	a.logger.Info("shutdown complete")
	return nil
}
