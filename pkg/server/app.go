package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	domrepo "PriceSignal/internal/domain/repository"
	"PriceSignal/internal/usecase"
	"PriceSignal/pkg/config"
	xhttp "PriceSignal/pkg/http"
	pkgkafka "PriceSignal/pkg/kafka"
	applogger "PriceSignal/pkg/logger"
	"PriceSignal/pkg/queue"
)

// Components are the long-running parts of the service. Optional parts are
// nil when disabled in config.
type Components struct {
	HTTP       *xhttp.Server
	Predictor  *usecase.Predictor
	Loop       *usecase.SignalLoop
	Consumer   *pkgkafka.Consumer
	Handlers   []pkgkafka.MessageHandler
	Queue      *queue.RedisQueue
	Jobs       []queue.Job
	Publishers []domrepo.SignalPublisher
	Closers    []io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	l   *applogger.Logger
	c   Components
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, l: l, c: c}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	a.l.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start loads the artifact and starts every configured component.
func (a *App) Start(ctx context.Context) error {
	if err := a.c.Predictor.Reload(ctx); err != nil {
		if !errors.Is(err, domrepo.ErrArtifactNotFound) {
			return err
		}
		// serve anyway; predictions answer 503 until a retrain lands
		a.l.Warn("no trained artifact yet", applogger.Error(err))
	}

	if a.c.Queue != nil {
		for _, j := range a.c.Jobs {
			a.c.Queue.RegisterJob(j)
		}
		if err := a.c.Queue.Start(); err != nil {
			return err
		}
		a.l.Info("job queue started", applogger.Int("jobs", len(a.c.Jobs)))
	}

	if a.c.Consumer != nil && len(a.c.Handlers) > 0 {
		a.c.Consumer.WithConsumerHook(pkgkafka.NoopHook{})
		for _, h := range a.c.Handlers {
			a.c.Consumer.RegisterHandler(h)
		}
		if err := a.c.Consumer.Start(); err != nil {
			return err
		}
		a.l.Info("kafka handlers registered", applogger.Int("handlers", len(a.c.Handlers)))
	}

	if a.c.Loop != nil {
		a.c.Loop.Start(ctx)
	}

	if err := a.c.HTTP.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	return nil
}

// Shutdown gracefully stops all services, inbound first.
func (a *App) Shutdown(ctx context.Context) error {
	a.l.Info("shutting down...")

	if err := a.c.HTTP.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	if a.c.Loop != nil {
		if err := a.c.Loop.Stop(ctx); err != nil {
			a.l.Warn("signal loop stop error", applogger.Error(err))
		}
	}
	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.c.Queue != nil {
		if err := a.c.Queue.Stop(ctx); err != nil {
			a.l.Warn("job queue stop error", applogger.Error(err))
		}
	}
	for _, p := range a.c.Publishers {
		if err := p.Close(); err != nil {
			a.l.Warn("publisher close error", applogger.Error(err))
		}
	}
	for _, c := range a.c.Closers {
		if err := c.Close(); err != nil {
			a.l.Warn("close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
