package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FinSim/internal/usecase"
	pkgch "FinSim/pkg/clickhouse"
	"FinSim/pkg/config"
	xhttp "FinSim/pkg/http"
	pkgkafka "FinSim/pkg/kafka"
	applogger "FinSim/pkg/logger"

	"github.com/labstack/echo/v4"
)

// handlerGroup registers several route handlers as one.
type handlerGroup []xhttp.Handler

func (g handlerGroup) RegisterRoutes(e *echo.Echo) {
	for _, h := range g {
		h.RegisterRoutes(e)
	}
}

// App encapsulates the entire application lifecycle: HTTP API, kafka jobs
// consumer and infrastructure clients.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	consumer   *pkgkafka.Consumer
	jobsKH     pkgkafka.MessageHandler
	chClient   *pkgch.Client
	httpServer *xhttp.Server
	handlers   handlerGroup
	closers    []io.Closer
	registry   *usecase.SignalerRegistry
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	consumer *pkgkafka.Consumer,
	jobsKH pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	handlers ...xhttp.Handler,
) *App {
	l, _ := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	return &App{
		cfg:      cfg,
		l:        l,
		consumer: consumer,
		jobsKH:   jobsKH,
		chClient: chClient,
		handlers: handlerGroup(handlers),
	}
}

// AddHandler registers an extra route handler before Run.
func (a *App) AddHandler(h xhttp.Handler) { a.handlers = append(a.handlers, h) }

// AddCloser registers a resource to close on shutdown.
func (a *App) AddCloser(c io.Closer) { a.closers = append(a.closers, c) }

// Logger exposes the app logger for wiring into components.
func (a *App) Logger() *applogger.Logger { return a.l }

// SetRegistry attaches the signal generator registry.
func (a *App) SetRegistry(r *usecase.SignalerRegistry) { a.registry = r }

// RegisterSignaler adds a signal generator to the registry so it can be
// referenced by name in backtest and optimization requests.
func (a *App) RegisterSignaler(s usecase.Signaler) {
	if a.registry != nil {
		a.registry.Register(s)
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
	}
	a.httpServer = xhttp.NewServer(a.handlers,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsEndpoint(metricsPath),
		xhttp.WithRequestMetrics(a.l, time.Second),
	)

	if a.consumer != nil && a.jobsKH != nil {
		a.consumer.RegisterHandler(a.jobsKH)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka consumer started", applogger.String("topic", a.jobsKH.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.l.Warn("resource close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
