package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"OptionWatch/internal/handler/ws"
	mid "OptionWatch/internal/middleware"
	"OptionWatch/internal/usecase"
	pkgch "OptionWatch/pkg/clickhouse"
	"OptionWatch/pkg/config"
	xhttp "OptionWatch/pkg/http"
	pkgkafka "OptionWatch/pkg/kafka"
	applogger "OptionWatch/pkg/logger"
)

// App encapsulates the entire application lifecycle: the periodic scan loop,
// the HTTP/WS surface, the observation pipeline, and the optional Kafka
// consumer that persists observations.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	scanner     *usecase.Scanner
	pipeline    *mid.ObservationPipeline
	processor   *usecase.ObservationProcessor
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	hub         *ws.Hub
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	scanner *usecase.Scanner,
	pipeline *mid.ObservationPipeline,
	processor *usecase.ObservationProcessor,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	hub *ws.Hub,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		scanner:   scanner,
		pipeline:  pipeline,
		processor: processor,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
		hub:       hub,
	}
}

// SetHTTPHandler allows DI to inject the HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.pipeline != nil {
		a.pipeline.Start(ctx)
	}

	// Consumer persists observations when sink runs through Kafka.
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	go a.scanLoop(ctx)
	a.log.Info("scanner started",
		applogger.Strings("symbols", a.cfg.Scanner.Symbols),
		applogger.Duration("interval", a.scanInterval()))

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server listening", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) scanInterval() time.Duration {
	if a.cfg.Scanner.Interval > 0 {
		return a.cfg.Scanner.Interval
	}
	return time.Minute
}

// scanLoop runs one scan immediately, then one per interval. Each completed
// report is pushed to the stream clients.
func (a *App) scanLoop(ctx context.Context) {
	ticker := time.NewTicker(a.scanInterval())
	defer ticker.Stop()

	for {
		report, err := a.scanner.Scan(ctx)
		if err != nil {
			a.log.Error("scan failed", applogger.Error(err))
		} else if a.hub != nil {
			a.hub.Broadcast(report)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.hub != nil {
		a.hub.Close()
	}

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.pipeline != nil {
		a.pipeline.Stop()
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.processor != nil {
		a.processor.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
