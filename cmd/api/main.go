package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"trackersms/internal/awsutil"
	"trackersms/internal/config"
	"trackersms/internal/dispatch"
	"trackersms/internal/httpserver"
	"trackersms/internal/logging"
	"trackersms/internal/observability"
	sqsqueue "trackersms/internal/queue/sqs"
	"trackersms/internal/ratelimit"
	"trackersms/internal/service"
	"trackersms/internal/store/legacy"
	"trackersms/internal/store/pg"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init("api", "json", "info")
		slog.Error("api config invalid", "err", err)
		os.Exit(1)
	}
	logging.Init("api", cfg.LogFormat, cfg.LogLevel)
	started := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pg.NewPool(ctx, cfg.DBDSN, pg.PoolOptions{
		MaxConns:          cfg.DBMaxConns,
		MinConns:          cfg.DBMinConns,
		MaxConnLifetime:   cfg.DBMaxConnLifetime,
		MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
		HealthCheckPeriod: cfg.DBHealthCheckPeriod,
		PingTimeout:       3 * time.Second,
	})
	if err != nil {
		slog.Error("api db connect failed", "err", err)
		os.Exit(1)
	}

	store := pg.New(db)
	schemaCtx, schemaCancel := context.WithTimeout(ctx, 30*time.Second)
	err = store.EnsureSchema(schemaCtx, cfg.SeedDemoData)
	schemaCancel()
	if err != nil {
		slog.Error("api schema bootstrap failed", "err", err)
		db.Close()
		os.Exit(1)
	}

	gormDB, sqlDB, err := legacy.OpenOnPool(db)
	if err != nil {
		slog.Error("api legacy store init failed", "err", err)
		db.Close()
		os.Exit(1)
	}

	observability.Register(prometheus.DefaultRegisterer)

	var events service.EventPublisher
	if cfg.SQSQueueURL != "" {
		sqsClient, err := awsutil.NewSQSClient(ctx, cfg.AWSRegion, cfg.LocalstackEndpoint)
		if err != nil {
			slog.Error("api sqs client init failed", "err", err)
			db.Close()
			os.Exit(1)
		}
		events = &sqsqueue.Producer{SQS: sqsClient, QueueURL: cfg.SQSQueueURL, FIFO: cfg.SQSFifo}
		slog.Info("history events enabled", "queue_url", cfg.SQSQueueURL, "fifo", cfg.SQSFifo)
	}

	guard := &dispatch.Guard{
		Next:    dispatch.NewMock(cfg.DispatchSuccessRate, cfg.DispatchLatency),
		Breaker: dispatch.NewBreaker("dispatch", cfg.BreakerFailures, cfg.BreakerOpenTimeout),
	}
	if cfg.DispatchRPS > 0 {
		guard.Limiter = rate.NewLimiter(rate.Limit(cfg.DispatchRPS), cfg.DispatchBurst)
	}

	api := &httpserver.API{
		Registry: &service.Registry{Store: store},
		Messaging: &service.Messaging{
			Store:         store,
			Dispatcher:    guard,
			Events:        events,
			MaxRecipients: cfg.MaxRecipients,
		},
		Reports:     &service.Reports{Store: store},
		Legacy:      legacy.New(gormDB),
		Development: cfg.Development(),
	}

	s := httpserver.New()
	api.Register(s.Mux)
	s.Mux.HandleFunc("/health", httpserver.Health(2*time.Second, started, store.Ping)).Methods(http.MethodGet)
	s.Mux.HandleFunc("/healthz", httpserver.Healthz()).Methods(http.MethodGet)

	limiter := ratelimit.NewKeyed(cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitMaxKeys)
	go limiter.Run(ctx, cfg.RateLimitSweep)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: s.Handler(httpserver.Options{
			APIKey:      cfg.APIKey,
			CORSOrigins: cfg.CORSAllowedOrigins,
			Limiter:     limiter,
			Requests:    observability.APIRequests,
			Development: cfg.Development(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api listening", "port", cfg.Port, "env", cfg.Env)
		errCh <- srv.ListenAndServe()
	}()

	exitCode := 0
	select {
	case sig := <-sigCh:
		slog.Info("api shutdown", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api server failed", "err", err)
			exitCode = 1
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("api graceful shutdown timed out, closing connections", "err", err)
		_ = srv.Close()
		exitCode = 1
	}
	shutdownCancel()

	_ = sqlDB.Close()
	db.Close()
	os.Exit(exitCode)
}
