// Command intake-server serves the claim and CV intake API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ahrav/go-intake/internal/api"
	"github.com/ahrav/go-intake/internal/configuration"
	"github.com/ahrav/go-intake/internal/cv"
	"github.com/ahrav/go-intake/internal/domain"
	"github.com/ahrav/go-intake/internal/intake"
	"github.com/ahrav/go-intake/internal/metrics"
	"github.com/ahrav/go-intake/internal/session"
	"github.com/ahrav/go-intake/internal/submission"
	"github.com/ahrav/go-intake/internal/webhook"
	"github.com/ahrav/go-intake/internal/worker"
	"github.com/ahrav/go-intake/pkg/events"
)

func main() {
	configPath := flag.String("config", os.Getenv("INTAKE_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := configuration.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "intake-server: %v\n", err)
		os.Exit(2)
	}
	logger := cfg.Observability.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("intake-server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *configuration.Config, logger *slog.Logger) error {
	var (
		m        *metrics.Metrics
		recorder webhook.Recorder
		metricsH http.Handler
	)
	if cfg.Observability.MetricsEnabled {
		m = metrics.New()
		recorder = m
		metricsH = m.Handler()
	}

	rateLimit := webhook.RateLimitConfig{
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Burst:             cfg.Backend.Burst,
	}
	backend := webhook.NewClient(webhook.ClientConfig{
		DefaultURL: cfg.Backend.CustomerSupportURL(),
		Timeout:    cfg.Backend.Timeout,
		RateLimit:  rateLimit,
		Logger:     logger,
		Metrics:    recorder,
	})

	store, closeStore, err := openStore(ctx, cfg.Session, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	submitter, closeSubmitter, err := openSubmitter(cfg, backend, logger)
	if err != nil {
		return err
	}
	defer closeSubmitter()

	sink := events.NewLogSink(logger)
	factory := func(s domain.Session) *intake.Wizard {
		deps := intake.Deps{
			Backend:   backend,
			Submitter: submitter,
			Store:     store,
			Events:    sink,
			Logger:    logger,
		}
		if m != nil {
			deps.Metrics = m
		}
		return intake.NewWizard(s, intake.Config{ResetDelay: cfg.Intake.ResetDelay}, deps)
	}

	var gauge api.SessionGauge
	deps := api.Deps{Metrics: metricsH, Logger: logger}
	if m != nil {
		gauge = m
		deps.Recorder = m
	}
	registry := api.NewRegistry(store, factory, gauge, api.WithIdleTimeout(cfg.Session.IdleTimeout))
	deps.Registry = registry
	go registry.Run(ctx, cfg.Session.SweepInterval)
	if cvURL := cfg.Backend.CVURL(); cvURL != "" {
		deps.Evaluator = cv.NewEvaluator(backend, cvURL, logger)
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.NewServer(api.Config{
			RequestsPerMinute: cfg.Server.RequestsPerMinute,
			MaxUploadBytes:    cfg.Server.MaxUploadBytes,
		}, deps).Routes(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "submission_mode", cfg.Submission.Mode, "session_store", cfg.Session.Store)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg configuration.SessionConfig, logger *slog.Logger) (session.Store, func(), error) {
	if cfg.Store != configuration.StoreRedis {
		return session.NewMemoryStore(cfg.TTL), func() {}, nil
	}
	rs, err := session.NewRedisStore(ctx, session.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, cfg.TTL, logger)
	if err != nil {
		return nil, nil, err
	}
	return rs, func() { _ = rs.Close() }, nil
}

func openSubmitter(cfg *configuration.Config, backend webhook.Handler, logger *slog.Logger) (submission.Submitter, func(), error) {
	if cfg.Submission.Mode != configuration.SubmitTemporal {
		return submission.NewDispatcher(backend, cfg.Backend.TicketURL, logger), func() {}, nil
	}
	c, err := worker.Dial(cfg.Temporal, logger)
	if err != nil {
		return nil, nil, err
	}
	return worker.NewTemporalSubmitter(c, cfg.Temporal), c.Close, nil
}
