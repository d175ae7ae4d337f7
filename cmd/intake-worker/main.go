// Command intake-worker runs the claim submission workflow on a Temporal task
// queue. It is only needed when the server runs with submission mode temporal.
package main

import (
	"flag"
	"fmt"
	"os"

	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-intake/internal/configuration"
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
		fmt.Fprintf(os.Stderr, "intake-worker: %v\n", err)
		os.Exit(2)
	}
	logger := cfg.Observability.NewLogger(os.Stderr)

	c, err := worker.Dial(cfg.Temporal, logger)
	if err != nil {
		logger.Error("temporal unavailable", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	backend := webhook.NewClient(webhook.ClientConfig{
		DefaultURL: cfg.Backend.CustomerSupportURL(),
		Timeout:    cfg.Backend.Timeout,
		RateLimit: webhook.RateLimitConfig{
			RequestsPerSecond: cfg.Backend.RequestsPerSecond,
			Burst:             cfg.Backend.Burst,
		},
		Logger: logger,
	})
	dispatcher := submission.NewDispatcher(backend, cfg.Backend.TicketURL, logger)

	w := sdkworker.New(c, cfg.Temporal.TaskQueue, sdkworker.Options{})
	worker.RegisterAll(w, dispatcher, events.NewLogSink(logger))

	logger.Info("worker started", "task_queue", cfg.Temporal.TaskQueue, "namespace", cfg.Temporal.Namespace)
	if err := w.Run(sdkworker.InterruptCh()); err != nil {
		logger.Error("worker stopped", "error", err)
		c.Close()
		os.Exit(1)
	}
}
