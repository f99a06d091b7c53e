package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedback-translator/internal/bootstrap"
	"feedback-translator/internal/shared/config"
	"feedback-translator/internal/shared/server"
	"feedback-translator/internal/shared/telemetry"
	"feedback-translator/internal/workerproc"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Without SQS the API binary consumes its own dispatch channel.
	var consumerDone chan struct{}
	if app.MemoryQueue != nil {
		consumerDone = make(chan struct{})
		go func() {
			defer close(consumerDone)
			runMemoryConsumer(ctx, app)
		}()
	}
	go runStaleReaper(ctx, app)

	addr := server.Addr(cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	go func() {
		log.Printf("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if consumerDone != nil {
		select {
		case <-consumerDone:
		case <-shutdownCtx.Done():
			log.Printf("shutdown timeout reached; exiting with in-flight jobs")
		}
	}
	if app.DB != nil {
		app.DB.Close()
	}
}

func runMemoryConsumer(ctx context.Context, app *bootstrap.App) {
	log.Printf("in-process queue consumer started")
	for {
		msg, err := app.MemoryQueue.Receive(ctx)
		if err != nil {
			return
		}
		if err := workerproc.Handle(ctx, app.AnalysesService, msg); err != nil {
			telemetry.Error("worker.analysis.failed", map[string]any{
				"analysis_id": msg.AnalysisID,
				"request_id":  msg.RequestID,
				"error":       err.Error(),
			})
		}
	}
}

func runStaleReaper(ctx context.Context, app *bootstrap.App) {
	interval := app.Config.StaleJobTimeout
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.AnalysesService.FailStale(ctx, app.Config.StaleJobTimeout); err != nil {
				telemetry.Error("worker.stale_reap_failed", map[string]any{"error": err.Error()})
			}
		}
	}
}
