package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hokuto/run-telemetry-go/internal/api"
	"github.com/hokuto/run-telemetry-go/internal/config"
	"github.com/hokuto/run-telemetry-go/internal/controller"
	"github.com/hokuto/run-telemetry-go/internal/database"
	"github.com/hokuto/run-telemetry-go/internal/handler"
	"github.com/hokuto/run-telemetry-go/internal/ledger"
	"github.com/hokuto/run-telemetry-go/internal/recorder"
	"github.com/hokuto/run-telemetry-go/internal/repository"
	"github.com/hokuto/run-telemetry-go/internal/stream"
	"github.com/hokuto/run-telemetry-go/internal/syncer"
)

func main() {
	cfg := config.Load()

	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close()

	db := database.GetDB()
	if err := database.NewMigrationManager(db, cfg.MigrationsPath).RunMigrations(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	hub := stream.NewHub()
	pending := repository.NewPendingSampleRepository(db, hub)

	remote := ledger.NewHTTPLedger(cfg.LedgerBaseURL, &http.Client{Timeout: cfg.LedgerTimeout})
	rec := recorder.NewTelemetryRecorder(pending, remote)
	sync := syncer.NewSynchronizer(pending, remote)

	sched := syncer.NewScheduler(sync, pending, remote, cfg.SyncInterval, cfg.RetentionAge, 30*time.Second)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go sched.Run(ctx)

	source := controller.NewPushSource()
	opts := controller.SamplingOptions{
		IntervalMs:            cfg.SampleIntervalMs,
		FastestIntervalMs:     cfg.SampleFastestIntervalMs,
		MinDisplacementMeters: cfg.SampleMinDisplacementM,
	}
	ctrl := controller.NewSamplingController(rec, sync, remote, pending, source, hub, opts, sched.Kick)

	tracking := handler.NewTrackingHandler(ctrl, source, sync, pending)
	streams := handler.NewStreamHandler(hub)
	router := api.SetupRouter(cfg, tracking, streams)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
