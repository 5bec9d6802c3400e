package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dvloznov/smart-finance/internal/api/handlers"
	"github.com/dvloznov/smart-finance/internal/app"
	"github.com/dvloznov/smart-finance/internal/config"
	"github.com/dvloznov/smart-finance/internal/jobs"
	"github.com/dvloznov/smart-finance/internal/jobs/inmemory"
	"github.com/dvloznov/smart-finance/internal/logger"
)

func main() {
	port := flag.Int("port", 0, "HTTP server port (overrides api.port)")
	flag.Parse()

	bootLog := logger.New()

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != 0 {
		cfg.API.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	a, ctx, err := app.New(context.Background(), cfg)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to start")
	}
	defer a.Close()
	log := a.Log

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	deps := handlers.Deps{
		Ledger:         a.Ledger,
		JobStore:       jobStore,
		HourlyWage:     cfg.AI.HourlyWage,
		MonthlyExpense: cfg.AI.MonthlyExpense,
		Log:            log,
	}
	if a.Gateway != nil {
		deps.AI = a.Gateway
		deps.Publisher = jobQueue

		log.Info().Msg("Starting import worker")
		if err := jobQueue.Start(workerCtx, jobs.NewParseImageHandler(a.Gateway)); err != nil {
			log.Fatal().Err(err).Msg("Failed to start import worker")
		}
	}

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.API.Port),
		Handler:      handlers.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // model calls are slow
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info().Int("port", cfg.API.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
