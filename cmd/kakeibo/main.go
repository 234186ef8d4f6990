package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"kakeibo/internal/amqp"
	"kakeibo/internal/backend"
	"kakeibo/internal/config"
	apphttp "kakeibo/internal/http"
	"kakeibo/internal/importer"
	"kakeibo/internal/ledger"
	applog "kakeibo/internal/log"
	"kakeibo/internal/services"
	"kakeibo/internal/summary"
	"kakeibo/internal/taxonomy"
	"kakeibo/internal/vision"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, err := backend.Open(cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer kv.Close()

	store, err := ledger.Open(ctx, kv)
	if err != nil {
		logger.Error("Failed to load ledger", "error", err)
		os.Exit(1)
	}
	logger.Info("Ledger loaded", "transactions", store.Len())

	categories, err := taxonomy.Load()
	if err != nil {
		logger.Error("Failed to load category taxonomy", "error", err)
		os.Exit(1)
	}

	// Model-backed collaborators are optional. Without credentials the
	// import and summary endpoints degrade with explicit errors while
	// manual entry keeps working.
	var (
		extractor vision.Extractor = vision.Disabled{}
		reports   *summary.Service
	)
	if cfg.GeminiAPIKey != "" {
		g, err := vision.NewGemini(ctx, cfg.GeminiModel, categories.Seed())
		if err != nil {
			logger.Error("Failed to initialize extraction model", "error", err)
			os.Exit(1)
		}
		extractor = g

		sg, err := summary.NewGemini(ctx, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize summary model", "error", err)
			os.Exit(1)
		}
		reports = summary.NewService(sg)
		logger.Info("Model-backed endpoints enabled", "model", cfg.GeminiModel)
	} else {
		logger.Info("No GEMINI_API_KEY provided, import and summary endpoints disabled")
	}

	// Publishing is optional too: without a broker the mirror simply does
	// not receive change events.
	var publisher *amqp.Client
	if cfg.AMQPURL != "" {
		publisher, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			publisher = nil
		} else {
			defer publisher.Close()
			logger.Info("AMQP publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewTransactionService(store, publisher, importer.NewManager(extractor, store))

	srv := apphttp.NewServer(apphttp.Options{
		Addr:          ":" + cfg.Port,
		Service:       svc,
		Store:         store,
		Reports:       reports,
		Categories:    categories,
		MonthlyBudget: cfg.MonthlyBudget,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting kakeibo server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-gctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
