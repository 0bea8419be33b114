package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/eccentricexit/cipay-backend/pkg/app/http"
	"github.com/eccentricexit/cipay-backend/pkg/config"
	"github.com/eccentricexit/cipay-backend/pkg/engine"
	"github.com/eccentricexit/cipay-backend/pkg/ethereum"
	"github.com/eccentricexit/cipay-backend/pkg/paymentstore"
	"github.com/eccentricexit/cipay-backend/pkg/pgutil"
	"github.com/eccentricexit/cipay-backend/pkg/quote"
	"github.com/eccentricexit/cipay-backend/pkg/rates"
	"github.com/eccentricexit/cipay-backend/pkg/reconciler"
	"github.com/eccentricexit/cipay-backend/pkg/relay"
	"github.com/eccentricexit/cipay-backend/pkg/starkbank"
)

var configPath = flag.String("config", "config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting payment reconciliation server")

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	store := paymentstore.NewStore(db)

	table, err := rates.NewTable(cfg.Ethereum.Tokens)
	if err != nil {
		logger.Fatal("Failed to build rate table", zap.Error(err))
	}

	bank, err := starkbank.NewClient(cfg.Starkbank, logger)
	if err != nil {
		logger.Fatal("Failed to initialize banking provider client", zap.Error(err))
	}

	ethClient, err := ethereum.NewClient(&cfg.Ethereum, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Ethereum client", zap.Error(err))
	}
	defer ethClient.Close()

	resolver := quote.NewResolver(bank, cfg.Payments)
	relaySvc := relay.NewService(ethClient, resolver, store, table, cfg.Payments, logger)
	rec := reconciler.NewReconciler(store, logger)
	matcher := engine.NewMatcher(store, bank, cfg.Payments.Description, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One scanner per accepted token.
	engines := make([]*engine.Engine, 0, len(cfg.Ethereum.Tokens))
	for _, tc := range cfg.Ethereum.Tokens {
		eng := engine.NewEngine(
			common.HexToAddress(tc.Address),
			tc.Symbol,
			ethClient,
			matcher,
			store,
			cfg.Ethereum.PollPeriod,
			cfg.Ethereum.ScanWindow,
			logger,
		)
		engines = append(engines, eng)
		go func(eng *engine.Engine, symbol string) {
			if err := eng.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Scanner exited with error",
					zap.Error(err),
					zap.String("symbol", symbol))
			}
		}(eng, tc.Symbol)
	}

	// Register the provider webhook so payout status updates flow back in.
	var webhookID string
	if cfg.Starkbank.WebhookURL != "" {
		webhookID, err = bank.CreateWebhook(ctx, cfg.Starkbank.WebhookURL)
		if err != nil {
			logger.Fatal("Failed to create provider webhook", zap.Error(err))
		}
		logger.Info("Provider webhook registered",
			zap.String("webhook_id", webhookID),
			zap.String("url", cfg.Starkbank.WebhookURL))
	}

	router := setupRouter(cfg, relaySvc, rec, logger)

	if err := apphttp.ServeAndWait(ctx, router, logger, &cfg.Server); err != nil {
		logger.Error("HTTP server failed", zap.Error(err))
	}

	shutdown(engines, bank, webhookID, logger)
	logger.Info("Server stopped")
}

func setupRouter(cfg *config.Config, relaySvc *relay.Service, rec *reconciler.Reconciler, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		relay.RegisterRoutes(r, relaySvc, logger)
		reconciler.RegisterRoutes(r, rec, logger)
	})

	return r
}

// shutdown stops the scanners and waits for them to quiesce, then removes
// the provider webhook subscription.
func shutdown(engines []*engine.Engine, bank *starkbank.Client, webhookID string, logger *zap.Logger) {
	for _, eng := range engines {
		eng.RequestStop()
	}

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		running := 0
		for _, eng := range engines {
			if eng.IsRunning() {
				running++
			}
		}
		if running == 0 {
			break
		}
		logger.Info("Waiting for scanners to stop", zap.Int("running", running))
		time.Sleep(500 * time.Millisecond)
	}

	if webhookID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := bank.DeleteWebhook(ctx, webhookID); err != nil {
			logger.Warn("Failed to delete provider webhook",
				zap.Error(err),
				zap.String("webhook_id", webhookID))
		} else {
			logger.Info("Provider webhook removed", zap.String("webhook_id", webhookID))
		}
	}
}
