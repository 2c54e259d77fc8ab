package main

import (
	"context"
	"embed"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/rebalance/internal/api"
	"github.com/mtlprog/rebalance/internal/config"
	"github.com/mtlprog/rebalance/internal/database"
	"github.com/mtlprog/rebalance/internal/export"
	"github.com/mtlprog/rebalance/internal/holdings"
	"github.com/mtlprog/rebalance/internal/metrics"
	"github.com/mtlprog/rebalance/internal/orderplan"
	"github.com/mtlprog/rebalance/internal/plan"
	"github.com/mtlprog/rebalance/internal/pricing"
	"github.com/mtlprog/rebalance/internal/staking"
	"github.com/mtlprog/rebalance/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(config.Load()).RunContext(ctx, os.Args); err != nil {
		log.Fatalf("rebalance: %v", err)
	}
}

func newApp(cfg config.Config) *cli.App {
	return &cli.App{
		Name:  "rebalance",
		Usage: "plan portfolio rebalancing orders",
		Commands: []*cli.Command{
			planCommand(cfg),
			distributionsCommand(cfg),
			{
				Name:  "serve",
				Usage: "run the HTTP API and the periodic plan worker",
				Action: func(c *cli.Context) error {
					serve(c.Context, cfg)
					return nil
				},
			},
		},
	}
}

func newPriceFetcher(cfg config.Config) *pricing.CachedFetcher {
	coingecko := pricing.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoDelay, cfg.CoinGeckoRetryMax)
	return pricing.NewCachedFetcher(coingecko, cfg.PriceCacheTTL)
}

func newWrapper(cfg config.Config, stakeable []string) *staking.Wrapper {
	if len(stakeable) == 0 {
		stakeable = cfg.StakeableSymbols
	}
	return staking.NewWrapper(stakeable, cfg.DepositFloorUSD)
}

func serve(ctx context.Context, cfg config.Config) {
	var repo plan.Repository
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, plans are kept in memory only")
		repo = plan.NewMemoryRepository()
	} else {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		migrationsSub, err := fs.Sub(migrationsFS, "migrations")
		if err != nil {
			log.Fatalf("Failed to create migrations sub-fs: %v", err)
		}
		if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		repo = plan.NewPgRepository(pool)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(registry)

	opts := []plan.Option{plan.WithMetrics(recorder)}

	if cfg.GoogleSheetsID != "" && cfg.GoogleCredentialsJSON != "" {
		sheetsWriter, err := export.NewSheetsWriter(ctx, cfg.GoogleSheetsID, cfg.GoogleCredentialsJSON)
		if err != nil {
			log.Fatalf("Failed to create Google Sheets writer: %v", err)
		}
		opts = append(opts, plan.WithExporters(export.NewService(sheetsWriter)))
	} else {
		slog.Info("Google Sheets export disabled")
	}

	prices := newPriceFetcher(cfg)
	if cfg.SnapshotPath != "" {
		opts = append(opts, plan.WithSource(holdings.NewFileSource(cfg.SnapshotPath, prices), cfg.DistributionPreset))
	}

	planner := orderplan.New(cfg.IntermediateCurrency, orderplan.WithThreshold(cfg.PlanThreshold))
	planSvc := plan.NewService(planner, newWrapper(cfg, nil), repo, opts...)

	// Start workers
	if cfg.SnapshotPath != "" {
		symbols := lo.Keys(pricing.SymbolMapping)
		slices.Sort(symbols)
		priceWorker := worker.NewPriceWorker(prices, symbols, cfg.PriceCacheTTL)
		go priceWorker.Run(ctx)

		planWorker := worker.NewPlanWorker(planSvc, cfg.PlanWorkerInterval)
		go planWorker.Run(ctx)
	} else {
		slog.Warn("SNAPSHOT_PATH not set, plan worker disabled")
	}

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, generate endpoint is unprotected")
	}

	// Start HTTP server
	srv := api.NewServer(cfg.HTTPPort, planSvc, registry, cfg.AdminAPIKey)

	serveCtx, cancelServe := context.WithCancel(ctx)
	defer cancelServe()

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			cancelServe()
		}
	}()

	// Wait for shutdown signal
	<-serveCtx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}
