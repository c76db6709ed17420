package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ledgerline/ledgerline/internal/accounting/accounts"
	"github.com/ledgerline/ledgerline/internal/accounting/journals"
	"github.com/ledgerline/ledgerline/internal/accounting/mappings"
	"github.com/ledgerline/ledgerline/internal/app"
	"github.com/ledgerline/ledgerline/internal/costing"
	"github.com/ledgerline/ledgerline/internal/expenses"
	"github.com/ledgerline/ledgerline/internal/integration"
	"github.com/ledgerline/ledgerline/internal/inventory"
	"github.com/ledgerline/ledgerline/internal/platform/cache"
	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/pricing"
	"github.com/ledgerline/ledgerline/internal/purchasing"
	"github.com/ledgerline/ledgerline/internal/reporting"
	"github.com/ledgerline/ledgerline/internal/sales"
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	accountsRepo := accounts.NewRepository(dbpool)
	accountsService := accounts.NewService(accountsRepo)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	journalsRepo := journals.NewRepository(dbpool)
	journalsService := journals.NewService(journalsRepo, auditLogger)
	journalsHandler := journals.NewHandler(logger, journalsService)

	mappingsRepo := mappings.NewRepository(dbpool)
	integrationHooks := integration.NewHooks(logger, mappingsRepo)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, idempotencyStore, integrationHooks)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	calculator := costing.NewCalculator(costing.Config{DefaultFXRate: cfg.DefaultFXRate})

	purchasingRepo := purchasing.NewRepository(dbpool)
	purchasingService := purchasing.NewService(purchasingRepo, calculator, auditLogger, idempotencyStore, integrationHooks)
	purchasingHandler := purchasing.NewHandler(logger, purchasingService)

	salesRepo := sales.NewRepository(dbpool)
	salesService := sales.NewService(salesRepo, auditLogger, idempotencyStore, integrationHooks)
	salesHandler := sales.NewHandler(logger, salesService)

	expensesRepo := expenses.NewRepository(dbpool)
	expensesService := expenses.NewService(expensesRepo, auditLogger, idempotencyStore, integrationHooks)
	expensesHandler := expenses.NewHandler(logger, expensesService)

	// Margins are configured in percent; the resolver works in fractions.
	pricingCache := pricing.NewCache(redisClient, cfg.PricingCacheTTL)
	pricingResolver := pricing.NewResolver(pricing.Config{
		MarginWholesale:   cfg.MarginWholesale / 100,
		MarginRetail:      cfg.MarginRetail / 100,
		MarginMarketplace: cfg.MarginMarketplace / 100,
	}, pricing.NewBatchCostSource(dbpool), pricingCache)
	pricingHandler := pricing.NewHandler(logger, pricingResolver, pricingCache)

	reportingStore := reporting.NewStore(dbpool)
	reportingService := reporting.NewService(reportingStore)
	reportingHandler := reporting.NewHandler(logger, reportingService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AccountsHandler:   accountsHandler,
		JournalsHandler:   journalsHandler,
		InventoryHandler:  inventoryHandler,
		PurchasingHandler: purchasingHandler,
		SalesHandler:      salesHandler,
		ExpensesHandler:   expensesHandler,
		PricingHandler:    pricingHandler,
		ReportingHandler:  reportingHandler,
		JobsHandler:       jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
