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

	"github.com/zarrin-erp/zarrin-erp/internal/app"
	"github.com/zarrin-erp/zarrin-erp/internal/audit"
	audithttp "github.com/zarrin-erp/zarrin-erp/internal/audit/http"
	"github.com/zarrin-erp/zarrin-erp/internal/instruments"
	"github.com/zarrin-erp/zarrin-erp/internal/ledger"
	ledgerhttp "github.com/zarrin-erp/zarrin-erp/internal/ledger/http"
	"github.com/zarrin-erp/zarrin-erp/internal/ledger/reports"
	"github.com/zarrin-erp/zarrin-erp/internal/platform/db"
	"github.com/zarrin-erp/zarrin-erp/internal/sales"
	"github.com/zarrin-erp/zarrin-erp/jobs"
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

	epsilon, err := cfg.Epsilon()
	if err != nil {
		logger.Error("parse ledger epsilon", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	ledgerService := ledger.NewService(ledger.NewRepository(pool)).WithEpsilon(epsilon)
	instrumentService := instruments.NewService(instruments.NewRepository(pool), ledgerService)
	salesService := sales.NewService(ledgerService)
	auditService := audit.NewService(audit.NewSQLRepository(pool))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		LedgerHandler:      ledgerhttp.NewHandler(logger, ledgerService, reports.NewRenderer(cfg.ReportLocale)),
		InstrumentsHandler: instruments.NewHandler(logger, instrumentService),
		SalesHandler:       sales.NewHandler(logger, salesService),
		AuditHandler:       audithttp.NewHandler(logger, auditService),
		JobHandler:         jobs.NewHandler(inspector, logger),
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
