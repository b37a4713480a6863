package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/bahikhata/bahikhata/cmd/bahikhata/cli"
	"github.com/bahikhata/bahikhata/internal/app"
	"github.com/bahikhata/bahikhata/internal/audit"
	"github.com/bahikhata/bahikhata/internal/coa"
	"github.com/bahikhata/bahikhata/internal/inventory"
	"github.com/bahikhata/bahikhata/internal/observability"
	"github.com/bahikhata/bahikhata/internal/platform/cache"
	"github.com/bahikhata/bahikhata/internal/platform/db"
	"github.com/bahikhata/bahikhata/internal/reports"
	"github.com/bahikhata/bahikhata/internal/shared"
	"github.com/bahikhata/bahikhata/internal/vouchers"
	"github.com/bahikhata/bahikhata/jobs"
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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobsCommand(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	var redisClient *redis.Client
	if client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr}); err != nil {
		logger.Warn("redis unavailable, report caching disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	coaService := coa.NewService(coa.NewRepository(pool))
	inventoryService := inventory.NewService(inventory.NewRepository(pool))

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportService := reports.NewService(reports.NewRepository(pool), reportCache, logger)

	voucherService := vouchers.NewService(
		vouchers.NewRepository(pool, cfg.LockTimeout),
		auditLogger,
		idempotencyStore,
		vouchers.ServiceConfig{
			AllowNegativeStock: cfg.AllowNegativeStock,
			PostTimeout:        cfg.PostTimeout,
			MaxRetries:         cfg.PostMaxRetries,
			Logger:             logger,
		},
	)
	voucherService.WithCache(reportCache)
	voucherService.WithMetrics(observability.NewPostingMetrics(metrics.Registerer()))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		COAHandler:       coa.NewHandler(logger, coaService),
		InventoryHandler: inventory.NewHandler(logger, inventoryService),
		VoucherHandler:   vouchers.NewHandler(logger, voucherService, cfg.PostRateLimit),
		ReportHandler:    reports.NewHandler(logger, reportService),
		AuditHandler:     audit.NewHandler(logger, audit.NewService(audit.NewRepository(pool))),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Bool("allow_negative_stock", cfg.AllowNegativeStock))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: bahikhata jobs trigger <name> [arg] | bahikhata jobs stats")
	}
	ops, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer ops.Close()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New("usage: bahikhata jobs trigger <name> [arg]")
		}
		info, err := ops.Trigger(ctx, args[1], args[2:]...)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := ops.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	default:
		return fmt.Errorf("unknown jobs command %q", args[0])
	}
	return nil
}
