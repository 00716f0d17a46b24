package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/giftmoments/backend/internal/config"
	"github.com/giftmoments/backend/internal/db"
	"github.com/giftmoments/backend/internal/events"
	"github.com/giftmoments/backend/internal/proofcheck"
	"github.com/giftmoments/backend/internal/repositories"
	"github.com/giftmoments/backend/internal/services"
	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	giftRepo := repositories.NewGiftRepo(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	balanceRepo := repositories.NewBalanceRepo(pool)
	disputeRepo := repositories.NewDisputeRepo(pool)
	commissionRepo := repositories.NewCommissionRepo(pool)
	rateRepo := repositories.NewRateRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	checker := proofcheck.NewChecker(cfg.ProofFetchTimeoutMS, cfg.ProofFetchMaxRetries, log)
	commissionService := services.NewCommissionService(commissionRepo, rateRepo, cfg, log)
	escrowService := services.NewEscrowService(pool, escrowRepo, giftRepo, balanceRepo, commissionRepo, auditRepo, commissionService, checker, publisher, cfg, log)
	disputeService := services.NewDisputeService(pool, disputeRepo, escrowRepo, escrowService, publisher, cfg, log)
	sweepService := services.NewSweepService(escrowRepo, rateRepo, escrowService, disputeService, cfg, log)

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal("failed to create scheduler", zap.Error(err))
	}

	_, err = sched.NewJob(
		gocron.DurationJob(cfg.SweepInterval),
		gocron.NewTask(func() {
			sweepService.RunAll(ctx)
		}),
	)
	if err != nil {
		log.Fatal("failed to schedule sweep", zap.Error(err))
	}

	sched.Start()
	log.Info("worker started", zap.Duration("sweep_interval", cfg.SweepInterval))

	// Minimal health endpoint for the orchestrator
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	go func() {
		if err := app.Listen(fmt.Sprintf(":%s", cfg.WorkerPort)); err != nil {
			log.Error("worker health server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down worker")
	cancel()
	_ = sched.Shutdown()
	_ = app.Shutdown()
}
