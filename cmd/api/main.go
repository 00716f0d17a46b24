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
	apphttp "github.com/giftmoments/backend/internal/http"
	"github.com/giftmoments/backend/internal/http/handlers"
	"github.com/giftmoments/backend/internal/proofcheck"
	"github.com/giftmoments/backend/internal/repositories"
	"github.com/giftmoments/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	giftRepo := repositories.NewGiftRepo(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	balanceRepo := repositories.NewBalanceRepo(pool)
	disputeRepo := repositories.NewDisputeRepo(pool)
	commissionRepo := repositories.NewCommissionRepo(pool)
	rateRepo := repositories.NewRateRepo(pool)
	limitsRepo := repositories.NewLimitsRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	checker := proofcheck.NewChecker(cfg.ProofFetchTimeoutMS, cfg.ProofFetchMaxRetries, log)
	commissionService := services.NewCommissionService(commissionRepo, rateRepo, cfg, log)
	limitsService := services.NewLimitsService(limitsRepo, giftRepo, userRepo, log)
	escrowService := services.NewEscrowService(pool, escrowRepo, giftRepo, balanceRepo, commissionRepo, auditRepo, commissionService, checker, publisher, cfg, log)
	disputeService := services.NewDisputeService(pool, disputeRepo, escrowRepo, escrowService, publisher, cfg, log)
	sweepService := services.NewSweepService(escrowRepo, rateRepo, escrowService, disputeService, cfg, log)

	// Handlers
	quoteHandler := handlers.NewQuoteHandler(commissionService, limitsService, log)
	giftHandler := handlers.NewGiftHandler(escrowService, limitsService, log)
	escrowHandler := handlers.NewEscrowHandler(escrowService, cfg, log)
	disputeHandler := handlers.NewDisputeHandler(disputeService, cfg, log)
	adminHandler := handlers.NewAdminHandler(escrowService, disputeService, sweepService, rateRepo, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, quoteHandler, giftHandler, escrowHandler, disputeHandler, adminHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
