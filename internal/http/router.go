package http

import (
	"time"

	"github.com/giftmoments/backend/internal/config"
	"github.com/giftmoments/backend/internal/http/handlers"
	"github.com/giftmoments/backend/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	quoteHandler *handlers.QuoteHandler,
	giftHandler *handlers.GiftHandler,
	escrowHandler *handlers.EscrowHandler,
	disputeHandler *handlers.DisputeHandler,
	adminHandler *handlers.AdminHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Pricing and limits
	protected.Post("/quotes", quoteHandler.GetQuote)
	protected.Post("/limits/check", quoteHandler.CheckLimits)

	// Gifts
	protected.Post("/gifts", giftHandler.CreateGift)
	protected.Get("/gifts", giftHandler.ListGifts)
	protected.Get("/gifts/:id", giftHandler.GetGift)

	// Escrows
	protected.Get("/escrows", escrowHandler.ListEscrows)
	protected.Get("/escrows/:id", escrowHandler.GetEscrow)
	protected.Get("/escrows/:id/events", escrowHandler.GetEscrowEvents)
	protected.Post("/escrows/:id/proof", escrowHandler.SubmitProof)
	protected.Post("/escrows/:id/refund", escrowHandler.RefundEscrow)
	protected.Post("/escrows/:id/disputes", disputeHandler.OpenDispute)

	// Disputes
	protected.Get("/disputes/:id", disputeHandler.GetDispute)
	protected.Post("/disputes/:id/respond", disputeHandler.RespondToDispute)
	protected.Post("/disputes/:id/cancel", disputeHandler.CancelDispute)

	// Balance
	protected.Get("/me/balance", escrowHandler.GetMyBalance)

	// Admin
	admin := protected.Group("/admin", middleware.AdminMiddleware(cfg))
	admin.Post("/escrows/:id/verify", adminHandler.VerifyProof)
	admin.Post("/escrows/:id/verify-release", adminHandler.VerifyAndRelease)
	admin.Post("/escrows/:id/refund", adminHandler.ForceRefund)
	admin.Post("/disputes/:id/resolve", adminHandler.ResolveDispute)
	admin.Post("/sweep", adminHandler.RunSweep)
	admin.Put("/rates", adminHandler.UpsertRate)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
