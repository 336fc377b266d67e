package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/config"
	"github.com/chainraise/backend/internal/http/handlers"
	"github.com/chainraise/backend/internal/middleware"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	campaignHandler *handlers.CampaignHandler,
	accountHandler *handlers.AccountHandler,
	metaHandler *handlers.MetaHandler,
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

	// Auth (public)
	api.Post("/auth/nonce", authHandler.Nonce)
	api.Post("/auth/login", authHandler.Login)

	// Rate-limited public endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Meta (public, no auth required)
	api.Get("/meta/info", metaHandler.GetInfo)
	api.Get("/meta/statuses", metaHandler.GetStatuses)

	// Campaign reads work for anonymous viewers; a token only changes the
	// per-viewer lifecycle assessment.
	public := api.Group("", middleware.OptionalAuthMiddleware(cfg))
	public.Get("/campaigns", campaignHandler.ListCampaigns)
	public.Get("/campaigns/stats", campaignHandler.Stats)
	public.Get("/campaigns/:id", campaignHandler.GetCampaign)
	public.Post("/campaigns/refresh", campaignHandler.Refresh)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Campaign writes
	protected.Post("/campaigns", campaignHandler.CreateCampaign)
	protected.Post("/campaigns/:id/donate", campaignHandler.Donate)
	protected.Post("/campaigns/:id/initiate-closure", campaignHandler.InitiateClosure)
	protected.Post("/campaigns/:id/withdraw", campaignHandler.Withdraw)
	protected.Post("/campaigns/:id/claim-refund", campaignHandler.ClaimRefund)
	protected.Post("/campaigns/:id/cancel", campaignHandler.Cancel)

	// Account
	protected.Get("/me/donations", accountHandler.Donations)
	protected.Get("/me/creations", accountHandler.Creations)
	protected.Get("/me/campaigns", accountHandler.MyCampaigns)
	protected.Get("/me/donated", accountHandler.DonatedCampaigns)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
