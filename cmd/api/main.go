package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/chain"
	"github.com/chainraise/backend/internal/config"
	"github.com/chainraise/backend/internal/db"
	"github.com/chainraise/backend/internal/events"
	apphttp "github.com/chainraise/backend/internal/http"
	"github.com/chainraise/backend/internal/http/handlers"
	"github.com/chainraise/backend/internal/lifecycle"
	"github.com/chainraise/backend/internal/metadata"
	"github.com/chainraise/backend/internal/repositories"
	"github.com/chainraise/backend/internal/services"
	"github.com/chainraise/backend/internal/snapshot"
	"github.com/chainraise/backend/internal/storage"
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

	// Chain
	contract, err := chain.Dial(ctx, cfg.RPCURL, cfg.ContractAddress, cfg.OperatorKey, log)
	if err != nil {
		log.Fatal("failed to connect to chain", zap.Error(err))
	}

	// Content store
	store := storage.NewClient(cfg.IPFSAPIURL, cfg.IPFSGateway, cfg.StorageTimeout, log)
	resolver := metadata.NewResolver(cfg.IPFSGateway, cfg.StorageTimeout, log)

	// Repositories
	activityRepo := repositories.NewActivityRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Snapshot + lifecycle
	snap := snapshot.NewStore(contract, log)
	snap.OnRefresh(func() {
		_ = publisher.Publish(ctx, events.StreamCampaigns, events.Event{
			Type: events.EventCampaignsRefreshed,
		})
	})
	if err := snap.Refresh(ctx); err != nil {
		log.Warn("initial snapshot refresh failed", zap.Error(err))
	}
	snap.StartPolling(ctx, cfg.RefreshInterval)

	engine := lifecycle.NewEngine(contract, log)

	// Services
	campaignService := services.NewCampaignService(snap, engine, resolver, contract, publisher, cfg, log)
	creationService := services.NewCreationService(store, contract, publisher, cfg, log)
	accountService := services.NewAccountService(campaignService, activityRepo, activityRepo, contract, cfg.TokenDecimals, log)
	authService := services.NewAuthService(rdb, cfg, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, log)
	campaignHandler := handlers.NewCampaignHandler(campaignService, creationService, log)
	accountHandler := handlers.NewAccountHandler(accountService, log)
	metaHandler := handlers.NewMetaHandler(cfg, contract.OperatorAddress())
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

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, campaignHandler, accountHandler, metaHandler, wsHub)

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
