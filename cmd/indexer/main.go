package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/chain"
	"github.com/chainraise/backend/internal/config"
	"github.com/chainraise/backend/internal/db"
	"github.com/chainraise/backend/internal/events"
	"github.com/chainraise/backend/internal/repositories"
)

const redisCursorBlock = "indexer:cursor:block"

// confirmationLag keeps the indexer a few blocks behind the head so shallow
// reorgs don't leave phantom rows.
const confirmationLag = 3

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

	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	contract, err := chain.Dial(ctx, cfg.RPCURL, cfg.ContractAddress, "", log)
	if err != nil {
		log.Fatal("failed to connect to chain", zap.Error(err))
	}

	activityRepo := repositories.NewActivityRepo(pool)
	publisher := events.NewRedisPublisher(rdb, log)

	log.Info("event indexer started",
		zap.String("contract", cfg.ContractAddress),
		zap.Uint64("start_block", cfg.IndexerStartBlock),
	)

	ticker := time.NewTicker(cfg.IndexerPollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			if err := pollAndProcess(ctx, contract, activityRepo, publisher, rdb, cfg, log); err != nil {
				log.Error("poll cycle failed", zap.Error(err))
			}
		case <-sigCh:
			log.Info("shutting down event indexer")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// loadCursor reads the next block to scan; falls back to the configured
// start block when the cursor has never been written.
func loadCursor(ctx context.Context, rdb *redis.Client, cfg *config.Config) (uint64, error) {
	val, err := rdb.Get(ctx, redisCursorBlock).Result()
	if errors.Is(err, redis.Nil) {
		return cfg.IndexerStartBlock, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(val, 10, 64)
}

func pollAndProcess(
	ctx context.Context,
	contract *chain.Client,
	repo *repositories.ActivityRepo,
	publisher events.Publisher,
	rdb *redis.Client,
	cfg *config.Config,
	log *zap.Logger,
) error {
	from, err := loadCursor(ctx, rdb, cfg)
	if err != nil {
		return err
	}

	head, err := contract.BlockNumber(ctx)
	if err != nil {
		return err
	}
	if head < confirmationLag {
		return nil
	}
	safe := head - confirmationLag
	if from > safe {
		return nil
	}

	to := from + cfg.IndexerBatchBlocks - 1
	if to > safe {
		to = safe
	}

	donations, err := contract.DonationsInRange(ctx, from, to)
	if err != nil {
		return err
	}
	creations, err := contract.CreationsInRange(ctx, from, to)
	if err != nil {
		return err
	}

	for _, d := range donations {
		if err := repo.UpsertDonation(ctx, d); err != nil {
			return err
		}
		_ = publisher.Publish(ctx, events.StreamCampaigns, events.Event{
			Type: events.EventDonationConfirmed,
			Payload: map[string]any{
				"campaign_id": d.CampaignID,
				"donor":       d.Donor,
				"amount":      d.Amount.String(),
				"tx":          d.TxHash,
			},
		})
	}
	for _, c := range creations {
		if err := repo.UpsertCreation(ctx, c); err != nil {
			return err
		}
	}

	if len(donations) > 0 || len(creations) > 0 {
		log.Info("indexed block range",
			zap.Uint64("from", from),
			zap.Uint64("to", to),
			zap.Int("donations", len(donations)),
			zap.Int("creations", len(creations)),
		)
	}

	// advance only after the batch is fully persisted
	return rdb.Set(ctx, redisCursorBlock, strconv.FormatUint(to+1, 10), 0).Err()
}
