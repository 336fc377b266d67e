package repositories

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chainraise/backend/internal/models"
)

// ActivityRepo stores the donation/creation events the indexer extracts from
// chain logs. Amounts are stored as decimal strings — they are base-unit
// integers that can exceed int64.
type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

func (r *ActivityRepo) UpsertDonation(ctx context.Context, d models.DonationRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO donations (campaign_id, donor, amount, ts, tx_hash, log_index)
		VALUES ($1, lower($2), $3, $4, $5, $6)
		ON CONFLICT (tx_hash, log_index) DO NOTHING
	`, d.CampaignID, d.Donor, d.Amount.String(), d.Timestamp, d.TxHash, d.LogIndex)
	return err
}

func (r *ActivityRepo) UpsertCreation(ctx context.Context, c models.CreationRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO creations (campaign_id, creator, target_amount, ts, tx_hash, log_index)
		VALUES ($1, lower($2), $3, $4, $5, $6)
		ON CONFLICT (tx_hash, log_index) DO NOTHING
	`, c.CampaignID, c.Creator, c.TargetAmount.String(), c.Timestamp, c.TxHash, c.LogIndex)
	return err
}

func (r *ActivityRepo) DonationsByDonor(ctx context.Context, donor string) ([]models.DonationRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT campaign_id, donor, amount, ts, tx_hash, log_index, indexed_at
		FROM donations WHERE donor = lower($1)
		ORDER BY ts DESC, log_index DESC
	`, donor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.DonationRecord
	for rows.Next() {
		var d models.DonationRecord
		var amount string
		if err := rows.Scan(&d.CampaignID, &d.Donor, &amount, &d.Timestamp, &d.TxHash, &d.LogIndex, &d.IndexedAt); err != nil {
			return nil, err
		}
		v, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			return nil, fmt.Errorf("corrupt amount %q for tx %s", amount, d.TxHash)
		}
		d.Amount = v
		records = append(records, d)
	}
	return records, rows.Err()
}

func (r *ActivityRepo) CreationsByCreator(ctx context.Context, creator string) ([]models.CreationRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT campaign_id, creator, target_amount, ts, tx_hash, log_index, indexed_at
		FROM creations WHERE creator = lower($1)
		ORDER BY ts DESC, log_index DESC
	`, creator)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.CreationRecord
	for rows.Next() {
		var c models.CreationRecord
		var target string
		if err := rows.Scan(&c.CampaignID, &c.Creator, &target, &c.Timestamp, &c.TxHash, &c.LogIndex, &c.IndexedAt); err != nil {
			return nil, err
		}
		v, ok := new(big.Int).SetString(target, 10)
		if !ok {
			return nil, fmt.Errorf("corrupt target amount %q for tx %s", target, c.TxHash)
		}
		c.TargetAmount = v
		records = append(records, c)
	}
	return records, rows.Err()
}
