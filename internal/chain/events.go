package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/models"
)

// addressTopic pads an address into the 32-byte topic form used for indexed
// event parameters.
func addressTopic(addr string) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(common.HexToAddress(addr).Bytes(), 32))
}

// BlockNumber returns the current head block, for indexer cursors.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: block number: %v", ErrContractRead, err)
	}
	return n, nil
}

// DonationsByDonor returns every DonationReceived event emitted for the
// given donor address, oldest first.
func (c *Client) DonationsByDonor(ctx context.Context, donor string) ([]models.DonationRecord, error) {
	return c.donations(ctx, nil, nil, &donor)
}

// DonationsInRange returns all donation events between the two block numbers
// inclusive. Used by the indexer.
func (c *Client) DonationsInRange(ctx context.Context, from, to uint64) ([]models.DonationRecord, error) {
	f, t := new(big.Int).SetUint64(from), new(big.Int).SetUint64(to)
	return c.donations(ctx, f, t, nil)
}

func (c *Client) donations(ctx context.Context, from, to *big.Int, donor *string) ([]models.DonationRecord, error) {
	ev := c.abi.Events["DonationReceived"]
	topics := [][]common.Hash{{ev.ID}}
	if donor != nil {
		topics = append(topics, nil, []common.Hash{addressTopic(*donor)})
	}

	logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: from,
		ToBlock:   to,
		Addresses: []common.Address{c.address},
		Topics:    topics,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: donation logs: %v", ErrContractRead, err)
	}

	records := make([]models.DonationRecord, 0, len(logs))
	for _, lg := range logs {
		rec, err := c.parseDonation(lg)
		if err != nil {
			c.log.Warn("skipping unparseable donation log",
				zap.String("tx", lg.TxHash.Hex()),
				zap.Error(err),
			)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Client) parseDonation(lg types.Log) (models.DonationRecord, error) {
	if len(lg.Topics) != 3 {
		return models.DonationRecord{}, fmt.Errorf("expected 3 topics, got %d", len(lg.Topics))
	}

	data, err := c.abi.Unpack("DonationReceived", lg.Data)
	if err != nil {
		return models.DonationRecord{}, err
	}
	amount, ok := data[0].(*big.Int)
	if !ok {
		return models.DonationRecord{}, fmt.Errorf("bad amount field")
	}
	timestamp, ok := data[1].(*big.Int)
	if !ok {
		return models.DonationRecord{}, fmt.Errorf("bad timestamp field")
	}

	localID := LocalCampaignID(new(big.Int).SetBytes(lg.Topics[1].Bytes()))
	if localID < 0 {
		return models.DonationRecord{}, fmt.Errorf("impossible campaign id in topic")
	}

	return models.DonationRecord{
		CampaignID: localID,
		Donor:      common.BytesToAddress(lg.Topics[2].Bytes()).Hex(),
		Amount:     amount,
		Timestamp:  timestamp.Int64(),
		TxHash:     lg.TxHash.Hex(),
		LogIndex:   lg.Index,
	}, nil
}

// CreationsByCreator returns every CampaignCreated event for the creator,
// oldest first.
func (c *Client) CreationsByCreator(ctx context.Context, creator string) ([]models.CreationRecord, error) {
	return c.creations(ctx, nil, nil, &creator)
}

// CreationsInRange returns all creation events between the block numbers
// inclusive.
func (c *Client) CreationsInRange(ctx context.Context, from, to uint64) ([]models.CreationRecord, error) {
	f, t := new(big.Int).SetUint64(from), new(big.Int).SetUint64(to)
	return c.creations(ctx, f, t, nil)
}

func (c *Client) creations(ctx context.Context, from, to *big.Int, creator *string) ([]models.CreationRecord, error) {
	ev := c.abi.Events["CampaignCreated"]
	topics := [][]common.Hash{{ev.ID}}
	if creator != nil {
		topics = append(topics, nil, []common.Hash{addressTopic(*creator)})
	}

	logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: from,
		ToBlock:   to,
		Addresses: []common.Address{c.address},
		Topics:    topics,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creation logs: %v", ErrContractRead, err)
	}

	records := make([]models.CreationRecord, 0, len(logs))
	for _, lg := range logs {
		if len(lg.Topics) != 3 {
			continue
		}
		data, err := c.abi.Unpack("CampaignCreated", lg.Data)
		if err != nil {
			c.log.Warn("skipping unparseable creation log",
				zap.String("tx", lg.TxHash.Hex()),
				zap.Error(err),
			)
			continue
		}
		targetAmount, _ := data[0].(*big.Int)
		timestamp, _ := data[1].(*big.Int)

		localID := LocalCampaignID(new(big.Int).SetBytes(lg.Topics[1].Bytes()))
		if localID < 0 || targetAmount == nil || timestamp == nil {
			continue
		}

		records = append(records, models.CreationRecord{
			CampaignID:   localID,
			Creator:      common.BytesToAddress(lg.Topics[2].Bytes()).Hex(),
			TargetAmount: targetAmount,
			Timestamp:    timestamp.Int64(),
			TxHash:       lg.TxHash.Hex(),
			LogIndex:     lg.Index,
		})
	}
	return records, nil
}
