// Package chain is the client for the fundraiser smart contract. The
// contract is the ledger of truth — balances, custody and transfer execution
// all happen there; this package only reads its state and submits the write
// calls the platform relayer is allowed to make.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/models"
)

var (
	// ErrNoWallet: no operator key configured, write calls are unavailable.
	ErrNoWallet = errors.New("no wallet configured")
	// ErrContractRead: a view call failed; callers surface this with a retry.
	ErrContractRead = errors.New("contract read failed")
	// ErrTransactionFailed: submission rejected or the transaction reverted.
	ErrTransactionFailed = errors.New("transaction failed")
)

const fundraiserABI = `[
  {"type":"function","name":"getAllCampaigns","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"tuple[]","components":[
    {"name":"creator","type":"address"},
    {"name":"acceptedToken","type":"address"},
    {"name":"targetAmount","type":"uint256"},
    {"name":"raisedAmount","type":"uint256"},
    {"name":"totalEverRaised","type":"uint256"},
    {"name":"metadataCID","type":"string"},
    {"name":"endTime","type":"uint256"},
    {"name":"status","type":"uint8"},
    {"name":"creationTimestamp","type":"uint256"},
    {"name":"reclaimDeadline","type":"uint256"},
    {"name":"campaignType","type":"uint8"}]}]},
  {"type":"function","name":"hasReclaimed","stateMutability":"view","inputs":[{"name":"campaignId","type":"uint256"},{"name":"donor","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"createCampaign","stateMutability":"nonpayable","inputs":[{"name":"campaignType","type":"uint8"},{"name":"token","type":"address"},{"name":"targetAmount","type":"uint256"},{"name":"metadataCID","type":"string"},{"name":"endTime","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"donate","stateMutability":"nonpayable","inputs":[{"name":"campaignId","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"initiateClosure","stateMutability":"nonpayable","inputs":[{"name":"campaignId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"withdrawFunds","stateMutability":"nonpayable","inputs":[{"name":"campaignId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"claimRefund","stateMutability":"nonpayable","inputs":[{"name":"campaignId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"cancelCampaign","stateMutability":"nonpayable","inputs":[{"name":"campaignId","type":"uint256"}],"outputs":[]},
  {"type":"event","name":"DonationReceived","inputs":[{"name":"campaignId","type":"uint256","indexed":true},{"name":"donor","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},{"name":"timestamp","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"CampaignCreated","inputs":[{"name":"campaignId","type":"uint256","indexed":true},{"name":"creator","type":"address","indexed":true},{"name":"targetAmount","type":"uint256","indexed":false},{"name":"timestamp","type":"uint256","indexed":false}],"anonymous":false}
]`

// RawCampaign mirrors the contract's campaign tuple. Field names must match
// the ABI components for unpacking.
type RawCampaign struct {
	Creator           common.Address
	AcceptedToken     common.Address
	TargetAmount      *big.Int
	RaisedAmount      *big.Int
	TotalEverRaised   *big.Int
	MetadataCID       string
	EndTime           *big.Int
	Status            uint8
	CreationTimestamp *big.Int
	ReclaimDeadline   *big.Int
	CampaignType      uint8
}

type Client struct {
	eth      *ethclient.Client
	abi      abi.ABI
	erc20ABI abi.ABI
	address  common.Address
	contract *bind.BoundContract
	chainID  *big.Int
	key      *ecdsa.PrivateKey // operator/relayer key; nil means read-only
	log      *zap.Logger

	// serializes writes so concurrent transactions don't race the nonce
	sendMu sync.Mutex
}

func Dial(ctx context.Context, rpcURL, contractAddr, operatorKeyHex string, log *zap.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query chain id: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(fundraiserABI))
	if err != nil {
		return nil, err
	}
	erc20Parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, err
	}

	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("invalid contract address %q", contractAddr)
	}
	address := common.HexToAddress(contractAddr)

	var key *ecdsa.PrivateKey
	if operatorKeyHex != "" {
		key, err = crypto.HexToECDSA(strings.TrimPrefix(operatorKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid operator key: %w", err)
		}
	}

	c := &Client{
		eth:      eth,
		abi:      parsed,
		erc20ABI: erc20Parsed,
		address:  address,
		contract: bind.NewBoundContract(address, parsed, eth, eth, eth),
		chainID:  chainID,
		key:      key,
		log:      log,
	}

	log.Info("chain client connected",
		zap.String("contract", address.Hex()),
		zap.String("chain_id", chainID.String()),
		zap.Bool("writes_enabled", key != nil),
	)
	return c, nil
}

// HasSender reports whether write calls are possible.
func (c *Client) HasSender() bool {
	return c.key != nil
}

// OperatorAddress returns the relayer address, or "" in read-only mode.
func (c *Client) OperatorAddress() string {
	if c.key == nil {
		return ""
	}
	return crypto.PubkeyToAddress(c.key.PublicKey).Hex()
}

// GetAllCampaigns reads the full on-chain campaign enumeration, in contract
// order. The snapshot store assigns local ids from the positions.
func (c *Client) GetAllCampaigns(ctx context.Context) ([]RawCampaign, error) {
	var out []any
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getAllCampaigns")
	if err != nil {
		return nil, fmt.Errorf("%w: getAllCampaigns: %v", ErrContractRead, err)
	}
	raw := *abi.ConvertType(out[0], new([]RawCampaign)).(*[]RawCampaign)
	return raw, nil
}

// HasReclaimed reports whether the donor already claimed a refund for the
// campaign. localID is the snapshot id.
func (c *Client) HasReclaimed(ctx context.Context, localID int64, donor string) (bool, error) {
	if !common.IsHexAddress(donor) {
		return false, fmt.Errorf("%w: invalid donor address %q", ErrContractRead, donor)
	}
	var out []any
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "hasReclaimed",
		ContractCampaignID(localID), common.HexToAddress(donor))
	if err != nil {
		return false, fmt.Errorf("%w: hasReclaimed: %v", ErrContractRead, err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (c *Client) transact(ctx context.Context, method string, args ...any) (string, error) {
	if c.key == nil {
		return "", ErrNoWallet
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return "", err
	}
	opts.Context = ctx

	tx, err := c.contract.Transact(opts, method, args...)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTransactionFailed, method, err)
	}

	c.log.Info("transaction submitted",
		zap.String("method", method),
		zap.String("tx", tx.Hash().Hex()),
	)
	return tx.Hash().Hex(), nil
}

// WaitConfirmed blocks until the transaction is mined and checks its status.
func (c *Client) WaitConfirmed(ctx context.Context, txHash string) error {
	receipt, err := bind.WaitMinedHash(ctx, c.eth, common.HexToHash(txHash))
	if err != nil {
		return fmt.Errorf("%w: waiting for %s: %v", ErrTransactionFailed, txHash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s reverted", ErrTransactionFailed, txHash)
	}
	return nil
}

// CreateCampaign submits the on-chain creation call.
func (c *Client) CreateCampaign(ctx context.Context, campaignType models.CampaignType, tokenAddr string, targetAmount *big.Int, metadataCID string, endTime int64) (string, error) {
	return c.transact(ctx, "createCampaign",
		uint8(campaignType), common.HexToAddress(tokenAddr), targetAmount, metadataCID, big.NewInt(endTime))
}

// Donate transfers amount base units into the campaign, approving the
// contract on the token first when the standing allowance is short.
func (c *Client) Donate(ctx context.Context, localID int64, tokenAddr string, amount *big.Int) (string, error) {
	if err := c.ensureAllowance(ctx, tokenAddr, amount); err != nil {
		return "", err
	}
	return c.transact(ctx, "donate", ContractCampaignID(localID), amount)
}

func (c *Client) InitiateClosure(ctx context.Context, localID int64) (string, error) {
	return c.transact(ctx, "initiateClosure", ContractCampaignID(localID))
}

func (c *Client) WithdrawFunds(ctx context.Context, localID int64) (string, error) {
	return c.transact(ctx, "withdrawFunds", ContractCampaignID(localID))
}

func (c *Client) ClaimRefund(ctx context.Context, localID int64) (string, error) {
	return c.transact(ctx, "claimRefund", ContractCampaignID(localID))
}

func (c *Client) CancelCampaign(ctx context.Context, localID int64) (string, error) {
	return c.transact(ctx, "cancelCampaign", ContractCampaignID(localID))
}
