package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

const erc20ABI = `[
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

func (c *Client) erc20(tokenAddr string) *bind.BoundContract {
	return bind.NewBoundContract(common.HexToAddress(tokenAddr), c.erc20ABI, c.eth, c.eth, c.eth)
}

// Allowance reads how much the fundraiser contract may move on the
// operator's behalf.
func (c *Client) Allowance(ctx context.Context, tokenAddr string) (*big.Int, error) {
	if c.key == nil {
		return nil, ErrNoWallet
	}
	owner := crypto.PubkeyToAddress(c.key.PublicKey)

	var out []any
	err := c.erc20(tokenAddr).Call(&bind.CallOpts{Context: ctx}, &out, "allowance", owner, c.address)
	if err != nil {
		return nil, fmt.Errorf("%w: allowance: %v", ErrContractRead, err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// ensureAllowance approves the fundraiser contract for amount when the
// current allowance is short, and waits for the approval to mine so the
// following donate call sees it.
func (c *Client) ensureAllowance(ctx context.Context, tokenAddr string, amount *big.Int) error {
	allowance, err := c.Allowance(ctx, tokenAddr)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}

	c.sendMu.Lock()
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		c.sendMu.Unlock()
		return err
	}
	opts.Context = ctx

	tx, err := c.erc20(tokenAddr).Transact(opts, "approve", c.address, amount)
	c.sendMu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: approve: %v", ErrTransactionFailed, err)
	}

	c.log.Info("token approval submitted",
		zap.String("token", tokenAddr),
		zap.String("amount", amount.String()),
		zap.String("tx", tx.Hash().Hex()),
	)
	return c.WaitConfirmed(ctx, tx.Hash().Hex())
}
