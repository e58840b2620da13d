package txbuilder

import (
	"context"
	"math/big"

	"gorecovery/EVMRPC"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type TokenBalance struct {
	Token    string          `json:"token"`
	Holder   string          `json:"holder"`
	Amount   *big.Int        `json:"amount"` // base units
	Decimals uint8           `json:"decimals"`
	Value    decimal.Decimal `json:"value"`
}

// TokenBalance reads holder's balance of an ERC-20 token. erc20 must declare
// balanceOf and decimals.
func (b *Builder) TokenBalance(ctx context.Context, chainID int64, erc20 abi.ABI, token, holder common.Address) (TokenBalance, error) {
	if _, err := b.networks.Require(chainID); err != nil {
		return TokenBalance{}, err
	}

	return EVMRPC.WithClient(ctx, b.rpc, chainID, func(client EVMRPC.Client) (TokenBalance, error) {
		contract := bind.NewBoundContract(token, erc20, client, nil, nil)
		opts := &bind.CallOpts{Context: ctx}

		var out []interface{}
		if err := contract.Call(opts, &out, "balanceOf", holder); err != nil {
			return TokenBalance{}, err
		}
		amount := abi.ConvertType(out[0], new(big.Int)).(*big.Int)

		out = nil
		if err := contract.Call(opts, &out, "decimals"); err != nil {
			return TokenBalance{}, err
		}
		decimals := *abi.ConvertType(out[0], new(uint8)).(*uint8)

		return TokenBalance{
			Token:    token.Hex(),
			Holder:   holder.Hex(),
			Amount:   amount,
			Decimals: decimals,
			Value:    decimal.NewFromBigInt(amount, -int32(decimals)),
		}, nil
	})
}
