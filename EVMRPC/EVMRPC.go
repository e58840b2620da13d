package EVMRPC

import (
	"context"
	"math/big"

	"gorecovery/logger"
	"gorecovery/networks"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Client is the subset of *ethclient.Client the engine uses.
type Client interface {
	ethereum.GasPricer
	ethereum.GasEstimator
	ethereum.TransactionReader
	ethereum.ContractCaller
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

type Dialer func(ctx context.Context, url string) (Client, error)

func DialEthclient(ctx context.Context, url string) (Client, error) {
	return ethclient.DialContext(ctx, url)
}

// Pool hands out clients for a chain, walking its RPC list in order.
type Pool struct {
	networks *networks.Registry
	dial     Dialer
}

func NewPool(reg *networks.Registry, dial Dialer) *Pool {
	if dial == nil {
		dial = DialEthclient
	}
	return &Pool{networks: reg, dial: dial}
}

func (p *Pool) Networks() *networks.Registry {
	return p.networks
}

// WithClient runs f against the chain's endpoints in order until one succeeds.
// The last error is returned when every endpoint fails.
func WithClient[T any](ctx context.Context, p *Pool, chainID int64, f func(client Client) (T, error)) (res T, err error) {
	network, err := p.networks.Require(chainID)
	if err != nil {
		return
	}

	var client Client
	for _, url := range network.RPCList {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		client, err = p.dial(ctx, url)
		if err != nil {
			logger.Warn("error connecting to rpc", zap.Int64("chainId", chainID), zap.String("url", url), zap.Error(err))
			continue
		}

		res, err = f(client)
		client.Close()
		if err == nil {
			return
		}
		logger.Debug("rpc call failed", zap.Int64("chainId", chainID), zap.String("url", url), zap.Error(err))
	}
	return
}
