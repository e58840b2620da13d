package aa

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"gorecovery/logger"
	"gorecovery/metrics"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Signer signs user operation hashes for the account owner.
type Signer interface {
	Address() common.Address
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
}

// Receipt is the outcome of an included user operation.
type Receipt struct {
	UserOpHash      common.Hash
	TransactionHash common.Hash
	Provider        string
	Success         bool
	Reason          string
	Raw             *UserOperationReceipt
}

// FallbackClient submits user operations through an ordered list of relayers.
// Relayers are tried one after another, never concurrently.
type FallbackClient struct {
	account      *KernelAccount
	signer       Signer
	providers    []*ProviderClient
	pollInterval time.Duration
	timeout      time.Duration

	mu       sync.Mutex
	accepted map[common.Hash]*ProviderClient
}

func NewFallbackClient(account *KernelAccount, signer Signer, providers []*ProviderClient, pollInterval, receiptTimeout time.Duration) *FallbackClient {
	return &FallbackClient{
		account:      account,
		signer:       signer,
		providers:    providers,
		pollInterval: pollInterval,
		timeout:      receiptTimeout,
		accepted:     make(map[common.Hash]*ProviderClient),
	}
}

func (c *FallbackClient) Account() *KernelAccount { return c.account }

// SendUserOperation submits call through the first relayer that accepts it.
// A relayer-level failure moves on to the next relayer. A failure of the
// operation itself is returned immediately as *UserOpRevertError. Every
// attempt carries the same nonce, so at most one of them can be included.
func (c *FallbackClient) SendUserOperation(ctx context.Context, call Call) (common.Hash, error) {
	base, err := c.account.PrepareUserOperation(ctx, call)
	if err != nil {
		return common.Hash{}, err
	}
	chainID := big.NewInt(c.account.ChainID())

	exhausted := &RelayerExhaustionError{}
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return common.Hash{}, err
		}

		hash, stage, err := c.attempt(ctx, p, base.Copy(), chainID)
		if err == nil {
			c.mu.Lock()
			c.accepted[hash] = p
			c.mu.Unlock()
			metrics.RelayerAttempts.WithLabelValues(p.Name, "accepted").Inc()
			logger.Info("user operation accepted",
				zap.String("provider", p.Name),
				zap.String("userOpHash", hash.Hex()),
				zap.String("sender", base.Sender.Hex()),
				zap.Int64("chainId", c.account.ChainID()))
			return hash, nil
		}

		if stage == "sign" || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return common.Hash{}, err
		}
		if rpcErr, ok := operationLevel(err); ok {
			metrics.RelayerAttempts.WithLabelValues(p.Name, "reverted").Inc()
			return common.Hash{}, &UserOpRevertError{Provider: p.Name, Code: rpcErr.Code, Message: rpcErr.Message}
		}

		metrics.RelayerAttempts.WithLabelValues(p.Name, "provider_error").Inc()
		logger.Warn("relayer failed, trying next",
			zap.String("provider", p.Name),
			zap.String("stage", stage),
			zap.Error(err))
		exhausted.Failures = append(exhausted.Failures, &ProviderError{Provider: p.Name, Stage: stage, Err: err})
	}
	return common.Hash{}, exhausted
}

func (c *FallbackClient) attempt(ctx context.Context, p *ProviderClient, op *UserOperation, chainID *big.Int) (common.Hash, string, error) {
	price, err := p.GasPrice(ctx)
	if err != nil {
		return common.Hash{}, "gas price", err
	}
	applyGasPrice(op, price)

	if err := p.Sponsor(ctx, op, c.account.EntryPoint); err != nil {
		return common.Hash{}, "sponsor", err
	}

	opHash := op.Hash(c.account.EntryPoint, chainID)
	sig, err := c.signer.SignMessage(ctx, opHash.Bytes())
	if err != nil {
		return common.Hash{}, "sign", fmt.Errorf("sign user operation: %w", err)
	}
	op.Signature = sig

	hash, err := p.Send(ctx, op, c.account.EntryPoint)
	if err != nil {
		return common.Hash{}, "send", err
	}
	if hash != opHash {
		logger.Warn("bundler returned unexpected user operation hash",
			zap.String("provider", p.Name),
			zap.String("expected", opHash.Hex()),
			zap.String("got", hash.Hex()))
	}
	return hash, "", nil
}

// WaitForReceipt polls the relayer that accepted hash until the operation is
// included or the receipt timeout passes.
func (c *FallbackClient) WaitForReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	c.mu.Lock()
	p, ok := c.accepted[hash]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("user operation %s was not submitted by this client", hash.Hex())
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		raw, err := p.Receipt(ctx, hash)
		if err != nil {
			logger.Debug("user operation receipt query failed", zap.String("provider", p.Name), zap.Error(err))
		}
		if raw != nil {
			return &Receipt{
				UserOpHash:      hash,
				TransactionHash: raw.Receipt.TransactionHash,
				Provider:        p.Name,
				Success:         raw.Success,
				Reason:          raw.Reason,
				Raw:             raw,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for user operation %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
