// Package aa runs user operations for Kernel smart accounts owned by a
// custodial wallet, through a fallback list of relayers.
package aa

import (
	"context"
	"errors"
	"time"

	"gorecovery/EVMRPC"
	"gorecovery/custody"
	"gorecovery/logger"
	"gorecovery/types"

	"go.uber.org/zap"
)

type BridgeConfig struct {
	KernelVersion  KernelVersion
	AccountIndex   uint64
	Relayers       []RelayerConfig // fallback order
	RPCTimeout     time.Duration   // per relayer request
	ReceiptTimeout time.Duration
	ReceiptPoll    time.Duration
}

// Bridge turns a recovery session into a signing smart account.
type Bridge struct {
	cfg     BridgeConfig
	custody *custody.Client
	rpc     *EVMRPC.Pool
}

func NewBridge(cfg BridgeConfig, custodyClient *custody.Client, pool *EVMRPC.Pool) (*Bridge, error) {
	if _, ok := kernelDeployments[cfg.KernelVersion]; !ok {
		return nil, &UnsupportedKernelVersionError{Version: cfg.KernelVersion.String()}
	}
	if len(cfg.Relayers) == 0 {
		return nil, errors.New("at least one relayer is required")
	}
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = 30 * time.Second
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = 120 * time.Second
	}
	if cfg.ReceiptPoll <= 0 {
		cfg.ReceiptPoll = time.Second
	}
	return &Bridge{cfg: cfg, custody: custodyClient, rpc: pool}, nil
}

// Session is what a pipeline run hands to its caller: the account and the
// client submitting for it. Neither holds key material.
type Session struct {
	Account *KernelAccount
	Client  *FallbackClient
}

// Open runs the pipeline for chainID and calls fn with the resulting session.
// Credentials are released when Open returns, whatever fn does.
func (b *Bridge) Open(ctx context.Context, rs types.RecoverySession, chainID int64, fn func(ctx context.Context, s *Session) error) error {
	if _, err := b.rpc.Networks().Require(chainID); err != nil {
		return err
	}
	return custody.WithIdentity(ctx, b.custody, rs, func(ctx context.Context, signer *custody.RemoteSigner) error {
		account, err := NewKernelAccount(ctx, b.rpc, chainID, b.cfg.KernelVersion, signer.Address(), b.cfg.AccountIndex)
		if err != nil {
			return err
		}
		logger.Debug("smart account resolved",
			zap.String("owner", signer.Address().Hex()),
			zap.String("account", account.Address().Hex()),
			zap.Int64("chainId", chainID),
			zap.String("kernel", b.cfg.KernelVersion.String()))

		providers := make([]*ProviderClient, len(b.cfg.Relayers))
		for i, r := range b.cfg.Relayers {
			providers[i] = NewProviderClient(r, chainID, b.cfg.RPCTimeout)
		}
		client := NewFallbackClient(account, signer, providers, b.cfg.ReceiptPoll, b.cfg.ReceiptTimeout)
		return fn(ctx, &Session{Account: account, Client: client})
	})
}
