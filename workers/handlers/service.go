package handlers

import (
	"context"

	"gorecovery/networks"
	"gorecovery/poller"
	"gorecovery/recovery"
	"gorecovery/templates"
	"gorecovery/txbuilder"
	"gorecovery/txvalidator"
	"gorecovery/types"
)

type Recovery interface {
	DeployAccount(ctx context.Context, session types.RecoverySession, chainID int64) (recovery.Result, error)
	IsAccountDeployed(ctx context.Context, session types.RecoverySession, chainID int64) recovery.DeploymentStatus
	ExecuteTransaction(ctx context.Context, session types.RecoverySession, cfg txbuilder.Config) (recovery.Result, error)
}

type Validator interface {
	poller.Source
	Config() txvalidator.Config
}

type CreditStore interface {
	UpsertCredit(ctx context.Context, rec *types.CreditRecord) error
	ChangeCreditStatus(ctx context.Context, rec *types.CreditRecord, prevStatus string) error
	FindCreditByTxHash(ctx context.Context, txHash string) (*types.CreditRecord, error)
	ListCredits(ctx context.Context, status string) ([]*types.CreditRecord, error)
}

// Service carries everything the handlers need. It is built once in main.
type Service struct {
	Networks  *networks.Registry
	Templates *templates.Registry
	Builder   *txbuilder.Builder
	Recovery  Recovery
	Validator Validator
	Ledger    txvalidator.Ledger
	Credits   CreditStore
	JWTSecret []byte
	Poller    poller.Options
	// Ping reports backing store health, nil skips the check
	Ping func(ctx context.Context) error
}
