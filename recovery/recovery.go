// Package recovery deploys smart accounts and executes built transactions
// through them.
package recovery

import (
	"context"
	"errors"
	"fmt"

	"gorecovery/aa"
	"gorecovery/logger"
	"gorecovery/txbuilder"
	"gorecovery/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

// Result is the outcome of a submitted recovery operation.
type Result struct {
	Success         bool   `json:"success"`
	AccountAddress  string `json:"accountAddress,omitempty"`
	UserOpHash      string `json:"userOpHash,omitempty"`
	TransactionHash string `json:"transactionHash,omitempty"`
	AlreadyDeployed bool   `json:"alreadyDeployed,omitempty"`
	Error           string `json:"error,omitempty"`
}

type DeploymentState int

const (
	StateUnknown DeploymentState = iota
	StateNotDeployed
	StateDeployed
)

var deploymentStateNames = [...]string{
	StateUnknown:     "unknown",
	StateNotDeployed: "not-deployed",
	StateDeployed:    "deployed",
}

func (s DeploymentState) String() string {
	if s < 0 || int(s) >= len(deploymentStateNames) {
		return "unknown"
	}
	return deploymentStateNames[s]
}

func (s DeploymentState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DeploymentStatus separates "no code at the address" from "could not tell".
type DeploymentStatus struct {
	State          DeploymentState `json:"state"`
	AccountAddress string          `json:"accountAddress,omitempty"`
	Reason         string          `json:"reason,omitempty"`
}

func (s DeploymentStatus) Deployed() bool {
	return s.State == StateDeployed
}

type Orchestrator struct {
	bridge  *aa.Bridge
	builder *txbuilder.Builder
}

func New(bridge *aa.Bridge, builder *txbuilder.Builder) *Orchestrator {
	return &Orchestrator{bridge: bridge, builder: builder}
}

// DeployAccount makes sure the session's smart account exists on chainID,
// submitting an empty operation when it does not.
func (o *Orchestrator) DeployAccount(ctx context.Context, session types.RecoverySession, chainID int64) (Result, error) {
	var res Result
	err := o.bridge.Open(ctx, session, chainID, func(ctx context.Context, s *aa.Session) error {
		res.AccountAddress = s.Account.Address().Hex()

		deployed, err := s.Account.IsDeployed(ctx)
		if err != nil {
			return err
		}
		if deployed {
			res.Success = true
			res.AlreadyDeployed = true
			return nil
		}

		return submit(ctx, s, aa.Call{To: common.Address{}}, &res)
	})
	if err != nil {
		return failed(res, err), err
	}
	logger.Info("account deployment finished",
		zap.Int64("chainId", chainID),
		zap.String("account", res.AccountAddress),
		zap.Bool("success", res.Success),
		zap.String("txHash", res.TransactionHash))
	return res, nil
}

// IsAccountDeployed runs the pipeline without submitting anything. Failures
// before the code lookup completes yield StateUnknown, not StateNotDeployed.
func (o *Orchestrator) IsAccountDeployed(ctx context.Context, session types.RecoverySession, chainID int64) DeploymentStatus {
	status := DeploymentStatus{State: StateUnknown}
	err := o.bridge.Open(ctx, session, chainID, func(ctx context.Context, s *aa.Session) error {
		status.AccountAddress = s.Account.Address().Hex()
		deployed, err := s.Account.IsDeployed(ctx)
		if err != nil {
			return err
		}
		status.State = StateNotDeployed
		if deployed {
			status.State = StateDeployed
		}
		return nil
	})
	if err != nil {
		status.State = StateUnknown
		status.Reason = err.Error()
		logger.Warn("deployment state unknown", zap.Int64("chainId", chainID), zap.Error(err))
	}
	return status
}

// ExecuteTransaction encodes cfg, submits it from the session's smart account
// and waits for the bundler receipt.
func (o *Orchestrator) ExecuteTransaction(ctx context.Context, session types.RecoverySession, cfg txbuilder.Config) (Result, error) {
	if v := o.builder.ValidateConfig(cfg); !v.IsValid {
		err := &txbuilder.ConfigurationError{Errors: v.Errors}
		return failed(Result{}, err), err
	}
	data, err := o.builder.BuildCallData(cfg)
	if err != nil {
		return failed(Result{}, err), err
	}
	call := aa.Call{To: common.HexToAddress(cfg.ContractAddress), Value: cfg.Value, Data: data}

	var res Result
	err = o.bridge.Open(ctx, session, cfg.ChainID, func(ctx context.Context, s *aa.Session) error {
		res.AccountAddress = s.Account.Address().Hex()
		return submit(ctx, s, call, &res)
	})
	if err != nil {
		return failed(res, err), err
	}
	logger.Info("recovery transaction finished",
		zap.Int64("chainId", cfg.ChainID),
		zap.String("account", res.AccountAddress),
		zap.String("to", call.To.Hex()),
		zap.String("selector", hexutil.Encode(data[:4])),
		zap.Bool("success", res.Success),
		zap.String("txHash", res.TransactionHash))
	return res, nil
}

func submit(ctx context.Context, s *aa.Session, call aa.Call, res *Result) error {
	opHash, err := s.Client.SendUserOperation(ctx, call)
	if err != nil {
		return err
	}
	res.UserOpHash = opHash.Hex()

	receipt, err := s.Client.WaitForReceipt(ctx, opHash)
	if err != nil {
		return err
	}
	res.TransactionHash = receipt.TransactionHash.Hex()
	res.Success = receipt.Success
	if !receipt.Success {
		res.Error = receipt.Reason
		if res.Error == "" {
			res.Error = "user operation reverted"
		}
	}
	return nil
}

// failed fills the result error, preferring the relayer's own wording.
func failed(res Result, err error) Result {
	res.Success = false
	var revert *aa.UserOpRevertError
	if errors.As(err, &revert) {
		res.Error = revert.Message
		return res
	}
	var exhausted *aa.RelayerExhaustionError
	if errors.As(err, &exhausted) && exhausted.Last() != nil {
		res.Error = fmt.Sprintf("all relayers failed: %s", exhausted.Last().Err)
		return res
	}
	res.Error = err.Error()
	return res
}
