// Package txvalidator re-derives what a transaction actually transferred
// before anything is credited for it.
package txvalidator

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"gorecovery/EVMRPC"
	"gorecovery/logger"
	"gorecovery/metrics"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// keccak256("Transfer(address,address,uint256)")
var TransferTopic = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

type Config struct {
	ChainID  int64
	Token    common.Address
	Decimals int32
	// Source tags ledger entries so several flows can share one ledger.
	Source string
	// Recipient, when set, restricts matching transfers to this receiver.
	Recipient *common.Address
}

type Result struct {
	TxHash         common.Hash
	TokenAmount    *big.Int        // base units
	TokenValue     decimal.Decimal // whole tokens
	USDValue       float64
	TrueSender     common.Address
	ApparentSender common.Address
}

type Validator struct {
	cfg    Config
	pool   *EVMRPC.Pool
	ledger Ledger
	prices PriceOracle
}

func New(cfg Config, pool *EVMRPC.Pool, ledger Ledger, prices PriceOracle) (*Validator, error) {
	if _, err := pool.Networks().Require(cfg.ChainID); err != nil {
		return nil, err
	}
	if cfg.Source == "" {
		return nil, errors.New("ledger source label is required")
	}
	return &Validator{cfg: cfg, pool: pool, ledger: ledger, prices: prices}, nil
}

func (v *Validator) Config() Config {
	return v.cfg
}

// Receipt fetches the receipt for txHash, ErrReceiptNotFound while unmined.
func (v *Validator) Receipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	receipt, err := EVMRPC.WithClient(ctx, v.pool, v.cfg.ChainID, func(client EVMRPC.Client) (*ethtypes.Receipt, error) {
		return client.TransactionReceipt(ctx, txHash)
	})
	if errors.Is(err, ethereum.NotFound) {
		return nil, ErrReceiptNotFound
	}
	return receipt, err
}

// Validate checks that txHash moved tokens from claimedWallet and has not been
// credited yet. It does not claim the hash; see Ledger.Claim.
func (v *Validator) Validate(ctx context.Context, txHash common.Hash, claimedWallet common.Address) (*Result, error) {
	res, err := v.validate(ctx, txHash, claimedWallet)
	metrics.Validations.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		logger.Info("transaction rejected",
			zap.String("txHash", txHash.Hex()),
			zap.String("wallet", claimedWallet.Hex()),
			zap.Error(err))
		return nil, err
	}
	logger.Info("transaction validated",
		zap.String("txHash", txHash.Hex()),
		zap.String("wallet", claimedWallet.Hex()),
		zap.String("amount", res.TokenAmount.String()),
		zap.Float64("usd", res.USDValue))
	return res, nil
}

func (v *Validator) validate(ctx context.Context, txHash common.Hash, claimedWallet common.Address) (*Result, error) {
	processed, err := v.ledger.IsProcessed(ctx, v.cfg.Source, txHash.Hex())
	if err != nil {
		return nil, fmt.Errorf("ledger lookup: %w", err)
	}
	if processed {
		return nil, ErrAlreadyProcessed
	}

	tx, err := EVMRPC.WithClient(ctx, v.pool, v.cfg.ChainID, func(client EVMRPC.Client) (*ethtypes.Transaction, error) {
		tx, pending, err := client.TransactionByHash(ctx, txHash)
		if err == nil && pending {
			return nil, ErrReceiptNotFound
		}
		return tx, err
	})
	switch {
	case errors.Is(err, ethereum.NotFound):
		return nil, ErrTransactionNotFound
	case err != nil:
		return nil, err
	}

	receipt, err := v.Receipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, ErrTransactionFailed
	}

	sender, amount, err := SumTransfers(receipt.Logs, v.cfg.Token, v.cfg.Recipient)
	if err != nil {
		return nil, err
	}

	// the submitting account is the relayer for sponsored transactions
	apparent, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		logger.Warn("cannot recover transaction signer",
			zap.String("txHash", txHash.Hex()),
			zap.Int64("chainId", v.cfg.ChainID),
			zap.Error(err))
	}

	if sender != claimedWallet {
		return nil, &SenderMismatchError{TrueSender: sender, ApparentSender: apparent, ClaimedWallet: claimedWallet}
	}

	price, err := v.prices.USDPrice(ctx)
	if err != nil {
		return nil, err
	}
	tokens := decimal.NewFromBigInt(amount, -v.cfg.Decimals)
	usd, _ := tokens.Mul(price).Float64()

	return &Result{
		TxHash:         txHash,
		TokenAmount:    amount,
		TokenValue:     tokens,
		USDValue:       usd,
		TrueSender:     sender,
		ApparentSender: apparent,
	}, nil
}

// SumTransfers adds up the Transfer events token emitted in logs. The sender
// is taken from the first matching event and only transfers out of that
// sender are counted, so tokens flowing back to it in the same transaction
// never inflate the total.
func SumTransfers(logs []*ethtypes.Log, token common.Address, recipient *common.Address) (common.Address, *big.Int, error) {
	var sender common.Address
	total := new(big.Int)
	matched := 0

	for _, l := range logs {
		if l.Address != token || len(l.Topics) < 3 || l.Topics[0] != TransferTopic {
			continue
		}
		if recipient != nil && common.BytesToAddress(l.Topics[2].Bytes()) != *recipient {
			continue
		}
		if len(l.Data) < 32 {
			continue
		}
		from := common.BytesToAddress(l.Topics[1].Bytes())
		if matched == 0 {
			sender = from
		} else if from != sender {
			continue
		}
		amount, _ := math.ParseBig256(hexutil.Encode(l.Data[:32]))
		total.Add(total, amount)
		matched++
	}
	if matched == 0 {
		return common.Address{}, nil, ErrNoTransferFound
	}
	return sender, total, nil
}
