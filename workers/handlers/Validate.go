package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"gorecovery/logger"
	"gorecovery/metrics"
	"gorecovery/poller"
	"gorecovery/redis"
	"gorecovery/txvalidator"
	"gorecovery/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) decodeValidate(w http.ResponseWriter, r *http.Request) (common.Hash, common.Address, bool) {
	wallet, ok := walletFrom(r.Context())
	if !ok {
		responseJSON(w, &ErrorResponse{Error: "unauthenticated"}, http.StatusUnauthorized)
		return common.Hash{}, common.Address{}, false
	}
	var req ValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		responseJSON(w, &ErrorResponse{Error: "Cannot unmarshal input JSON"}, http.StatusBadRequest)
		return common.Hash{}, common.Address{}, false
	}
	hash, ok := parseTxHash(req.TxHash)
	if !ok {
		responseJSON(w, &ErrorResponse{Error: "txHash must be a 32-byte hex string"}, http.StatusBadRequest)
		return common.Hash{}, common.Address{}, false
	}
	return hash, wallet, true
}

func validationBody(res *txvalidator.Result, wallet common.Address) *ValidationResponse {
	amount, _ := res.TokenValue.Float64()
	return &ValidationResponse{
		DimoAmount:      amount,
		USDValue:        res.USDValue,
		TransactionFrom: res.ApparentSender.Hex(),
		UserWallet:      wallet.Hex(),
		TrueSender:      res.TrueSender.Hex(),
		TokenAmount:     res.TokenAmount.String(),
	}
}

func writeValidationError(w http.ResponseWriter, err error, wallet common.Address) {
	var mismatch *txvalidator.SenderMismatchError
	switch {
	case errors.As(err, &mismatch):
		responseJSON(w, &SenderMismatchResponse{
			Error:             "transaction was not sent from the authenticated wallet",
			UserWallet:        wallet.Hex(),
			TransactionFrom:   mismatch.ApparentSender.Hex(),
			ActualUserAddress: mismatch.TrueSender.Hex(),
		}, http.StatusForbidden)
	case errors.Is(err, txvalidator.ErrAlreadyProcessed):
		responseJSON(w, &AlreadyProcessedResponse{Error: err.Error(), AlreadyProcessed: true}, http.StatusConflict)
	default:
		code := txvalidator.StatusCode(err)
		msg := err.Error()
		if code == http.StatusInternalServerError {
			logger.Error("validation error", zap.Error(err))
			msg = "validation failed"
		}
		responseJSON(w, &ErrorResponse{Error: msg}, code)
	}
}

func (s *Service) Validate(w http.ResponseWriter, r *http.Request) {
	hash, wallet, ok := s.decodeValidate(w, r)
	if !ok {
		return
	}
	res, err := s.Validator.Validate(r.Context(), hash, wallet)
	if err != nil {
		writeValidationError(w, err, wallet)
		return
	}
	responseJSON(w, validationBody(res, wallet), http.StatusOK)
}

// ValidateAwait polls until the transaction settles. A client disconnect
// cancels the poll.
func (s *Service) ValidateAwait(w http.ResponseWriter, r *http.Request) {
	hash, wallet, ok := s.decodeValidate(w, r)
	if !ok {
		return
	}

	out := poller.Await(r.Context(), s.Validator, hash, wallet, s.Poller)
	switch out.State {
	case poller.Confirmed:
		body := validationBody(out.Result, wallet)
		body.State = out.State.String()
		responseJSON(w, body, http.StatusOK)
	case poller.Pending:
		// client went away, nothing to write to
		logger.Debug("await cancelled", zap.String("txHash", hash.Hex()))
	default:
		if errors.Is(out.Err, poller.ErrPollingTimeout) {
			responseJSON(w, &ErrorResponse{Error: out.Err.Error(), State: out.State.String()}, http.StatusGatewayTimeout)
			return
		}
		writeValidationError(w, out.Err, wallet)
	}
}

// Credit validates the transaction and claims it in the ledger. Only the
// first claim for a hash succeeds. Rejections are kept as failed records so
// the wallet owner can see why a transfer was not credited.
func (s *Service) Credit(w http.ResponseWriter, r *http.Request) {
	hash, wallet, ok := s.decodeValidate(w, r)
	if !ok {
		return
	}
	cfg := s.Validator.Config()

	res, err := s.Validator.Validate(r.Context(), hash, wallet)
	if err != nil {
		if errors.Is(err, txvalidator.ErrAlreadyProcessed) {
			s.writeAlreadyCredited(w, r, hash, wallet)
			return
		}
		if rejected(err) {
			s.recordRejection(r, cfg, hash, wallet, err)
		}
		writeValidationError(w, err, wallet)
		return
	}

	claimed, err := s.Ledger.Claim(r.Context(), cfg.Source, hash.Hex())
	if err != nil {
		logger.Error("ledger claim failed", zap.String("txHash", hash.Hex()), zap.Error(err))
		responseJSON(w, &ErrorResponse{Error: "cannot record credit"}, http.StatusInternalServerError)
		return
	}
	if !claimed {
		s.writeAlreadyCredited(w, r, hash, wallet)
		return
	}
	metrics.Credits.WithLabelValues(cfg.Source).Inc()

	rec := &types.CreditRecord{
		Status:         redis.StatusCredited,
		ChainID:        cfg.ChainID,
		TxHash:         hash.Hex(),
		Source:         cfg.Source,
		WalletAddress:  wallet.Hex(),
		TrueSender:     res.TrueSender.Hex(),
		ApparentSender: res.ApparentSender.Hex(),
		TokenAmount:    res.TokenAmount.String(),
		USDValue:       decimal.NewFromFloat(res.USDValue).String(),
		TsCreated:      time.Now().Unix(),
	}
	// the ledger claim is the durable marker, the record is for audit
	if err := s.storeCredit(r, rec); err != nil {
		logger.Error("cannot store credit record", zap.String("txHash", hash.Hex()), zap.Error(err))
	}
	logger.Info("transaction credited",
		zap.String("txHash", hash.Hex()),
		zap.String("wallet", wallet.Hex()),
		zap.String("amount", rec.TokenAmount),
		zap.Float64("usd", res.USDValue))

	body := validationBody(res, wallet)
	body.CreditID = rec.ID
	responseJSON(w, body, http.StatusOK)
}

// rejected reports errors that are final for a mined transaction.
func rejected(err error) bool {
	var mismatch *txvalidator.SenderMismatchError
	return errors.As(err, &mismatch) ||
		errors.Is(err, txvalidator.ErrTransactionFailed) ||
		errors.Is(err, txvalidator.ErrNoTransferFound)
}

// storeCredit moves an earlier failed record for the same hash to credited,
// or stores rec as a new record.
func (s *Service) storeCredit(r *http.Request, rec *types.CreditRecord) error {
	prev, err := s.Credits.FindCreditByTxHash(r.Context(), rec.TxHash)
	if err != nil {
		logger.Warn("credit record lookup failed", zap.String("txHash", rec.TxHash), zap.Error(err))
	}
	if prev != nil && prev.Status == redis.StatusFailed {
		rec.ID = prev.ID
		return s.Credits.ChangeCreditStatus(r.Context(), rec, redis.StatusFailed)
	}
	return s.Credits.UpsertCredit(r.Context(), rec)
}

func (s *Service) recordRejection(r *http.Request, cfg txvalidator.Config, hash common.Hash, wallet common.Address, cause error) {
	rec := &types.CreditRecord{
		Status:        redis.StatusFailed,
		ChainID:       cfg.ChainID,
		TxHash:        hash.Hex(),
		Source:        cfg.Source,
		WalletAddress: wallet.Hex(),
		TsCreated:     time.Now().Unix(),
		Message:       cause.Error(),
	}
	var mismatch *txvalidator.SenderMismatchError
	if errors.As(cause, &mismatch) {
		rec.TrueSender = mismatch.TrueSender.Hex()
		rec.ApparentSender = mismatch.ApparentSender.Hex()
	}

	prev, err := s.Credits.FindCreditByTxHash(r.Context(), rec.TxHash)
	switch {
	case err != nil:
		logger.Warn("credit record lookup failed", zap.String("txHash", rec.TxHash), zap.Error(err))
		return
	case prev != nil && prev.Status == redis.StatusFailed:
		// keep the latest reason on the existing record
		rec.ID = prev.ID
	case prev != nil:
		return
	}
	if err := s.Credits.UpsertCredit(r.Context(), rec); err != nil {
		logger.Error("cannot store failed credit record", zap.String("txHash", rec.TxHash), zap.Error(err))
	}
}

// writeAlreadyCredited answers 409, naming the existing credit when it belongs
// to the caller.
func (s *Service) writeAlreadyCredited(w http.ResponseWriter, r *http.Request, hash common.Hash, wallet common.Address) {
	body := &AlreadyProcessedResponse{Error: txvalidator.ErrAlreadyProcessed.Error(), AlreadyProcessed: true}
	prev, err := s.Credits.FindCreditByTxHash(r.Context(), hash.Hex())
	if err != nil {
		logger.Warn("credit record lookup failed", zap.String("txHash", hash.Hex()), zap.Error(err))
	}
	if prev != nil && prev.Status == redis.StatusCredited && strings.EqualFold(prev.WalletAddress, wallet.Hex()) {
		body.CreditID = prev.ID
	}
	responseJSON(w, body, http.StatusConflict)
}
