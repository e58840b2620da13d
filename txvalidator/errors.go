package txvalidator

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrReceiptNotFound     = errors.New("transaction receipt not found")
	ErrTransactionFailed   = errors.New("transaction failed")
	ErrNoTransferFound     = errors.New("no token transfer found in transaction")
	ErrAlreadyProcessed    = errors.New("transaction already processed")
)

// SenderMismatchError means the token left a wallet other than the caller's.
type SenderMismatchError struct {
	TrueSender     common.Address
	ApparentSender common.Address
	ClaimedWallet  common.Address
}

func (e *SenderMismatchError) Error() string {
	return fmt.Sprintf("transfer sender %s does not match wallet %s", e.TrueSender.Hex(), e.ClaimedWallet.Hex())
}

// StatusCode maps a validation error to its HTTP status.
func StatusCode(err error) int {
	var mismatch *SenderMismatchError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAlreadyProcessed):
		return http.StatusConflict
	case errors.As(err, &mismatch):
		return http.StatusForbidden
	case errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrReceiptNotFound),
		errors.Is(err, ErrTransactionFailed),
		errors.Is(err, ErrNoTransferFound):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func outcome(err error) string {
	var mismatch *SenderMismatchError
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, ErrAlreadyProcessed):
		return "already_processed"
	case errors.As(err, &mismatch):
		return "sender_mismatch"
	case errors.Is(err, ErrTransactionNotFound), errors.Is(err, ErrReceiptNotFound):
		return "not_found"
	case errors.Is(err, ErrTransactionFailed):
		return "failed"
	case errors.Is(err, ErrNoTransferFound):
		return "no_transfer"
	}
	return "error"
}
