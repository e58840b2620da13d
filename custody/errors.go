package custody

import (
	"errors"
	"fmt"
)

var (
	ErrNoWalletFound     = errors.New("no wallet found")
	ErrInvalidCredential = errors.New("invalid credential")
)

// APIError is a non-2xx answer from the custodial service.
type APIError struct {
	Path    string
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("custodial api %s: status %d: %s", e.Path, e.Status, e.Message)
}
