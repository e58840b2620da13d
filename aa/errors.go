package aa

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ybbus/jsonrpc"
)

type UnsupportedKernelVersionError struct {
	Version string
}

func (e *UnsupportedKernelVersionError) Error() string {
	return fmt.Sprintf("unsupported kernel version %q", e.Version)
}

// ProviderError is a relayer-level failure; the next relayer may succeed.
type ProviderError struct {
	Provider string
	Stage    string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("relayer %s: %s: %s", e.Provider, e.Stage, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// UserOpRevertError is a failure of the operation itself. Other relayers
// would reject it the same way, so it is never retried.
type UserOpRevertError struct {
	Provider string
	Code     int
	Message  string
}

func (e *UserOpRevertError) Error() string {
	return fmt.Sprintf("user operation rejected by %s (%d): %s", e.Provider, e.Code, e.Message)
}

type RelayerExhaustionError struct {
	Failures []*ProviderError
}

func (e *RelayerExhaustionError) Last() *ProviderError {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[len(e.Failures)-1]
}

func (e *RelayerExhaustionError) Error() string {
	last := e.Last()
	if last == nil {
		return "no relayers configured"
	}
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Provider
	}
	return fmt.Sprintf("all relayers failed (%s), last: %s", strings.Join(names, ", "), last.Error())
}

func (e *RelayerExhaustionError) Unwrap() error {
	if last := e.Last(); last != nil {
		return last
	}
	return nil
}

// ERC-4337 bundler error codes that describe the operation, not the relayer.
const (
	codeValidationRejected = -32500
	codeOpcodeViolation    = -32502
	codeInvalidSignature   = -32507
	codeExecutionReverted  = -32521
)

// operationLevel reports whether err is an RPC error about the operation
// itself.
func operationLevel(err error) (*jsonrpc.RPCError, bool) {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return nil, false
	}
	switch rpcErr.Code {
	case codeValidationRejected, codeOpcodeViolation, codeInvalidSignature, codeExecutionReverted:
		return rpcErr, true
	}
	return rpcErr, false
}
