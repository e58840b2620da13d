package aa

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ybbus/jsonrpc"
)

func newTestClient(t *testing.T, providers ...*ProviderClient) (*FallbackClient, *localSigner) {
	acc, err := NewKernelAccount(context.Background(), testPool(&fakeChain{}), testChainID, KernelV3_1, common.Address{}, 0)
	require.NoError(t, err)
	signer := newLocalSigner(t)
	return NewFallbackClient(acc, signer, providers, 10*time.Millisecond, time.Second), signer
}

func TestFallbackAdvancesOnProviderError(t *testing.T) {
	broken := newRPCServer(map[string]rpcHandler{
		"zd_getUserOperationGasPrice": gasPriceOK,
		"zd_sponsorUserOperation": func(json.RawMessage) (interface{}, *jsonrpc.RPCError) {
			return nil, &jsonrpc.RPCError{Code: -32501, Message: "paymaster policy rejected"}
		},
		"eth_sendUserOperation": sendOK,
	})
	defer broken.Close()
	healthy := newRPCServer(map[string]rpcHandler{
		"pimlico_getUserOperationGasPrice": gasPriceOK,
		"pm_sponsorUserOperation":          sponsorOK,
		"eth_sendUserOperation":            sendOK,
	})
	defer healthy.Close()

	client, _ := newTestClient(t, providerFor(broken, "zerodev", ZeroDev), providerFor(healthy, "pimlico", Pimlico))

	hash, err := client.SendUserOperation(context.Background(), Call{})
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)

	assert.Equal(t, []string{"zd_getUserOperationGasPrice", "zd_sponsorUserOperation"}, broken.Calls(),
		"failed relayer is never asked to broadcast")
	assert.Equal(t, []string{"pimlico_getUserOperationGasPrice", "pm_sponsorUserOperation", "eth_sendUserOperation"}, healthy.Calls())
}

func TestFallbackStopsOnOperationRevert(t *testing.T) {
	first := newRPCServer(map[string]rpcHandler{
		"pimlico_getUserOperationGasPrice": gasPriceOK,
		"pm_sponsorUserOperation":          sponsorOK,
		"eth_sendUserOperation": func(json.RawMessage) (interface{}, *jsonrpc.RPCError) {
			return nil, &jsonrpc.RPCError{Code: -32521, Message: "execution reverted: ERC20: transfer amount exceeds balance"}
		},
	})
	defer first.Close()
	second := newRPCServer(map[string]rpcHandler{})
	defer second.Close()

	client, _ := newTestClient(t, providerFor(first, "a", Pimlico), providerFor(second, "b", Pimlico))

	_, err := client.SendUserOperation(context.Background(), Call{})
	var revert *UserOpRevertError
	require.True(t, errors.As(err, &revert))
	assert.Equal(t, "a", revert.Provider)
	assert.Equal(t, -32521, revert.Code)
	assert.Equal(t, "execution reverted: ERC20: transfer amount exceeds balance", revert.Message)
	assert.Empty(t, second.Calls())
}

func TestFallbackExhaustion(t *testing.T) {
	a := newRPCServer(map[string]rpcHandler{})
	defer a.Close()
	b := newRPCServer(map[string]rpcHandler{
		"pimlico_getUserOperationGasPrice": gasPriceOK,
		"pm_sponsorUserOperation": func(json.RawMessage) (interface{}, *jsonrpc.RPCError) {
			return nil, &jsonrpc.RPCError{Code: -32504, Message: "paymaster throttled"}
		},
	})
	defer b.Close()

	client, _ := newTestClient(t, providerFor(a, "a", ZeroDev), providerFor(b, "b", Pimlico))

	_, err := client.SendUserOperation(context.Background(), Call{})
	var exhausted *RelayerExhaustionError
	require.True(t, errors.As(err, &exhausted))
	require.Len(t, exhausted.Failures, 2)
	assert.Equal(t, "b", exhausted.Last().Provider)
	assert.Equal(t, "sponsor", exhausted.Last().Stage)
	assert.Contains(t, err.Error(), "paymaster throttled")
}

func TestSignedOperationVerifies(t *testing.T) {
	var received UserOperation
	srv := newRPCServer(map[string]rpcHandler{
		"pimlico_getUserOperationGasPrice": gasPriceOK,
		"pm_sponsorUserOperation":          sponsorOK,
		"eth_sendUserOperation": func(params json.RawMessage) (interface{}, *jsonrpc.RPCError) {
			var args []json.RawMessage
			_ = json.Unmarshal(params, &args)
			_ = json.Unmarshal(args[0], &received)
			return sendOK(params)
		},
	})
	defer srv.Close()

	client, signer := newTestClient(t, providerFor(srv, "p", Pimlico))
	hash, err := client.SendUserOperation(context.Background(), Call{})
	require.NoError(t, err)

	assert.Equal(t, hash, received.Hash(EntryPointV07, bigChain()))
	require.NotNil(t, received.Paymaster)
	assert.Equal(t, int64(100000), bi(received.CallGasLimit).Int64())
	assert.Equal(t, int64(1000000000), bi(received.MaxFeePerGas).Int64())

	recovered, err := recoverSigner(hash, received.Signature)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)
}

func TestWaitForReceipt(t *testing.T) {
	var polls int32
	srv := newRPCServer(map[string]rpcHandler{
		"pimlico_getUserOperationGasPrice": gasPriceOK,
		"pm_sponsorUserOperation":          sponsorOK,
		"eth_sendUserOperation":            sendOK,
		"eth_getUserOperationReceipt": func(json.RawMessage) (interface{}, *jsonrpc.RPCError) {
			if atomic.AddInt32(&polls, 1) < 3 {
				return nil, nil
			}
			return map[string]interface{}{
				"success": false,
				"reason":  "AA33 reverted: paymaster balance too low",
				"receipt": map[string]string{
					"transactionHash": "0x00000000000000000000000000000000000000000000000000000000000000ff",
				},
			}, nil
		},
	})
	defer srv.Close()

	client, _ := newTestClient(t, providerFor(srv, "p", Pimlico))
	hash, err := client.SendUserOperation(context.Background(), Call{})
	require.NoError(t, err)

	receipt, err := client.WaitForReceipt(context.Background(), hash)
	require.NoError(t, err)
	assert.False(t, receipt.Success)
	assert.Equal(t, "AA33 reverted: paymaster balance too low", receipt.Reason)
	assert.Equal(t, common.HexToHash("0xff"), receipt.TransactionHash)
	assert.Equal(t, int32(3), atomic.LoadInt32(&polls))

	_, err = client.WaitForReceipt(context.Background(), common.HexToHash("0x01"))
	assert.Error(t, err)
}

func TestWaitForReceiptTimesOut(t *testing.T) {
	srv := newRPCServer(map[string]rpcHandler{
		"pimlico_getUserOperationGasPrice": gasPriceOK,
		"pm_sponsorUserOperation":          sponsorOK,
		"eth_sendUserOperation":            sendOK,
		"eth_getUserOperationReceipt": func(json.RawMessage) (interface{}, *jsonrpc.RPCError) {
			return nil, nil
		},
	})
	defer srv.Close()

	client, _ := newTestClient(t, providerFor(srv, "p", Pimlico))
	client.timeout = 50 * time.Millisecond
	hash, err := client.SendUserOperation(context.Background(), Call{})
	require.NoError(t, err)

	_, err = client.WaitForReceipt(context.Background(), hash)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
