package aa

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"gorecovery/EVMRPC"
	"gorecovery/networks"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github.com/ybbus/jsonrpc"
)

const testChainID = 137

var counterfactual = common.HexToAddress("0x00000000000000000000000000000000000c0ffe")

// fakeChain answers the factory and entry point calls a Kernel account makes.
type fakeChain struct {
	EVMRPC.Client
	mu       sync.Mutex
	deployed bool
	nonce    int64
	callErr  error
}

func (f *fakeChain) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.callErr != nil {
		return nil, f.callErr
	}
	switch *msg.To {
	case kernelDeployments[KernelV3_1].factory, kernelDeployments[KernelV3_0].factory:
		return factoryABI.Methods["getAddress"].Outputs.Pack(counterfactual)
	case EntryPointV07:
		return entryPointABI.Methods["getNonce"].Outputs.Pack(big.NewInt(f.nonce))
	}
	return nil, nil
}

func (f *fakeChain) CodeAt(ctx context.Context, account common.Address, block *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.callErr != nil {
		return nil, f.callErr
	}
	if f.deployed {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

func (f *fakeChain) Close() {}

func testPool(chain EVMRPC.Client) *EVMRPC.Pool {
	reg := networks.NewRegistry(networks.Defaults, nil)
	return EVMRPC.NewPool(reg, func(ctx context.Context, url string) (EVMRPC.Client, error) {
		return chain, nil
	})
}

type localSigner struct {
	key *ecdsa.PrivateKey
}

func newLocalSigner(t *testing.T) *localSigner {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &localSigner{key: key}
}

func (s *localSigner) Address() common.Address { return crypto.PubkeyToAddress(s.key.PublicKey) }

func (s *localSigner) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(msg), s.key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

type rpcHandler func(params json.RawMessage) (interface{}, *jsonrpc.RPCError)

// rpcServer is a minimal JSON-RPC endpoint recording the methods it served.
type rpcServer struct {
	*httptest.Server
	mu       sync.Mutex
	handlers map[string]rpcHandler
	calls    []string
}

func newRPCServer(handlers map[string]rpcHandler) *rpcServer {
	s := &rpcServer{handlers: handlers}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int             `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.calls = append(s.calls, req.Method)
		h, ok := s.handlers[req.Method]
		s.mu.Unlock()

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if !ok {
			resp["error"] = &jsonrpc.RPCError{Code: -32601, Message: "method not found"}
		} else if result, rpcErr := h(req.Params); rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	}))
	return s
}

func (s *rpcServer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func gasPriceOK(json.RawMessage) (interface{}, *jsonrpc.RPCError) {
	tier := map[string]string{"maxFeePerGas": "0x3b9aca00", "maxPriorityFeePerGas": "0x5f5e100"}
	return map[string]interface{}{"slow": tier, "standard": tier, "fast": tier}, nil
}

func sponsorOK(json.RawMessage) (interface{}, *jsonrpc.RPCError) {
	return map[string]string{
		"paymaster":                     "0x00000000000000000000000000000000000000fa",
		"paymasterData":                 "0x1234",
		"paymasterVerificationGasLimit": "0x7530",
		"paymasterPostOpGasLimit":       "0x1",
		"callGasLimit":                  "0x186a0",
		"verificationGasLimit":          "0x30d40",
		"preVerificationGas":            "0xc350",
	}, nil
}

// sendOK answers with the hash of the submitted operation, like a bundler.
func sendOK(params json.RawMessage) (interface{}, *jsonrpc.RPCError) {
	var args []json.RawMessage
	if err := json.Unmarshal(params, &args); err != nil || len(args) != 2 {
		return nil, &jsonrpc.RPCError{Code: -32602, Message: "invalid params"}
	}
	var op UserOperation
	var ep common.Address
	if json.Unmarshal(args[0], &op) != nil || json.Unmarshal(args[1], &ep) != nil {
		return nil, &jsonrpc.RPCError{Code: -32602, Message: "invalid params"}
	}
	return op.Hash(ep, big.NewInt(testChainID)), nil
}

func providerFor(s *rpcServer, name string, kind ProviderKind) *ProviderClient {
	return NewProviderClient(RelayerConfig{Name: name, Kind: kind, BundlerURL: s.URL, PaymasterURL: s.URL}, testChainID, 0)
}

func bigChain() *big.Int { return big.NewInt(testChainID) }

func recoverSigner(hash common.Hash, sig []byte) (common.Address, error) {
	s := append([]byte{}, sig...)
	s[64] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash(hash.Bytes()), s)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
