package aa

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ybbus/jsonrpc"
)

// ProviderKind selects the RPC dialect of a relayer.
type ProviderKind int

const (
	ZeroDev ProviderKind = iota
	Pimlico
)

type providerDialect struct {
	name           string
	gasPriceMethod string
	sponsorMethod  string
	sponsorParams  func(op *UserOperation, entryPoint common.Address, chainID int64) []interface{}
}

var dialects = map[ProviderKind]providerDialect{
	ZeroDev: {
		name:           "zerodev",
		gasPriceMethod: "zd_getUserOperationGasPrice",
		sponsorMethod:  "zd_sponsorUserOperation",
		sponsorParams: func(op *UserOperation, entryPoint common.Address, chainID int64) []interface{} {
			return []interface{}{map[string]interface{}{
				"chainId":             chainID,
				"userOp":              op,
				"entryPointAddress":   entryPoint,
				"shouldOverrideFee":   false,
				"manualGasEstimation": false,
				"shouldConsume":       true,
			}}
		},
	},
	Pimlico: {
		name:           "pimlico",
		gasPriceMethod: "pimlico_getUserOperationGasPrice",
		sponsorMethod:  "pm_sponsorUserOperation",
		sponsorParams: func(op *UserOperation, entryPoint common.Address, chainID int64) []interface{} {
			return []interface{}{op, entryPoint}
		},
	},
}

func (k ProviderKind) String() string {
	if d, ok := dialects[k]; ok {
		return d.name
	}
	return "unknown"
}

func ParseProviderKind(s string) (ProviderKind, error) {
	for k, d := range dialects {
		if strings.EqualFold(s, d.name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown relayer kind %q", s)
}

// RelayerConfig describes one relayer. "{chainId}" in the URLs is replaced
// with the target chain.
type RelayerConfig struct {
	Name         string
	Kind         ProviderKind
	BundlerURL   string
	PaymasterURL string
}

type GasPrice struct {
	MaxFeePerGas         *hexutil.Big `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big `json:"maxPriorityFeePerGas"`
}

type gasPriceTiers struct {
	Slow     GasPrice `json:"slow"`
	Standard GasPrice `json:"standard"`
	Fast     GasPrice `json:"fast"`
}

type sponsorResult struct {
	Paymaster                     common.Address `json:"paymaster"`
	PaymasterData                 hexutil.Bytes  `json:"paymasterData"`
	PaymasterVerificationGasLimit *hexutil.Big   `json:"paymasterVerificationGasLimit"`
	PaymasterPostOpGasLimit       *hexutil.Big   `json:"paymasterPostOpGasLimit"`
	CallGasLimit                  *hexutil.Big   `json:"callGasLimit"`
	VerificationGasLimit          *hexutil.Big   `json:"verificationGasLimit"`
	PreVerificationGas            *hexutil.Big   `json:"preVerificationGas"`
	MaxFeePerGas                  *hexutil.Big   `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas          *hexutil.Big   `json:"maxPriorityFeePerGas,omitempty"`
}

// ProviderClient speaks to one relayer's bundler and paymaster.
type ProviderClient struct {
	Name      string
	kind      ProviderKind
	chainID   int64
	bundler   jsonrpc.RPCClient
	paymaster jsonrpc.RPCClient
	nextID    int64
}

func NewProviderClient(cfg RelayerConfig, chainID int64, timeout time.Duration) *ProviderClient {
	httpClient := &http.Client{Timeout: timeout}
	chain := strconv.FormatInt(chainID, 10)
	opts := &jsonrpc.RPCClientOpts{HTTPClient: httpClient}
	if cfg.PaymasterURL == "" {
		cfg.PaymasterURL = cfg.BundlerURL
	}
	return &ProviderClient{
		Name:      cfg.Name,
		kind:      cfg.Kind,
		chainID:   chainID,
		bundler:   jsonrpc.NewClientWithOpts(strings.ReplaceAll(cfg.BundlerURL, "{chainId}", chain), opts),
		paymaster: jsonrpc.NewClientWithOpts(strings.ReplaceAll(cfg.PaymasterURL, "{chainId}", chain), opts),
	}
}

// call always sends params as an array and turns RPC errors into Go errors.
func (p *ProviderClient) call(ctx context.Context, client jsonrpc.RPCClient, out interface{}, method string, params ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if params == nil {
		params = []interface{}{}
	}
	resp, err := client.CallRaw(&jsonrpc.RPCRequest{
		JSONRPC: "2.0",
		ID:      int(atomic.AddInt64(&p.nextID, 1)),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}
	return resp.GetObject(out)
}

// GasPrice asks the bundler for its standard fee tier.
func (p *ProviderClient) GasPrice(ctx context.Context) (GasPrice, error) {
	var tiers gasPriceTiers
	if err := p.call(ctx, p.bundler, &tiers, dialects[p.kind].gasPriceMethod); err != nil {
		return GasPrice{}, err
	}
	if tiers.Standard.MaxFeePerGas == nil || tiers.Standard.MaxPriorityFeePerGas == nil {
		return GasPrice{}, fmt.Errorf("incomplete gas price response")
	}
	return tiers.Standard, nil
}

// Sponsor asks the paymaster to cover op and copies its gas limits and
// paymaster fields into op.
func (p *ProviderClient) Sponsor(ctx context.Context, op *UserOperation, entryPoint common.Address) error {
	d := dialects[p.kind]
	var res sponsorResult
	if err := p.call(ctx, p.paymaster, &res, d.sponsorMethod, d.sponsorParams(op, entryPoint, p.chainID)...); err != nil {
		return err
	}
	if res.Paymaster == (common.Address{}) {
		return fmt.Errorf("paymaster returned no sponsorship")
	}
	op.Paymaster = &res.Paymaster
	op.PaymasterData = res.PaymasterData
	op.PaymasterVerificationGasLimit = hb(bi(res.PaymasterVerificationGasLimit))
	op.PaymasterPostOpGasLimit = hb(bi(res.PaymasterPostOpGasLimit))
	op.CallGasLimit = hb(bi(res.CallGasLimit))
	op.VerificationGasLimit = hb(bi(res.VerificationGasLimit))
	op.PreVerificationGas = hb(bi(res.PreVerificationGas))
	if res.MaxFeePerGas != nil && res.MaxPriorityFeePerGas != nil {
		op.MaxFeePerGas = hb(bi(res.MaxFeePerGas))
		op.MaxPriorityFeePerGas = hb(bi(res.MaxPriorityFeePerGas))
	}
	return nil
}

func (p *ProviderClient) Send(ctx context.Context, op *UserOperation, entryPoint common.Address) (common.Hash, error) {
	var hash common.Hash
	err := p.call(ctx, p.bundler, &hash, "eth_sendUserOperation", op, entryPoint)
	return hash, err
}

// Receipt returns nil while the operation is not yet included.
func (p *ProviderClient) Receipt(ctx context.Context, hash common.Hash) (*UserOperationReceipt, error) {
	var receipt *UserOperationReceipt
	if err := p.call(ctx, p.bundler, &receipt, "eth_getUserOperationReceipt", hash); err != nil {
		return nil, err
	}
	return receipt, nil
}

func applyGasPrice(op *UserOperation, price GasPrice) {
	op.MaxFeePerGas = hb((*big.Int)(price.MaxFeePerGas))
	op.MaxPriorityFeePerGas = hb((*big.Int)(price.MaxPriorityFeePerGas))
}
