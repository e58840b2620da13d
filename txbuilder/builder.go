// Package txbuilder encodes contract calls described by an interface JSON
// and prices them on the target chain.
package txbuilder

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"gorecovery/EVMRPC"
	"gorecovery/logger"
	"gorecovery/networks"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

const (
	// gas limit used when estimation fails on a plain transaction
	DefaultGasLimit uint64 = 200000
	// nominal allowance reported for paymaster-sponsored operations
	SponsoredGasAllowance uint64 = 300000
	// estimate * GasMultiplierNum / GasMultiplierDen, rounded up
	GasMultiplierNum = 12
	GasMultiplierDen = 10
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Config describes one contract call. It is built per user action and
// consumed once.
type Config struct {
	ChainID         int64         `json:"chainId"`
	ContractAddress string        `json:"contractAddress"`
	InterfaceJSON   string        `json:"abi"`
	FunctionName    string        `json:"functionName"`
	Parameters      []interface{} `json:"parameters"`
	GasLimit        *uint64       `json:"gasLimit,omitempty"`
	GasPrice        *big.Int      `json:"gasPrice,omitempty"`
	Value           *big.Int      `json:"value,omitempty"`
	// sender used for gas estimation, usually the smart account
	From string `json:"from,omitempty"`
	// execution goes through a paymaster
	Sponsored bool `json:"sponsored,omitempty"`
}

type CostEstimate struct {
	GasLimit      uint64   `json:"gasLimit"`
	GasPrice      *big.Int `json:"gasPrice"`
	EstimatedCost *big.Int `json:"estimatedCost"`
	Sponsored     bool     `json:"sponsored"`
	Note          string   `json:"note,omitempty"`
}

type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

type Preview struct {
	To            string        `json:"to"`
	Data          string        `json:"data"`
	Value         *big.Int      `json:"value"`
	GasLimit      uint64        `json:"gasLimit"`
	GasPrice      *big.Int      `json:"gasPrice"`
	EstimatedCost *big.Int      `json:"estimatedCost"`
	FunctionName  string        `json:"functionName"`
	Parameters    []interface{} `json:"parameters"`
	Sponsored     bool          `json:"sponsored"`
	Note          string        `json:"note,omitempty"`
}

type Builder struct {
	networks *networks.Registry
	rpc      *EVMRPC.Pool
}

func New(pool *EVMRPC.Pool) *Builder {
	return &Builder{networks: pool.Networks(), rpc: pool}
}

// ValidateAddress accepts 0x followed by 40 hex characters. Mixed-case input
// must carry a valid checksum.
func ValidateAddress(s string) error {
	if !addressPattern.MatchString(s) {
		return fmt.Errorf("invalid address %q: expected 0x followed by 40 hex characters", s)
	}
	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if common.HexToAddress(s).Hex() != s {
			return fmt.Errorf("invalid address %q: bad checksum", s)
		}
	}
	return ethav.Validate(common.HexToAddress(s).Hex())
}

func parseInterface(raw string) (abi.ABI, error) {
	if strings.TrimSpace(raw) == "" {
		return abi.ABI{}, errors.New("empty abi")
	}
	return abi.JSON(strings.NewReader(raw))
}

// BuildCallData resolves the named function and packs the parameters
// positionally against its inputs.
func (b *Builder) BuildCallData(cfg Config) ([]byte, error) {
	iface, err := parseInterface(cfg.InterfaceJSON)
	if err != nil {
		return nil, &ConfigurationError{Errors: []string{"invalid abi: " + err.Error()}}
	}
	return EncodeCall(iface, cfg.FunctionName, cfg.Parameters)
}

// EncodeCall packs params for the named method of iface.
func EncodeCall(iface abi.ABI, functionName string, params []interface{}) ([]byte, error) {
	method, ok := iface.Methods[functionName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, functionName)
	}
	args, err := NormalizeArgs(method.Inputs, params)
	if err != nil {
		return nil, err
	}
	packed, err := method.Inputs.Pack(args...)
	if err != nil {
		return nil, &EncodingError{Index: -1, Type: method.Sig, Reason: err.Error()}
	}
	return append(append([]byte{}, method.ID...), packed...), nil
}

// EstimateCost prices the call. Sponsored calls are not simulated: they get
// SponsoredGasAllowance at zero cost and the paymaster settles the real fee.
func (b *Builder) EstimateCost(ctx context.Context, cfg Config) (CostEstimate, error) {
	if cfg.Sponsored {
		return CostEstimate{
			GasLimit:      SponsoredGasAllowance,
			GasPrice:      new(big.Int),
			EstimatedCost: new(big.Int),
			Sponsored:     true,
			Note:          "sponsored",
		}, nil
	}

	if _, err := b.networks.Require(cfg.ChainID); err != nil {
		return CostEstimate{}, err
	}
	data, err := b.BuildCallData(cfg)
	if err != nil {
		return CostEstimate{}, err
	}
	to := common.HexToAddress(cfg.ContractAddress)
	msg := ethereum.CallMsg{To: &to, Data: data, Value: cfg.Value}
	if cfg.From != "" {
		msg.From = common.HexToAddress(cfg.From)
	}

	return EVMRPC.WithClient(ctx, b.rpc, cfg.ChainID, func(client EVMRPC.Client) (CostEstimate, error) {
		gasPrice := cfg.GasPrice
		if gasPrice == nil {
			gasPrice, err = client.SuggestGasPrice(ctx)
			if err != nil {
				return CostEstimate{}, err
			}
		}

		var gasLimit uint64
		if cfg.GasLimit != nil {
			gasLimit = *cfg.GasLimit
		} else {
			estimated, err := client.EstimateGas(ctx, msg)
			if err != nil {
				logger.Warn("gas estimation failed, using default limit",
					zap.Int64("chainId", cfg.ChainID),
					zap.String("to", to.Hex()),
					zap.Uint64("gasLimit", DefaultGasLimit),
					zap.Error(err))
				gasLimit = DefaultGasLimit
			} else {
				gasLimit = ApplyGasMultiplier(estimated)
			}
		}

		return CostEstimate{
			GasLimit:      gasLimit,
			GasPrice:      gasPrice,
			EstimatedCost: new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), gasPrice),
		}, nil
	})
}

func ApplyGasMultiplier(gas uint64) uint64 {
	return (gas*GasMultiplierNum + GasMultiplierDen - 1) / GasMultiplierDen
}

// ValidateConfig reports every problem with cfg instead of stopping at the
// first one.
func (b *Builder) ValidateConfig(cfg Config) ValidationResult {
	errs := []string{}

	if _, ok := b.networks.Get(cfg.ChainID); !ok {
		errs = append(errs, (&networks.UnsupportedNetworkError{ChainID: cfg.ChainID}).Error())
	}
	if err := ValidateAddress(cfg.ContractAddress); err != nil {
		errs = append(errs, "contract address: "+err.Error())
	}
	if cfg.From != "" {
		if err := ValidateAddress(cfg.From); err != nil {
			errs = append(errs, "from address: "+err.Error())
		}
	}
	if cfg.Value != nil && cfg.Value.Sign() < 0 {
		errs = append(errs, "value must not be negative")
	}

	iface, err := parseInterface(cfg.InterfaceJSON)
	if err != nil {
		errs = append(errs, "invalid abi: "+err.Error())
		return ValidationResult{IsValid: false, Errors: errs}
	}
	method, ok := iface.Methods[cfg.FunctionName]
	if !ok {
		errs = append(errs, fmt.Sprintf("function %q not found in abi", cfg.FunctionName))
		return ValidationResult{IsValid: false, Errors: errs}
	}
	if len(cfg.Parameters) != len(method.Inputs) {
		errs = append(errs, fmt.Sprintf("function %s expects %d parameters, got %d", cfg.FunctionName, len(method.Inputs), len(cfg.Parameters)))
	} else {
		for i, in := range method.Inputs {
			if _, err := normalize(in.Type, cfg.Parameters[i]); err != nil {
				errs = append(errs, (&EncodingError{Index: i, Name: in.Name, Type: in.Type.String(), Reason: err.Error()}).Error())
			}
		}
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// CreatePreview validates, encodes and prices cfg. Nothing is submitted.
func (b *Builder) CreatePreview(ctx context.Context, cfg Config) (Preview, error) {
	if res := b.ValidateConfig(cfg); !res.IsValid {
		return Preview{}, &ConfigurationError{Errors: res.Errors}
	}
	data, err := b.BuildCallData(cfg)
	if err != nil {
		return Preview{}, err
	}
	cost, err := b.EstimateCost(ctx, cfg)
	if err != nil {
		return Preview{}, err
	}
	value := cfg.Value
	if value == nil {
		value = new(big.Int)
	}
	return Preview{
		To:            common.HexToAddress(cfg.ContractAddress).Hex(),
		Data:          hexutil.Encode(data),
		Value:         value,
		GasLimit:      cost.GasLimit,
		GasPrice:      cost.GasPrice,
		EstimatedCost: cost.EstimatedCost,
		FunctionName:  cfg.FunctionName,
		Parameters:    cfg.Parameters,
		Sponsored:     cost.Sponsored,
		Note:          cost.Note,
	}, nil
}
