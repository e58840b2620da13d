package aa

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"gorecovery/EVMRPC"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type KernelVersion int

const (
	KernelV3_0 KernelVersion = iota
	KernelV3_1
)

type kernelDeployment struct {
	name           string
	implementation common.Address
	factory        common.Address
	metaFactory    common.Address
	validator      common.Address
	initialize     abi.Method
}

var kernelDeployments = map[KernelVersion]kernelDeployment{
	KernelV3_0: {
		name:           "0.3.0",
		implementation: common.HexToAddress("0x94F097E1ebEB4ecA3AAE54cabb08905B239A7D27"),
		factory:        common.HexToAddress("0x6723b44Abeec4E71eBE3232BD5B455805baDD22f"),
		metaFactory:    common.HexToAddress("0xd703aaE79538628d27099B8c4f621bE4CCd142d5"),
		validator:      common.HexToAddress("0x845ADb2C711129d4f3966735eD98a9F09fC4cE57"),
		initialize:     mustABI(kernelV30InitABI).Methods["initialize"],
	},
	KernelV3_1: {
		name:           "0.3.1",
		implementation: common.HexToAddress("0xBAC849bB641841b44E965fB01A4Bf5F074f84b4D"),
		factory:        common.HexToAddress("0xaac5D4240AF87249B3f71BC8E4A2cae074A3E419"),
		metaFactory:    common.HexToAddress("0xd703aaE79538628d27099B8c4f621bE4CCd142d5"),
		validator:      common.HexToAddress("0x845ADb2C711129d4f3966735eD98a9F09fC4cE57"),
		initialize:     mustABI(kernelV31InitABI).Methods["initialize"],
	},
}

func (v KernelVersion) String() string {
	if d, ok := kernelDeployments[v]; ok {
		return d.name
	}
	return fmt.Sprintf("unknown(%d)", int(v))
}

func ParseKernelVersion(s string) (KernelVersion, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	for v, d := range kernelDeployments {
		if d.name == s {
			return v, nil
		}
	}
	return 0, &UnsupportedKernelVersionError{Version: s}
}

const (
	kernelV30InitABI = `[{"type":"function","name":"initialize","stateMutability":"nonpayable","inputs":[{"name":"_rootValidator","type":"bytes21"},{"name":"hook","type":"address"},{"name":"validatorData","type":"bytes"},{"name":"hookData","type":"bytes"}],"outputs":[]}]`
	kernelV31InitABI = `[{"type":"function","name":"initialize","stateMutability":"nonpayable","inputs":[{"name":"_rootValidator","type":"bytes21"},{"name":"hook","type":"address"},{"name":"validatorData","type":"bytes"},{"name":"hookData","type":"bytes"},{"name":"initConfig","type":"bytes[]"}],"outputs":[]}]`
	kernelABIJSON    = `[
		{"type":"function","name":"execute","stateMutability":"payable","inputs":[{"name":"execMode","type":"bytes32"},{"name":"executionCalldata","type":"bytes"}],"outputs":[]}
	]`
	factoryABIJSON = `[
		{"type":"function","name":"getAddress","stateMutability":"view","inputs":[{"name":"data","type":"bytes"},{"name":"salt","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
		{"type":"function","name":"createAccount","stateMutability":"payable","inputs":[{"name":"data","type":"bytes"},{"name":"salt","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}
	]`
	metaFactoryABIJSON = `[
		{"type":"function","name":"deployWithFactory","stateMutability":"payable","inputs":[{"name":"factory","type":"address"},{"name":"createData","type":"bytes"},{"name":"salt","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}
	]`
	entryPointABIJSON = `[
		{"type":"function","name":"getNonce","stateMutability":"view","inputs":[{"name":"sender","type":"address"},{"name":"key","type":"uint192"}],"outputs":[{"name":"nonce","type":"uint256"}]}
	]`
)

var (
	kernelABI      = mustABI(kernelABIJSON)
	factoryABI     = mustABI(factoryABIJSON)
	metaFactoryABI = mustABI(metaFactoryABIJSON)
	entryPointABI  = mustABI(entryPointABIJSON)
)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// dummySignature has the shape of an ECDSA validator signature and is used
// while estimating and sponsoring.
var dummySignature = hexutil.MustDecode("0xfffffffffffffffffffffffffffffff0000000000000000000000000000000007aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1c")

// Call is one contract interaction executed by the account.
type Call struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// KernelAccount is a Kernel v3 smart account owned by an ECDSA validator.
type KernelAccount struct {
	rpc        *EVMRPC.Pool
	chainID    int64
	version    KernelVersion
	deployment kernelDeployment
	owner      common.Address
	index      *big.Int
	initData   []byte
	address    common.Address
	EntryPoint common.Address
}

// NewKernelAccount derives the counterfactual address of the account owned by
// owner on chainID.
func NewKernelAccount(ctx context.Context, pool *EVMRPC.Pool, chainID int64, version KernelVersion, owner common.Address, index uint64) (*KernelAccount, error) {
	d, ok := kernelDeployments[version]
	if !ok {
		return nil, &UnsupportedKernelVersionError{Version: version.String()}
	}
	if _, err := pool.Networks().Require(chainID); err != nil {
		return nil, err
	}

	var rootValidator [21]byte
	rootValidator[0] = 0x01 // validation type: validator
	copy(rootValidator[1:], d.validator.Bytes())

	args := []interface{}{rootValidator, common.Address{}, owner.Bytes(), []byte{}}
	if version == KernelV3_1 {
		args = append(args, [][]byte{})
	}
	packed, err := d.initialize.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("encode kernel initialize: %w", err)
	}

	a := &KernelAccount{
		rpc:        pool,
		chainID:    chainID,
		version:    version,
		deployment: d,
		owner:      owner,
		index:      new(big.Int).SetUint64(index),
		initData:   append(append([]byte{}, d.initialize.ID...), packed...),
		EntryPoint: EntryPointV07,
	}

	callData, err := factoryABI.Pack("getAddress", a.initData, a.salt())
	if err != nil {
		return nil, err
	}
	out, err := a.call(ctx, d.factory, callData)
	if err != nil {
		return nil, fmt.Errorf("resolve kernel address: %w", err)
	}
	res, err := factoryABI.Unpack("getAddress", out)
	if err != nil {
		return nil, fmt.Errorf("decode kernel address: %w", err)
	}
	a.address = res[0].(common.Address)
	return a, nil
}

func (a *KernelAccount) salt() [32]byte {
	var s [32]byte
	a.index.FillBytes(s[:])
	return s
}

func (a *KernelAccount) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return EVMRPC.WithClient(ctx, a.rpc, a.chainID, func(client EVMRPC.Client) ([]byte, error) {
		return client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	})
}

func (a *KernelAccount) Address() common.Address { return a.address }
func (a *KernelAccount) Owner() common.Address   { return a.owner }
func (a *KernelAccount) ChainID() int64          { return a.chainID }
func (a *KernelAccount) Version() KernelVersion  { return a.version }

// IsDeployed reports whether the account has code on chain.
func (a *KernelAccount) IsDeployed(ctx context.Context) (bool, error) {
	return EVMRPC.WithClient(ctx, a.rpc, a.chainID, func(client EVMRPC.Client) (bool, error) {
		code, err := client.CodeAt(ctx, a.address, nil)
		if err != nil {
			return false, err
		}
		return len(code) > 0, nil
	})
}

// FactoryData is the meta factory call deploying the account.
func (a *KernelAccount) FactoryData() (common.Address, []byte, error) {
	data, err := metaFactoryABI.Pack("deployWithFactory", a.deployment.factory, a.initData, a.salt())
	return a.deployment.metaFactory, data, err
}

// nonceKey selects the root validator in default mode:
// mode (1) | type (1) | validator (20) | custom key (2).
func (a *KernelAccount) nonceKey() *big.Int {
	key := make([]byte, 24)
	copy(key[2:22], a.deployment.validator.Bytes())
	return new(big.Int).SetBytes(key)
}

func (a *KernelAccount) Nonce(ctx context.Context) (*big.Int, error) {
	data, err := entryPointABI.Pack("getNonce", a.address, a.nonceKey())
	if err != nil {
		return nil, err
	}
	out, err := a.call(ctx, a.EntryPoint, data)
	if err != nil {
		return nil, fmt.Errorf("read account nonce: %w", err)
	}
	res, err := entryPointABI.Unpack("getNonce", out)
	if err != nil {
		return nil, err
	}
	return res[0].(*big.Int), nil
}

// EncodeCall wraps a single call in execute(mode, target || value || data).
func (a *KernelAccount) EncodeCall(c Call) ([]byte, error) {
	value := c.Value
	if value == nil {
		value = new(big.Int)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative call value")
	}
	execution := make([]byte, 0, 20+32+len(c.Data))
	execution = append(execution, c.To.Bytes()...)
	execution = append(execution, word(value.Bytes())...)
	execution = append(execution, c.Data...)
	var mode [32]byte // single call, default exec type
	return kernelABI.Pack("execute", mode, execution)
}

// PrepareUserOperation fills sender, nonce, init code and call data. Gas
// fields and the paymaster are left to the relayer attempt.
func (a *KernelAccount) PrepareUserOperation(ctx context.Context, c Call) (*UserOperation, error) {
	callData, err := a.EncodeCall(c)
	if err != nil {
		return nil, err
	}
	nonce, err := a.Nonce(ctx)
	if err != nil {
		return nil, err
	}
	op := &UserOperation{
		Sender:               a.address,
		Nonce:                hb(nonce),
		CallData:             callData,
		CallGasLimit:         hb(nil),
		VerificationGasLimit: hb(nil),
		PreVerificationGas:   hb(nil),
		MaxFeePerGas:         hb(nil),
		MaxPriorityFeePerGas: hb(nil),
		Signature:            dummySignature,
	}

	deployed, err := a.IsDeployed(ctx)
	if err != nil {
		return nil, fmt.Errorf("check account code: %w", err)
	}
	if !deployed {
		factory, data, err := a.FactoryData()
		if err != nil {
			return nil, err
		}
		op.Factory = &factory
		op.FactoryData = data
	}
	return op, nil
}
