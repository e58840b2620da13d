package txbuilder

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"gorecovery/EVMRPC"
	"gorecovery/networks"
	"gorecovery/templates"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tokenAddr     = "0x2bA64EFB7A4Ec8983E22A49c81fa216AC33f383A"
	recipientAddr = "0x00000000000000000000000000000000000000aa"
)

type fakeChain struct {
	EVMRPC.Client
	gas    uint64
	gasErr error
	price  *big.Int
}

func (f *fakeChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) { return f.price, nil }
func (f *fakeChain) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return f.gas, f.gasErr
}
func (f *fakeChain) Close() {}

func newBuilder(chain *fakeChain) *Builder {
	reg := networks.NewRegistry(networks.Defaults, nil)
	return New(EVMRPC.NewPool(reg, func(ctx context.Context, url string) (EVMRPC.Client, error) {
		return chain, nil
	}))
}

func erc20Config(t *testing.T, params ...interface{}) Config {
	tpl, err := templates.MustNewRegistry().Get("erc20-transfer")
	require.NoError(t, err)
	return Config{
		ChainID:         137,
		ContractAddress: tokenAddr,
		InterfaceJSON:   tpl.InterfaceJSON,
		FunctionName:    "transfer",
		Parameters:      params,
	}
}

func TestBuildCallDataTransfer(t *testing.T) {
	b := newBuilder(&fakeChain{})

	data, err := b.BuildCallData(erc20Config(t, recipientAddr, "10"))
	require.NoError(t, err)

	want := "a9059cbb" +
		"00000000000000000000000000000000000000000000000000000000000000aa" +
		"000000000000000000000000000000000000000000000000000000000000000a"
	assert.Equal(t, want, hex.EncodeToString(data))
}

func TestBuildCallDataErrors(t *testing.T) {
	b := newBuilder(&fakeChain{})

	cfg := erc20Config(t, recipientAddr, "10")
	cfg.FunctionName = "mint"
	_, err := b.BuildCallData(cfg)
	assert.True(t, errors.Is(err, ErrUnknownFunction))

	for _, bad := range []interface{}{"abc", "1.5", 1.5, "-1", true, ""} {
		_, err = b.BuildCallData(erc20Config(t, recipientAddr, bad))
		var encErr *EncodingError
		require.True(t, errors.As(err, &encErr), "%v", bad)
		assert.Equal(t, 1, encErr.Index)
		assert.Equal(t, "amount", encErr.Name)
		assert.Equal(t, "uint256", encErr.Type)
	}

	_, err = b.BuildCallData(erc20Config(t, "0x1234", "10"))
	var encErr *EncodingError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, 0, encErr.Index)

	cfg = erc20Config(t, recipientAddr, "10")
	cfg.InterfaceJSON = "{not json"
	_, err = b.BuildCallData(cfg)
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestNormalizeRanges(t *testing.T) {
	iface, err := parseInterface(`[{"type":"function","name":"f","inputs":[{"name":"a","type":"uint8"},{"name":"b","type":"int16"},{"name":"c","type":"bytes4"},{"name":"d","type":"address[2]"}],"outputs":[]}]`)
	require.NoError(t, err)
	inputs := iface.Methods["f"].Inputs

	args, err := NormalizeArgs(inputs, []interface{}{"255", "-32768", "0xdeadbeef", []interface{}{recipientAddr, tokenAddr}})
	require.NoError(t, err)
	assert.Equal(t, uint8(255), args[0])
	assert.Equal(t, int16(-32768), args[1])
	assert.Equal(t, [4]byte{0xde, 0xad, 0xbe, 0xef}, args[2])
	assert.Equal(t, [2]common.Address{common.HexToAddress(recipientAddr), common.HexToAddress(tokenAddr)}, args[3])

	cases := [][]interface{}{
		{"256", "0", "0xdeadbeef", []interface{}{recipientAddr, tokenAddr}},
		{"1", "32768", "0xdeadbeef", []interface{}{recipientAddr, tokenAddr}},
		{"1", "0", "0xdead", []interface{}{recipientAddr, tokenAddr}},
		{"1", "0", "0xdeadbeef", []interface{}{recipientAddr}},
	}
	for i, c := range cases {
		_, err := NormalizeArgs(inputs, c)
		var encErr *EncodingError
		require.True(t, errors.As(err, &encErr), "case %d", i)
		assert.Equal(t, i, encErr.Index)
	}
}

func sampleValue(t *testing.T, typ string) interface{} {
	switch typ {
	case "address":
		return recipientAddr
	case "uint256":
		return "1000000000000000000000"
	case "uint256[]":
		return []interface{}{"1", "2", "3"}
	case "bytes":
		return "0x0102"
	case "bool":
		return true
	}
	t.Fatalf("no sample for %s", typ)
	return nil
}

func TestTemplatesRoundTrip(t *testing.T) {
	reg := templates.MustNewRegistry()

	for _, tpl := range reg.List() {
		t.Run(tpl.ID, func(t *testing.T) {
			params := make([]interface{}, len(tpl.ParameterTemplates))
			for i, p := range tpl.ParameterTemplates {
				params[i] = sampleValue(t, p.Type)
			}
			method := tpl.Interface().Methods[tpl.DefaultFunction]
			normalized, err := NormalizeArgs(method.Inputs, params)
			require.NoError(t, err)

			data, err := EncodeCall(tpl.Interface(), tpl.DefaultFunction, params)
			require.NoError(t, err)

			decodedMethod, decoded, err := templates.DecodeCallData(tpl.Interface(), data)
			require.NoError(t, err)
			assert.Equal(t, tpl.DefaultFunction, decodedMethod.Name)
			assert.Equal(t, normalized, decoded)
		})
	}
}

func TestEstimateCost(t *testing.T) {
	chain := &fakeChain{gas: 21000, price: big.NewInt(30_000_000_000)}
	b := newBuilder(chain)

	est, err := b.EstimateCost(context.Background(), erc20Config(t, recipientAddr, "10"))
	require.NoError(t, err)
	assert.Equal(t, uint64(25200), est.GasLimit)
	assert.Equal(t, big.NewInt(30_000_000_000), est.GasPrice)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(25200), big.NewInt(30_000_000_000)), est.EstimatedCost)
	assert.False(t, est.Sponsored)

	chain.gasErr = errors.New("execution reverted")
	est, err = b.EstimateCost(context.Background(), erc20Config(t, recipientAddr, "10"))
	require.NoError(t, err)
	assert.Equal(t, DefaultGasLimit, est.GasLimit)

	cfg := erc20Config(t, recipientAddr, "10")
	cfg.ChainID = 5
	_, err = b.EstimateCost(context.Background(), cfg)
	var unsupported *networks.UnsupportedNetworkError
	assert.True(t, errors.As(err, &unsupported))
}

func TestEstimateCostSponsored(t *testing.T) {
	b := newBuilder(&fakeChain{})

	cfg := erc20Config(t, recipientAddr, "10")
	cfg.Sponsored = true
	est, err := b.EstimateCost(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, est.Sponsored)
	assert.Equal(t, "sponsored", est.Note)
	assert.Equal(t, SponsoredGasAllowance, est.GasLimit)
	assert.Equal(t, 0, est.EstimatedCost.Sign())
}

func TestApplyGasMultiplier(t *testing.T) {
	assert.Equal(t, uint64(12), ApplyGasMultiplier(10))
	assert.Equal(t, uint64(13), ApplyGasMultiplier(11))
	assert.GreaterOrEqual(t, ApplyGasMultiplier(123457)*10, uint64(123457*12))
}

func TestValidateConfigAccumulates(t *testing.T) {
	b := newBuilder(&fakeChain{})

	res := b.ValidateConfig(erc20Config(t, recipientAddr, "10"))
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)

	cfg := erc20Config(t, recipientAddr)
	cfg.ChainID = 5
	cfg.ContractAddress = "0x123"
	res = b.ValidateConfig(cfg)
	assert.False(t, res.IsValid)
	assert.Len(t, res.Errors, 3)

	cfg = erc20Config(t, "nope", "ten")
	res = b.ValidateConfig(cfg)
	assert.Len(t, res.Errors, 2)

	cfg.InterfaceJSON = ""
	cfg.ContractAddress = "0x2ba64efb7a4ec8983e22a49c81fa216ac33f383A"
	res = b.ValidateConfig(cfg)
	assert.Len(t, res.Errors, 2, "bad checksum and invalid abi")
}

func TestCreatePreview(t *testing.T) {
	b := newBuilder(&fakeChain{gas: 50000, price: big.NewInt(1)})

	cfg := erc20Config(t, recipientAddr, "10")
	p, err := b.CreatePreview(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(tokenAddr).Hex(), p.To)
	assert.Equal(t, "0xa9059cbb", p.Data[:10])
	assert.Equal(t, uint64(60000), p.GasLimit)
	assert.Equal(t, 0, p.Value.Sign())

	cfg.ContractAddress = "bad"
	_, err = b.CreatePreview(context.Background(), cfg)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Len(t, cfgErr.Errors, 1)
}

type balanceChain struct {
	EVMRPC.Client
	erc20 abi.ABI
}

func (c balanceChain) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	switch {
	case bytes.HasPrefix(msg.Data, c.erc20.Methods["balanceOf"].ID):
		amount, _ := new(big.Int).SetString("2500000000000000000", 10)
		return c.erc20.Methods["balanceOf"].Outputs.Pack(amount)
	case bytes.HasPrefix(msg.Data, c.erc20.Methods["decimals"].ID):
		return c.erc20.Methods["decimals"].Outputs.Pack(uint8(18))
	}
	return nil, errors.New("unexpected call")
}

func (c balanceChain) CodeAt(ctx context.Context, account common.Address, block *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (balanceChain) Close() {}

func TestTokenBalance(t *testing.T) {
	erc20, err := templates.MustNewRegistry().InterfaceFor(templates.ERC20)
	require.NoError(t, err)
	chain := balanceChain{erc20: erc20}
	pool := EVMRPC.NewPool(networks.NewRegistry(networks.Defaults, nil), func(ctx context.Context, url string) (EVMRPC.Client, error) {
		return chain, nil
	})

	token := common.HexToAddress("0x2bA64EFB7A4Ec8983E22A49c81fa216AC33f383A")
	holder := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	bal, err := New(pool).TokenBalance(context.Background(), 137, erc20, token, holder)
	require.NoError(t, err)
	assert.Equal(t, "2500000000000000000", bal.Amount.String())
	assert.Equal(t, uint8(18), bal.Decimals)
	assert.Equal(t, "2.5", bal.Value.String())

	_, err = New(pool).TokenBalance(context.Background(), 5, erc20, token, holder)
	var unsupported *networks.UnsupportedNetworkError
	assert.True(t, errors.As(err, &unsupported))
}
