package aa

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"gorecovery/networks"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKernelVersion(t *testing.T) {
	v, err := ParseKernelVersion("0.3.1")
	require.NoError(t, err)
	assert.Equal(t, KernelV3_1, v)

	v, err = ParseKernelVersion("v0.3.0")
	require.NoError(t, err)
	assert.Equal(t, KernelV3_0, v)

	_, err = ParseKernelVersion("0.2.4")
	var unsupported *UnsupportedKernelVersionError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "0.2.4", unsupported.Version)
}

func TestNewKernelAccount(t *testing.T) {
	chain := &fakeChain{nonce: 3}
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	acc, err := NewKernelAccount(context.Background(), testPool(chain), testChainID, KernelV3_1, owner, 0)
	require.NoError(t, err)
	assert.Equal(t, counterfactual, acc.Address())
	assert.Equal(t, owner, acc.Owner())

	nonce, err := acc.Nonce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), nonce.Int64())

	_, err = NewKernelAccount(context.Background(), testPool(chain), testChainID, KernelVersion(9), owner, 0)
	var unsupported *UnsupportedKernelVersionError
	assert.True(t, errors.As(err, &unsupported))

	_, err = NewKernelAccount(context.Background(), testPool(chain), 5, KernelV3_1, owner, 0)
	var unsupportedNet *networks.UnsupportedNetworkError
	assert.True(t, errors.As(err, &unsupportedNet))

	chain.callErr = errors.New("rpc down")
	_, err = NewKernelAccount(context.Background(), testPool(chain), testChainID, KernelV3_1, owner, 0)
	assert.ErrorContains(t, err, "rpc down")
}

func TestNonceKeyLayout(t *testing.T) {
	acc, err := NewKernelAccount(context.Background(), testPool(&fakeChain{}), testChainID, KernelV3_1, common.Address{}, 0)
	require.NoError(t, err)

	key := acc.nonceKey().FillBytes(make([]byte, 24))
	assert.Equal(t, []byte{0x00, 0x00}, key[:2])
	assert.Equal(t, acc.deployment.validator.Bytes(), key[2:22])
	assert.Equal(t, []byte{0x00, 0x00}, key[22:])
}

func TestEncodeCall(t *testing.T) {
	acc, err := NewKernelAccount(context.Background(), testPool(&fakeChain{}), testChainID, KernelV3_1, common.Address{}, 0)
	require.NoError(t, err)

	to := common.HexToAddress("0x2bA64EFB7A4Ec8983E22A49c81fa216AC33f383A")
	data, err := acc.EncodeCall(Call{To: to, Value: big.NewInt(5), Data: []byte{0xa9, 0x05, 0x9c, 0xbb}})
	require.NoError(t, err)

	method := kernelABI.Methods["execute"]
	assert.Equal(t, method.ID, data[:4])
	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, [32]byte{}, args[0])
	execution := args[1].([]byte)
	require.Len(t, execution, 20+32+4)
	assert.Equal(t, to.Bytes(), execution[:20])
	assert.Equal(t, int64(5), new(big.Int).SetBytes(execution[20:52]).Int64())
	assert.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, execution[52:])

	_, err = acc.EncodeCall(Call{To: to, Value: big.NewInt(-1)})
	assert.Error(t, err)
}

func TestPrepareUserOperation(t *testing.T) {
	chain := &fakeChain{nonce: 1}
	acc, err := NewKernelAccount(context.Background(), testPool(chain), testChainID, KernelV3_0, common.Address{}, 0)
	require.NoError(t, err)

	op, err := acc.PrepareUserOperation(context.Background(), Call{})
	require.NoError(t, err)
	assert.Equal(t, counterfactual, op.Sender)
	assert.Equal(t, int64(1), bi(op.Nonce).Int64())
	require.NotNil(t, op.Factory, "undeployed account carries init code")
	assert.Equal(t, kernelDeployments[KernelV3_0].metaFactory, *op.Factory)

	args, err := metaFactoryABI.Methods["deployWithFactory"].Inputs.Unpack(op.FactoryData[4:])
	require.NoError(t, err)
	assert.Equal(t, kernelDeployments[KernelV3_0].factory, args[0])

	chain.deployed = true
	op, err = acc.PrepareUserOperation(context.Background(), Call{})
	require.NoError(t, err)
	assert.Nil(t, op.Factory)
	assert.Empty(t, op.FactoryData)
}
