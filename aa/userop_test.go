package aa

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOp() *UserOperation {
	factory := common.HexToAddress("0xd703aaE79538628d27099B8c4f621bE4CCd142d5")
	paymaster := common.HexToAddress("0x00000000000000000000000000000000000000fa")
	return &UserOperation{
		Sender:                        common.HexToAddress("0x00000000000000000000000000000000000c0ffe"),
		Nonce:                         hb(big.NewInt(7)),
		Factory:                       &factory,
		FactoryData:                   hexutil.Bytes{0xde, 0xad},
		CallData:                      hexutil.Bytes{0xbe, 0xef},
		CallGasLimit:                  hb(big.NewInt(100000)),
		VerificationGasLimit:          hb(big.NewInt(200000)),
		PreVerificationGas:            hb(big.NewInt(50000)),
		MaxFeePerGas:                  hb(big.NewInt(1000000000)),
		MaxPriorityFeePerGas:          hb(big.NewInt(100000000)),
		Paymaster:                     &paymaster,
		PaymasterVerificationGasLimit: hb(big.NewInt(30000)),
		PaymasterPostOpGasLimit:       hb(big.NewInt(1)),
		PaymasterData:                 hexutil.Bytes{0x12, 0x34},
		Signature:                     dummySignature,
	}
}

func packUints(hi, lo int64) [32]byte {
	var out [32]byte
	big.NewInt(hi).FillBytes(out[:16])
	big.NewInt(lo).FillBytes(out[16:])
	return out
}

// abiHash computes the v0.7 hash with the generic abi encoder.
func abiHash(t *testing.T, op *UserOperation, entryPoint common.Address, chainID *big.Int) common.Hash {
	ty := func(s string) abi.Type {
		typ, err := abi.NewType(s, "", nil)
		require.NoError(t, err)
		return typ
	}
	inner := abi.Arguments{
		{Type: ty("address")}, {Type: ty("uint256")}, {Type: ty("bytes32")}, {Type: ty("bytes32")},
		{Type: ty("bytes32")}, {Type: ty("uint256")}, {Type: ty("bytes32")}, {Type: ty("bytes32")},
	}
	packed, err := inner.Pack(
		op.Sender,
		bi(op.Nonce),
		crypto.Keccak256Hash(op.InitCode()),
		crypto.Keccak256Hash(op.CallData),
		packUints(bi(op.VerificationGasLimit).Int64(), bi(op.CallGasLimit).Int64()),
		bi(op.PreVerificationGas),
		packUints(bi(op.MaxPriorityFeePerGas).Int64(), bi(op.MaxFeePerGas).Int64()),
		crypto.Keccak256Hash(op.PaymasterAndData()),
	)
	require.NoError(t, err)

	outer := abi.Arguments{{Type: ty("bytes32")}, {Type: ty("address")}, {Type: ty("uint256")}}
	enc, err := outer.Pack(crypto.Keccak256Hash(packed), entryPoint, chainID)
	require.NoError(t, err)
	return crypto.Keccak256Hash(enc)
}

func TestUserOperationHash(t *testing.T) {
	op := sampleOp()
	want := abiHash(t, op, EntryPointV07, big.NewInt(137))
	assert.Equal(t, want, op.Hash(EntryPointV07, big.NewInt(137)))

	op.Signature = hexutil.Bytes{0x01}
	assert.Equal(t, want, op.Hash(EntryPointV07, big.NewInt(137)), "signature is not part of the hash")
	assert.NotEqual(t, want, op.Hash(EntryPointV07, big.NewInt(1)))

	op.Factory = nil
	op.Paymaster = nil
	assert.Equal(t, abiHash(t, op, EntryPointV07, big.NewInt(137)), op.Hash(EntryPointV07, big.NewInt(137)))
}

func TestPackedFields(t *testing.T) {
	op := sampleOp()

	initCode := op.InitCode()
	assert.Equal(t, append(op.Factory.Bytes(), 0xde, 0xad), initCode)

	pmd := op.PaymasterAndData()
	require.Len(t, pmd, 20+16+16+2)
	assert.Equal(t, op.Paymaster.Bytes(), pmd[:20])
	assert.Equal(t, int64(30000), new(big.Int).SetBytes(pmd[20:36]).Int64())
	assert.Equal(t, int64(1), new(big.Int).SetBytes(pmd[36:52]).Int64())
	assert.Equal(t, []byte{0x12, 0x34}, pmd[52:])
}

func TestUserOperationCopyIsDeep(t *testing.T) {
	op := sampleOp()
	c := op.Copy()
	bi(c.Nonce).SetInt64(99)
	c.CallData[0] = 0x00
	*c.Paymaster = common.Address{}

	assert.Equal(t, int64(7), bi(op.Nonce).Int64())
	assert.Equal(t, byte(0xbe), op.CallData[0])
	assert.NotEqual(t, common.Address{}, *op.Paymaster)
}

func TestUserOperationJSON(t *testing.T) {
	op := sampleOp()
	op.Factory = nil
	op.FactoryData = nil
	op.Paymaster = nil
	op.PaymasterVerificationGasLimit = nil
	op.PaymasterPostOpGasLimit = nil
	op.PaymasterData = nil

	raw, err := json.Marshal(op)
	require.NoError(t, err)
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "0x7", fields["nonce"])
	assert.NotContains(t, fields, "factory")
	assert.NotContains(t, fields, "paymaster")
	assert.NotContains(t, fields, "paymasterData")
}
