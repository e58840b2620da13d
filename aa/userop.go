package aa

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// EntryPointV07 is the canonical ERC-4337 v0.7 entry point.
var EntryPointV07 = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")

// UserOperation is the unpacked v0.7 user operation in its JSON-RPC form.
type UserOperation struct {
	Sender                        common.Address  `json:"sender"`
	Nonce                         *hexutil.Big    `json:"nonce"`
	Factory                       *common.Address `json:"factory,omitempty"`
	FactoryData                   hexutil.Bytes   `json:"factoryData,omitempty"`
	CallData                      hexutil.Bytes   `json:"callData"`
	CallGasLimit                  *hexutil.Big    `json:"callGasLimit"`
	VerificationGasLimit          *hexutil.Big    `json:"verificationGasLimit"`
	PreVerificationGas            *hexutil.Big    `json:"preVerificationGas"`
	MaxFeePerGas                  *hexutil.Big    `json:"maxFeePerGas"`
	MaxPriorityFeePerGas          *hexutil.Big    `json:"maxPriorityFeePerGas"`
	Paymaster                     *common.Address `json:"paymaster,omitempty"`
	PaymasterVerificationGasLimit *hexutil.Big    `json:"paymasterVerificationGasLimit,omitempty"`
	PaymasterPostOpGasLimit       *hexutil.Big    `json:"paymasterPostOpGasLimit,omitempty"`
	PaymasterData                 hexutil.Bytes   `json:"paymasterData,omitempty"`
	Signature                     hexutil.Bytes   `json:"signature"`
}

func hb(x *big.Int) *hexutil.Big {
	if x == nil {
		x = new(big.Int)
	}
	return (*hexutil.Big)(new(big.Int).Set(x))
}

func bi(x *hexutil.Big) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return (*big.Int)(x)
}

// Copy returns a deep copy so each relayer attempt starts from the same op.
func (op *UserOperation) Copy() *UserOperation {
	c := *op
	c.Nonce = hb(bi(op.Nonce))
	c.CallGasLimit = hb(bi(op.CallGasLimit))
	c.VerificationGasLimit = hb(bi(op.VerificationGasLimit))
	c.PreVerificationGas = hb(bi(op.PreVerificationGas))
	c.MaxFeePerGas = hb(bi(op.MaxFeePerGas))
	c.MaxPriorityFeePerGas = hb(bi(op.MaxPriorityFeePerGas))
	if op.Factory != nil {
		f := *op.Factory
		c.Factory = &f
	}
	if op.Paymaster != nil {
		p := *op.Paymaster
		c.Paymaster = &p
		c.PaymasterVerificationGasLimit = hb(bi(op.PaymasterVerificationGasLimit))
		c.PaymasterPostOpGasLimit = hb(bi(op.PaymasterPostOpGasLimit))
	}
	c.FactoryData = append(hexutil.Bytes(nil), op.FactoryData...)
	c.CallData = append(hexutil.Bytes(nil), op.CallData...)
	c.PaymasterData = append(hexutil.Bytes(nil), op.PaymasterData...)
	c.Signature = append(hexutil.Bytes(nil), op.Signature...)
	return &c
}

// InitCode is factory || factoryData, empty for deployed accounts.
func (op *UserOperation) InitCode() []byte {
	if op.Factory == nil {
		return nil
	}
	return append(op.Factory.Bytes(), op.FactoryData...)
}

// PaymasterAndData is paymaster || verification gas (16) || post-op gas (16) || data.
func (op *UserOperation) PaymasterAndData() []byte {
	if op.Paymaster == nil {
		return nil
	}
	var buf bytes.Buffer
	buf.Write(op.Paymaster.Bytes())
	buf.Write(uint128(bi(op.PaymasterVerificationGasLimit)))
	buf.Write(uint128(bi(op.PaymasterPostOpGasLimit)))
	buf.Write(op.PaymasterData)
	return buf.Bytes()
}

func uint128(x *big.Int) []byte {
	return common.LeftPadBytes(x.Bytes(), 16)
}

func word(b []byte) []byte {
	return common.LeftPadBytes(b, 32)
}

// Hash is the v0.7 user operation hash the account signs.
func (op *UserOperation) Hash(entryPoint common.Address, chainID *big.Int) common.Hash {
	var packed bytes.Buffer
	packed.Write(word(op.Sender.Bytes()))
	packed.Write(word(bi(op.Nonce).Bytes()))
	packed.Write(crypto.Keccak256(op.InitCode()))
	packed.Write(crypto.Keccak256(op.CallData))
	packed.Write(uint128(bi(op.VerificationGasLimit)))
	packed.Write(uint128(bi(op.CallGasLimit)))
	packed.Write(word(bi(op.PreVerificationGas).Bytes()))
	packed.Write(uint128(bi(op.MaxPriorityFeePerGas)))
	packed.Write(uint128(bi(op.MaxFeePerGas)))
	packed.Write(crypto.Keccak256(op.PaymasterAndData()))

	return crypto.Keccak256Hash(
		crypto.Keccak256(packed.Bytes()),
		word(entryPoint.Bytes()),
		word(chainID.Bytes()),
	)
}

// UserOperationReceipt is the bundler's eth_getUserOperationReceipt result.
type UserOperationReceipt struct {
	UserOpHash    common.Hash     `json:"userOpHash"`
	EntryPoint    common.Address  `json:"entryPoint"`
	Sender        common.Address  `json:"sender"`
	Nonce         *hexutil.Big    `json:"nonce"`
	Paymaster     *common.Address `json:"paymaster,omitempty"`
	ActualGasCost *hexutil.Big    `json:"actualGasCost"`
	ActualGasUsed *hexutil.Big    `json:"actualGasUsed"`
	Success       bool            `json:"success"`
	Reason        string          `json:"reason,omitempty"`
	Receipt       struct {
		TransactionHash common.Hash  `json:"transactionHash"`
		BlockNumber     *hexutil.Big `json:"blockNumber"`
		BlockHash       common.Hash  `json:"blockHash"`
	} `json:"receipt"`
}
