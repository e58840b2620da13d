package templates

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// DecodeCallData splits call data into the matching method and its unpacked
// positional arguments.
func DecodeCallData(iface abi.ABI, data []byte) (*abi.Method, []interface{}, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("call data too short: %d bytes", len(data))
	}
	method, err := iface.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("unpack %s: %w", method.Name, err)
	}
	return method, args, nil
}
