package txbuilder

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethmath "github.com/ethereum/go-ethereum/common/math"
)

var bigIntType = reflect.TypeOf((*big.Int)(nil))

// NormalizeArgs converts loosely typed values (JSON decoded or CLI strings)
// into the Go values abi packing expects, checking each against its declared
// type.
func NormalizeArgs(inputs abi.Arguments, params []interface{}) ([]interface{}, error) {
	if len(params) != len(inputs) {
		return nil, &EncodingError{
			Index:  -1,
			Type:   "tuple",
			Reason: fmt.Sprintf("expected %d parameters, got %d", len(inputs), len(params)),
		}
	}
	out := make([]interface{}, len(params))
	for i, in := range inputs {
		v, err := normalize(in.Type, params[i])
		if err != nil {
			return nil, &EncodingError{Index: i, Name: in.Name, Type: in.Type.String(), Value: params[i], Reason: err.Error()}
		}
		out[i] = v
	}
	return out, nil
}

func normalize(t abi.Type, v interface{}) (interface{}, error) {
	switch t.T {
	case abi.AddressTy:
		return toAddress(v)
	case abi.IntTy, abi.UintTy:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		if err := checkRange(t, n); err != nil {
			return nil, err
		}
		if t.GetType() == bigIntType {
			return n, nil
		}
		if t.T == abi.UintTy {
			return reflect.ValueOf(n.Uint64()).Convert(t.GetType()).Interface(), nil
		}
		return reflect.ValueOf(n.Int64()).Convert(t.GetType()).Interface(), nil
	case abi.BoolTy:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return nil, fmt.Errorf("not a boolean: %q", b)
			}
			return parsed, nil
		}
		return nil, fmt.Errorf("not a boolean: %v", v)
	case abi.StringTy:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("not a string: %v", v)
		}
		return s, nil
	case abi.BytesTy:
		return toBytes(v)
	case abi.FixedBytesTy:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("expected %d bytes, got %d", t.Size, len(b))
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil
	case abi.SliceTy, abi.ArrayTy:
		items, err := toList(v)
		if err != nil {
			return nil, err
		}
		var out reflect.Value
		if t.T == abi.ArrayTy {
			if len(items) != t.Size {
				return nil, fmt.Errorf("expected %d elements, got %d", t.Size, len(items))
			}
			out = reflect.New(t.GetType()).Elem()
		} else {
			out = reflect.MakeSlice(t.GetType(), len(items), len(items))
		}
		for i, item := range items {
			elem, err := normalize(*t.Elem, item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(reflect.ValueOf(elem))
		}
		return out.Interface(), nil
	}
	return nil, fmt.Errorf("unsupported parameter type %s", t.String())
}

func toAddress(v interface{}) (common.Address, error) {
	switch a := v.(type) {
	case common.Address:
		return a, nil
	case string:
		if err := ValidateAddress(a); err != nil {
			return common.Address{}, err
		}
		return common.HexToAddress(a), nil
	}
	return common.Address{}, fmt.Errorf("not an address: %v", v)
}

// toBigInt accepts decimal or 0x-prefixed strings, json.Number and integral
// Go numbers. Fractions and floats beyond 2^53 are rejected, never truncated.
func toBigInt(v interface{}) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(n), nil
	case int:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return nil, fmt.Errorf("not an exact integer: %v", n)
		}
		return big.NewInt(int64(n)), nil
	case json.Number:
		return parseInteger(n.String())
	case string:
		return parseInteger(n)
	}
	return nil, fmt.Errorf("not an integer: %v", v)
}

func parseInteger(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, fmt.Errorf("not an integer: %q", s)
	}
	n, ok := gethmath.ParseBig256(s)
	if !ok {
		return nil, fmt.Errorf("not an integer: %q", s)
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}

func checkRange(t abi.Type, n *big.Int) error {
	size := uint(t.Size)
	if t.T == abi.UintTy {
		if n.Sign() < 0 {
			return fmt.Errorf("negative value %s for %s", n, t.String())
		}
		if n.BitLen() > int(size) {
			return fmt.Errorf("value %s overflows %s", n, t.String())
		}
		return nil
	}
	limit := new(big.Int).Lsh(big.NewInt(1), size-1)
	if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
		return fmt.Errorf("value %s overflows %s", n, t.String())
	}
	return nil
}

func toBytes(v interface{}) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		if b == "" || b == "0x" {
			return []byte{}, nil
		}
		decoded, err := hexutil.Decode(b)
		if err != nil {
			return nil, fmt.Errorf("invalid hex bytes: %w", err)
		}
		return decoded, nil
	}
	return nil, fmt.Errorf("not a byte string: %v", v)
}

// toList accepts a decoded JSON array or a string holding one.
func toList(v interface{}) ([]interface{}, error) {
	switch l := v.(type) {
	case []interface{}:
		return l, nil
	case []string:
		out := make([]interface{}, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, nil
	case string:
		dec := json.NewDecoder(strings.NewReader(l))
		dec.UseNumber()
		var out []interface{}
		if err := dec.Decode(&out); err != nil {
			return nil, fmt.Errorf("not a list: %q", l)
		}
		return out, nil
	}
	return nil, fmt.Errorf("not a list: %v", v)
}
