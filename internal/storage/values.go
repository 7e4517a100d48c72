package storage

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

var (
	ErrUnknownVariable = errors.New("unknown variable")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrUnsupportedType = errors.New("unsupported type")
)

// Values maps declared variable names to the values they should hold.
type Values map[string]any

// Labels returns the variable names sorted, so encoding order is stable.
func (v Values) Labels() []string {
	labels := make([]string, 0, len(v))
	for label := range v {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	return labels
}

func mismatch(typeLabel string, value any) error {
	return fmt.Errorf("%w: cannot store %T (%v) as %s", ErrTypeMismatch, value, value, typeLabel)
}

func toBool(typeLabel string, value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}

	return false, mismatch(typeLabel, value)
}

func toAddress(typeLabel string, value any) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		if v != nil {
			return *v, nil
		}
	case [common.AddressLength]byte:
		return common.Address(v), nil
	case string:
		if common.IsHexAddress(v) {
			return common.HexToAddress(v), nil
		}
	}

	return common.Address{}, mismatch(typeLabel, value)
}

// toBigInt converts integer-like values. Strings may be decimal or 0x-prefixed hex.
func toBigInt(typeLabel string, value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v != nil {
			return new(big.Int).Set(v), nil
		}
	case big.Int:
		return new(big.Int).Set(&v), nil
	case *uint256.Int:
		if v != nil {
			return v.ToBig(), nil
		}
	case hexutil.Big:
		return new(big.Int).Set((*big.Int)(&v)), nil
	case *hexutil.Big:
		if v != nil {
			return new(big.Int).Set((*big.Int)(v)), nil
		}
	case string:
		s := strings.TrimSpace(v)
		base := 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s, base = s[2:], 16
		}
		if n, ok := new(big.Int).SetString(s, base); ok {
			return n, nil
		}
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return big.NewInt(rv.Int()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			return new(big.Int).SetUint64(rv.Uint()), nil
		}
	}

	return nil, mismatch(typeLabel, value)
}

// toBytes converts byte-like values. Strings must be 0x-prefixed hex.
func toBytes(typeLabel string, value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case hexutil.Bytes:
		return v, nil
	case common.Hash:
		return v.Bytes(), nil
	case string:
		b, err := hexutil.Decode(v)
		if err == nil {
			return b, nil
		}
	}

	return nil, mismatch(typeLabel, value)
}

// toByteString converts values stored with the "bytes" encoding. A Go string is
// taken verbatim for Solidity strings and hex-decoded for Solidity bytes.
func toByteString(t Type, value any) ([]byte, error) {
	if s, ok := value.(string); ok && t.Label == "string" {
		return []byte(s), nil
	}

	return toBytes(t.Label, value)
}
