package storage

import (
	"bytes"
	"fmt"
	"math/big"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

const wordSize = 32

type (
	// Write is one encoded piece of a variable: Data occupies len(Data) bytes of Slot,
	// starting Offset bytes from the low-order end of the word.
	Write struct {
		Variable string
		Slot     common.Hash
		Offset   uint
		Data     []byte
	}

	// Encoder turns symbolic values into storage writes following Solidity layout rules.
	Encoder struct{}
)

func NewEncoder() *Encoder {
	return &Encoder{}
}

// Range returns the [start, end) byte positions the write covers inside its
// 32-byte word, counted from the high-order end.
func (w Write) Range() (int, int) {
	end := wordSize - int(w.Offset)
	return end - len(w.Data), end
}

// Apply copies the write into word.
func (w Write) Apply(word *common.Hash) {
	start, end := w.Range()
	copy(word[start:end], w.Data)
}

// Encode encodes every value against the layout. Variables are processed in sorted
// order so identical inputs always produce identical writes.
func (e *Encoder) Encode(layout *Layout, values Values) ([]Write, error) {
	if layout == nil {
		return nil, fmt.Errorf("%w: no layout to encode against", ErrUnsupportedType)
	}

	var writes []Write
	for _, label := range values.Labels() {
		entry, err := layout.Entry(label)
		if err != nil {
			return nil, err
		}

		slot, err := entry.SlotIndex()
		if err != nil {
			return nil, err
		}

		encoded, err := e.encode(layout, label, entry.Type, slot, entry.Offset, values[label])
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", label, err)
		}
		writes = append(writes, encoded...)
	}

	return writes, nil
}

func (e *Encoder) encode(layout *Layout, variable, typeName string, slot *uint256.Int, offset uint, value any) ([]Write, error) {
	t, err := layout.typeOf(typeName)
	if err != nil {
		return nil, err
	}

	switch t.Encoding {
	case encodingInplace:
		switch {
		case strings.HasPrefix(typeName, "t_struct("):
			return e.encodeStruct(layout, variable, t, slot, value)
		case strings.HasPrefix(typeName, "t_array("):
			return e.encodeStaticArray(layout, variable, typeName, t, slot, value)
		}

		if offset+t.NumberOfBytes > wordSize {
			return nil, fmt.Errorf("%w: %s at offset %d overflows its slot", ErrUnsupportedType, t.Label, offset)
		}
		data, err := encodeWord(typeName, t, value)
		if err != nil {
			return nil, err
		}
		return []Write{{Variable: variable, Slot: toHash(slot), Offset: offset, Data: data}}, nil
	case encodingBytes:
		return e.encodeByteString(variable, t, slot, value)
	case encodingMapping:
		return e.encodeMapping(layout, variable, t, slot, value)
	case encodingDynamicArray:
		return e.encodeDynamicArray(layout, variable, t, slot, value)
	default:
		return nil, fmt.Errorf("%w: encoding '%s' of %s", ErrUnsupportedType, t.Encoding, t.Label)
	}
}

// encodeWord encodes a value type into exactly t.NumberOfBytes big-endian bytes.
func encodeWord(typeName string, t Type, value any) ([]byte, error) {
	size := int(t.NumberOfBytes)

	switch {
	case typeName == "t_bool":
		b, err := toBool(t.Label, value)
		if err != nil {
			return nil, err
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case typeName == "t_address", strings.HasPrefix(typeName, "t_contract("):
		addr, err := toAddress(t.Label, value)
		if err != nil {
			return nil, err
		}
		return addr.Bytes(), nil
	case strings.HasPrefix(typeName, "t_uint"), strings.HasPrefix(typeName, "t_enum("):
		n, err := toBigInt(t.Label, value)
		if err != nil {
			return nil, err
		}
		if n.Sign() < 0 || n.BitLen() > size*8 {
			return nil, fmt.Errorf("%w: %s out of range for %s", ErrTypeMismatch, n, t.Label)
		}
		return n.FillBytes(make([]byte, size)), nil
	case strings.HasPrefix(typeName, "t_int"):
		n, err := toBigInt(t.Label, value)
		if err != nil {
			return nil, err
		}
		return twosComplement(t.Label, n, size)
	case strings.HasPrefix(typeName, "t_bytes"):
		b, err := toBytes(t.Label, value)
		if err != nil {
			return nil, err
		}
		if len(b) > size {
			return nil, fmt.Errorf("%w: %d bytes do not fit %s", ErrTypeMismatch, len(b), t.Label)
		}
		return common.RightPadBytes(b, size), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t.Label)
	}
}

func twosComplement(label string, n *big.Int, size int) ([]byte, error) {
	bits := uint(size * 8)
	limit := new(big.Int).Lsh(big.NewInt(1), bits-1)
	if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
		return nil, fmt.Errorf("%w: %s out of range for %s", ErrTypeMismatch, n, label)
	}
	if n.Sign() < 0 {
		n = new(big.Int).Add(n, new(big.Int).Lsh(big.NewInt(1), bits))
	}

	return n.FillBytes(make([]byte, size)), nil
}

func (e *Encoder) encodeStruct(layout *Layout, variable string, t Type, base *uint256.Int, value any) ([]Write, error) {
	members, ok := value.(map[string]any)
	if !ok {
		return nil, mismatch(t.Label, value)
	}

	var writes []Write
	for _, name := range Values(members).Labels() {
		idx := slices.IndexFunc(t.Members, func(m Entry) bool { return m.Label == name })
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownVariable, t.Label, name)
		}
		member := t.Members[idx]

		relative, err := member.SlotIndex()
		if err != nil {
			return nil, err
		}

		encoded, err := e.encode(layout, variable, member.Type, new(uint256.Int).Add(base, relative), member.Offset, members[name])
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", name, err)
		}
		writes = append(writes, encoded...)
	}

	return writes, nil
}

func (e *Encoder) encodeStaticArray(layout *Layout, variable, typeName string, t Type, base *uint256.Int, value any) ([]Write, error) {
	elems, err := elements(t.Label, value)
	if err != nil {
		return nil, err
	}

	length, err := staticArrayLength(typeName)
	if err != nil {
		return nil, err
	}
	if len(elems) > length {
		return nil, fmt.Errorf("%w: %d elements do not fit %s", ErrTypeMismatch, len(elems), t.Label)
	}

	return e.encodeElements(layout, variable, t.Base, base, elems)
}

func (e *Encoder) encodeDynamicArray(layout *Layout, variable string, t Type, slot *uint256.Int, value any) ([]Write, error) {
	elems, err := elements(t.Label, value)
	if err != nil {
		return nil, err
	}

	length := new(big.Int).SetInt64(int64(len(elems))).FillBytes(make([]byte, wordSize))
	writes := []Write{{Variable: variable, Slot: toHash(slot), Data: length}}

	start := fromHash(crypto.Keccak256Hash(toHash(slot).Bytes()))
	encoded, err := e.encodeElements(layout, variable, t.Base, start, elems)
	if err != nil {
		return nil, err
	}

	return append(writes, encoded...), nil
}

// encodeElements lays out array elements from base. Elements of 32 bytes or less
// share slots when several fit; larger ones take whole consecutive slots.
func (e *Encoder) encodeElements(layout *Layout, variable, elemTypeName string, base *uint256.Int, elems []any) ([]Write, error) {
	elemType, err := layout.typeOf(elemTypeName)
	if err != nil {
		return nil, err
	}
	size := elemType.NumberOfBytes
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-sized element %s", ErrUnsupportedType, elemType.Label)
	}

	var writes []Write
	for i, elem := range elems {
		var (
			slot   = new(uint256.Int)
			offset uint
			index  = uint64(i)
		)
		if size <= wordSize {
			perSlot := uint64(wordSize / size)
			slot.Add(base, uint256.NewInt(index/perSlot))
			offset = uint(index%perSlot) * size
		} else {
			slotsPer := uint64((size + wordSize - 1) / wordSize)
			slot.Add(base, uint256.NewInt(index*slotsPer))
		}

		encoded, err := e.encode(layout, variable, elemTypeName, slot, offset, elem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		writes = append(writes, encoded...)
	}

	return writes, nil
}

func (e *Encoder) encodeByteString(variable string, t Type, slot *uint256.Int, value any) ([]Write, error) {
	data, err := toByteString(t, value)
	if err != nil {
		return nil, err
	}

	if len(data) < wordSize {
		word := common.RightPadBytes(data, wordSize)
		word[wordSize-1] = byte(len(data) * 2)
		return []Write{{Variable: variable, Slot: toHash(slot), Data: word}}, nil
	}

	header := new(big.Int).SetInt64(int64(len(data)*2 + 1)).FillBytes(make([]byte, wordSize))
	writes := []Write{{Variable: variable, Slot: toHash(slot), Data: header}}

	start := fromHash(crypto.Keccak256Hash(toHash(slot).Bytes()))
	for i := 0; i*wordSize < len(data); i++ {
		chunk := data[i*wordSize : min((i+1)*wordSize, len(data))]
		writes = append(writes, Write{
			Variable: variable,
			Slot:     toHash(new(uint256.Int).Add(start, uint256.NewInt(uint64(i)))),
			Data:     common.RightPadBytes(chunk, wordSize),
		})
	}

	return writes, nil
}

func (e *Encoder) encodeMapping(layout *Layout, variable string, t Type, slot *uint256.Int, value any) ([]Write, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return nil, mismatch(t.Label, value)
	}

	keyType, err := layout.typeOf(t.Key)
	if err != nil {
		return nil, err
	}

	type keyed struct {
		slot  common.Hash
		value any
	}
	items := make([]keyed, 0, rv.Len())

	iter := rv.MapRange()
	for iter.Next() {
		key, err := encodeMappingKey(t.Key, keyType, iter.Key().Interface())
		if err != nil {
			return nil, fmt.Errorf("mapping key %v: %w", iter.Key().Interface(), err)
		}
		items = append(items, keyed{
			slot:  crypto.Keccak256Hash(key, toHash(slot).Bytes()),
			value: iter.Value().Interface(),
		})
	}
	slices.SortFunc(items, func(a, b keyed) int { return bytes.Compare(a.slot[:], b.slot[:]) })

	var writes []Write
	for _, item := range items {
		encoded, err := e.encode(layout, variable, t.Value, fromHash(item.slot), 0, item.value)
		if err != nil {
			return nil, err
		}
		writes = append(writes, encoded...)
	}

	return writes, nil
}

// encodeMappingKey returns the bytes hashed together with the mapping slot: value
// types padded to 32 bytes, strings and bytes unpadded.
func encodeMappingKey(typeName string, t Type, key any) ([]byte, error) {
	if t.Encoding == encodingBytes {
		return toByteString(t, key)
	}
	if t.Encoding != encodingInplace {
		return nil, fmt.Errorf("%w: mapping key %s", ErrUnsupportedType, t.Label)
	}

	switch {
	case strings.HasPrefix(typeName, "t_bytes"):
		data, err := encodeWord(typeName, t, key)
		if err != nil {
			return nil, err
		}
		return common.RightPadBytes(data, wordSize), nil
	case strings.HasPrefix(typeName, "t_int"):
		n, err := toBigInt(t.Label, key)
		if err != nil {
			return nil, err
		}
		if _, err := twosComplement(t.Label, n, int(t.NumberOfBytes)); err != nil {
			return nil, err
		}
		return twosComplement(t.Label, n, wordSize)
	default:
		data, err := encodeWord(typeName, t, key)
		if err != nil {
			return nil, err
		}
		return common.LeftPadBytes(data, wordSize), nil
	}
}

func elements(typeLabel string, value any) ([]any, error) {
	if elems, ok := value.([]any); ok {
		return elems, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, mismatch(typeLabel, value)
	}

	elems := make([]any, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}

	return elems, nil
}

// staticArrayLength parses N out of a type name like t_array(t_uint256)3_storage.
func staticArrayLength(typeName string) (int, error) {
	idx := strings.LastIndex(typeName, ")")
	if idx < 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedType, typeName)
	}

	length, err := strconv.Atoi(strings.TrimSuffix(typeName[idx+1:], "_storage"))
	if err != nil {
		return 0, fmt.Errorf("%w: cannot read length of %s", ErrUnsupportedType, typeName)
	}

	return length, nil
}

func toHash(slot *uint256.Int) common.Hash {
	return common.Hash(slot.Bytes32())
}

func fromHash(h common.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes32(h[:])
}
