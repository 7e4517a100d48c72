package storage

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
)

// Type encodings as emitted by solc in the storageLayout output.
const (
	encodingInplace      = "inplace"
	encodingMapping      = "mapping"
	encodingDynamicArray = "dynamic_array"
	encodingBytes        = "bytes"
)

type (
	// Layout is the storage layout of a single contract, in the shape solc emits it.
	Layout struct {
		Storage []Entry         `json:"storage"`
		Types   map[string]Type `json:"types"`
	}

	// Entry is a declared state variable (or a struct member).
	Entry struct {
		AstID    uint                 `json:"astId"`
		Contract string               `json:"contract"`
		Label    string               `json:"label"`
		Offset   uint                 `json:"offset"`
		Slot     math.HexOrDecimal256 `json:"slot"`
		Type     string               `json:"type"`
	}

	// Type describes how a layout type is stored.
	Type struct {
		Encoding      string  `json:"encoding"`
		Label         string  `json:"label"`
		NumberOfBytes uint    `json:"numberOfBytes,string"`
		Key           string  `json:"key,omitempty"`
		Value         string  `json:"value,omitempty"`
		Base          string  `json:"base,omitempty"`
		Members       []Entry `json:"members,omitempty"`
	}
)

// Entry returns the declared variable with the given label.
func (l *Layout) Entry(label string) (Entry, error) {
	for _, entry := range l.Storage {
		if entry.Label == label {
			return entry, nil
		}
	}

	return Entry{}, fmt.Errorf("%w: %s", ErrUnknownVariable, label)
}

// Labels returns the declared variable names in declaration order.
func (l *Layout) Labels() []string {
	labels := make([]string, 0, len(l.Storage))
	for _, entry := range l.Storage {
		labels = append(labels, entry.Label)
	}

	return labels
}

// Check verifies every key of values is declared by the layout.
func (l *Layout) Check(values Values) error {
	var errs []error
	for _, label := range values.Labels() {
		if _, err := l.Entry(label); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (l *Layout) typeOf(name string) (Type, error) {
	t, ok := l.Types[name]
	if !ok {
		return Type{}, fmt.Errorf("%w: type %s is not described by the layout", ErrUnsupportedType, name)
	}

	return t, nil
}

// SlotIndex returns the entry's base slot as a 256-bit integer.
func (e Entry) SlotIndex() (*uint256.Int, error) {
	slot, overflow := uint256.FromBig((*big.Int)(&e.Slot))
	if overflow || (*big.Int)(&e.Slot).Sign() < 0 {
		return nil, fmt.Errorf("slot of %s does not fit 256 bits", e.Label)
	}

	return slot, nil
}
