package dump

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/compose-network/predeploy-dump/internal/storage"
)

// slotWriter merges encoded writes into a SlotMap, remembering which variable
// owns every byte so that conflicting writes are caught instead of overwritten.
type slotWriter struct {
	slots  SlotMap
	owners map[common.Hash]*[32]string
}

func newSlotWriter() *slotWriter {
	return &slotWriter{
		slots:  make(SlotMap),
		owners: make(map[common.Hash]*[32]string),
	}
}

func (s *slotWriter) apply(w storage.Write) error {
	start, end := w.Range()
	if start < 0 || end > common.HashLength {
		return fmt.Errorf("write of %s to slot %s overflows the word", w.Variable, w.Slot.Hex())
	}

	word := s.slots[w.Slot]
	owners := s.owners[w.Slot]
	if owners == nil {
		owners = new([32]string)
		s.owners[w.Slot] = owners
	}

	for i := start; i < end; i++ {
		owner := owners[i]
		if owner == "" || owner == w.Variable {
			continue
		}
		if word[i] != w.Data[i-start] {
			return fmt.Errorf("%w: %s and %s disagree on byte %d of slot %s", ErrSlotCollision, owner, w.Variable, i, w.Slot.Hex())
		}
	}

	w.Apply(&word)
	for i := start; i < end; i++ {
		if owners[i] == "" {
			owners[i] = w.Variable
		}
	}
	s.slots[w.Slot] = word

	return nil
}
