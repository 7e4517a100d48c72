package dump

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type (
	// SlotMap holds the storage of one predeploy, keyed by 32-byte slot.
	SlotMap map[common.Hash]common.Hash

	// Account is the genesis state of one predeploy.
	Account struct {
		Code    hexutil.Bytes `json:"code"`
		Storage SlotMap       `json:"storage"`
	}

	// Dump is the genesis state of every predeploy, keyed by address.
	Dump map[common.Address]Account
)

// MarshalJSON always emits an object, even for an empty storage map.
func (s SlotMap) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(map[common.Hash]common.Hash(s))
}

// Encode returns the canonical JSON encoding of the dump. encoding/json sorts map
// keys, so equal dumps always encode to equal bytes.
func (d Dump) Encode() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dump: %w", err)
	}

	return data, nil
}

// Hash is the keccak256 digest of the canonical encoding.
func (d Dump) Hash() (common.Hash, error) {
	data, err := d.Encode()
	if err != nil {
		return common.Hash{}, err
	}

	return crypto.Keccak256Hash(data), nil
}

// Alloc converts the dump into a geth genesis allocation with zero balances.
func (d Dump) Alloc() types.GenesisAlloc {
	alloc := make(types.GenesisAlloc, len(d))
	for addr, account := range d {
		storage := make(map[common.Hash]common.Hash, len(account.Storage))
		for k, v := range account.Storage {
			storage[k] = v
		}

		alloc[addr] = types.Account{
			Code:    common.CopyBytes(account.Code),
			Storage: storage,
			Balance: new(big.Int),
		}
	}

	return alloc
}
