package predeploys

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Names of the predeploy contracts, as declared in their Solidity sources.
const (
	L2ToL1MessagePasser    = "OVM_L2ToL1MessagePasser"
	DeployerWhitelist      = "OVM_DeployerWhitelist"
	ETH                    = "OVM_ETH"
	L2CrossDomainMessenger = "OVM_L2CrossDomainMessenger"
	GasPriceOracle         = "OVM_GasPriceOracle"
	L2StandardBridge       = "OVM_L2StandardBridge"
	SequencerFeeVault      = "OVM_SequencerFeeVault"
)

var (
	ErrNotFound         = errors.New("predeploy not found")
	ErrDuplicateName    = errors.New("duplicate predeploy name")
	ErrDuplicateAddress = errors.New("duplicate predeploy address")
	ErrInvalidAddress   = errors.New("invalid predeploy address")
)

type (
	// Entry binds a predeploy contract name to its genesis address.
	Entry struct {
		Name    string
		Address common.Address
	}

	// Registry is an ordered, immutable set of predeploys.
	Registry struct {
		entries []Entry
		byName  map[string]common.Address
	}
)

var defaultEntries = []Entry{
	{L2ToL1MessagePasser, common.HexToAddress("0x4200000000000000000000000000000000000000")},
	{DeployerWhitelist, common.HexToAddress("0x4200000000000000000000000000000000000002")},
	{ETH, common.HexToAddress("0x4200000000000000000000000000000000000006")},
	{L2CrossDomainMessenger, common.HexToAddress("0x4200000000000000000000000000000000000007")},
	{GasPriceOracle, common.HexToAddress("0x420000000000000000000000000000000000000F")},
	{L2StandardBridge, common.HexToAddress("0x4200000000000000000000000000000000000010")},
	{SequencerFeeVault, common.HexToAddress("0x4200000000000000000000000000000000000011")},
}

// Default returns the registry of the chain's standard predeploys.
func Default() *Registry {
	registry, err := New(defaultEntries)
	if err != nil {
		panic(err)
	}

	return registry
}

// New builds a registry, keeping the order of entries.
func New(entries []Entry) (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, 0, len(entries)),
		byName:  make(map[string]common.Address, len(entries)),
	}
	seen := make(map[common.Address]string, len(entries))

	for _, entry := range entries {
		if entry.Name == "" {
			return nil, errors.New("predeploy name cannot be empty")
		}
		if _, ok := r.byName[entry.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, entry.Name)
		}
		if other, ok := seen[entry.Address]; ok {
			return nil, fmt.Errorf("%w: %s used by %s and %s", ErrDuplicateAddress, entry.Address.Hex(), other, entry.Name)
		}

		seen[entry.Address] = entry.Name
		r.byName[entry.Name] = entry.Address
		r.entries = append(r.entries, entry)
	}

	return r, nil
}

// FromHex builds a registry from names mapped to hex addresses. The order argument
// fixes iteration order; every name in it must be present in addresses and vice versa.
func FromHex(order []string, addresses map[string]string) (*Registry, error) {
	if len(order) != len(addresses) {
		return nil, fmt.Errorf("predeploy order lists %d names but %d addresses are configured", len(order), len(addresses))
	}

	entries := make([]Entry, 0, len(order))
	for _, name := range order {
		raw, ok := addresses[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no address", ErrNotFound, name)
		}
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("%w: %s: '%s'", ErrInvalidAddress, name, raw)
		}
		entries = append(entries, Entry{Name: name, Address: common.HexToAddress(raw)})
	}

	return New(entries)
}

// Entries returns the predeploys in registry order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Address returns the address registered for a predeploy name.
func (r *Registry) Address(name string) (common.Address, error) {
	addr, ok := r.byName[name]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return addr, nil
}

func (r *Registry) Contains(name string) bool {
	_, ok := r.byName[name]
	return ok
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// Names returns the predeploy names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, entry := range r.entries {
		names[i] = entry.Name
	}
	return names
}
