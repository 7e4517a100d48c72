package dump

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/predeploy-dump/internal/predeploys"
	"github.com/compose-network/predeploy-dump/internal/storage"
)

func assemble(t *testing.T, source *fakeSource, cfg DeploymentConfig, opts ...Option) (Dump, error) {
	t.Helper()

	assignments, err := BuildAssignments(cfg)
	require.NoError(t, err)

	return NewAssembler(source, source, storage.NewEncoder(), opts...).
		Assemble(context.Background(), predeploys.Default(), assignments)
}

func TestAssemble_CoversRegistry(t *testing.T) {
	source := newFakeSource(t)

	d, err := assemble(t, source, validConfig())
	require.NoError(t, err)

	registry := predeploys.Default()
	require.Len(t, d, registry.Len())
	for _, entry := range registry.Entries() {
		account, ok := d[entry.Address]
		require.True(t, ok, entry.Name)
		assert.Equal(t, source.code[entry.Name], []byte(account.Code), entry.Name)
		assert.NotNil(t, account.Storage, entry.Name)
		assert.Equal(t, 1, source.lookups[entry.Name], entry.Name)
	}

	for _, name := range []string{predeploys.L2ToL1MessagePasser, predeploys.ETH, predeploys.L2CrossDomainMessenger} {
		addr, err := registry.Address(name)
		require.NoError(t, err)
		assert.Empty(t, d[addr].Storage, name)
	}
}

func TestAssemble_InitialStorage(t *testing.T) {
	d, err := assemble(t, newFakeSource(t), validConfig())
	require.NoError(t, err)

	registry := predeploys.Default()
	storageOf := func(name string) SlotMap {
		addr, err := registry.Address(name)
		require.NoError(t, err)
		return d[addr].Storage
	}

	assert.Equal(t, SlotMap{
		slot(0): common.BytesToHash(oracleOwner.Bytes()),
		slot(1): slot(1234),
	}, storageOf(predeploys.GasPriceOracle))

	packed := common.BytesToHash(append(whitelistOwner.Bytes(), 0x01, 0x01))
	assert.Equal(t, SlotMap{slot(0): packed}, storageOf(predeploys.DeployerWhitelist))

	assert.Equal(t, SlotMap{slot(1): common.BytesToHash(l1Bridge.Bytes())}, storageOf(predeploys.L2StandardBridge))
	assert.Equal(t, SlotMap{slot(0): common.BytesToHash(l1FeeWallet.Bytes())}, storageOf(predeploys.SequencerFeeVault))
}

func TestAssemble_Deterministic(t *testing.T) {
	cfg := validConfig()
	cfg.Whitelist.Deployers = []common.Address{
		common.HexToAddress("0x0a"),
		common.HexToAddress("0x0b"),
		common.HexToAddress("0x0c"),
	}

	first, err := assemble(t, newFakeSource(t), cfg, WithConcurrency(1))
	require.NoError(t, err)
	firstHash, err := first.Hash()
	require.NoError(t, err)

	for range 5 {
		again, err := assemble(t, newFakeSource(t), cfg, WithConcurrency(8))
		require.NoError(t, err)

		hash, err := again.Hash()
		require.NoError(t, err)
		assert.Equal(t, firstHash, hash)
	}
}

func TestAssemble_Isolation(t *testing.T) {
	base, err := assemble(t, newFakeSource(t), validConfig())
	require.NoError(t, err)

	cfg := validConfig()
	cfg.GasPriceOracle.InitialGasPrice.SetInt64(99)
	changed, err := assemble(t, newFakeSource(t), cfg)
	require.NoError(t, err)

	oracle, err := predeploys.Default().Address(predeploys.GasPriceOracle)
	require.NoError(t, err)
	for addr, account := range base {
		if addr == oracle {
			assert.NotEqual(t, account, changed[addr])
			continue
		}
		assert.Equal(t, account, changed[addr])
	}
}

func TestAssemble_Faults(t *testing.T) {
	tests := []struct {
		name        string
		prepare     func(s *fakeSource)
		assignments func() Assignments
		expected    error
		contract    string
	}{
		{
			name: "undeclared variable",
			assignments: func() Assignments {
				return Assignments{predeploys.GasPriceOracle: {"gasPrise": 1}}
			},
			expected: storage.ErrUnknownVariable,
			contract: predeploys.GasPriceOracle,
		},
		{
			name: "unregistered contract",
			assignments: func() Assignments {
				return Assignments{"OVM_Unknown": {"x": 1}}
			},
			expected: ErrUnknownContract,
			contract: "OVM_Unknown",
		},
		{
			name:     "artifact not found",
			prepare:  func(s *fakeSource) { delete(s.code, predeploys.ETH) },
			expected: ErrUnknownContract,
			contract: predeploys.ETH,
		},
		{
			name:     "empty bytecode",
			prepare:  func(s *fakeSource) { s.code[predeploys.ETH] = nil },
			expected: ErrMissingBytecode,
			contract: predeploys.ETH,
		},
		{
			name:     "layout not found",
			prepare:  func(s *fakeSource) { delete(s.layouts, predeploys.SequencerFeeVault) },
			expected: ErrMissingLayout,
			contract: predeploys.SequencerFeeVault,
		},
		{
			name: "value of the wrong type",
			assignments: func() Assignments {
				return Assignments{predeploys.GasPriceOracle: {"_owner": "not an address"}}
			},
			expected: storage.ErrTypeMismatch,
			contract: predeploys.GasPriceOracle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newFakeSource(t)
			if tt.prepare != nil {
				tt.prepare(source)
			}

			assignments, err := BuildAssignments(validConfig())
			require.NoError(t, err)
			if tt.assignments != nil {
				assignments = tt.assignments()
			}

			d, err := NewAssembler(source, source, storage.NewEncoder()).
				Assemble(context.Background(), predeploys.Default(), assignments)
			require.ErrorIs(t, err, tt.expected)
			assert.Nil(t, d)

			var contractErr *ContractError
			require.ErrorAs(t, err, &contractErr)
			assert.Equal(t, tt.contract, contractErr.Contract)
		})
	}
}

func TestAssemble_Cancelled(t *testing.T) {
	source := newFakeSource(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := NewAssembler(source, source, storage.NewEncoder()).
		Assemble(ctx, predeploys.Default(), nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, d)
}

// stubEncoder returns fixed writes regardless of the values.
type stubEncoder []storage.Write

func (s stubEncoder) Encode(*storage.Layout, storage.Values) ([]storage.Write, error) {
	return s, nil
}

func TestAssemble_SlotCollision(t *testing.T) {
	tests := []struct {
		name      string
		writes    stubEncoder
		collision bool
		wantErr   bool
	}{
		{
			name: "different variables, different bytes",
			writes: stubEncoder{
				{Variable: "a", Slot: slot(0), Data: []byte{0x01, 0x02}},
				{Variable: "b", Slot: slot(0), Data: []byte{0x03}},
			},
			collision: true,
			wantErr:   true,
		},
		{
			name: "different variables, identical bytes",
			writes: stubEncoder{
				{Variable: "a", Slot: slot(0), Data: []byte{0x01, 0x02}},
				{Variable: "b", Slot: slot(0), Data: []byte{0x02}},
			},
		},
		{
			name: "disjoint bytes of one slot",
			writes: stubEncoder{
				{Variable: "a", Slot: slot(0), Data: []byte{0x01}},
				{Variable: "b", Slot: slot(0), Offset: 1, Data: []byte{0x02}},
			},
		},
		{
			name: "write past the word",
			writes: stubEncoder{
				{Variable: "a", Slot: slot(0), Offset: 31, Data: []byte{0x01, 0x02}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newFakeSource(t)
			assignments := Assignments{predeploys.GasPriceOracle: {"gasPrice": 1}}

			d, err := NewAssembler(source, source, tt.writes).
				Assemble(context.Background(), predeploys.Default(), assignments)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.collision, errors.Is(err, ErrSlotCollision))
				assert.Nil(t, d)
				return
			}
			require.NoError(t, err)
			assert.Len(t, d, predeploys.Default().Len())
		})
	}
}
