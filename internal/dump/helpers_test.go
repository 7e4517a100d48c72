package dump

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/predeploy-dump/internal/predeploys"
	"github.com/compose-network/predeploy-dump/internal/storage"
)

var errNotFound = errors.New("not found")

var (
	whitelistOwner = common.HexToAddress("0x1111111111111111111111111111111111111111")
	oracleOwner    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	l1Bridge       = common.HexToAddress("0x3333333333333333333333333333333333333333")
	l1FeeWallet    = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

// fakeSource serves artifacts from memory and records which contracts were looked up.
type fakeSource struct {
	code    map[string][]byte
	layouts map[string]*storage.Layout

	mu      sync.Mutex
	lookups map[string]int
}

func newFakeSource(t *testing.T) *fakeSource {
	t.Helper()

	s := &fakeSource{
		code:    make(map[string][]byte),
		layouts: make(map[string]*storage.Layout),
		lookups: make(map[string]int),
	}
	for i, entry := range predeploys.Default().Entries() {
		s.code[entry.Name] = []byte{0x60, 0x80, byte(i)}
	}
	for _, name := range []string{
		predeploys.DeployerWhitelist,
		predeploys.GasPriceOracle,
		predeploys.L2StandardBridge,
		predeploys.SequencerFeeVault,
	} {
		s.layouts[name] = loadLayout(t, name)
	}

	return s
}

func (s *fakeSource) Bytecode(_ context.Context, contract string) ([]byte, error) {
	s.mu.Lock()
	s.lookups[contract]++
	s.mu.Unlock()

	code, ok := s.code[contract]
	if !ok {
		return nil, errNotFound
	}
	return code, nil
}

func (s *fakeSource) StorageLayout(_ context.Context, contract string) (*storage.Layout, error) {
	layout, ok := s.layouts[contract]
	if !ok {
		return nil, errNotFound
	}
	return layout, nil
}

func loadLayout(t *testing.T, name string) *storage.Layout {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("testdata", name+".json"))
	require.NoError(t, err)

	var layout storage.Layout
	require.NoError(t, json.Unmarshal(data, &layout))
	return &layout
}

func validConfig() DeploymentConfig {
	return DeploymentConfig{
		Whitelist: WhitelistConfig{
			Owner:                            whitelistOwner,
			AllowArbitraryContractDeployment: true,
		},
		GasPriceOracle: GasPriceOracleConfig{
			Owner:           oracleOwner,
			InitialGasPrice: big.NewInt(1234),
		},
		L1StandardBridgeAddress: l1Bridge,
		L1FeeWalletAddress:      l1FeeWallet,
	}
}

func slot(n int64) common.Hash {
	return common.BigToHash(big.NewInt(n))
}
