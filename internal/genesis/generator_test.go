package genesis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/predeploy-dump/internal/dump"
	fsjson "github.com/compose-network/predeploy-dump/internal/infra/filesystem/json"
)

var (
	vault  = common.HexToAddress("0x4200000000000000000000000000000000000011")
	oracle = common.HexToAddress("0x420000000000000000000000000000000000000F")
)

func testDump() dump.Dump {
	return dump.Dump{
		vault: {
			Code:    []byte{0x60, 0x80},
			Storage: dump.SlotMap{common.HexToHash("0x00"): common.HexToHash("0x44")},
		},
		oracle: {
			Code:    []byte{0x60, 0x81},
			Storage: dump.SlotMap{},
		},
	}
}

func readGenesis(t *testing.T, path string) map[string]any {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var genesis map[string]any
	require.NoError(t, json.Unmarshal(data, &genesis))
	return genesis
}

func TestGenerator_WriteDump(t *testing.T) {
	outputDir := t.TempDir()
	generator := NewGenerator(fsjson.NewReader(), fsjson.NewWriter())

	path, err := generator.WriteDump(testDump(), outputDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outputDir, dumpFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded dump.Dump
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, testDump(), decoded)
}

func TestGenerator_Generate(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.json")
	require.NoError(t, os.WriteFile(basePath, []byte(`{
		"config": {"chainId": 901},
		"gasLimit": "0x1c9c380",
		"alloc": {
			"4200000000000000000000000000000000000011": {"balance": "0x64"},
			"0x00000000000000000000000000000000000000aa": {"balance": "0x1"}
		}
	}`), 0644))

	generator := NewGenerator(fsjson.NewReader(), fsjson.NewWriter())
	path, err := generator.Generate(testDump(), basePath, filepath.Join(dir, "out"))
	require.NoError(t, err)

	genesis := readGenesis(t, path)
	assert.Equal(t, map[string]any{"chainId": float64(901)}, genesis["config"])
	assert.Equal(t, "0x1c9c380", genesis["gasLimit"])

	alloc := genesis["alloc"].(map[string]any)
	require.Len(t, alloc, 3)

	assert.Equal(t, map[string]any{
		"balance": "0x64",
		"code":    "0x6080",
		"storage": map[string]any{
			"0x0000000000000000000000000000000000000000000000000000000000000000": "0x0000000000000000000000000000000000000000000000000000000000000044",
		},
	}, alloc["4200000000000000000000000000000000000011"])

	assert.Equal(t, map[string]any{
		"balance": "0x0",
		"code":    "0x6081",
		"storage": map[string]any{},
	}, alloc["0x420000000000000000000000000000000000000f"])

	assert.Equal(t, map[string]any{"balance": "0x1"}, alloc["0x00000000000000000000000000000000000000aa"])
}

func TestGenerator_GenerateConflicts(t *testing.T) {
	tests := []struct {
		name  string
		alloc string
	}{
		{
			name:  "different code",
			alloc: `{"0x4200000000000000000000000000000000000011": {"balance": "0x0", "code": "0x01"}}`,
		},
		{
			name:  "different slot value",
			alloc: `{"0x4200000000000000000000000000000000000011": {"balance": "0x0", "storage": {"0x00": "0x01"}}}`,
		},
		{
			name:  "invalid address",
			alloc: `{"0xnothex": {"balance": "0x0"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			basePath := filepath.Join(dir, "base.json")
			require.NoError(t, os.WriteFile(basePath, []byte(`{"alloc": `+tt.alloc+`}`), 0644))

			_, err := NewGenerator(fsjson.NewReader(), fsjson.NewWriter()).Generate(testDump(), basePath, dir)
			require.Error(t, err)

			_, statErr := os.Stat(filepath.Join(dir, genesisFileName))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestGenerator_GenerateMatchingStorage(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.json")
	require.NoError(t, os.WriteFile(basePath, []byte(`{"alloc": {
		"0x4200000000000000000000000000000000000011": {"balance": "0x0", "code": "0x6080", "storage": {"0x00": "0x44", "0x05": "0x01"}}
	}}`), 0644))

	path, err := NewGenerator(fsjson.NewReader(), fsjson.NewWriter()).Generate(testDump(), basePath, dir)
	require.NoError(t, err)

	alloc := readGenesis(t, path)["alloc"].(map[string]any)
	account := alloc["0x4200000000000000000000000000000000000011"].(map[string]any)
	assert.Len(t, account["storage"], 2)
}
