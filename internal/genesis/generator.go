package genesis

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/compose-network/predeploy-dump/internal/dump"
	"github.com/compose-network/predeploy-dump/internal/infra/filesystem"
	"github.com/compose-network/predeploy-dump/internal/logger"
)

const (
	dumpFileName    = "dump.json"
	genesisFileName = "genesis.json"
)

// Generator persists the predeploy dump, and optionally a genesis file carrying it
type Generator struct {
	reader filesystem.Reader
	writer filesystem.Writer
	logger *slog.Logger
}

// NewGenerator creates a new genesis generator
func NewGenerator(reader filesystem.Reader, writer filesystem.Writer) *Generator {
	return &Generator{
		reader: reader,
		writer: writer,
		logger: logger.Named("genesis_generator"),
	}
}

// WriteDump writes the dump as dump.json under outputDir and returns the file path.
func (g *Generator) WriteDump(d dump.Dump, outputDir string) (string, error) {
	path := filepath.Join(outputDir, dumpFileName)

	g.logger.With("file_path", path).With("accounts", len(d)).Info("writing predeploy dump")
	if err := g.writer.WriteJSON(path, d); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dumpFileName, err)
	}

	return path, nil
}

// Generate reads the genesis file at basePath, adds every predeploy account to its
// alloc and writes the result as genesis.json under outputDir. Balances and nonces
// already present are kept; conflicting code or storage is an error.
func (g *Generator) Generate(d dump.Dump, basePath, outputDir string) (string, error) {
	logger := g.logger.With("base_genesis", basePath)

	logger.Info("reading base genesis")
	var genesis map[string]any
	if err := g.reader.ReadJSON(basePath, &genesis); err != nil {
		return "", fmt.Errorf("failed to read base genesis: %w", err)
	}

	alloc, ok := genesis["alloc"].(map[string]any)
	if !ok {
		alloc = make(map[string]any)
		genesis["alloc"] = alloc
	}

	existing := make(map[common.Address]string, len(alloc))
	for key := range alloc {
		raw := key
		if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
			raw = "0x" + raw
		}
		if !common.IsHexAddress(raw) {
			return "", fmt.Errorf("invalid address '%s' in base genesis alloc", key)
		}
		existing[common.HexToAddress(raw)] = key
	}

	for addr, account := range d {
		key, found := existing[addr]
		if !found {
			key = strings.ToLower(addr.Hex())
		}

		accountData, ok := alloc[key].(map[string]any)
		if !ok {
			accountData = map[string]any{"balance": "0x0"}
			alloc[key] = accountData
		}

		if err := mergeAccount(accountData, account); err != nil {
			return "", fmt.Errorf("failed to add predeploy %s to genesis: %w", addr.Hex(), err)
		}
	}

	path := filepath.Join(outputDir, genesisFileName)

	logger.
		With("file_path", path).
		With("predeploys", len(d)).
		Info("genesis generated successfully. Persisting file")
	if err := g.writer.WriteJSON(path, genesis); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", genesisFileName, err)
	}

	return path, nil
}

func mergeAccount(accountData map[string]any, account dump.Account) error {
	if raw, ok := accountData["code"].(string); ok && raw != "" && raw != "0x" {
		code, err := hexutil.Decode(raw)
		if err != nil {
			return fmt.Errorf("invalid code in base genesis: %w", err)
		}
		if !bytes.Equal(code, account.Code) {
			return fmt.Errorf("base genesis already holds different code")
		}
	}
	accountData["code"] = account.Code.String()

	storage, ok := accountData["storage"].(map[string]any)
	if !ok {
		storage = make(map[string]any)
	}

	current := make(map[common.Hash]common.Hash, len(storage))
	for k, v := range storage {
		value, ok := v.(string)
		if !ok {
			return fmt.Errorf("invalid storage value for slot %s in base genesis", k)
		}
		current[common.HexToHash(k)] = common.HexToHash(value)
	}

	for slot, value := range account.Storage {
		if prev, ok := current[slot]; ok && prev != value {
			return fmt.Errorf("base genesis sets slot %s to %s, dump sets %s", slot.Hex(), prev.Hex(), value.Hex())
		}
		current[slot] = value
	}

	merged := make(map[string]any, len(current))
	for slot, value := range current {
		merged[slot.Hex()] = value.Hex()
	}
	accountData["storage"] = merged

	return nil
}
