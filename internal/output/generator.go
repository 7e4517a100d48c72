package output

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"

	"github.com/compose-network/predeploy-dump/internal/dump"
	"github.com/compose-network/predeploy-dump/internal/infra/filesystem"
	"github.com/compose-network/predeploy-dump/internal/logger"
	"github.com/compose-network/predeploy-dump/internal/predeploys"
)

const fileName = "report.yaml"

// Generator writes a human readable summary of a dump
type Generator struct {
	writer filesystem.Writer
	logger *slog.Logger
}

func NewGenerator(writer filesystem.Writer) *Generator {
	return &Generator{
		writer: writer,
		logger: logger.Named("report_generator"),
	}
}

// Build summarises the dump in registry order.
func Build(registry *predeploys.Registry, d dump.Dump) (*Model, error) {
	hash, err := d.Hash()
	if err != nil {
		return nil, err
	}

	model := &Model{DumpHash: hash}
	for _, entry := range registry.Entries() {
		account, ok := d[entry.Address]
		if !ok {
			return nil, fmt.Errorf("dump has no account for %s at %s", entry.Name, entry.Address.Hex())
		}

		model.Predeploys = append(model.Predeploys, Predeploy{
			Name:     entry.Name,
			Address:  entry.Address,
			CodeHash: crypto.Keccak256Hash(account.Code),
			CodeSize: len(account.Code),
			Slots:    len(account.Storage),
		})
	}

	return model, nil
}

// Generate writes report.yaml under outputDir and returns the model it wrote.
func (g *Generator) Generate(registry *predeploys.Registry, d dump.Dump, outputDir string) (*Model, error) {
	model, err := Build(registry, d)
	if err != nil {
		return nil, fmt.Errorf("could not build report. Err: '%w'", err)
	}

	data, err := yaml.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("could not marshal report. Err: '%w'", err)
	}

	path := filepath.Join(outputDir, fileName)
	if err := g.writer.WriteBytes(path, data); err != nil {
		return nil, fmt.Errorf("could not write report. Err: '%w'", err)
	}

	g.logger.With("file_path", path).With("dump_hash", model.DumpHash.Hex()).Info("report written")

	return model, nil
}
