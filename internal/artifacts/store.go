package artifacts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/compose-network/predeploy-dump/internal/infra/filesystem"
	"github.com/compose-network/predeploy-dump/internal/logger"
	"github.com/compose-network/predeploy-dump/internal/storage"
)

// Store serves artifacts held in memory. It is safe for concurrent use since it is
// never modified after construction.
type Store struct {
	artifacts map[string]Artifact
}

// NewStore creates a store over already loaded artifacts
func NewStore(artifacts map[string]Artifact) *Store {
	copied := make(map[string]Artifact, len(artifacts))
	for name, artifact := range artifacts {
		copied[name] = artifact
	}

	return &Store{artifacts: copied}
}

// Load reads artifacts from path, which is either a bundle file mapping contract
// names to artifacts or a directory holding one <Name>.json file per contract.
func Load(reader filesystem.Reader, path string) (*Store, error) {
	log := logger.Named("artifacts_loader").With("path", path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat artifacts path: %w", err)
	}

	if !info.IsDir() {
		log.Info("loading artifacts bundle")
		return loadBundle(reader, path)
	}

	bundlePath := filepath.Join(path, bundleFileName)
	if _, err := os.Stat(bundlePath); err == nil {
		log.With("bundle", bundlePath).Info("loading artifacts bundle from directory")
		return loadBundle(reader, bundlePath)
	}

	log.Info("loading per-contract artifacts")
	return loadDir(reader, path, log)
}

func loadBundle(reader filesystem.Reader, path string) (*Store, error) {
	var bundle map[string]Artifact
	if err := reader.ReadJSON(path, &bundle); err != nil {
		return nil, fmt.Errorf("failed to read artifacts bundle: %w", err)
	}

	return NewStore(bundle), nil
}

func loadDir(reader filesystem.Reader, dir string, log *slog.Logger) (*Store, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	artifacts := make(map[string]Artifact, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".json")

		var artifact Artifact
		if err := reader.ReadJSON(file, &artifact); err != nil {
			return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
		}
		artifacts[name] = artifact
	}

	log.With("count", len(artifacts)).Debug("artifacts loaded")

	return NewStore(artifacts), nil
}

// Bytecode returns a copy of the contract's deployed bytecode.
func (s *Store) Bytecode(_ context.Context, contract string) ([]byte, error) {
	artifact, ok := s.artifacts[contract]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, contract)
	}

	return common.CopyBytes(artifact.DeployedBytecode), nil
}

// StorageLayout returns the contract's storage layout.
func (s *Store) StorageLayout(_ context.Context, contract string) (*storage.Layout, error) {
	artifact, ok := s.artifacts[contract]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, contract)
	}
	if artifact.StorageLayout == nil {
		return nil, fmt.Errorf("%w: %s has no recorded storage layout", ErrNotFound, contract)
	}

	return artifact.StorageLayout, nil
}

// Names returns the contract names held by the store, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.artifacts))
	for name := range s.artifacts {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}
