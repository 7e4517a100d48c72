package statedump

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/compose-network/predeploy-dump/configs"
	"github.com/compose-network/predeploy-dump/internal/artifacts"
	"github.com/compose-network/predeploy-dump/internal/dump"
	"github.com/compose-network/predeploy-dump/internal/infra/filesystem"
	"github.com/compose-network/predeploy-dump/internal/logger"
	"github.com/compose-network/predeploy-dump/internal/output"
	"github.com/compose-network/predeploy-dump/internal/predeploys"
)

type (
	assembler interface {
		Assemble(ctx context.Context, registry *predeploys.Registry, assignments dump.Assignments) (dump.Dump, error)
	}
	genesisGenerator interface {
		WriteDump(d dump.Dump, outputDir string) (string, error)
		Generate(d dump.Dump, basePath, outputDir string) (string, error)
	}
	reportGenerator interface {
		Generate(registry *predeploys.Registry, d dump.Dump, outputDir string) (*output.Model, error)
	}

	// Service produces the predeploy dump and its derived files
	Service struct {
		layouts          dump.LayoutSource
		assembler        assembler
		genesisGenerator genesisGenerator
		reportGenerator  reportGenerator
		logger           *slog.Logger
	}

	// Result lists the files a run produced.
	Result struct {
		DumpPath    string
		GenesisPath string
		Report      *output.Model
	}
)

func NewService(layouts dump.LayoutSource, assembler assembler, genesisGenerator genesisGenerator, reportGenerator reportGenerator) *Service {
	return &Service{
		layouts:          layouts,
		assembler:        assembler,
		genesisGenerator: genesisGenerator,
		reportGenerator:  reportGenerator,
		logger:           logger.Named("statedump_service"),
	}
}

func (s *Service) Run(ctx context.Context, cfg configs.Dump) (Result, error) {
	deployment, err := cfg.DeploymentConfig()
	if err != nil {
		return Result{}, err
	}

	registry, err := cfg.Registry()
	if err != nil {
		return Result{}, fmt.Errorf("failed to build predeploy registry: %w", err)
	}

	assignments, err := dump.BuildAssignments(deployment)
	if err != nil {
		return Result{}, err
	}

	s.logger.With("contracts", assignments.Contracts()).Info("checking variable bindings against storage layouts")
	if err := dump.CheckBindings(ctx, s.layouts); err != nil {
		return Result{}, fmt.Errorf("variable bindings do not match storage layouts: %w", err)
	}

	s.logger.With("predeploys", registry.Len()).Info("assembling dump")
	d, err := s.assembler.Assemble(ctx, registry, assignments)
	if err != nil {
		return Result{}, fmt.Errorf("failed to assemble dump: %w", err)
	}

	var result Result
	if result.DumpPath, err = s.genesisGenerator.WriteDump(d, cfg.OutputDir); err != nil {
		return Result{}, fmt.Errorf("failed to write dump: %w", err)
	}

	if cfg.BaseGenesis != "" {
		s.logger.With("base_genesis", cfg.BaseGenesis).Info("injecting dump into genesis")
		if result.GenesisPath, err = s.genesisGenerator.Generate(d, cfg.BaseGenesis, cfg.OutputDir); err != nil {
			return Result{}, fmt.Errorf("failed to generate genesis: %w", err)
		}
	}

	if result.Report, err = s.reportGenerator.Generate(registry, d, cfg.OutputDir); err != nil {
		return Result{}, fmt.Errorf("failed to generate report: %w", err)
	}

	return result, nil
}

// newArtifactSource picks the artifact backend for location and wraps it with retries.
func newArtifactSource(reader filesystem.Reader, cfg configs.Dump) (artifacts.Source, error) {
	var source artifacts.Source
	if u, err := url.Parse(cfg.Artifacts); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		remote, err := artifacts.NewRemote(cfg.Artifacts, nil)
		if err != nil {
			return nil, err
		}
		source = remote
	} else {
		store, err := artifacts.Load(reader, cfg.Artifacts)
		if err != nil {
			return nil, fmt.Errorf("failed to load artifacts: %w", err)
		}
		source = store
	}

	return artifacts.NewRetrying(source, uint(cfg.Retry.MaxTries), cfg.Retry.InitialInterval), nil
}
