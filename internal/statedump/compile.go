package statedump

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/compose-network/predeploy-dump/configs"
	"github.com/compose-network/predeploy-dump/internal/artifacts"
	"github.com/compose-network/predeploy-dump/internal/infra/docker"
	"github.com/compose-network/predeploy-dump/internal/infra/filesystem/json"
	"github.com/compose-network/predeploy-dump/internal/infra/git"
)

var CompileCMD = &cobra.Command{
	Use:   "compile",
	Short: "Compile the predeploy contracts into an artifacts bundle",
	Long:  "Clones the contracts repository, builds it with forge and writes contracts.json with deployed bytecode and storage layout per predeploy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configs.Values.Compile
		slog.Info("starting compile command. Validating config", slog.Any("config", cfg))

		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx := cmd.Context()
		repoPath, err := git.NewCloner().Clone(ctx, cfg.WorkDir, git.Repository{
			Name: cfg.Repository.Name,
			URL:  cfg.Repository.URL,
			Ref:  cfg.Repository.Branch,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repository: %w", err)
		}
		contractsRoot := filepath.Join(repoPath, cfg.ContractsDir)

		var forge artifacts.Forge = artifacts.NewLocalForge(contractsRoot)
		if cfg.UseDocker {
			client, err := docker.New()
			if err != nil {
				return fmt.Errorf("failed to create docker client: %w", err)
			}
			defer client.Close()

			forge = artifacts.NewDockerForge(client, cfg.FoundryImage, contractsRoot)
		}

		registry, err := configs.Values.Dump.Registry()
		if err != nil {
			return fmt.Errorf("failed to build predeploy registry: %w", err)
		}

		bundlePath, err := artifacts.NewCompiler(forge, json.NewWriter()).Compile(ctx, registry.Names(), cfg.OutputDir)
		if err != nil {
			return fmt.Errorf("contract compilation failed: %w", err)
		}

		slog.With("bundle", bundlePath).Info("contract compilation completed successfully")

		return nil
	},
}
