package statedump

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/compose-network/predeploy-dump/configs"
	"github.com/compose-network/predeploy-dump/internal/dump"
	"github.com/compose-network/predeploy-dump/internal/genesis"
	"github.com/compose-network/predeploy-dump/internal/infra/filesystem/json"
	"github.com/compose-network/predeploy-dump/internal/output"
	"github.com/compose-network/predeploy-dump/internal/storage"
)

func init() {
	defaults := configs.MustDefaultConfig()
	if err := dumpFlags(DumpCMD, defaults.Dump); err != nil {
		panic(err)
	}
	if err := compileFlags(CompileCMD, defaults.Compile); err != nil {
		panic(err)
	}
}

var DumpCMD = &cobra.Command{
	Use:   "dump",
	Short: "Assemble the predeploy state dump",
	Long:  "Resolves predeploy artifacts, encodes the configured initial storage and writes dump.json, report.yaml and optionally genesis.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configs.Values.Dump
		slog.Info("starting dump command. Validating config", slog.Any("config", cfg))

		if err := cfg.Validate(); err != nil {
			return err
		}

		reader, writer := json.NewReader(), json.NewWriter()
		source, err := newArtifactSource(reader, cfg)
		if err != nil {
			return err
		}

		assembler := dump.NewAssembler(source, source, storage.NewEncoder(), dump.WithConcurrency(cfg.Concurrency))
		service := NewService(source, assembler, genesis.NewGenerator(reader, writer), output.NewGenerator(writer))

		result, err := service.Run(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("dump failed: %w", err)
		}

		slog.With("dump", result.DumpPath).
			With("genesis", result.GenesisPath).
			With("dump_hash", result.Report.DumpHash.Hex()).
			Info("dump completed successfully")

		return nil
	},
}
