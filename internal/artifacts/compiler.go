package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/compose-network/predeploy-dump/internal/infra/docker"
	"github.com/compose-network/predeploy-dump/internal/infra/filesystem"
	"github.com/compose-network/predeploy-dump/internal/logger"
	"github.com/compose-network/predeploy-dump/internal/storage"
)

type (
	// Forge runs a forge subcommand in the contracts root and returns its stdout.
	Forge interface {
		Run(ctx context.Context, args ...string) ([]byte, error)
	}

	// Compiler builds the artifacts bundle for the predeploy contracts
	Compiler struct {
		forge  Forge
		writer filesystem.Writer
		logger *slog.Logger
	}

	// LocalForge runs the forge binary found on PATH.
	LocalForge struct {
		contractsRootDir string
	}

	// DockerForge runs forge inside a foundry image with the contracts mounted.
	DockerForge struct {
		client           *docker.Client
		image            string
		contractsRootDir string
	}
)

// NewCompiler creates a new contract compiler
func NewCompiler(forge Forge, writer filesystem.Writer) *Compiler {
	return &Compiler{
		forge:  forge,
		writer: writer,
		logger: logger.Named("contracts_compiler"),
	}
}

// Compile inspects every contract and writes the bundle to outputDir. It returns
// the bundle path.
func (c *Compiler) Compile(ctx context.Context, contractNames []string, outputDir string) (string, error) {
	c.logger.With("contracts", contractNames).Info("starting contract compilation")

	c.logger.Info("building contracts")
	if _, err := c.forge.Run(ctx, "build"); err != nil {
		return "", fmt.Errorf("forge build failed: %w", err)
	}

	bundle := make(map[string]Artifact, len(contractNames))
	for _, name := range contractNames {
		c.logger.With("name", name).Info("inspecting contract")

		artifact, err := c.inspect(ctx, name)
		if err != nil {
			return "", fmt.Errorf("failed to inspect %s: %w", name, err)
		}
		bundle[name] = artifact
	}

	outputPath := filepath.Join(outputDir, bundleFileName)
	if err := c.writer.WriteJSON(outputPath, bundle); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", bundleFileName, err)
	}

	c.logger.With("file_path", outputPath).Info("contracts compiled successfully")

	return outputPath, nil
}

func (c *Compiler) inspect(ctx context.Context, name string) (Artifact, error) {
	bytecodeOutput, err := c.forge.Run(ctx, "inspect", name, "deployedBytecode")
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to get deployed bytecode: %w", err)
	}

	raw, err := json.Marshal(strings.TrimSpace(string(bytecodeOutput)))
	if err != nil {
		return Artifact{}, err
	}
	code, err := decodeBytecode(raw)
	if err != nil {
		return Artifact{}, err
	}
	if len(code) == 0 {
		return Artifact{}, fmt.Errorf("contract has no deployed bytecode")
	}

	layoutOutput, err := c.forge.Run(ctx, "inspect", name, "storageLayout", "--json")
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to get storage layout: %w", err)
	}

	var layout storage.Layout
	if err := json.Unmarshal(layoutOutput, &layout); err != nil {
		return Artifact{}, fmt.Errorf("failed to parse storage layout: %w", err)
	}

	return Artifact{DeployedBytecode: code, StorageLayout: &layout}, nil
}

func NewLocalForge(contractsRootDir string) *LocalForge {
	return &LocalForge{contractsRootDir: contractsRootDir}
}

func (f *LocalForge) Run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "forge", args...)
	// Forge looks for contracts in src/ relative to the working directory
	cmd.Dir = f.contractsRootDir
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("forge %s: %w", strings.Join(args, " "), err)
	}

	return output, nil
}

func NewDockerForge(client *docker.Client, image, contractsRootDir string) *DockerForge {
	return &DockerForge{client: client, image: image, contractsRootDir: contractsRootDir}
}

func (f *DockerForge) Run(ctx context.Context, args ...string) ([]byte, error) {
	if err := f.client.EnsureImage(ctx, f.image); err != nil {
		return nil, err
	}

	hostDir, err := filepath.Abs(f.contractsRootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve contracts dir: %w", err)
	}

	// The foundry image's entrypoint is `sh -c`, so the command is one string.
	output, err := f.client.Run(ctx, docker.RunOptions{
		Image:   f.image,
		Cmd:     []string{"forge " + strings.Join(args, " ")},
		Volumes: map[string]string{hostDir: "/work"},
		WorkDir: "/work",
		User:    fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
	})
	if err != nil {
		return nil, fmt.Errorf("forge %s: %w", strings.Join(args, " "), err)
	}

	return output, nil
}
