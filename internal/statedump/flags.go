package statedump

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/compose-network/predeploy-dump/configs"
)

// flagDef defines a command-line flag with its configuration.
type (
	flagType interface {
		string | int | bool | time.Duration | []string
	}

	flagDef[T flagType] struct {
		name         string
		viperKey     string
		defaultValue T
		description  string
	}
)

func dumpFlags(cmd *cobra.Command, defaults configs.Dump) error {
	d := defaults.Deployment

	stringFlags := []flagDef[string]{
		{"artifacts", "dump.artifacts", defaults.Artifacts, "Artifacts bundle file, artifacts directory, or http(s) base URL"},
		{"output-dir", "dump.output-dir", defaults.OutputDir, "Directory receiving dump.json, genesis.json and report.yaml"},
		{"base-genesis", "dump.base-genesis", defaults.BaseGenesis, "Optional genesis.json to inject the predeploys into"},

		// Deployment
		{"whitelist-owner", "dump.deployment.whitelist.owner", d.Whitelist.Owner, "Deployer whitelist owner address"},
		{"gas-price-oracle-owner", "dump.deployment.gas-price-oracle.owner", d.GasPriceOracle.Owner, "Gas price oracle owner address"},
		{"initial-gas-price", "dump.deployment.gas-price-oracle.initial-gas-price", d.GasPriceOracle.InitialGasPrice, "Initial L2 gas price in wei"},
		{"initial-l1-base-fee", "dump.deployment.gas-price-oracle.initial-l1-base-fee", d.GasPriceOracle.InitialL1BaseFee, "Initial L1 base fee in wei (optional)"},
		{"l1-standard-bridge-address", "dump.deployment.l1-standard-bridge-address", d.L1StandardBridgeAddress, "L1 standard bridge address"},
		{"l1-fee-wallet-address", "dump.deployment.l1-fee-wallet-address", d.L1FeeWalletAddress, "L1 wallet receiving sequencer fees"},
	}

	intFlags := []flagDef[int]{
		{"concurrency", "dump.concurrency", defaults.Concurrency, "Maximum number of predeploys assembled in parallel"},
		{"retry-max-tries", "dump.retry.max-tries", defaults.Retry.MaxTries, "Attempts per artifact lookup"},
	}

	boolFlags := []flagDef[bool]{
		{"allow-arbitrary-contract-deployment", "dump.deployment.whitelist.allow-arbitrary-contract-deployment", d.Whitelist.AllowArbitraryContractDeployment, "Let any account deploy contracts"},
	}

	durationFlags := []flagDef[time.Duration]{
		{"retry-initial-interval", "dump.retry.initial-interval", defaults.Retry.InitialInterval, "Delay before the first artifact lookup retry"},
	}

	sliceFlags := []flagDef[[]string]{
		{"whitelist-deployers", "dump.deployment.whitelist.deployers", d.Whitelist.Deployers, "Addresses whitelisted to deploy contracts at genesis"},
	}

	return errors.Join(
		declareFlags(cmd, stringFlags),
		declareFlags(cmd, intFlags),
		declareFlags(cmd, boolFlags),
		declareFlags(cmd, durationFlags),
		declareFlags(cmd, sliceFlags),
	)
}

func compileFlags(cmd *cobra.Command, defaults configs.Compile) error {
	stringFlags := []flagDef[string]{
		{"repository-name", "compile.repository.name", defaults.Repository.Name, "Checkout directory name of the contracts repository"},
		{"repository-url", "compile.repository.url", defaults.Repository.URL, "Contracts repository URL"},
		{"repository-branch", "compile.repository.branch", defaults.Repository.Branch, "Contracts repository branch or tag"},
		{"contracts-dir", "compile.contracts-dir", defaults.ContractsDir, "Foundry project directory inside the repository"},
		{"work-dir", "compile.work-dir", defaults.WorkDir, "Directory the repository is cloned into"},
		{"output-dir", "compile.output-dir", defaults.OutputDir, "Directory receiving contracts.json"},
		{"foundry-image", "compile.foundry-image", defaults.FoundryImage, "Foundry docker image"},
	}

	boolFlags := []flagDef[bool]{
		{"use-docker", "compile.use-docker", defaults.UseDocker, "Run forge inside the foundry image instead of the local binary"},
	}

	return errors.Join(
		declareFlags(cmd, stringFlags),
		declareFlags(cmd, boolFlags),
	)
}

// declareFlags declares multiple flags and binds them to viper configuration keys.
func declareFlags[T flagType](cmd *cobra.Command, flags []flagDef[T]) error {
	for _, flag := range flags {
		if err := declareFlag(cmd, flag); err != nil {
			return fmt.Errorf("failed to declare flag %s: %w", flag.name, err)
		}
	}
	return nil
}

func declareFlag[T flagType](cmd *cobra.Command, flag flagDef[T]) error {
	switch value := any(flag.defaultValue).(type) {
	case string:
		cmd.Flags().String(flag.name, value, flag.description)
	case int:
		cmd.Flags().Int(flag.name, value, flag.description)
	case bool:
		cmd.Flags().Bool(flag.name, value, flag.description)
	case time.Duration:
		cmd.Flags().Duration(flag.name, value, flag.description)
	case []string:
		cmd.Flags().StringSlice(flag.name, value, flag.description)
	}

	return viper.BindPFlag(flag.viperKey, cmd.Flags().Lookup(flag.name))
}
