package dump

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/compose-network/predeploy-dump/internal/predeploys"
	"github.com/compose-network/predeploy-dump/internal/storage"
)

type (
	// DeploymentConfig holds the parameters that determine the predeploys' initial storage.
	DeploymentConfig struct {
		Whitelist               WhitelistConfig
		GasPriceOracle          GasPriceOracleConfig
		L1StandardBridgeAddress common.Address
		L1FeeWalletAddress      common.Address
	}

	WhitelistConfig struct {
		Owner                            common.Address
		AllowArbitraryContractDeployment bool
		// Deployers are whitelisted at genesis. Optional.
		Deployers []common.Address
	}

	GasPriceOracleConfig struct {
		Owner           common.Address
		InitialGasPrice *big.Int
		// InitialL1BaseFee is optional; the contract default applies when nil.
		InitialL1BaseFee *big.Int
	}

	// Assignments maps a contract name to the values of its declared variables.
	Assignments map[string]storage.Values

	binding struct {
		contract string
		variable string
		// value returns the value to assign, or false when the config leaves it unset.
		value func(cfg DeploymentConfig) (any, bool)
	}
)

// bindings is the single place tying config fields to the variable names the
// predeploy contracts declare. Update it together with the contracts.
var bindings = []binding{
	{predeploys.DeployerWhitelist, "initialized", func(DeploymentConfig) (any, bool) {
		return true, true
	}},
	{predeploys.DeployerWhitelist, "allowArbitraryDeployment", func(cfg DeploymentConfig) (any, bool) {
		return cfg.Whitelist.AllowArbitraryContractDeployment, true
	}},
	{predeploys.DeployerWhitelist, "owner", func(cfg DeploymentConfig) (any, bool) {
		return cfg.Whitelist.Owner, true
	}},
	{predeploys.DeployerWhitelist, "whitelist", func(cfg DeploymentConfig) (any, bool) {
		if len(cfg.Whitelist.Deployers) == 0 {
			return nil, false
		}
		whitelisted := make(map[common.Address]any, len(cfg.Whitelist.Deployers))
		for _, deployer := range cfg.Whitelist.Deployers {
			whitelisted[deployer] = true
		}
		return whitelisted, true
	}},
	{predeploys.GasPriceOracle, "_owner", func(cfg DeploymentConfig) (any, bool) {
		return cfg.GasPriceOracle.Owner, true
	}},
	{predeploys.GasPriceOracle, "gasPrice", func(cfg DeploymentConfig) (any, bool) {
		return new(big.Int).Set(cfg.GasPriceOracle.InitialGasPrice), true
	}},
	{predeploys.GasPriceOracle, "l1BaseFee", func(cfg DeploymentConfig) (any, bool) {
		if cfg.GasPriceOracle.InitialL1BaseFee == nil {
			return nil, false
		}
		return new(big.Int).Set(cfg.GasPriceOracle.InitialL1BaseFee), true
	}},
	{predeploys.L2StandardBridge, "l1TokenBridge", func(cfg DeploymentConfig) (any, bool) {
		return cfg.L1StandardBridgeAddress, true
	}},
	{predeploys.SequencerFeeVault, "l1FeeWallet", func(cfg DeploymentConfig) (any, bool) {
		return cfg.L1FeeWalletAddress, true
	}},
}

// Validate reports every required field that is missing or out of range.
func (c DeploymentConfig) Validate() error {
	var errs []error

	if c.GasPriceOracle.InitialGasPrice == nil {
		errs = append(errs, errors.New("gas price oracle initial gas price is required"))
	} else if c.GasPriceOracle.InitialGasPrice.Sign() < 0 {
		errs = append(errs, errors.New("gas price oracle initial gas price cannot be negative"))
	}
	if c.GasPriceOracle.InitialL1BaseFee != nil && c.GasPriceOracle.InitialL1BaseFee.Sign() < 0 {
		errs = append(errs, errors.New("gas price oracle initial l1 base fee cannot be negative"))
	}

	seen := make(map[common.Address]struct{}, len(c.Whitelist.Deployers))
	for _, deployer := range c.Whitelist.Deployers {
		if _, ok := seen[deployer]; ok {
			errs = append(errs, fmt.Errorf("whitelist deployer %s listed twice", deployer.Hex()))
		}
		seen[deployer] = struct{}{}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}

	return nil
}

// BuildAssignments translates the deployment config into per-contract variable values.
func BuildAssignments(cfg DeploymentConfig) (Assignments, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	assignments := make(Assignments)
	for _, b := range bindings {
		value, ok := b.value(cfg)
		if !ok {
			continue
		}
		if _, exists := assignments[b.contract]; !exists {
			assignments[b.contract] = make(storage.Values)
		}
		assignments[b.contract][b.variable] = value
	}

	return assignments, nil
}

// Contracts returns the names of the contracts that receive initial storage, sorted.
func (a Assignments) Contracts() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// CheckBindings verifies that every variable the bindings write is declared by the
// corresponding contract's storage layout.
func CheckBindings(ctx context.Context, layouts LayoutSource) error {
	byContract := make(map[string][]string)
	var order []string
	for _, b := range bindings {
		if _, ok := byContract[b.contract]; !ok {
			order = append(order, b.contract)
		}
		byContract[b.contract] = append(byContract[b.contract], b.variable)
	}

	for _, contract := range order {
		layout, err := layouts.StorageLayout(ctx, contract)
		if err != nil {
			return contractError(contract, fmt.Errorf("%w: %w", ErrMissingLayout, err))
		}

		for _, variable := range byContract[contract] {
			if _, err := layout.Entry(variable); err != nil {
				return contractError(contract, err)
			}
		}
	}

	return nil
}
