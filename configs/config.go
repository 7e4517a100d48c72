package configs

import (
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/compose-network/predeploy-dump/internal/dump"
	"github.com/compose-network/predeploy-dump/internal/predeploys"
)

var Values Config

type (
	Config struct {
		LogLevel string  `mapstructure:"log-level"`
		Dump     Dump    `mapstructure:"dump"`
		Compile  Compile `mapstructure:"compile"`
	}

	Dump struct {
		// Artifacts is a bundle file, a directory of artifacts, or an http(s) base URL.
		Artifacts   string      `mapstructure:"artifacts"`
		OutputDir   string      `mapstructure:"output-dir"`
		BaseGenesis string      `mapstructure:"base-genesis"`
		Concurrency int         `mapstructure:"concurrency"`
		Retry       Retry       `mapstructure:"retry"`
		Predeploys  []Predeploy `mapstructure:"predeploys"`
		Deployment  Deployment  `mapstructure:"deployment"`
	}

	Retry struct {
		MaxTries        int           `mapstructure:"max-tries"`
		InitialInterval time.Duration `mapstructure:"initial-interval"`
	}

	Predeploy struct {
		Name    string `mapstructure:"name"`
		Address string `mapstructure:"address"`
	}

	Deployment struct {
		Whitelist               Whitelist      `mapstructure:"whitelist"`
		GasPriceOracle          GasPriceOracle `mapstructure:"gas-price-oracle"`
		L1StandardBridgeAddress string         `mapstructure:"l1-standard-bridge-address"`
		L1FeeWalletAddress      string         `mapstructure:"l1-fee-wallet-address"`
	}

	Whitelist struct {
		Owner                            string   `mapstructure:"owner"`
		AllowArbitraryContractDeployment bool     `mapstructure:"allow-arbitrary-contract-deployment"`
		Deployers                        []string `mapstructure:"deployers"`
	}

	GasPriceOracle struct {
		Owner            string `mapstructure:"owner"`
		InitialGasPrice  string `mapstructure:"initial-gas-price"`
		InitialL1BaseFee string `mapstructure:"initial-l1-base-fee"`
	}

	Compile struct {
		Repository   Repository `mapstructure:"repository"`
		ContractsDir string     `mapstructure:"contracts-dir"`
		WorkDir      string     `mapstructure:"work-dir"`
		OutputDir    string     `mapstructure:"output-dir"`
		UseDocker    bool       `mapstructure:"use-docker"`
		FoundryImage string     `mapstructure:"foundry-image"`
	}

	Repository struct {
		Name   string `mapstructure:"name"`
		URL    string `mapstructure:"url"`
		Branch string `mapstructure:"branch"`
	}
)

func (c *Dump) Validate() error {
	var errs []error

	if c.Artifacts == "" {
		errs = append(errs, errors.New("dump.artifacts is required"))
	} else if u, err := url.Parse(c.Artifacts); err == nil && u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Errorf("dump.artifacts has unsupported scheme '%s'", u.Scheme))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("dump.output-dir is required"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, errors.New("dump.concurrency must be at least 1"))
	}
	if c.Retry.MaxTries < 1 {
		errs = append(errs, errors.New("dump.retry.max-tries must be at least 1"))
	}
	if c.Retry.InitialInterval < 0 {
		errs = append(errs, errors.New("dump.retry.initial-interval cannot be negative"))
	}

	for i, p := range c.Predeploys {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("dump.predeploys[%d].name is required", i))
		}
		if !common.IsHexAddress(p.Address) {
			errs = append(errs, fmt.Errorf("dump.predeploys[%d].address '%s' is not a valid address", i, p.Address))
		}
	}

	d := c.Deployment
	errs = append(errs,
		requireAddress("dump.deployment.whitelist.owner", d.Whitelist.Owner),
		requireAddress("dump.deployment.gas-price-oracle.owner", d.GasPriceOracle.Owner),
		requireAddress("dump.deployment.l1-standard-bridge-address", d.L1StandardBridgeAddress),
		requireAddress("dump.deployment.l1-fee-wallet-address", d.L1FeeWalletAddress),
	)
	for i, deployer := range d.Whitelist.Deployers {
		errs = append(errs, requireAddress(fmt.Sprintf("dump.deployment.whitelist.deployers[%d]", i), deployer))
	}

	if d.GasPriceOracle.InitialGasPrice == "" {
		errs = append(errs, errors.New("dump.deployment.gas-price-oracle.initial-gas-price is required"))
	} else if _, err := parseWei(d.GasPriceOracle.InitialGasPrice); err != nil {
		errs = append(errs, fmt.Errorf("dump.deployment.gas-price-oracle.initial-gas-price: %w", err))
	}
	if d.GasPriceOracle.InitialL1BaseFee != "" {
		if _, err := parseWei(d.GasPriceOracle.InitialL1BaseFee); err != nil {
			errs = append(errs, fmt.Errorf("dump.deployment.gas-price-oracle.initial-l1-base-fee: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("dump configuration validation failed: %w: %w", dump.ErrConfiguration, err)
	}

	return nil
}

// DeploymentConfig converts the validated deployment section into its typed form.
func (c *Dump) DeploymentConfig() (dump.DeploymentConfig, error) {
	if err := c.Validate(); err != nil {
		return dump.DeploymentConfig{}, err
	}

	d := c.Deployment
	cfg := dump.DeploymentConfig{
		Whitelist: dump.WhitelistConfig{
			Owner:                            common.HexToAddress(d.Whitelist.Owner),
			AllowArbitraryContractDeployment: d.Whitelist.AllowArbitraryContractDeployment,
		},
		GasPriceOracle: dump.GasPriceOracleConfig{
			Owner: common.HexToAddress(d.GasPriceOracle.Owner),
		},
		L1StandardBridgeAddress: common.HexToAddress(d.L1StandardBridgeAddress),
		L1FeeWalletAddress:      common.HexToAddress(d.L1FeeWalletAddress),
	}
	for _, deployer := range d.Whitelist.Deployers {
		cfg.Whitelist.Deployers = append(cfg.Whitelist.Deployers, common.HexToAddress(deployer))
	}

	// Already checked by Validate.
	cfg.GasPriceOracle.InitialGasPrice, _ = parseWei(d.GasPriceOracle.InitialGasPrice)
	if d.GasPriceOracle.InitialL1BaseFee != "" {
		cfg.GasPriceOracle.InitialL1BaseFee, _ = parseWei(d.GasPriceOracle.InitialL1BaseFee)
	}

	return cfg, nil
}

// Registry returns the configured predeploy table, or the default one when none is configured.
func (c *Dump) Registry() (*predeploys.Registry, error) {
	if len(c.Predeploys) == 0 {
		return predeploys.Default(), nil
	}

	order := make([]string, 0, len(c.Predeploys))
	addresses := make(map[string]string, len(c.Predeploys))
	for _, p := range c.Predeploys {
		order = append(order, p.Name)
		addresses[p.Name] = p.Address
	}

	return predeploys.FromHex(order, addresses)
}

func (c *Compile) Validate() error {
	var errs []error

	if c.Repository.Name == "" {
		errs = append(errs, errors.New("compile.repository.name is required"))
	}
	if c.Repository.URL == "" {
		errs = append(errs, errors.New("compile.repository.url is required"))
	}
	if c.Repository.Branch == "" {
		errs = append(errs, errors.New("compile.repository.branch is required"))
	}
	if c.WorkDir == "" {
		errs = append(errs, errors.New("compile.work-dir is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("compile.output-dir is required"))
	}
	if c.UseDocker && c.FoundryImage == "" {
		errs = append(errs, errors.New("compile.foundry-image is required when compile.use-docker is set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("compile configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

func requireAddress(key, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", key)
	}
	if !common.IsHexAddress(value) {
		return fmt.Errorf("%s '%s' is not a valid address", key, value)
	}
	return nil
}

// parseWei accepts decimal or 0x-prefixed hex amounts.
func parseWei(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(value, 0)
	if !ok {
		return nil, fmt.Errorf("'%s' is not a valid integer", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("'%s' cannot be negative", value)
	}
	return amount, nil
}
