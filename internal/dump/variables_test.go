package dump

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/predeploy-dump/internal/predeploys"
	"github.com/compose-network/predeploy-dump/internal/storage"
)

func TestBuildAssignments(t *testing.T) {
	deployer := common.HexToAddress("0x5555555555555555555555555555555555555555")

	tests := []struct {
		name     string
		modify   func(cfg *DeploymentConfig)
		expected Assignments
	}{
		{
			name: "required fields only",
			expected: Assignments{
				predeploys.DeployerWhitelist: {
					"initialized":              true,
					"allowArbitraryDeployment": true,
					"owner":                    whitelistOwner,
				},
				predeploys.GasPriceOracle: {
					"_owner":   oracleOwner,
					"gasPrice": big.NewInt(1234),
				},
				predeploys.L2StandardBridge:  {"l1TokenBridge": l1Bridge},
				predeploys.SequencerFeeVault: {"l1FeeWallet": l1FeeWallet},
			},
		},
		{
			name: "optional fields set",
			modify: func(cfg *DeploymentConfig) {
				cfg.Whitelist.AllowArbitraryContractDeployment = false
				cfg.Whitelist.Deployers = []common.Address{deployer}
				cfg.GasPriceOracle.InitialL1BaseFee = big.NewInt(7)
			},
			expected: Assignments{
				predeploys.DeployerWhitelist: {
					"initialized":              true,
					"allowArbitraryDeployment": false,
					"owner":                    whitelistOwner,
					"whitelist":                map[common.Address]any{deployer: true},
				},
				predeploys.GasPriceOracle: {
					"_owner":    oracleOwner,
					"gasPrice":  big.NewInt(1234),
					"l1BaseFee": big.NewInt(7),
				},
				predeploys.L2StandardBridge:  {"l1TokenBridge": l1Bridge},
				predeploys.SequencerFeeVault: {"l1FeeWallet": l1FeeWallet},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.modify != nil {
				tt.modify(&cfg)
			}

			assignments, err := BuildAssignments(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, assignments)
		})
	}
}

func TestBuildAssignments_CopiesAmounts(t *testing.T) {
	cfg := validConfig()
	assignments, err := BuildAssignments(cfg)
	require.NoError(t, err)

	cfg.GasPriceOracle.InitialGasPrice.SetInt64(1)
	assert.Equal(t, big.NewInt(1234), assignments[predeploys.GasPriceOracle]["gasPrice"])
}

func TestDeploymentConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *DeploymentConfig)
		errMsg string
	}{
		{"missing gas price", func(cfg *DeploymentConfig) { cfg.GasPriceOracle.InitialGasPrice = nil }, "initial gas price is required"},
		{"negative gas price", func(cfg *DeploymentConfig) { cfg.GasPriceOracle.InitialGasPrice = big.NewInt(-1) }, "initial gas price cannot be negative"},
		{"negative l1 base fee", func(cfg *DeploymentConfig) { cfg.GasPriceOracle.InitialL1BaseFee = big.NewInt(-1) }, "l1 base fee cannot be negative"},
		{"duplicate deployer", func(cfg *DeploymentConfig) {
			cfg.Whitelist.Deployers = []common.Address{whitelistOwner, whitelistOwner}
		}, "listed twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			assignments, err := BuildAssignments(cfg)
			require.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Nil(t, assignments)
		})
	}
}

func TestAssignments_Contracts(t *testing.T) {
	assignments, err := BuildAssignments(validConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{
		predeploys.DeployerWhitelist,
		predeploys.GasPriceOracle,
		predeploys.L2StandardBridge,
		predeploys.SequencerFeeVault,
	}, assignments.Contracts())
}

func TestCheckBindings(t *testing.T) {
	t.Run("every bound variable is declared", func(t *testing.T) {
		require.NoError(t, CheckBindings(context.Background(), newFakeSource(t)))
	})

	t.Run("renamed variable", func(t *testing.T) {
		source := newFakeSource(t)
		source.layouts[predeploys.SequencerFeeVault] = &storage.Layout{
			Storage: []storage.Entry{{Label: "feeWallet", Type: "t_address"}},
		}

		err := CheckBindings(context.Background(), source)
		require.ErrorIs(t, err, storage.ErrUnknownVariable)

		var contractErr *ContractError
		require.ErrorAs(t, err, &contractErr)
		assert.Equal(t, predeploys.SequencerFeeVault, contractErr.Contract)
	})

	t.Run("missing layout", func(t *testing.T) {
		source := newFakeSource(t)
		delete(source.layouts, predeploys.L2StandardBridge)

		require.ErrorIs(t, CheckBindings(context.Background(), source), ErrMissingLayout)
	})
}
