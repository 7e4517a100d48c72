package output

import (
	"github.com/ethereum/go-ethereum/common"
)

type (
	Model struct {
		DumpHash   common.Hash `yaml:"dump-hash"`
		Predeploys []Predeploy `yaml:"predeploys"`
	}

	Predeploy struct {
		Name     string         `yaml:"name"`
		Address  common.Address `yaml:"address"`
		CodeHash common.Hash    `yaml:"code-hash"`
		CodeSize int            `yaml:"code-size"`
		Slots    int            `yaml:"slots"`
	}
)
