package configs

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

var (
	//go:embed config.example.yaml
	exampleYAML string

	loadDefaults = sync.OnceValues(func() (Config, error) {
		v := viper.New()
		v.SetConfigType("yaml")
		if err := v.ReadConfig(strings.NewReader(exampleYAML)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config.example.yaml: %w", err)
		}

		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			return Config{}, fmt.Errorf("failed to decode embedded config.example.yaml: %w", err)
		}
		return cfg, nil
	})
)

// DefaultConfig returns the configuration shipped in config.example.yaml. Flags take
// their default values from it.
func DefaultConfig() (Config, error) {
	return loadDefaults()
}

// MustDefaultConfig returns embedded defaults or panics if they cannot be loaded.
func MustDefaultConfig() Config {
	cfg, err := DefaultConfig()
	if err != nil {
		panic(err)
	}
	return cfg
}
