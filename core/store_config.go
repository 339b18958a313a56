package core

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"blockagg/operator"
)

type Config struct {
	// Workers is the size of the pool running AggregateBlock.
	Workers int `toml:"workers"`
	// Spill keeps partial accumulators in the backend between merges
	// instead of in memory.
	Spill bool `toml:"spill"`
	// BadgerDir is where spilled partials go; empty means in-memory badger.
	BadgerDir    string `toml:"badger-dir"`
	CacheEnabled bool   `toml:"cache-enabled"`
	CacheMaxCost int64  `toml:"cache-max-cost"`
}

func DefaultConfig() *Config {
	return &Config{
		Workers:      4,
		Spill:        false,
		BadgerDir:    "",
		CacheEnabled: true,
		CacheMaxCost: 1 << 24,
	}
}

func (config *Config) Validate() error {
	if config.Workers < 1 {
		return errors.Wrapf(operator.ErrConfiguration, "workers must be at least 1, got %d", config.Workers)
	}
	if config.CacheEnabled && config.CacheMaxCost < 1 {
		return errors.Wrapf(operator.ErrConfiguration, "cache-max-cost must be positive, got %d", config.CacheMaxCost)
	}
	return nil
}

// ParseConfig decodes TOML over the defaults.
func ParseConfig(data string) (*Config, error) {
	config := DefaultConfig()
	if _, err := toml.Decode(data, config); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return config, config.Validate()
}

func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	return config, config.Validate()
}
