// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/blinklabs-io/sweepwars/wad"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "sweepwars.config"

const (
	DefaultShutdownTimeout = "30s"
	// EnvPrefix prefixes every environment override, e.g. SWEEPWARS_DATABASE_PATH
	EnvPrefix = "sweepwars"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config *Config `yaml:"config,omitempty"`
}

type Config struct {
	DatabasePath        string   `yaml:"databasePath"        split_words:"true"`
	BindAddr            string   `yaml:"bindAddr"            split_words:"true"`
	ShutdownTimeout     string   `yaml:"shutdownTimeout"     split_words:"true"`
	Operator            string   `yaml:"operator"`
	RewardBudget        string   `yaml:"rewardBudget"        split_words:"true"`
	EpochSchedule       string   `yaml:"epochSchedule"       split_words:"true"`
	Collections         []string `yaml:"collections"`
	TreasuryManagers    []string `yaml:"treasuryManagers"    split_words:"true"`
	VoteManagers        []string `yaml:"voteManagers"        split_words:"true"`
	EpochManagers       []string `yaml:"epochManagers"       split_words:"true"`
	EpochTriggers       []string `yaml:"epochTriggers"       split_words:"true"`
	BlockCacheSize      uint64   `yaml:"blockCacheSize"      split_words:"true"`
	IndexCacheSize      uint64   `yaml:"indexCacheSize"      split_words:"true"`
	StartEpoch          uint64   `yaml:"startEpoch"          split_words:"true"`
	MaxLockEpochs       uint64   `yaml:"maxLockEpochs"       split_words:"true"`
	CheckpointRetention uint64   `yaml:"checkpointRetention" split_words:"true"`
	SampleSize          int      `yaml:"sampleSize"          split_words:"true"`
	ApiPort             uint     `yaml:"apiPort"             split_words:"true"`
	MetricsPort         uint     `yaml:"metricsPort"         split_words:"true"`
	Tracing             bool     `yaml:"tracing"`
	TracingStdout       bool     `yaml:"tracingStdout"       split_words:"true"`
}

func defaultConfig() *Config {
	return &Config{
		DatabasePath:    ".sweepwars",
		BindAddr:        "0.0.0.0",
		ShutdownTimeout: DefaultShutdownTimeout,
		SampleSize:      5,
		MaxLockEpochs:   104,
		ApiPort:         3000,
		MetricsPort:     12798,
	}
}

var globalConfig = defaultConfig()

// LoadConfig reads the YAML config file, applies environment overrides and
// validates the result. Without an explicit file it looks for
// ~/.sweepwars/sweepwars.yaml and then /etc/sweepwars/sweepwars.yaml.
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaultConfig()
	if configFile == "" {
		// Check for config file in this path: ~/.sweepwars/sweepwars.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".sweepwars", "sweepwars.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/sweepwars/sweepwars.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/sweepwars/sweepwars.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		var tempCfg tempConfig
		if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		if tempCfg.Config != nil {
			// Overlay the config section onto the defaults
			section, err := yaml.Marshal(tempCfg.Config)
			if err != nil {
				return nil, fmt.Errorf("error re-marshalling config: %w", err)
			}
			if err := yaml.Unmarshal(section, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// Process environment variables
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	globalConfig = cfg
	return cfg, nil
}

func GetConfig() *Config {
	return globalConfig
}

// Validate checks every field that is parsed later
func (c *Config) Validate() error {
	if c.Operator == "" {
		return errors.New("operator account is required")
	}
	if _, err := voting.ParseAddress(c.Operator); err != nil {
		return fmt.Errorf("invalid operator: %w", err)
	}
	if _, err := c.RewardBudgetAmount(); err != nil {
		return fmt.Errorf("invalid rewardBudget: %w", err)
	}
	if c.SampleSize < 0 {
		return fmt.Errorf("invalid sampleSize: %d", c.SampleSize)
	}
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return fmt.Errorf("invalid shutdownTimeout: %w", err)
	}
	for name, list := range map[string][]string{
		"collections":      c.Collections,
		"treasuryManagers": c.TreasuryManagers,
		"voteManagers":     c.VoteManagers,
		"epochManagers":    c.EpochManagers,
		"epochTriggers":    c.EpochTriggers,
	} {
		if _, err := ParseAddresses(list); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// OperatorAddress returns the parsed operator account
func (c *Config) OperatorAddress() common.Address {
	addr, _ := voting.ParseAddress(c.Operator)
	return addr
}

// RewardBudgetAmount parses the reward budget. Empty means zero.
func (c *Config) RewardBudgetAmount() (*uint256.Int, error) {
	if c.RewardBudget == "" {
		return new(uint256.Int), nil
	}
	return wad.ParseAmount(c.RewardBudget)
}

func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return time.ParseDuration(DefaultShutdownTimeout)
	}
	return time.ParseDuration(c.ShutdownTimeout)
}

// Roles returns the configured members of each role
func (c *Config) Roles() map[voting.Role][]common.Address {
	ret := make(map[voting.Role][]common.Address)
	for role, list := range map[voting.Role][]string{
		voting.RoleTreasuryManager: c.TreasuryManagers,
		voting.RoleVoteManager:     c.VoteManagers,
		voting.RoleEpochManager:    c.EpochManagers,
		voting.RoleEpochTrigger:    c.EpochTriggers,
	} {
		addrs, _ := ParseAddresses(list)
		if len(addrs) > 0 {
			ret[role] = addrs
		}
	}
	return ret
}

// CollectionAddresses returns the parsed initial collections
func (c *Config) CollectionAddresses() []common.Address {
	addrs, _ := ParseAddresses(c.Collections)
	return addrs
}

// ParseAddresses parses a list of hex addresses
func ParseAddresses(list []string) ([]common.Address, error) {
	ret := make([]common.Address, 0, len(list))
	for _, s := range list {
		addr, err := voting.ParseAddress(s)
		if err != nil {
			return nil, err
		}
		ret = append(ret, addr)
	}
	return ret, nil
}
