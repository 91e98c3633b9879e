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

package sweepwars

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

type Config struct {
	promRegistry        prometheus.Registerer
	logger              *slog.Logger
	custodian           voting.Custodian
	rewardBudget        *uint256.Int
	roles               map[voting.Role][]voting.Account
	dataDir             string
	epochSchedule       string
	apiListenAddress    string
	collections         []voting.Subject
	operator            voting.Account
	startEpoch          uint64
	maxLockEpochs       uint64
	checkpointRetention uint64
	blockCacheSize      uint64
	indexCacheSize      uint64
	sampleSize          int
	tracing             bool
	tracingStdout       bool
	shutdownTimeout     time.Duration
}

func (n *Node) configValidate() error {
	if n.config.operator == (common.Address{}) {
		return errors.New("an operator account is required")
	}
	if n.config.sampleSize < 0 {
		return fmt.Errorf(
			"invalid sample size: %d",
			n.config.sampleSize,
		)
	}
	for _, c := range n.config.collections {
		if voting.IsBaseAsset(c) {
			return errors.New(
				"the base asset is always votable and cannot be listed as a collection",
			)
		}
	}
	if n.config.epochSchedule != "" {
		if _, err := cron.ParseStandard(n.config.epochSchedule); err != nil {
			return fmt.Errorf(
				"invalid epoch schedule %q: %w",
				n.config.epochSchedule,
				err,
			)
		}
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new sweepwars config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
		rewardBudget: new(uint256.Int),
		roles:        make(map[voting.Role][]voting.Account),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithDatabaseCacheSizes specifies the blob store block and index cache sizes in bytes
func WithDatabaseCacheSizes(blockCacheSize, indexCacheSize uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.blockCacheSize = blockCacheSize
		c.indexCacheSize = indexCacheSize
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithRewardBudget specifies the token budget split between the top-voted subjects at every epoch boundary
func WithRewardBudget(budget *uint256.Int) ConfigOptionFunc {
	return func(c *Config) {
		c.rewardBudget = new(uint256.Int).Set(budget)
	}
}

// WithSampleSize specifies how many subjects are rewarded per epoch. The default is 5
func WithSampleSize(k int) ConfigOptionFunc {
	return func(c *Config) {
		c.sampleSize = k
	}
}

// WithStartEpoch specifies the epoch a fresh node starts at. Restored state overrides it
func WithStartEpoch(epoch uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.startEpoch = epoch
	}
}

// WithMaxLockEpochs specifies the longest stake lock, which carries full voting power. The default is 104 epochs
func WithMaxLockEpochs(epochs uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.maxLockEpochs = epochs
	}
}

// WithCheckpointRetention specifies how many epochs of component checkpoints to keep
func WithCheckpointRetention(epochs uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.checkpointRetention = epochs
	}
}

// WithEpochSchedule specifies a cron expression (e.g. "@weekly") at which the node advances the epoch on its own.
// The default is to only advance on request
func WithEpochSchedule(schedule string) ConfigOptionFunc {
	return func(c *Config) {
		c.epochSchedule = schedule
	}
}

// WithOperator specifies the account the node acts as when it drives epoch transitions.
// It is granted the epoch manager and epoch trigger roles
func WithOperator(operator voting.Account) ConfigOptionFunc {
	return func(c *Config) {
		c.operator = operator
	}
}

// WithRoleMembers grants role to the given accounts
func WithRoleMembers(role voting.Role, accounts ...voting.Account) ConfigOptionFunc {
	return func(c *Config) {
		c.roles[role] = append(c.roles[role], accounts...)
	}
}

// WithCollections specifies collections approved when the node starts without saved state
func WithCollections(collections ...voting.Subject) ConfigOptionFunc {
	return func(c *Config) {
		c.collections = append(c.collections, collections...)
	}
}

// WithCustodian specifies where war option collateral is held. By default collateral is only tracked
func WithCustodian(custodian voting.Custodian) ConfigOptionFunc {
	return func(c *Config) {
		c.custodian = custodian
	}
}

// WithApiListenAddress specifies the listen address of the REST API, e.g. ":3000". Empty disables it
func WithApiListenAddress(address string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = address
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
