// Copyright 2026 Blink Labs Software
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
	"testing"
	"time"

	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOperator = common.HexToAddress("0x0fe7")

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.NotNil(t, cfg.logger)
	assert.True(t, cfg.rewardBudget.IsZero())
	assert.Empty(t, cfg.dataDir)
	assert.Empty(t, cfg.epochSchedule)
	assert.Zero(t, cfg.shutdownTimeout)
}

func TestConfigOptions(t *testing.T) {
	budget := uint256.NewInt(1000)
	treasury := common.HexToAddress("0x7ea5")
	cfg := NewConfig(
		WithDatabasePath("/tmp/sweepwars"),
		WithDatabaseCacheSizes(1<<20, 1<<19),
		WithRewardBudget(budget),
		WithSampleSize(3),
		WithStartEpoch(12),
		WithMaxLockEpochs(52),
		WithCheckpointRetention(4),
		WithEpochSchedule("@weekly"),
		WithOperator(testOperator),
		WithRoleMembers(voting.RoleTreasuryManager, treasury),
		WithRoleMembers(voting.RoleTreasuryManager, testOperator),
		WithCollections(common.HexToAddress("0xc1")),
		WithApiListenAddress(":3000"),
		WithTracing(true),
		WithTracingStdout(true),
		WithShutdownTimeout(5*time.Second),
	)
	// The option copies the budget
	budget.SetUint64(1)
	assert.Equal(t, uint64(1000), cfg.rewardBudget.Uint64())
	assert.Equal(t, "/tmp/sweepwars", cfg.dataDir)
	assert.Equal(t, uint64(1<<20), cfg.blockCacheSize)
	assert.Equal(t, uint64(1<<19), cfg.indexCacheSize)
	assert.Equal(t, 3, cfg.sampleSize)
	assert.Equal(t, uint64(12), cfg.startEpoch)
	assert.Equal(t, uint64(52), cfg.maxLockEpochs)
	assert.Equal(t, uint64(4), cfg.checkpointRetention)
	assert.Equal(t, "@weekly", cfg.epochSchedule)
	assert.Equal(t, testOperator, cfg.operator)
	assert.Equal(
		t,
		[]voting.Account{treasury, testOperator},
		cfg.roles[voting.RoleTreasuryManager],
	)
	assert.Len(t, cfg.collections, 1)
	assert.Equal(t, ":3000", cfg.apiListenAddress)
	assert.True(t, cfg.tracing)
	assert.True(t, cfg.tracingStdout)
	assert.Equal(t, 5*time.Second, cfg.shutdownTimeout)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		opts []ConfigOptionFunc
		ok   bool
	}{
		{"valid", []ConfigOptionFunc{WithOperator(testOperator)}, true},
		{"missing operator", nil, false},
		{
			"negative sample size",
			[]ConfigOptionFunc{WithOperator(testOperator), WithSampleSize(-1)},
			false,
		},
		{
			"base asset collection",
			[]ConfigOptionFunc{WithOperator(testOperator), WithCollections(voting.BaseAssetSubject)},
			false,
		},
		{
			"bad schedule",
			[]ConfigOptionFunc{WithOperator(testOperator), WithEpochSchedule("every tuesday")},
			false,
		},
		{
			"cron schedule",
			[]ConfigOptionFunc{WithOperator(testOperator), WithEpochSchedule("0 0 * * 4")},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := New(NewConfig(tt.opts...))
			if !tt.ok {
				require.Error(t, err)
				assert.Nil(t, n)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, n)
			n.eventBus.Stop()
		})
	}
}
