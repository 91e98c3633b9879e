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

package node

import (
	"bytes"
	"testing"

	"github.com/blinklabs-io/sweepwars/database"
	"github.com/blinklabs-io/sweepwars/internal/config"
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	dataDir := t.TempDir()
	collection := common.HexToAddress("0xc1")

	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	require.NoError(t, db.SetDistribution(&voting.Distribution{
		Epoch:      3,
		Budget:     uint256.NewInt(1000),
		TotalPower: uint256.NewInt(80),
		Allocations: []voting.Allocation{
			{Subject: collection, Power: uint256.NewInt(50), Amount: uint256.NewInt(625)},
			{Subject: voting.BaseAssetSubject, Power: uint256.NewInt(30), Amount: uint256.NewInt(375)},
		},
	}))
	require.NoError(t, db.SetWarOutcome(&voting.WarOutcome{
		Index:               1,
		StartEpoch:          3,
		EndEpoch:            3,
		WinnerVotes:         uint256.NewInt(0),
		CollateralLockEpoch: 4,
	}))
	require.NoError(t, db.SetCheckpoints(4, map[string][]byte{"ledger": {0x01}}))
	require.NoError(t, db.Close())

	var out bytes.Buffer
	cfg := &config.Config{DatabasePath: dataDir}
	require.NoError(t, Inspect(cfg, nil, &out, 10))

	text := out.String()
	assert.Contains(t, text, "reward distributions: 1")
	assert.Contains(t, text, "epoch 3: budget 1000, total power 80")
	assert.Contains(t, text, "1. "+collection.Hex()+" power 50 amount 625")
	assert.Contains(t, text, "war 1 (epoch 3): winner none")
	assert.Contains(t, text, "ledger: [4]")
	assert.Contains(t, text, "war: []")
}
