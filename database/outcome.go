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

package database

import (
	"github.com/blinklabs-io/sweepwars/database/models"
	"github.com/blinklabs-io/sweepwars/database/types"
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SetDistribution stores a reward distribution, replacing any distribution
// stored for the same epoch
func (d *Database) SetDistribution(dist *voting.Distribution) error {
	snap := &models.RewardSnapshot{
		Epoch:        dist.Epoch,
		Budget:       types.NewUint256(dist.Budget),
		TotalPower:   types.NewUint256(dist.TotalPower),
		SubjectCount: uint64(len(dist.Allocations)),
		Allocations:  make([]models.RewardAllocation, len(dist.Allocations)),
	}
	for i, alloc := range dist.Allocations {
		snap.Allocations[i] = models.RewardAllocation{
			Rank:    uint(i),
			Subject: types.Address(alloc.Subject),
			Power:   types.NewUint256(alloc.Power),
			Amount:  types.NewUint256(alloc.Amount),
		}
	}
	return d.metadata.SetRewardSnapshot(snap)
}

// GetDistribution returns the distribution computed for epoch
func (d *Database) GetDistribution(epoch uint64) (*voting.Distribution, error) {
	snap, err := d.metadata.GetRewardSnapshot(epoch)
	if err != nil {
		return nil, err
	}
	return distributionFromModel(snap), nil
}

// GetLatestDistribution returns the most recent distribution
func (d *Database) GetLatestDistribution() (*voting.Distribution, error) {
	snap, err := d.metadata.GetLatestRewardSnapshot()
	if err != nil {
		return nil, err
	}
	return distributionFromModel(snap), nil
}

// GetDistributionEpochs returns the epochs of up to limit stored
// distributions, newest first
func (d *Database) GetDistributionEpochs(limit int) ([]uint64, error) {
	snaps, err := d.metadata.GetRewardSnapshots(limit)
	if err != nil {
		return nil, err
	}
	ret := make([]uint64, len(snaps))
	for i, s := range snaps {
		ret[i] = s.Epoch
	}
	return ret, nil
}

// SetWarOutcome stores how a war ended
func (d *Database) SetWarOutcome(outcome *voting.WarOutcome) error {
	return d.metadata.SetWarResult(&models.WarResult{
		WarIndex:            outcome.Index,
		StartEpoch:          outcome.StartEpoch,
		EndEpoch:            outcome.EndEpoch,
		Winner:              types.Address(outcome.Winner),
		HasWinner:           outcome.HasWinner,
		WinnerVotes:         types.NewUint256(outcome.WinnerVotes),
		CollateralLockEpoch: outcome.CollateralLockEpoch,
	})
}

// GetWarOutcome returns the outcome of the war with the given index
func (d *Database) GetWarOutcome(index uint64) (*voting.WarOutcome, error) {
	res, err := d.metadata.GetWarResult(index)
	if err != nil {
		return nil, err
	}
	return warOutcomeFromModel(res), nil
}

// GetWarOutcomes returns up to limit outcomes, newest war first
func (d *Database) GetWarOutcomes(limit int) ([]voting.WarOutcome, error) {
	results, err := d.metadata.GetWarResults(limit)
	if err != nil {
		return nil, err
	}
	ret := make([]voting.WarOutcome, len(results))
	for i := range results {
		ret[i] = *warOutcomeFromModel(&results[i])
	}
	return ret, nil
}

func distributionFromModel(snap *models.RewardSnapshot) *voting.Distribution {
	ret := &voting.Distribution{
		Epoch:       snap.Epoch,
		Budget:      toInt(snap.Budget),
		TotalPower:  toInt(snap.TotalPower),
		Allocations: make([]voting.Allocation, len(snap.Allocations)),
	}
	for i, a := range snap.Allocations {
		ret.Allocations[i] = voting.Allocation{
			Subject: common.Address(a.Subject),
			Power:   toInt(a.Power),
			Amount:  toInt(a.Amount),
		}
	}
	return ret
}

func warOutcomeFromModel(res *models.WarResult) *voting.WarOutcome {
	return &voting.WarOutcome{
		Index:               res.WarIndex,
		StartEpoch:          res.StartEpoch,
		EndEpoch:            res.EndEpoch,
		Winner:              common.Address(res.Winner),
		HasWinner:           res.HasWinner,
		WinnerVotes:         toInt(res.WinnerVotes),
		CollateralLockEpoch: res.CollateralLockEpoch,
	}
}

func toInt(v types.Uint256) *uint256.Int {
	if v.Int == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v.Int)
}
