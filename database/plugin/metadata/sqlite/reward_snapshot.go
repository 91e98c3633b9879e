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

package sqlite

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/sweepwars/database/models"
	"github.com/blinklabs-io/sweepwars/database/types"
	"gorm.io/gorm"
)

// SetRewardSnapshot stores a snapshot and its allocations, replacing any
// snapshot already stored for the same epoch
func (d *MetadataStoreSqlite) SetRewardSnapshot(snap *models.RewardSnapshot) error {
	return d.DB().Transaction(func(tx *gorm.DB) error {
		var existing models.RewardSnapshot
		result := tx.Where("epoch = ?", snap.Epoch).Limit(1).Find(&existing)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			if err := tx.Where("snapshot_id = ?", existing.ID).
				Delete(&models.RewardAllocation{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		}
		for i := range snap.Allocations {
			snap.Allocations[i].Epoch = snap.Epoch
		}
		if err := tx.Create(snap).Error; err != nil {
			return fmt.Errorf("create reward snapshot: %w", err)
		}
		return nil
	})
}

// GetRewardSnapshot returns the snapshot for epoch with allocations in
// rank order
func (d *MetadataStoreSqlite) GetRewardSnapshot(epoch uint64) (*models.RewardSnapshot, error) {
	var ret models.RewardSnapshot
	result := d.DB().
		Preload("Allocations", func(db *gorm.DB) *gorm.DB {
			return db.Order("rank ASC")
		}).
		Where("epoch = ?", epoch).
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, result.Error
	}
	return &ret, nil
}

// GetLatestRewardSnapshot returns the snapshot with the highest epoch
func (d *MetadataStoreSqlite) GetLatestRewardSnapshot() (*models.RewardSnapshot, error) {
	var ret models.RewardSnapshot
	result := d.DB().
		Preload("Allocations", func(db *gorm.DB) *gorm.DB {
			return db.Order("rank ASC")
		}).
		Order("epoch DESC").
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, result.Error
	}
	return &ret, nil
}

// GetRewardSnapshots returns up to limit snapshots, newest first, without
// allocations
func (d *MetadataStoreSqlite) GetRewardSnapshots(limit int) ([]models.RewardSnapshot, error) {
	var ret []models.RewardSnapshot
	result := d.DB().Order("epoch DESC").Limit(limit).Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
