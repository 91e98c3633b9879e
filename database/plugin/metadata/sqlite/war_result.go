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

	"github.com/blinklabs-io/sweepwars/database/models"
	"github.com/blinklabs-io/sweepwars/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetWarResult stores a war result, replacing any result for the same war
func (d *MetadataStoreSqlite) SetWarResult(res *models.WarResult) error {
	return d.DB().Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "war_index"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"start_epoch",
			"end_epoch",
			"winner",
			"has_winner",
			"winner_votes",
			"collateral_lock_epoch",
		}),
	}).Create(res).Error
}

// GetWarResult returns the result of the war with the given index
func (d *MetadataStoreSqlite) GetWarResult(index uint64) (*models.WarResult, error) {
	var ret models.WarResult
	result := d.DB().Where("war_index = ?", index).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, result.Error
	}
	return &ret, nil
}

// GetWarResults returns up to limit results, newest war first
func (d *MetadataStoreSqlite) GetWarResults(limit int) ([]models.WarResult, error) {
	var ret []models.WarResult
	result := d.DB().Order("war_index DESC").Limit(limit).Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
