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

package models

import (
	"time"

	"github.com/blinklabs-io/sweepwars/database/types"
)

// RewardSnapshot records the reward split computed when an epoch closed
type RewardSnapshot struct {
	ID           uint               `gorm:"primarykey"`
	Epoch        uint64             `gorm:"uniqueIndex;not null"`
	Budget       types.Uint256      `gorm:"not null"`
	TotalPower   types.Uint256      `gorm:"not null"`
	SubjectCount uint64             `gorm:"not null"`
	CreatedAt    time.Time          `gorm:"not null"`
	Allocations  []RewardAllocation `gorm:"foreignKey:SnapshotID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name
func (RewardSnapshot) TableName() string {
	return "reward_snapshot"
}

// RewardAllocation is one ranked entry of a RewardSnapshot
type RewardAllocation struct {
	ID         uint          `gorm:"primarykey"`
	SnapshotID uint          `gorm:"uniqueIndex:idx_reward_allocation_rank,priority:1;not null"`
	Rank       uint          `gorm:"uniqueIndex:idx_reward_allocation_rank,priority:2;not null"`
	Epoch      uint64        `gorm:"index;not null"`
	Subject    types.Address `gorm:"index;size:42;not null"`
	Power      types.Uint256 `gorm:"not null"`
	Amount     types.Uint256 `gorm:"not null"`
}

// TableName returns the table name
func (RewardAllocation) TableName() string {
	return "reward_allocation"
}
