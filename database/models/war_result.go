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

// WarResult records how a war ended
type WarResult struct {
	ID                  uint          `gorm:"primarykey"`
	WarIndex            uint64        `gorm:"uniqueIndex;not null"`
	StartEpoch          uint64        `gorm:"not null"`
	EndEpoch            uint64        `gorm:"index;not null"`
	Winner              types.Address `gorm:"size:42"`
	HasWinner           bool          `gorm:"not null;default:false"`
	WinnerVotes         types.Uint256 `gorm:"not null"`
	CollateralLockEpoch uint64        `gorm:"not null"`
	CreatedAt           time.Time     `gorm:"not null"`
}

// TableName returns the table name
func (WarResult) TableName() string {
	return "war_result"
}
