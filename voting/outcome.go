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

package voting

import (
	"github.com/holiman/uint256"
)

// Allocation is one ranked entry of a reward distribution
type Allocation struct {
	Subject Subject
	Power   *uint256.Int
	Amount  *uint256.Int
}

// Distribution is the result of splitting a reward budget across the
// top-voted subjects of an epoch. Allocations are ordered most-voted first
// and their amounts sum to Budget, unless Allocations is empty.
type Distribution struct {
	Epoch       uint64
	Budget      *uint256.Int
	TotalPower  *uint256.Int
	Allocations []Allocation
}

// Subjects returns the allocated subjects in rank order
func (d *Distribution) Subjects() []Subject {
	ret := make([]Subject, len(d.Allocations))
	for i, a := range d.Allocations {
		ret[i] = a.Subject
	}
	return ret
}

// Amounts returns the allocated amounts in rank order
func (d *Distribution) Amounts() []*uint256.Int {
	ret := make([]*uint256.Int, len(d.Allocations))
	for i, a := range d.Allocations {
		ret[i] = a.Amount
	}
	return ret
}

// Allocated returns the sum of all allocated amounts
func (d *Distribution) Allocated() *uint256.Int {
	sum := new(uint256.Int)
	for _, a := range d.Allocations {
		sum.Add(sum, a.Amount)
	}
	return sum
}

// WarOutcome records how a war ended
type WarOutcome struct {
	Index      uint64
	StartEpoch uint64
	EndEpoch   uint64
	Winner     Subject
	// HasWinner is false when no collection received positive votes
	HasWinner   bool
	WinnerVotes *uint256.Int
	// CollateralLockEpoch is the first epoch at which the winner's
	// collateral may be reclaimed
	CollateralLockEpoch uint64
}
