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

package staking

import (
	"sync"

	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/blinklabs-io/sweepwars/wad"
	"github.com/holiman/uint256"
)

// Boost is a table of per-collection vote multipliers with a denominator
// of 1e9. Collections without an entry are not boosted.
type Boost struct {
	mu      sync.RWMutex
	factors map[voting.Subject]*uint256.Int
}

func NewBoost() *Boost {
	return &Boost{factors: make(map[voting.Subject]*uint256.Int)}
}

// SetFactor sets the multiplier for subject. A nil factor removes it.
func (b *Boost) SetFactor(subject voting.Subject, factor *uint256.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if factor == nil {
		delete(b.factors, subject)
		return
	}
	b.factors[subject] = new(uint256.Int).Set(factor)
}

func (b *Boost) BoostFactor(subject voting.Subject, _ uint64) *uint256.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if f, ok := b.factors[subject]; ok {
		return new(uint256.Int).Set(f)
	}
	return uint256.NewInt(wad.BoostUnit)
}
