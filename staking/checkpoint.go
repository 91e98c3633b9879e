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
	"fmt"
	"slices"

	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
)

type positionState struct {
	_           struct{} `cbor:",toarray"`
	Account     [20]byte
	Amount      [32]byte
	LockEpochs  uint64
	UnlockEpoch uint64
}

// Checkpoint serializes every position, ordered by account
func (s *Staking) Checkpoint() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := make([]voting.Account, 0, len(s.positions))
	for a := range s.positions {
		accounts = append(accounts, a)
	}
	slices.SortFunc(accounts, func(a, b voting.Account) int { return a.Cmp(b) })
	state := make([]positionState, 0, len(accounts))
	for _, a := range accounts {
		pos := s.positions[a]
		state = append(state, positionState{
			Account:     a,
			Amount:      pos.Amount.Bytes32(),
			LockEpochs:  pos.LockEpochs,
			UnlockEpoch: pos.UnlockEpoch,
		})
	}
	data, err := cbor.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode staking checkpoint: %w", err)
	}
	return data, nil
}

// Restore replaces every position with those in a checkpoint
func (s *Staking) Restore(data []byte) error {
	var state []positionState
	if err := cbor.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decode staking checkpoint: %w", err)
	}
	positions := make(map[voting.Account]*Position, len(state))
	for _, ps := range state {
		positions[ps.Account] = &Position{
			Amount:      new(uint256.Int).SetBytes32(ps.Amount[:]),
			LockEpochs:  ps.LockEpochs,
			UnlockEpoch: ps.UnlockEpoch,
		}
	}
	s.mu.Lock()
	s.positions = positions
	s.mu.Unlock()
	return nil
}
