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

package registry

import (
	"fmt"

	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
)

type entryState struct {
	_        struct{} `cbor:",toarray"`
	Subject  [20]byte
	Approved bool
}

// Checkpoint encodes the registry as CBOR
func (r *Registry) Checkpoint() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state := make([]entryState, len(r.entries))
	for i, e := range r.entries {
		state[i] = entryState{Subject: e.subject, Approved: e.approved}
	}
	return cbor.Marshal(state)
}

// Restore replaces the registry contents with a checkpoint
func (r *Registry) Restore(data []byte) error {
	var state []entryState
	if err := cbor.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decode registry checkpoint: %w", err)
	}
	index := make(map[voting.Subject]int, len(state))
	entries := make([]entry, 0, len(state))
	for _, s := range state {
		subject := common.Address(s.Subject)
		if voting.IsBaseAsset(subject) {
			return ErrBaseAssetSubject
		}
		if _, ok := index[subject]; ok {
			continue
		}
		index[subject] = len(entries)
		entries = append(entries, entry{subject: subject, approved: s.Approved})
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = index
	r.entries = entries
	return nil
}
