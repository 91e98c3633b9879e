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

package war

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
)

const checkpointVersion = 1

var ErrCheckpointVersion = errors.New("unsupported war checkpoint version")

type collectionState struct {
	_          struct{} `cbor:",toarray"`
	Collection [20]byte
	TokenVotes [32]byte
	NftVotes   [32]byte
	SpotPrice  [32]byte
	LockEpoch  uint64
}

type voteState struct {
	_          struct{} `cbor:",toarray"`
	Voter      [20]byte
	Collection [20]byte
	Amount     [32]byte
	Power      [32]byte
}

type optionState struct {
	_               struct{} `cbor:",toarray"`
	Owner           [20]byte
	Collection      [20]byte
	TokenID         uint64
	Amount          uint64
	Remaining       uint64
	ExercisePercent uint64
	Power           [32]byte
}

type warEntry struct {
	_           struct{} `cbor:",toarray"`
	Index       uint64
	StartEpoch  uint64
	EndEpoch    uint64
	State       uint8
	Winner      [20]byte
	HasWinner   bool
	Collections []collectionState
	Votes       []voteState
	Options     []optionState
}

type machineState struct {
	Version   uint       `cbor:"1,keyasint"`
	LastIndex uint64     `cbor:"2,keyasint"`
	Current   uint64     `cbor:"3,keyasint"`
	Wars      []warEntry `cbor:"4,keyasint"`
}

// Checkpoint encodes every war as CBOR
func (m *Machine) Checkpoint() ([]byte, error) {
	state := machineState{
		Version:   checkpointVersion,
		LastIndex: m.lastIndex,
		Current:   m.current,
	}
	for i := uint64(1); i <= m.lastIndex; i++ {
		ws, ok := m.wars[i]
		if !ok {
			continue
		}
		entry := warEntry{
			Index:      ws.war.Index,
			StartEpoch: ws.war.StartEpoch,
			EndEpoch:   ws.war.EndEpoch,
			State:      uint8(ws.war.State),
			Winner:     ws.war.Winner,
			HasWinner:  ws.war.HasWinner,
		}
		for _, c := range ws.war.Collections {
			cv := ws.collections[c]
			entry.Collections = append(entry.Collections, collectionState{
				Collection: c,
				TokenVotes: cv.TokenVotes.Bytes32(),
				NftVotes:   cv.NftVotes.Bytes32(),
				SpotPrice:  cv.SpotPrice.Bytes32(),
				LockEpoch:  cv.LockEpoch,
			})
		}
		for _, voter := range ws.voters {
			v := ws.votes[voter]
			entry.Votes = append(entry.Votes, voteState{
				Voter:      voter,
				Collection: v.Collection,
				Amount:     v.Amount.Bytes32(),
				Power:      v.Power.Bytes32(),
			})
		}
		for _, k := range ws.optionOrder {
			opt := ws.options[k]
			entry.Options = append(entry.Options, optionState{
				Owner:           opt.Owner,
				Collection:      opt.Collection,
				TokenID:         opt.TokenID,
				Amount:          opt.Amount,
				Remaining:       opt.Remaining,
				ExercisePercent: opt.ExercisePercent,
				Power:           opt.Power.Bytes32(),
			})
		}
		state.Wars = append(state.Wars, entry)
	}
	return cbor.Marshal(state)
}

// Restore replaces all war state with a checkpoint
func (m *Machine) Restore(data []byte) error {
	var state machineState
	if err := cbor.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decode war checkpoint: %w", err)
	}
	if state.Version != checkpointVersion {
		return fmt.Errorf("%w: %d", ErrCheckpointVersion, state.Version)
	}
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()

	wars := make(map[uint64]*warState, len(state.Wars))
	scheduled := make(map[uint64]uint64, len(state.Wars))
	for _, entry := range state.Wars {
		ws := &warState{
			war: War{
				Index:      entry.Index,
				StartEpoch: entry.StartEpoch,
				EndEpoch:   entry.EndEpoch,
				State:      State(entry.State),
				Winner:     common.Address(entry.Winner),
				HasWinner:  entry.HasWinner,
			},
			collections: make(map[voting.Subject]*CollectionVotes, len(entry.Collections)),
			votes:       make(map[voting.Account]*Vote, len(entry.Votes)),
			options:     make(map[optionKey]*Option, len(entry.Options)),
		}
		for _, c := range entry.Collections {
			subject := common.Address(c.Collection)
			ws.war.Collections = append(ws.war.Collections, subject)
			ws.collections[subject] = &CollectionVotes{
				TokenVotes: new(uint256.Int).SetBytes32(c.TokenVotes[:]),
				NftVotes:   new(uint256.Int).SetBytes32(c.NftVotes[:]),
				SpotPrice:  new(uint256.Int).SetBytes32(c.SpotPrice[:]),
				LockEpoch:  c.LockEpoch,
			}
		}
		for _, v := range entry.Votes {
			voter := common.Address(v.Voter)
			ws.voters = append(ws.voters, voter)
			ws.votes[voter] = &Vote{
				Collection: common.Address(v.Collection),
				Amount:     new(uint256.Int).SetBytes32(v.Amount[:]),
				Power:      new(uint256.Int).SetBytes32(v.Power[:]),
			}
		}
		for _, o := range entry.Options {
			key := optionKey{collection: common.Address(o.Collection), tokenID: o.TokenID}
			ws.optionOrder = append(ws.optionOrder, key)
			ws.options[key] = &Option{
				Owner:           common.Address(o.Owner),
				Collection:      key.collection,
				TokenID:         o.TokenID,
				Amount:          o.Amount,
				Remaining:       o.Remaining,
				ExercisePercent: o.ExercisePercent,
				Power:           new(uint256.Int).SetBytes32(o.Power[:]),
			}
		}
		wars[entry.Index] = ws
		scheduled[entry.StartEpoch] = entry.Index
	}
	if state.Current != 0 {
		if ws, ok := wars[state.Current]; !ok || ws.war.State != Active {
			return fmt.Errorf("war checkpoint: current war %d is not active", state.Current)
		}
	}
	m.wars = wars
	m.scheduled = scheduled
	m.lastIndex = state.LastIndex
	m.current = state.Current
	m.metrics.currentIndex.Set(float64(state.Current))
	m.logger.Info(
		"war state restored",
		"wars", len(wars),
		"current", state.Current,
	)
	return nil
}
