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

package ledger

import (
	"errors"
	"fmt"
	"slices"

	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
)

// checkpointVersion is bumped whenever the encoded layout changes
const checkpointVersion = 1

var ErrCheckpointVersion = errors.New("unsupported ledger checkpoint version")

type legState struct {
	_      struct{} `cbor:",toarray"`
	Amount [32]byte
	Power  [32]byte
	Burn   [32]byte
	Epoch  uint64
}

type recordState struct {
	_       struct{} `cbor:",toarray"`
	Voter   [20]byte
	Subject [20]byte
	For     legState
	Against legState
}

type tallyState struct {
	_             struct{} `cbor:",toarray"`
	Subject       [20]byte
	Power         [32]byte
	PowerBurn     [32]byte
	LastVoteEpoch uint64
	ForAmount     [32]byte
	AgainstAmount [32]byte
	Voters        uint64
}

type ledgerState struct {
	Version    uint          `cbor:"1,keyasint"`
	SampleSize int           `cbor:"2,keyasint"`
	Tallies    []tallyState  `cbor:"3,keyasint"`
	Records    []recordState `cbor:"4,keyasint"`
}

func encodeLeg(l Leg) legState {
	return legState{
		Amount: l.Amount.Bytes32(),
		Power:  l.Power.Bytes32(),
		Burn:   l.Burn.Bytes32(),
		Epoch:  l.Epoch,
	}
}

func decodeLeg(s legState) Leg {
	return Leg{
		Amount: new(uint256.Int).SetBytes32(s.Amount[:]),
		Power:  new(uint256.Int).SetBytes32(s.Power[:]),
		Burn:   new(uint256.Int).SetBytes32(s.Burn[:]),
		Epoch:  s.Epoch,
	}
}

// Checkpoint serializes the ledger state. Subjects and records are written
// in first-vote order so the encoding is deterministic.
func (l *Ledger) Checkpoint() ([]byte, error) {
	state := ledgerState{
		Version:    checkpointVersion,
		SampleSize: l.sampleSize,
		Tallies:    make([]tallyState, 0, len(l.subjects)),
	}
	for _, subject := range l.subjects {
		t := l.tallies[subject]
		state.Tallies = append(state.Tallies, tallyState{
			Subject:       subject,
			Power:         t.Power.Bytes32(),
			PowerBurn:     t.PowerBurn.Bytes32(),
			LastVoteEpoch: t.LastVoteEpoch,
			ForAmount:     t.ForAmount.Bytes32(),
			AgainstAmount: t.AgainstAmount.Bytes32(),
			Voters:        t.Voters,
		})
	}
	for _, voter := range l.voterOrder() {
		for _, subject := range l.voterSubjects[voter] {
			r := l.records[recordKey{voter: voter, subject: subject}]
			state.Records = append(state.Records, recordState{
				Voter:   voter,
				Subject: subject,
				For:     encodeLeg(r.For),
				Against: encodeLeg(r.Against),
			})
		}
	}
	data, err := cbor.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode ledger checkpoint: %w", err)
	}
	return data, nil
}

// Restore replaces the ledger state with a checkpoint
func (l *Ledger) Restore(data []byte) error {
	var state ledgerState
	if err := cbor.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decode ledger checkpoint: %w", err)
	}
	if state.Version != checkpointVersion {
		return fmt.Errorf("%w: %d", ErrCheckpointVersion, state.Version)
	}
	if state.SampleSize <= 0 {
		return voting.ErrSampleSizeZero
	}
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	tallies := make(map[voting.Subject]*Tally, len(state.Tallies))
	subjects := make([]voting.Subject, 0, len(state.Tallies))
	for _, ts := range state.Tallies {
		subject := voting.Subject(ts.Subject)
		tallies[subject] = &Tally{
			Power:         new(uint256.Int).SetBytes32(ts.Power[:]),
			PowerBurn:     new(uint256.Int).SetBytes32(ts.PowerBurn[:]),
			LastVoteEpoch: ts.LastVoteEpoch,
			ForAmount:     new(uint256.Int).SetBytes32(ts.ForAmount[:]),
			AgainstAmount: new(uint256.Int).SetBytes32(ts.AgainstAmount[:]),
			Voters:        ts.Voters,
		}
		subjects = append(subjects, subject)
	}
	records := make(map[recordKey]*VoteRecord, len(state.Records))
	committed := make(map[voting.Account]*uint256.Int)
	voterSubjects := make(map[voting.Account][]voting.Subject)
	subjectVoters := make(map[voting.Subject][]voting.Account)
	for _, rs := range state.Records {
		key := recordKey{voter: rs.Voter, subject: rs.Subject}
		r := &VoteRecord{For: decodeLeg(rs.For), Against: decodeLeg(rs.Against)}
		records[key] = r
		voterSubjects[key.voter] = append(voterSubjects[key.voter], key.subject)
		subjectVoters[key.subject] = append(subjectVoters[key.subject], key.voter)
		amount := r.Committed()
		if amount.IsZero() {
			continue
		}
		if c, ok := committed[key.voter]; ok {
			c.Add(c, amount)
		} else {
			committed[key.voter] = amount
		}
	}
	l.sampleSize = state.SampleSize
	l.tallies = tallies
	l.subjects = subjects
	l.records = records
	l.committed = committed
	l.voterSubjects = voterSubjects
	l.subjectVoters = subjectVoters
	l.updateSubjectsGauge()
	l.logger.Info(
		"restored ledger checkpoint",
		"subjects", len(subjects),
		"records", len(records),
	)
	return nil
}

// voterOrder returns voters sorted by address
func (l *Ledger) voterOrder() []voting.Account {
	ret := make([]voting.Account, 0, len(l.voterSubjects))
	for v := range l.voterSubjects {
		ret = append(ret, v)
	}
	slices.SortFunc(ret, func(a, b voting.Account) int {
		return a.Cmp(b)
	})
	return ret
}
