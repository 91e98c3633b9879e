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
	"fmt"
	"slices"

	"github.com/blinklabs-io/sweepwars/event"
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/holiman/uint256"
)

// CreateWar schedules a war between collections for a future epoch. Each
// collection's floor price becomes its initial spot price. Wars are
// numbered from 1.
func (m *Machine) CreateWar(
	caller voting.Account,
	epoch uint64,
	collections []voting.Subject,
	floorPrices []*uint256.Int,
) (uint64, error) {
	if err := voting.Authorize(m.config.Authorizer, caller, voting.RoleTreasuryManager); err != nil {
		return 0, err
	}
	if len(collections) != len(floorPrices) {
		return 0, voting.ErrArrayLengthMismatch
	}
	if len(collections) == 0 {
		return 0, voting.ErrEmptyWar
	}
	seen := make(map[voting.Subject]struct{}, len(collections))
	for i, c := range collections {
		if _, ok := seen[c]; ok {
			return 0, fmt.Errorf("%w: %s", voting.ErrDuplicateCollection, c.Hex())
		}
		seen[c] = struct{}{}
		if m.config.Registry != nil && !m.config.Registry.IsApproved(c) {
			return 0, fmt.Errorf("%w: %s", voting.ErrSubjectNotApproved, c.Hex())
		}
		if floorPrices[i] == nil || floorPrices[i].IsZero() {
			return 0, voting.ErrZeroSpotPrice
		}
	}
	if epoch <= m.currentEpoch() {
		return 0, voting.ErrInvalidWarEpoch
	}
	if err := m.enter(); err != nil {
		return 0, err
	}
	defer m.exit()
	if _, ok := m.scheduled[epoch]; ok {
		return 0, voting.ErrWarAlreadyScheduled
	}

	index := m.lastIndex + 1
	ws := &warState{
		war: War{
			Index:       index,
			StartEpoch:  epoch,
			Collections: slices.Clone(collections),
			State:       Scheduled,
		},
		collections: make(map[voting.Subject]*CollectionVotes, len(collections)),
		votes:       make(map[voting.Account]*Vote),
		options:     make(map[optionKey]*Option),
	}
	for i, c := range collections {
		ws.collections[c] = &CollectionVotes{
			TokenVotes: new(uint256.Int),
			NftVotes:   new(uint256.Int),
			SpotPrice:  new(uint256.Int).Set(floorPrices[i]),
			LockEpoch:  epoch + 1,
		}
	}
	m.wars[index] = ws
	m.scheduled[epoch] = index
	m.lastIndex = index
	m.logger.Info(
		"war created",
		"war", index,
		"start_epoch", epoch,
		"collections", len(collections),
	)
	m.publish(event.WarCreatedEventType, event.WarCreatedEvent{
		Index:       index,
		StartEpoch:  epoch,
		Collections: slices.Clone(collections),
	})
	return index, nil
}

// StartWar makes a scheduled war the running war. It must be called in the
// war's start epoch while no other war is running.
func (m *Machine) StartWar(caller voting.Account, index uint64) error {
	if err := voting.Authorize(m.config.Authorizer, caller, voting.RoleEpochManager); err != nil {
		return err
	}
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()
	ws, err := m.lookup(index)
	if err != nil {
		return err
	}
	switch ws.war.State {
	case Active:
		return voting.ErrWarAlreadyRunning
	case Ended:
		return voting.ErrWarAlreadyEnded
	}
	if m.current != 0 {
		return voting.ErrWarAlreadyRunning
	}
	if ws.war.StartEpoch != m.currentEpoch() {
		return voting.ErrWarEpochMismatch
	}
	ws.war.State = Active
	m.current = index
	m.metrics.currentIndex.Set(float64(index))
	m.logger.Info(
		"war started",
		"war", index,
		"epoch", ws.war.StartEpoch,
	)
	m.publish(event.WarStartedEventType, event.WarStartedEvent{
		Index:      index,
		StartEpoch: ws.war.StartEpoch,
	})
	return nil
}

// EndWar ends the running war and returns its winner: the collection with
// strictly the most votes, the earliest listed one winning ties. A war in
// which no collection received votes ends without a winner. The winner's
// collateral stays locked for WinnerLockExtension more epochs.
func (m *Machine) EndWar(caller voting.Account) (*voting.WarOutcome, error) {
	if err := voting.Authorize(m.config.Authorizer, caller, voting.RoleEpochTrigger); err != nil {
		return nil, err
	}
	if err := m.enter(); err != nil {
		return nil, err
	}
	defer m.exit()
	ws, err := m.activeWar()
	if err != nil {
		return nil, err
	}
	epoch := m.currentEpoch()
	if epoch < ws.war.StartEpoch {
		return nil, voting.ErrWarEpochNotPassed
	}

	best := new(uint256.Int)
	var winner voting.Subject
	hasWinner := false
	for _, c := range ws.war.Collections {
		total := ws.collections[c].Total()
		if total.Gt(best) {
			best = total
			winner = c
			hasWinner = true
		}
	}
	ws.war.State = Ended
	ws.war.EndEpoch = epoch
	ws.war.Winner = winner
	ws.war.HasWinner = hasWinner
	if hasWinner {
		ws.collections[winner].LockEpoch += WinnerLockExtension
	}
	m.current = 0
	outcome := ws.outcome()

	m.metrics.warsEnded.Inc()
	m.metrics.currentIndex.Set(0)
	m.logger.Info(
		"war ended",
		"war", outcome.Index,
		"epoch", epoch,
		"has_winner", hasWinner,
		"winner", winner.Hex(),
		"winner_votes", outcome.WinnerVotes.Dec(),
	)
	m.publish(event.WarEndedEventType, event.WarEndedEvent{Outcome: *outcome})
	return outcome, nil
}
