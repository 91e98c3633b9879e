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

	"github.com/blinklabs-io/sweepwars/event"
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/holiman/uint256"
)

// Vote backs collection in the running war with amount of the voter's
// staked balance. A voter has one vote per war: voting again moves the
// previous vote, whatever collection it was on, to the new one.
func (m *Machine) Vote(
	voter voting.Account,
	collection voting.Subject,
	amount *uint256.Int,
) error {
	if amount == nil || amount.IsZero() {
		return voting.ErrZeroAmount
	}
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()
	ws, err := m.activeWar()
	if err != nil {
		return err
	}
	target, ok := ws.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", voting.ErrCollectionNotInWar, collection.Hex())
	}
	balance := m.config.PowerSource.BalanceOf(voter)
	if balance == nil {
		balance = new(uint256.Int)
	}
	if amount.Gt(balance) {
		return &voting.InsufficientVotingPowerError{
			Account:   voter,
			Available: new(uint256.Int).Set(balance),
			Requested: new(uint256.Int).Set(amount),
		}
	}
	epoch := m.currentEpoch()
	power := m.config.PowerSource.PowerAt(voter, amount, epoch)
	if power == nil {
		power = new(uint256.Int)
	}

	// Stage the previous collection's release and the new addition
	prev, hasPrev := ws.votes[voter]
	var released *CollectionVotes
	if hasPrev {
		released = ws.collections[prev.Collection].clone()
		subSaturating(released.TokenVotes, prev.Power)
	}
	added := target.clone()
	if hasPrev && prev.Collection == collection {
		added = released
	}
	if _, overflow := added.TokenVotes.AddOverflow(added.TokenVotes, power); overflow {
		return voting.ErrArithmeticOverflow
	}

	// Commit
	if hasPrev {
		ws.collections[prev.Collection] = released
	} else {
		ws.voters = append(ws.voters, voter)
	}
	ws.collections[collection] = added
	ws.votes[voter] = &Vote{
		Collection: collection,
		Amount:     new(uint256.Int).Set(amount),
		Power:      new(uint256.Int).Set(power),
	}
	m.metrics.votes.Inc()
	m.logger.Debug(
		"war vote cast",
		"war", ws.war.Index,
		"voter", voter.Hex(),
		"collection", collection.Hex(),
		"amount", amount.Dec(),
		"power", power.Dec(),
	)

	m.config.PowerSource.RefreshLock(voter)
	m.publish(event.WarVoteEventType, event.WarVoteEvent{
		Index:      ws.war.Index,
		Voter:      voter,
		Collection: collection,
		Amount:     new(uint256.Int).Set(amount),
	})
	return nil
}

// RevokeVotes withdraws the voter's vote from the running war. Callers other
// than the voter need the vote manager role. Revoking without a vote is a
// no-op.
func (m *Machine) RevokeVotes(caller voting.Account, voter voting.Account) error {
	if caller != voter {
		if err := voting.Authorize(m.config.Authorizer, caller, voting.RoleVoteManager); err != nil {
			return err
		}
	}
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()
	ws, err := m.activeWar()
	if err != nil {
		return err
	}
	prev, ok := ws.votes[voter]
	if !ok {
		return nil
	}
	cv := ws.collections[prev.Collection].clone()
	subSaturating(cv.TokenVotes, prev.Power)
	ws.collections[prev.Collection] = cv
	delete(ws.votes, voter)
	for i, v := range ws.voters {
		if v == voter {
			ws.voters = append(ws.voters[:i], ws.voters[i+1:]...)
			break
		}
	}
	m.logger.Debug(
		"war vote revoked",
		"war", ws.war.Index,
		"caller", caller.Hex(),
		"voter", voter.Hex(),
		"collection", prev.Collection.Hex(),
	)
	m.publish(event.WarVoteEventType, event.WarVoteEvent{
		Index:      ws.war.Index,
		Voter:      voter,
		Collection: prev.Collection,
		Amount:     new(uint256.Int),
	})
	return nil
}

// subSaturating sets z = z - x, stopping at zero
func subSaturating(z, x *uint256.Int) {
	if x.Gt(z) {
		z.Clear()
		return
	}
	z.Sub(z, x)
}
