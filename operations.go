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

package sweepwars

import (
	"context"
	"fmt"

	"github.com/blinklabs-io/sweepwars/api"
	"github.com/blinklabs-io/sweepwars/event"
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/blinklabs-io/sweepwars/war"
	"github.com/holiman/uint256"
)

// lock takes the node mutex and fails if the node is not running
func (n *Node) lock() error {
	n.mu.Lock()
	if !n.started {
		n.mu.Unlock()
		return ErrNotStarted
	}
	return nil
}

// AdvanceEpoch closes the current epoch: the running war ends, the reward
// budget is split across the top-voted subjects, the clock moves forward
// and the war scheduled for the new epoch starts. The transition is
// published on the event bus and persisted in the background.
func (n *Node) AdvanceEpoch(
	ctx context.Context,
	caller voting.Account,
) (*event.EpochTransitionEvent, error) {
	if err := n.lock(); err != nil {
		return nil, err
	}
	defer n.mu.Unlock()
	if err := voting.Authorize(n.authorizer, caller, voting.RoleEpochTrigger); err != nil {
		return nil, err
	}
	prev := n.clock.CurrentEpoch()
	// The allocator only reads, so a failure here leaves nothing to undo
	dist, err := n.allocator.Snapshot(ctx, n.config.rewardBudget, prev)
	if err != nil {
		return nil, fmt.Errorf("reward snapshot: %w", err)
	}
	var outcome *voting.WarOutcome
	if _, running := n.wars.CurrentWar(); running {
		outcome, err = n.wars.EndWar(caller)
		if err != nil {
			return nil, fmt.Errorf("end war: %w", err)
		}
	}
	_, next := n.clock.Advance()
	evt := event.EpochTransitionEvent{
		PreviousEpoch: prev,
		NewEpoch:      next,
		Distribution:  dist,
		War:           outcome,
	}
	if index, ok := n.wars.ScheduledFor(next); ok {
		if w, err := n.wars.War(index); err == nil && w.State == war.Scheduled {
			if err := n.wars.StartWar(n.config.operator, index); err != nil {
				n.config.logger.Error(
					"failed to start scheduled war",
					"component", "node",
					"war", index,
					"epoch", next,
					"error", err,
				)
			} else {
				evt.StartedWar = index
			}
		}
	}
	cps, err := n.checkpoints()
	if err != nil {
		n.config.logger.Error(
			"failed to checkpoint state",
			"component", "node",
			"epoch", next,
			"error", err,
		)
	}
	evt.Checkpoints = cps
	n.transitions++
	n.eventBus.Publish(
		event.EpochTransitionEventType,
		event.NewEvent(event.EpochTransitionEventType, evt),
	)
	n.config.logger.Info(
		"epoch advanced",
		"component", "node",
		"previous_epoch", prev,
		"epoch", next,
		"rewarded_subjects", len(dist.Allocations),
		"started_war", evt.StartedWar,
	)
	return &evt, nil
}

// CurrentEpoch returns the logical epoch
func (n *Node) CurrentEpoch() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.clock == nil {
		return n.config.startEpoch
	}
	return n.clock.CurrentEpoch()
}

// Cast commits amount of the voter's staked balance to subject
func (n *Node) Cast(
	voter voting.Account,
	subject voting.Subject,
	amount *uint256.Int,
	direction voting.Direction,
) error {
	if err := n.lock(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	return n.ledger.Cast(voter, subject, amount, direction)
}

// Revoke releases the voter's votes on subjects
func (n *Node) Revoke(
	caller voting.Account,
	voter voting.Account,
	subjects []voting.Subject,
) error {
	if err := n.lock(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	return n.ledger.Revoke(caller, voter, subjects)
}

// RevokeAll releases every vote the voter holds
func (n *Node) RevokeAll(caller voting.Account, voter voting.Account) error {
	if err := n.lock(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	return n.ledger.RevokeAll(caller, voter)
}

func (n *Node) SetSampleSize(caller voting.Account, k int) error {
	if err := n.lock(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	return n.ledger.SetSampleSize(caller, k)
}

// SetBoost sets the vote multiplier of subject, with a denominator of 1e9.
// A nil factor removes the boost.
func (n *Node) SetBoost(caller voting.Account, subject voting.Subject, factor *uint256.Int) error {
	if err := n.lock(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	if err := voting.Authorize(n.authorizer, caller, voting.RoleTreasuryManager); err != nil {
		return err
	}
	n.boost.SetFactor(subject, factor)
	return nil
}

// Approve makes a collection eligible for votes
func (n *Node) Approve(caller voting.Account, subject voting.Subject) error {
	if err := n.lock(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	if err := voting.Authorize(n.authorizer, caller, voting.RoleTreasuryManager); err != nil {
		return err
	}
	return n.registry.Approve(subject)
}

// Unapprove stops a collection from receiving new votes
func (n *Node) Unapprove(caller voting.Account, subject voting.Subject) error {
	if err := n.lock(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	if err := voting.Authorize(n.authorizer, caller, voting.RoleTreasuryManager); err != nil {
		return err
	}
	n.registry.Unapprove(subject)
	return nil
}

// Deposit stakes amount for the account, locked for lockEpochs
func (n *Node) Deposit(account voting.Account, amount *uint256.Int, lockEpochs uint64) error {
	if err := n.lock(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	return n.staking.Deposit(account, amount, lockEpochs)
}

// Withdraw removes unlocked stake. Votes the remaining balance can no
// longer cover are revoked.
func (n *Node) Withdraw(account voting.Account, amount *uint256.Int) error {
	if err := n.lock(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	if err := n.staking.Withdraw(account, amount); err != nil {
		return err
	}
	balance := n.staking.BalanceOf(account)
	if n.ledger.Committed(account).Gt(balance) {
		if err := n.ledger.Revoke(account, account, n.ledger.VoterSubjects(account)); err != nil {
			return fmt.Errorf("revoke uncovered votes: %w", err)
		}
	}
	if w, running := n.wars.CurrentWar(); running {
		if v := n.wars.VoteOf(w.Index, account); v != nil && v.Amount.Gt(balance) {
			if err := n.wars.RevokeVotes(account, account); err != nil {
				return fmt.Errorf("revoke uncovered war vote: %w", err)
			}
		}
	}
	return nil
}

// Candidates returns the subjects eligible for rewards
func (n *Node) Candidates() []voting.Subject {
	if err := n.lock(); err != nil {
		return nil
	}
	defer n.mu.Unlock()
	return n.allocator.Candidates()
}

// VotingPowerAt returns the boosted vote power of subject at epoch
func (n *Node) VotingPowerAt(subject voting.Subject, epoch uint64) (*uint256.Int, error) {
	if err := n.lock(); err != nil {
		return nil, err
	}
	defer n.mu.Unlock()
	return n.ledger.VotingPowerAt(subject, epoch)
}

// Account returns the stake and vote commitments of an account
func (n *Node) Account(account voting.Account) (api.AccountView, error) {
	if err := n.lock(); err != nil {
		return api.AccountView{}, err
	}
	defer n.mu.Unlock()
	pos, _ := n.staking.Position(account)
	return api.AccountView{
		Account:     account,
		Staked:      pos.Amount,
		LockEpochs:  pos.LockEpochs,
		UnlockEpoch: pos.UnlockEpoch,
		Committed:   n.ledger.Committed(account),
		Available:   n.ledger.Available(account),
		Subjects:    n.ledger.VoterSubjects(account),
	}, nil
}

// Distribution returns the persisted reward distribution of epoch
func (n *Node) Distribution(epoch uint64) (*voting.Distribution, error) {
	if err := n.lock(); err != nil {
		return nil, err
	}
	defer n.mu.Unlock()
	return n.db.GetDistribution(epoch)
}

// LatestDistribution returns the most recently persisted reward distribution
func (n *Node) LatestDistribution() (*voting.Distribution, error) {
	if err := n.lock(); err != nil {
		return nil, err
	}
	defer n.mu.Unlock()
	return n.db.GetLatestDistribution()
}

// CreateWar schedules a war for a future epoch
func (n *Node) CreateWar(
	caller voting.Account,
	epoch uint64,
	collections []voting.Subject,
	floorPrices []*uint256.Int,
) (uint64, error) {
	if err := n.lock(); err != nil {
		return 0, err
	}
	defer n.mu.Unlock()
	return n.wars.CreateWar(caller, epoch, collections, floorPrices)
}

// WarVote backs a collection in the running war
func (n *Node) WarVote(voter voting.Account, collection voting.Subject, amount *uint256.Int) error {
	if err := n.lock(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	return n.wars.Vote(voter, collection, amount)
}

// RevokeWarVotes withdraws the voter's vote from the running war
func (n *Node) RevokeWarVotes(caller voting.Account, voter voting.Account) error {
	if err := n.lock(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	return n.wars.RevokeVotes(caller, voter)
}

func (n *Node) CreateOption(
	owner voting.Account,
	collection voting.Subject,
	requests []war.OptionRequest,
) error {
	if err := n.lock(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	return n.wars.CreateOption(owner, collection, requests)
}

func (n *Node) UpdateSpotPrice(caller voting.Account, collection voting.Subject, price *uint256.Int) error {
	if err := n.lock(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	return n.wars.UpdateSpotPrice(caller, collection, price)
}

func (n *Node) ExerciseOption(caller voting.Account, warIndex uint64, tokenID uint64, amount uint64) error {
	if err := n.lock(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	return n.wars.ExerciseOption(caller, warIndex, tokenID, amount)
}

func (n *Node) ReclaimOptions(
	owner voting.Account,
	warIndex uint64,
	collection voting.Subject,
	tokenIDs []uint64,
) error {
	if err := n.lock(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	return n.wars.ReclaimOptions(owner, warIndex, collection, tokenIDs)
}

// CurrentWar returns the running war
func (n *Node) CurrentWar() (api.WarView, bool, error) {
	if err := n.lock(); err != nil {
		return api.WarView{}, false, err
	}
	defer n.mu.Unlock()
	w, ok := n.wars.CurrentWar()
	if !ok {
		return api.WarView{}, false, nil
	}
	view, err := n.warView(w)
	return view, true, err
}

// War returns the war with the given index
func (n *Node) War(index uint64) (api.WarView, error) {
	if err := n.lock(); err != nil {
		return api.WarView{}, err
	}
	defer n.mu.Unlock()
	w, err := n.wars.War(index)
	if err != nil {
		return api.WarView{}, err
	}
	return n.warView(w)
}

func (n *Node) warView(w war.War) (api.WarView, error) {
	view := api.WarView{
		War:         w,
		Collections: make([]api.CollectionView, 0, len(w.Collections)),
	}
	for _, c := range w.Collections {
		cv, err := n.wars.CollectionVotes(w.Index, c)
		if err != nil {
			return api.WarView{}, err
		}
		view.Collections = append(view.Collections, api.CollectionView{
			Collection: c,
			Votes:      *cv,
		})
	}
	if w.State == war.Ended {
		outcome, err := n.wars.Outcome(w.Index)
		if err != nil {
			return api.WarView{}, err
		}
		view.Outcome = outcome
	}
	return view, nil
}
