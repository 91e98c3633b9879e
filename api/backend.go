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

package api

import (
	"context"

	"github.com/blinklabs-io/sweepwars/event"
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/blinklabs-io/sweepwars/war"
	"github.com/holiman/uint256"
)

// Backend is the node surface the API serves
type Backend interface {
	CurrentEpoch() uint64
	AdvanceEpoch(ctx context.Context, caller voting.Account) (*event.EpochTransitionEvent, error)
	Candidates() []voting.Subject
	VotingPowerAt(subject voting.Subject, epoch uint64) (*uint256.Int, error)
	Account(account voting.Account) (AccountView, error)
	Cast(voter voting.Account, subject voting.Subject, amount *uint256.Int, direction voting.Direction) error
	Revoke(caller voting.Account, voter voting.Account, subjects []voting.Subject) error
	Deposit(account voting.Account, amount *uint256.Int, lockEpochs uint64) error
	Withdraw(account voting.Account, amount *uint256.Int) error
	LatestDistribution() (*voting.Distribution, error)
	Distribution(epoch uint64) (*voting.Distribution, error)
	CurrentWar() (WarView, bool, error)
	War(index uint64) (WarView, error)
	WarVote(voter voting.Account, collection voting.Subject, amount *uint256.Int) error
}

// AccountView is an account's stake and vote commitments
type AccountView struct {
	Account     voting.Account
	Staked      *uint256.Int
	LockEpochs  uint64
	UnlockEpoch uint64
	Committed   *uint256.Int
	Available   *uint256.Int
	Subjects    []voting.Subject
}

// CollectionView is one collection's tally in a war
type CollectionView struct {
	Collection voting.Subject
	Votes      war.CollectionVotes
}

// WarView is a war with its tallies and, once ended, its outcome
type WarView struct {
	War         war.War
	Collections []CollectionView
	Outcome     *voting.WarOutcome
}
