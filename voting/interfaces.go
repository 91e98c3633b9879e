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

// VotingPowerSource provides decaying voting power for accounts
type VotingPowerSource interface {
	// BalanceOf returns the total vote-able balance of an account
	BalanceOf(account Account) *uint256.Int
	// PowerAt returns the power that amount of the account's balance
	// carries at the given epoch
	PowerAt(account Account, amount *uint256.Int, epoch uint64) *uint256.Int
	// RefreshLock notifies the source that the account just voted
	RefreshLock(account Account)
}

// CollectionRegistry maintains the set of collections eligible for votes
type CollectionRegistry interface {
	IsApproved(subject Subject) bool
	ApprovedSubjects() []Subject
}

// EpochClock reports the current logical epoch
type EpochClock interface {
	CurrentEpoch() uint64
}

// BoostSource provides a per-collection vote multiplier with a
// denominator of 1e9
type BoostSource interface {
	BoostFactor(subject Subject, epoch uint64) *uint256.Int
}

// Authorizer decides whether an account holds a role
type Authorizer interface {
	HasRole(account Account, role Role) bool
}

// Custodian moves option collateral in and out of custody. Calls happen
// after all bookkeeping for an operation has been committed.
type Custodian interface {
	Lock(owner Account, collection Subject, tokenID uint64, amount uint64) error
	Release(to Account, collection Subject, tokenID uint64, amount uint64) error
}

// Authorize returns ErrUnauthorized unless caller holds role. A nil
// Authorizer denies everything.
func Authorize(auth Authorizer, caller Account, role Role) error {
	if auth == nil || !auth.HasRole(caller, role) {
		return NewUnauthorizedError(caller, role)
	}
	return nil
}

// StaticAuthorizer is an Authorizer backed by a fixed role table
type StaticAuthorizer map[Role]map[Account]struct{}

// NewStaticAuthorizer returns an empty StaticAuthorizer
func NewStaticAuthorizer() StaticAuthorizer {
	return make(StaticAuthorizer)
}

// Grant gives role to each account
func (s StaticAuthorizer) Grant(role Role, accounts ...Account) StaticAuthorizer {
	if _, ok := s[role]; !ok {
		s[role] = make(map[Account]struct{})
	}
	for _, a := range accounts {
		s[role][a] = struct{}{}
	}
	return s
}

// HasRole implements Authorizer
func (s StaticAuthorizer) HasRole(account Account, role Role) bool {
	members, ok := s[role]
	if !ok {
		return false
	}
	_, ok = members[account]
	return ok
}
