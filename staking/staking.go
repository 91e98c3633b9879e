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

// Package staking is a locked-staking voting power source. Power scales
// with the time remaining on an account's lock, like a vote-escrow token.
package staking

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/blinklabs-io/sweepwars/wad"
	"github.com/holiman/uint256"
)

const DefaultMaxLockEpochs = 104

var (
	ErrInvalidLock = fmt.Errorf(
		"%w: lock period must be between 1 and the maximum lock",
		voting.ErrValidation,
	)
	ErrStillLocked = fmt.Errorf(
		"%w: stake is still locked",
		voting.ErrState,
	)
	ErrInsufficientStake = fmt.Errorf(
		"%w: insufficient staked balance",
		voting.ErrSolvency,
	)
)

// Position is an account's stake
type Position struct {
	Amount      *uint256.Int
	LockEpochs  uint64
	UnlockEpoch uint64
}

type Staking struct {
	mu            sync.RWMutex
	clock         voting.EpochClock
	logger        *slog.Logger
	maxLockEpochs uint64
	positions     map[voting.Account]*Position
}

func New(clock voting.EpochClock, maxLockEpochs uint64, logger *slog.Logger) *Staking {
	if maxLockEpochs == 0 {
		maxLockEpochs = DefaultMaxLockEpochs
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Staking{
		clock:         clock,
		logger:        logger.With("component", "staking"),
		maxLockEpochs: maxLockEpochs,
		positions:     make(map[voting.Account]*Position),
	}
}

func (s *Staking) MaxLockEpochs() uint64 {
	return s.maxLockEpochs
}

// Deposit adds amount to the account's stake and locks the whole position
// for at least lockEpochs from now
func (s *Staking) Deposit(account voting.Account, amount *uint256.Int, lockEpochs uint64) error {
	if amount == nil || amount.IsZero() {
		return voting.ErrZeroAmount
	}
	if lockEpochs == 0 || lockEpochs > s.maxLockEpochs {
		return ErrInvalidLock
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[account]
	if !ok {
		pos = &Position{Amount: new(uint256.Int)}
	}
	total, err := wad.Add(pos.Amount, amount)
	if err != nil {
		return voting.ErrArithmeticOverflow
	}
	pos.Amount = total
	pos.LockEpochs = max(pos.LockEpochs, lockEpochs)
	pos.UnlockEpoch = max(pos.UnlockEpoch, s.clock.CurrentEpoch()+lockEpochs)
	s.positions[account] = pos
	s.logger.Debug(
		"stake deposited",
		"account", account.Hex(),
		"amount", amount.Dec(),
		"unlock_epoch", pos.UnlockEpoch,
	)
	return nil
}

// Withdraw removes amount from an unlocked position
func (s *Staking) Withdraw(account voting.Account, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return voting.ErrZeroAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[account]
	if !ok || amount.Gt(pos.Amount) {
		return ErrInsufficientStake
	}
	if s.clock.CurrentEpoch() < pos.UnlockEpoch {
		return ErrStillLocked
	}
	pos.Amount = new(uint256.Int).Sub(pos.Amount, amount)
	if pos.Amount.IsZero() {
		delete(s.positions, account)
	}
	return nil
}

// Position returns a copy of the account's stake
func (s *Staking) Position(account voting.Account) (Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.positions[account]
	if !ok {
		return Position{Amount: new(uint256.Int)}, false
	}
	return Position{
		Amount:      new(uint256.Int).Set(pos.Amount),
		LockEpochs:  pos.LockEpochs,
		UnlockEpoch: pos.UnlockEpoch,
	}, true
}

// BalanceOf returns the account's staked amount
func (s *Staking) BalanceOf(account voting.Account) *uint256.Int {
	pos, _ := s.Position(account)
	return pos.Amount
}

// PowerAt returns amount scaled by the fraction of the maximum lock that
// remains on the account at epoch
func (s *Staking) PowerAt(account voting.Account, amount *uint256.Int, epoch uint64) *uint256.Int {
	pos, ok := s.Position(account)
	if !ok || epoch >= pos.UnlockEpoch {
		return new(uint256.Int)
	}
	remaining := min(pos.UnlockEpoch-epoch, s.maxLockEpochs)
	power, err := wad.MulDiv(
		amount,
		uint256.NewInt(remaining),
		uint256.NewInt(s.maxLockEpochs),
	)
	if err != nil {
		return new(uint256.Int)
	}
	return power
}

// RefreshLock extends the account's lock by its lock period from now
func (s *Staking) RefreshLock(account voting.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[account]
	if !ok {
		return
	}
	pos.UnlockEpoch = max(pos.UnlockEpoch, s.clock.CurrentEpoch()+pos.LockEpochs)
}
