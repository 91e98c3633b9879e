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

// Package ledger implements the vote ledger: per-(voter, subject) committed
// amounts and per-subject signed vote power with linear decay.
package ledger

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/blinklabs-io/sweepwars/event"
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/blinklabs-io/sweepwars/wad"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultSampleSize is the number of subjects rewarded per epoch unless
// changed with SetSampleSize
const DefaultSampleSize = 5

type Config struct {
	PowerSource voting.VotingPowerSource
	Registry    voting.CollectionRegistry
	Clock       voting.EpochClock
	// Boost is optional. Without it vote power is not multiplied.
	Boost        voting.BoostSource
	Authorizer   voting.Authorizer
	EventBus     *event.EventBus
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	SampleSize   int
}

type recordKey struct {
	voter   voting.Account
	subject voting.Subject
}

// Ledger tracks committed votes. It is not safe for concurrent use; callers
// serialize access. Mutating calls made while the ledger is notifying its
// power source fail with voting.ErrReentrantCall.
type Ledger struct {
	config     Config
	logger     *slog.Logger
	metrics    ledgerMetrics
	busy       atomic.Bool
	sampleSize int
	tallies    map[voting.Subject]*Tally
	// subjects in the order they first received a vote
	subjects  []voting.Subject
	records   map[recordKey]*VoteRecord
	committed map[voting.Account]*uint256.Int
	// subjects each voter has touched, in order
	voterSubjects map[voting.Account][]voting.Subject
	// voters that have touched each subject, in order
	subjectVoters map[voting.Subject][]voting.Account
}

func New(cfg Config) (*Ledger, error) {
	if cfg.PowerSource == nil {
		return nil, errors.New("ledger: power source is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("ledger: collection registry is required")
	}
	if cfg.Clock == nil {
		return nil, errors.New("ledger: epoch clock is required")
	}
	if cfg.SampleSize < 0 {
		return nil, voting.ErrSampleSizeZero
	}
	if cfg.SampleSize == 0 {
		cfg.SampleSize = DefaultSampleSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	l := &Ledger{
		config:        cfg,
		logger:        cfg.Logger.With("component", "ledger"),
		sampleSize:    cfg.SampleSize,
		tallies:       make(map[voting.Subject]*Tally),
		records:       make(map[recordKey]*VoteRecord),
		committed:     make(map[voting.Account]*uint256.Int),
		voterSubjects: make(map[voting.Account][]voting.Subject),
		subjectVoters: make(map[voting.Subject][]voting.Account),
	}
	l.metrics.init(cfg.PromRegistry)
	return l, nil
}

// enter acquires the reentrancy guard
func (l *Ledger) enter() error {
	if !l.busy.CompareAndSwap(false, true) {
		return voting.ErrReentrantCall
	}
	return nil
}

func (l *Ledger) exit() {
	l.busy.Store(false)
}

func (l *Ledger) currentEpoch() uint64 {
	return l.config.Clock.CurrentEpoch()
}

// IsVotable reports whether votes may be cast on subject
func (l *Ledger) IsVotable(subject voting.Subject) bool {
	return voting.IsBaseAsset(subject) || l.config.Registry.IsApproved(subject)
}

// Committed returns the sum of the voter's committed amounts
func (l *Ledger) Committed(voter voting.Account) *uint256.Int {
	if c, ok := l.committed[voter]; ok {
		return new(uint256.Int).Set(c)
	}
	return new(uint256.Int)
}

// Available returns the voter's balance minus its committed amounts, or
// zero if the balance has dropped below what is committed
func (l *Ledger) Available(voter voting.Account) *uint256.Int {
	balance := l.config.PowerSource.BalanceOf(voter)
	if balance == nil {
		return new(uint256.Int)
	}
	committed := l.Committed(voter)
	if committed.Gt(balance) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(balance, committed)
}

// VoteOf returns a copy of the voter's record for subject, or nil
func (l *Ledger) VoteOf(voter voting.Account, subject voting.Subject) *VoteRecord {
	r, ok := l.records[recordKey{voter: voter, subject: subject}]
	if !ok {
		return nil
	}
	return r.clone()
}

// VoterSubjects returns every subject the voter currently has votes on
func (l *Ledger) VoterSubjects(voter voting.Account) []voting.Subject {
	ret := make([]voting.Subject, 0, len(l.voterSubjects[voter]))
	for _, s := range l.voterSubjects[voter] {
		if r, ok := l.records[recordKey{voter: voter, subject: s}]; ok && !r.Committed().IsZero() {
			ret = append(ret, s)
		}
	}
	return ret
}

// SubjectVotes returns a copy of the subject's aggregate. ForAmount and
// AgainstAmount are the unsigned views of the signed tally.
func (l *Ledger) SubjectVotes(subject voting.Subject) *Tally {
	t, ok := l.tallies[subject]
	if !ok {
		return newTally()
	}
	return t.clone()
}

// Subjects returns every subject that has ever received a vote, in the
// order of its first vote
func (l *Ledger) Subjects() []voting.Subject {
	ret := make([]voting.Subject, len(l.subjects))
	copy(ret, l.subjects)
	return ret
}

// VotingPowerAt returns the signed vote power of subject at epoch. Epochs
// before the current epoch yield zero. Decay never flips the sign of the
// power; it stops at zero. With a boost source configured the result is
// scaled by its factor.
func (l *Ledger) VotingPowerAt(subject voting.Subject, epoch uint64) (*uint256.Int, error) {
	if epoch < l.currentEpoch() {
		return new(uint256.Int), nil
	}
	t, ok := l.tallies[subject]
	if !ok {
		return new(uint256.Int), nil
	}
	power := t.PowerAt(epoch)
	if power.IsZero() || l.config.Boost == nil {
		return power, nil
	}
	factor := l.config.Boost.BoostFactor(subject, epoch)
	if factor == nil {
		return power, nil
	}
	boosted, err := wad.SignedMulDivUint(power, factor, uint256.NewInt(wad.BoostUnit))
	if err != nil {
		return nil, voting.ErrArithmeticOverflow
	}
	return boosted, nil
}

// SampleSize returns the number of subjects rewarded per epoch
func (l *Ledger) SampleSize() int {
	return l.sampleSize
}

// SetSampleSize changes the number of subjects rewarded per epoch
func (l *Ledger) SetSampleSize(caller voting.Account, k int) error {
	if err := voting.Authorize(l.config.Authorizer, caller, voting.RoleTreasuryManager); err != nil {
		return err
	}
	if k <= 0 {
		return voting.ErrSampleSizeZero
	}
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()
	l.sampleSize = k
	l.logger.Info(
		"sample size updated",
		"sample_size", k,
	)
	return nil
}

func (l *Ledger) publish(eventType event.EventType, data any) {
	if l.config.EventBus == nil {
		return
	}
	l.config.EventBus.Publish(eventType, event.NewEvent(eventType, data))
}
