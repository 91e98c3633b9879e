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

// Package war runs collection wars: one-epoch competitive votes between a
// fixed set of collections, backed either by staked voting power or by
// NFT options priced against a published spot price.
package war

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/blinklabs-io/sweepwars/event"
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// WinnerLockExtension is the number of epochs the winning collection's
// collateral stays locked beyond the regular option lock: one epoch for the
// treasury to exercise, one for secondary holders
const WinnerLockExtension = 2

type State uint8

const (
	Scheduled State = iota
	Active
	Ended
)

func (s State) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case Active:
		return "active"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

type War struct {
	Index       uint64
	StartEpoch  uint64
	EndEpoch    uint64
	Collections []voting.Subject
	State       State
	Winner      voting.Subject
	HasWinner   bool
}

func (w War) clone() War {
	w.Collections = slices.Clone(w.Collections)
	return w
}

// CollectionVotes is a collection's tally within one war. Token votes come
// from staked voting power, NFT votes from options; only the latter follow
// spot price updates.
type CollectionVotes struct {
	TokenVotes *uint256.Int
	NftVotes   *uint256.Int
	SpotPrice  *uint256.Int
	// LockEpoch is the first epoch option collateral may be reclaimed
	LockEpoch uint64
}

// Total returns the combined token and NFT votes
func (c *CollectionVotes) Total() *uint256.Int {
	return new(uint256.Int).Add(c.TokenVotes, c.NftVotes)
}

func (c *CollectionVotes) clone() *CollectionVotes {
	return &CollectionVotes{
		TokenVotes: new(uint256.Int).Set(c.TokenVotes),
		NftVotes:   new(uint256.Int).Set(c.NftVotes),
		SpotPrice:  new(uint256.Int).Set(c.SpotPrice),
		LockEpoch:  c.LockEpoch,
	}
}

// Vote is a voter's token-backed vote in a war
type Vote struct {
	Collection voting.Subject
	Amount     *uint256.Int
	Power      *uint256.Int
}

// Option is NFT collateral staked behind a collection at an exercise
// percent of the spot price
type Option struct {
	Owner           voting.Account
	Collection      voting.Subject
	TokenID         uint64
	Amount          uint64
	Remaining       uint64
	ExercisePercent uint64
	Power           *uint256.Int
}

// OptionRequest describes one option to create
type OptionRequest struct {
	TokenID         uint64
	Amount          uint64
	ExercisePercent uint64
}

type optionKey struct {
	collection voting.Subject
	tokenID    uint64
}

type warState struct {
	war         War
	collections map[voting.Subject]*CollectionVotes
	votes       map[voting.Account]*Vote
	voters      []voting.Account
	options     map[optionKey]*Option
	optionOrder []optionKey
}

type Config struct {
	PowerSource voting.VotingPowerSource
	// Registry is optional. When set, wars may only list approved
	// collections.
	Registry   voting.CollectionRegistry
	Clock      voting.EpochClock
	Authorizer voting.Authorizer
	// Custodian is optional. Without it option collateral is tracked but
	// not moved.
	Custodian    voting.Custodian
	EventBus     *event.EventBus
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// Machine tracks every war and which one is running. Like the vote ledger
// it is not safe for concurrent use, and mutating calls made while it is
// notifying a collaborator fail with voting.ErrReentrantCall.
type Machine struct {
	config    Config
	logger    *slog.Logger
	metrics   warMetrics
	busy      atomic.Bool
	wars      map[uint64]*warState
	scheduled map[uint64]uint64
	lastIndex uint64
	current   uint64
}

func New(cfg Config) (*Machine, error) {
	if cfg.PowerSource == nil {
		return nil, errors.New("war: power source is required")
	}
	if cfg.Clock == nil {
		return nil, errors.New("war: epoch clock is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	m := &Machine{
		config:    cfg,
		logger:    cfg.Logger.With("component", "war"),
		wars:      make(map[uint64]*warState),
		scheduled: make(map[uint64]uint64),
	}
	m.metrics.init(cfg.PromRegistry)
	return m, nil
}

func (m *Machine) enter() error {
	if !m.busy.CompareAndSwap(false, true) {
		return voting.ErrReentrantCall
	}
	return nil
}

func (m *Machine) exit() {
	m.busy.Store(false)
}

func (m *Machine) currentEpoch() uint64 {
	return m.config.Clock.CurrentEpoch()
}

func (m *Machine) publish(eventType event.EventType, data any) {
	if m.config.EventBus == nil {
		return
	}
	m.config.EventBus.Publish(eventType, event.NewEvent(eventType, data))
}

func (m *Machine) lookup(index uint64) (*warState, error) {
	ws, ok := m.wars[index]
	if !ok {
		return nil, fmt.Errorf("%w: %d", voting.ErrWarNotFound, index)
	}
	return ws, nil
}

// activeWar returns the running war
func (m *Machine) activeWar() (*warState, error) {
	if m.current == 0 {
		return nil, voting.ErrNoWarRunning
	}
	return m.wars[m.current], nil
}

// War returns a copy of the war with the given index
func (m *Machine) War(index uint64) (War, error) {
	ws, err := m.lookup(index)
	if err != nil {
		return War{}, err
	}
	return ws.war.clone(), nil
}

// CurrentWar returns the running war, if any
func (m *Machine) CurrentWar() (War, bool) {
	if m.current == 0 {
		return War{}, false
	}
	return m.wars[m.current].war.clone(), true
}

// Wars returns every known war in index order
func (m *Machine) Wars() []War {
	ret := make([]War, 0, len(m.wars))
	for i := uint64(1); i <= m.lastIndex; i++ {
		if ws, ok := m.wars[i]; ok {
			ret = append(ret, ws.war.clone())
		}
	}
	return ret
}

// ScheduledFor returns the index of the war that starts at epoch
func (m *Machine) ScheduledFor(epoch uint64) (uint64, bool) {
	index, ok := m.scheduled[epoch]
	return index, ok
}

// CollectionVotes returns a copy of a collection's tally in a war
func (m *Machine) CollectionVotes(index uint64, collection voting.Subject) (*CollectionVotes, error) {
	ws, err := m.lookup(index)
	if err != nil {
		return nil, err
	}
	cv, ok := ws.collections[collection]
	if !ok {
		return nil, voting.ErrCollectionNotInWar
	}
	return cv.clone(), nil
}

// VoteOf returns a copy of the voter's token vote in a war, or nil
func (m *Machine) VoteOf(index uint64, voter voting.Account) *Vote {
	ws, ok := m.wars[index]
	if !ok {
		return nil
	}
	v, ok := ws.votes[voter]
	if !ok {
		return nil
	}
	return &Vote{
		Collection: v.Collection,
		Amount:     new(uint256.Int).Set(v.Amount),
		Power:      new(uint256.Int).Set(v.Power),
	}
}

// Option returns a copy of the option staked on a collection token
func (m *Machine) Option(index uint64, collection voting.Subject, tokenID uint64) (*Option, error) {
	ws, err := m.lookup(index)
	if err != nil {
		return nil, err
	}
	opt, ok := ws.options[optionKey{collection: collection, tokenID: tokenID}]
	if !ok {
		return nil, voting.ErrOptionNotFound
	}
	ret := *opt
	ret.Power = new(uint256.Int).Set(opt.Power)
	return &ret, nil
}

// Options returns copies of every option in a war, in creation order
func (m *Machine) Options(index uint64) ([]Option, error) {
	ws, err := m.lookup(index)
	if err != nil {
		return nil, err
	}
	ret := make([]Option, 0, len(ws.optionOrder))
	for _, k := range ws.optionOrder {
		opt := *ws.options[k]
		opt.Power = new(uint256.Int).Set(opt.Power)
		ret = append(ret, opt)
	}
	return ret, nil
}

// Outcome returns how an ended war turned out
func (m *Machine) Outcome(index uint64) (*voting.WarOutcome, error) {
	ws, err := m.lookup(index)
	if err != nil {
		return nil, err
	}
	if ws.war.State != Ended {
		return nil, voting.ErrWarNotEnded
	}
	return ws.outcome(), nil
}

func (ws *warState) outcome() *voting.WarOutcome {
	ret := &voting.WarOutcome{
		Index:               ws.war.Index,
		StartEpoch:          ws.war.StartEpoch,
		EndEpoch:            ws.war.EndEpoch,
		Winner:              ws.war.Winner,
		HasWinner:           ws.war.HasWinner,
		WinnerVotes:         new(uint256.Int),
		CollateralLockEpoch: ws.war.StartEpoch + 1,
	}
	if ws.war.HasWinner {
		cv := ws.collections[ws.war.Winner]
		ret.WinnerVotes = cv.Total()
		ret.CollateralLockEpoch = cv.LockEpoch
	}
	return ret
}
