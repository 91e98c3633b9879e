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

package war_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/blinklabs-io/sweepwars/epoch"
	"github.com/blinklabs-io/sweepwars/event"
	"github.com/blinklabs-io/sweepwars/registry"
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/blinklabs-io/sweepwars/war"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin = common.HexToAddress("0xad")
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
	colA  = common.HexToAddress("0xc0a")
	colB  = common.HexToAddress("0xc0b")
	colC  = common.HexToAddress("0xc0c")
)

type fakePower struct {
	balances  map[voting.Account]*uint256.Int
	onRefresh func(voting.Account)
}

func (f *fakePower) BalanceOf(account voting.Account) *uint256.Int {
	if b, ok := f.balances[account]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

func (f *fakePower) PowerAt(_ voting.Account, amount *uint256.Int, _ uint64) *uint256.Int {
	return new(uint256.Int).Set(amount)
}

func (f *fakePower) RefreshLock(account voting.Account) {
	if f.onRefresh != nil {
		f.onRefresh(account)
	}
}

type custodyCall struct {
	lock    bool
	account voting.Account
	tokenID uint64
	amount  uint64
}

type fakeCustodian struct {
	calls  []custodyCall
	failOn map[uint64]bool
}

func (f *fakeCustodian) Lock(owner voting.Account, _ voting.Subject, tokenID uint64, amount uint64) error {
	if f.failOn[tokenID] {
		return errors.New("transfer rejected")
	}
	f.calls = append(f.calls, custodyCall{lock: true, account: owner, tokenID: tokenID, amount: amount})
	return nil
}

func (f *fakeCustodian) Release(to voting.Account, _ voting.Subject, tokenID uint64, amount uint64) error {
	if f.failOn[tokenID] {
		return errors.New("transfer rejected")
	}
	f.calls = append(f.calls, custodyCall{account: to, tokenID: tokenID, amount: amount})
	return nil
}

type fixture struct {
	machine   *war.Machine
	power     *fakePower
	custodian *fakeCustodian
	clock     *epoch.Clock
	registry  *registry.Registry
}

func newFixture(t *testing.T, mutate ...func(*war.Config)) *fixture {
	t.Helper()
	f := &fixture{
		power: &fakePower{balances: map[voting.Account]*uint256.Int{
			alice: uint256.NewInt(1_000),
			bob:   uint256.NewInt(1_000),
		}},
		custodian: &fakeCustodian{failOn: make(map[uint64]bool)},
		clock:     epoch.NewClock(1),
		registry:  registry.New(nil),
	}
	for _, c := range []voting.Subject{colA, colB, colC} {
		require.NoError(t, f.registry.Approve(c))
	}
	auth := voting.NewStaticAuthorizer()
	for _, role := range voting.Roles {
		auth.Grant(role, admin)
	}
	cfg := war.Config{
		PowerSource: f.power,
		Registry:    f.registry,
		Clock:       f.clock,
		Authorizer:  auth,
		Custodian:   f.custodian,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	m, err := war.New(cfg)
	require.NoError(t, err)
	f.machine = m
	return f
}

func prices(vals ...uint64) []*uint256.Int {
	ret := make([]*uint256.Int, len(vals))
	for i, v := range vals {
		ret[i] = uint256.NewInt(v)
	}
	return ret
}

// startWar creates a war for the next epoch, advances to it and starts it
func (f *fixture) startWar(t *testing.T, collections ...voting.Subject) uint64 {
	t.Helper()
	floor := make([]uint64, len(collections))
	for i := range floor {
		floor[i] = 100
	}
	start := f.clock.CurrentEpoch() + 1
	index, err := f.machine.CreateWar(admin, start, collections, prices(floor...))
	require.NoError(t, err)
	f.clock.Set(start)
	require.NoError(t, f.machine.StartWar(admin, index))
	return index
}

func TestCreateWarValidation(t *testing.T) {
	f := newFixture(t)
	m := f.machine
	unknown := common.HexToAddress("0xdead")

	tests := []struct {
		name        string
		caller      voting.Account
		epoch       uint64
		collections []voting.Subject
		prices      []*uint256.Int
		err         error
	}{
		{"unauthorized", alice, 5, []voting.Subject{colA}, prices(1), voting.ErrUnauthorized},
		{"length mismatch", admin, 5, []voting.Subject{colA, colB}, prices(1), voting.ErrArrayLengthMismatch},
		{"empty", admin, 5, nil, nil, voting.ErrEmptyWar},
		{"duplicate", admin, 5, []voting.Subject{colA, colA}, prices(1, 1), voting.ErrDuplicateCollection},
		{"unapproved", admin, 5, []voting.Subject{unknown}, prices(1), voting.ErrSubjectNotApproved},
		{"zero price", admin, 5, []voting.Subject{colA}, prices(0), voting.ErrZeroSpotPrice},
		{"current epoch", admin, 1, []voting.Subject{colA}, prices(1), voting.ErrInvalidWarEpoch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.CreateWar(tt.caller, tt.epoch, tt.collections, tt.prices)
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.Empty(t, m.Wars())

	index, err := m.CreateWar(admin, 5, []voting.Subject{colA}, prices(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), index)
	_, err = m.CreateWar(admin, 5, []voting.Subject{colB}, prices(1))
	assert.ErrorIs(t, err, voting.ErrWarAlreadyScheduled)
	index, err = m.CreateWar(admin, 6, []voting.Subject{colB}, prices(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), index)

	got, ok := m.ScheduledFor(5)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), got)
	_, ok = m.ScheduledFor(7)
	assert.False(t, ok)
}

func TestWarLifecycle(t *testing.T) {
	f := newFixture(t)
	m := f.machine

	_, err := m.EndWar(admin)
	require.ErrorIs(t, err, voting.ErrNoWarRunning)

	first, err := m.CreateWar(admin, 2, []voting.Subject{colA, colB}, prices(100, 100))
	require.NoError(t, err)
	second, err := m.CreateWar(admin, 3, []voting.Subject{colC}, prices(100))
	require.NoError(t, err)

	assert.ErrorIs(t, m.StartWar(admin, first), voting.ErrWarEpochMismatch)
	assert.ErrorIs(t, m.StartWar(alice, first), voting.ErrUnauthorized)
	assert.ErrorIs(t, m.StartWar(admin, 99), voting.ErrWarNotFound)

	f.clock.Set(2)
	require.NoError(t, m.StartWar(admin, first))
	assert.ErrorIs(t, m.StartWar(admin, first), voting.ErrWarAlreadyRunning)
	assert.ErrorIs(t, m.StartWar(admin, second), voting.ErrWarAlreadyRunning)
	current, ok := m.CurrentWar()
	require.True(t, ok)
	assert.Equal(t, first, current.Index)
	assert.Equal(t, war.Active, current.State)

	_, err = m.EndWar(alice)
	assert.ErrorIs(t, err, voting.ErrUnauthorized)

	// ending before the start epoch fails and leaves the war running
	f.clock.Set(1)
	_, err = m.EndWar(admin)
	assert.ErrorIs(t, err, voting.ErrWarEpochNotPassed)
	current, ok = m.CurrentWar()
	require.True(t, ok)
	assert.Equal(t, first, current.Index)
	assert.Equal(t, war.Active, current.State)
	assert.False(t, current.HasWinner)
	_, err = m.Outcome(first)
	assert.ErrorIs(t, err, voting.ErrWarNotEnded)
	f.clock.Set(2)

	outcome, err := m.EndWar(admin)
	require.NoError(t, err)
	assert.False(t, outcome.HasWinner)
	assert.Equal(t, uint64(2), outcome.EndEpoch)
	assert.Equal(t, uint64(3), outcome.CollateralLockEpoch)

	_, err = m.EndWar(admin)
	assert.ErrorIs(t, err, voting.ErrNoWarRunning)
	assert.ErrorIs(t, m.StartWar(admin, first), voting.ErrWarAlreadyEnded)
	_, ok = m.CurrentWar()
	assert.False(t, ok)

	f.clock.Set(3)
	require.NoError(t, m.StartWar(admin, second))
	ended, err := m.War(first)
	require.NoError(t, err)
	assert.Equal(t, war.Ended, ended.State)
	assert.Equal(t, "ended", ended.State.String())
}

func TestVoteReallocates(t *testing.T) {
	f := newFixture(t)
	m := f.machine

	require.ErrorIs(t, m.Vote(alice, colA, uint256.NewInt(1)), voting.ErrNoWarRunning)
	index := f.startWar(t, colA, colB)

	assert.ErrorIs(t, m.Vote(alice, colA, new(uint256.Int)), voting.ErrZeroAmount)
	assert.ErrorIs(t, m.Vote(alice, colC, uint256.NewInt(1)), voting.ErrCollectionNotInWar)
	err := m.Vote(alice, colA, uint256.NewInt(1_001))
	var ierr *voting.InsufficientVotingPowerError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, uint64(1_000), ierr.Available.Uint64())

	require.NoError(t, m.Vote(alice, colA, uint256.NewInt(100)))
	require.NoError(t, m.Vote(bob, colA, uint256.NewInt(40)))
	votesA, err := m.CollectionVotes(index, colA)
	require.NoError(t, err)
	assert.Equal(t, uint64(140), votesA.TokenVotes.Uint64())

	// Moving the vote releases the old collection
	require.NoError(t, m.Vote(alice, colB, uint256.NewInt(60)))
	votesA, err = m.CollectionVotes(index, colA)
	require.NoError(t, err)
	votesB, err := m.CollectionVotes(index, colB)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), votesA.TokenVotes.Uint64())
	assert.Equal(t, uint64(60), votesB.TokenVotes.Uint64())

	// Voting again on the same collection replaces the amount
	require.NoError(t, m.Vote(alice, colB, uint256.NewInt(10)))
	votesB, err = m.CollectionVotes(index, colB)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), votesB.TokenVotes.Uint64())
	vote := m.VoteOf(index, alice)
	require.NotNil(t, vote)
	assert.Equal(t, colB, vote.Collection)

	assert.ErrorIs(t, m.RevokeVotes(bob, alice), voting.ErrUnauthorized)
	require.NoError(t, m.RevokeVotes(alice, alice))
	require.NoError(t, m.RevokeVotes(alice, alice))
	require.NoError(t, m.RevokeVotes(admin, bob))
	assert.Nil(t, m.VoteOf(index, alice))
	for _, c := range []voting.Subject{colA, colB} {
		cv, err := m.CollectionVotes(index, c)
		require.NoError(t, err)
		assert.True(t, cv.Total().IsZero())
	}
}

func TestEndWarPicksStrictWinner(t *testing.T) {
	f := newFixture(t)
	m := f.machine
	index := f.startWar(t, colA, colB, colC)

	require.NoError(t, m.Vote(alice, colB, uint256.NewInt(50)))
	require.NoError(t, m.Vote(bob, colC, uint256.NewInt(50)))
	outcome, err := m.EndWar(admin)
	require.NoError(t, err)
	assert.True(t, outcome.HasWinner)
	assert.Equal(t, colB, outcome.Winner)
	assert.Equal(t, uint64(50), outcome.WinnerVotes.Uint64())
	// Start epoch 2, option lock 3, extended by two
	assert.Equal(t, uint64(5), outcome.CollateralLockEpoch)

	stored, err := m.Outcome(index)
	require.NoError(t, err)
	assert.Equal(t, *outcome, *stored)
	loser, err := m.CollectionVotes(index, colC)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), loser.LockEpoch)
}

func TestOptionPower(t *testing.T) {
	spot := uint256.NewInt(100)
	assert.Equal(t, uint64(100), war.OptionPower(spot, 100).Uint64())
	assert.Equal(t, uint64(150), war.OptionPower(spot, 50).Uint64())
	assert.Equal(t, uint64(200), war.OptionPower(spot, 0).Uint64())
	assert.True(t, war.OptionPower(spot, 101).IsZero())
}

func TestCreateOption(t *testing.T) {
	f := newFixture(t)
	m := f.machine
	index := f.startWar(t, colA, colB)

	assert.ErrorIs(
		t,
		m.CreateOption(alice, colA, []war.OptionRequest{{TokenID: 1, Amount: 1, ExercisePercent: 101}}),
		voting.ErrInvalidExercisePercent,
	)
	assert.ErrorIs(
		t,
		m.CreateOption(alice, colA, []war.OptionRequest{{TokenID: 1, Amount: 0}}),
		voting.ErrZeroAmount,
	)
	assert.ErrorIs(
		t,
		m.CreateOption(alice, colC, []war.OptionRequest{{TokenID: 1, Amount: 1}}),
		voting.ErrCollectionNotInWar,
	)

	require.NoError(t, m.CreateOption(alice, colA, []war.OptionRequest{
		{TokenID: 1, Amount: 2, ExercisePercent: 100},
		{TokenID: 2, Amount: 1, ExercisePercent: 50},
	}))
	cv, err := m.CollectionVotes(index, colA)
	require.NoError(t, err)
	assert.Equal(t, uint64(350), cv.NftVotes.Uint64())
	assert.True(t, cv.TokenVotes.IsZero())

	assert.ErrorIs(
		t,
		m.CreateOption(bob, colA, []war.OptionRequest{{TokenID: 2, Amount: 1}}),
		voting.ErrOptionExists,
	)
	opt, err := m.Option(index, colA, 2)
	require.NoError(t, err)
	assert.Equal(t, alice, opt.Owner)
	assert.Equal(t, uint64(150), opt.Power.Uint64())

	assert.Equal(t, []custodyCall{
		{lock: true, account: alice, tokenID: 1, amount: 2},
		{lock: true, account: alice, tokenID: 2, amount: 1},
	}, f.custodian.calls)
}

func TestCreateOptionRollsBackOnCustodianFailure(t *testing.T) {
	f := newFixture(t)
	m := f.machine
	index := f.startWar(t, colA)
	f.custodian.failOn[8] = true

	err := m.CreateOption(alice, colA, []war.OptionRequest{
		{TokenID: 7, Amount: 1, ExercisePercent: 100},
		{TokenID: 8, Amount: 1, ExercisePercent: 100},
	})
	require.Error(t, err)
	cv, err := m.CollectionVotes(index, colA)
	require.NoError(t, err)
	assert.True(t, cv.NftVotes.IsZero())
	opts, err := m.Options(index)
	require.NoError(t, err)
	assert.Empty(t, opts)
	// The token locked before the failure went back to its owner
	assert.Equal(t, []custodyCall{
		{lock: true, account: alice, tokenID: 7, amount: 1},
		{account: alice, tokenID: 7, amount: 1},
	}, f.custodian.calls)
}

func TestUpdateSpotPriceRescalesNftVotes(t *testing.T) {
	f := newFixture(t)
	m := f.machine
	index := f.startWar(t, colA)

	require.NoError(t, m.Vote(bob, colA, uint256.NewInt(70)))
	require.NoError(t, m.CreateOption(alice, colA, []war.OptionRequest{
		{TokenID: 1, Amount: 2, ExercisePercent: 100},
	}))
	assert.ErrorIs(t, m.UpdateSpotPrice(alice, colA, uint256.NewInt(150)), voting.ErrUnauthorized)
	assert.ErrorIs(t, m.UpdateSpotPrice(admin, colA, new(uint256.Int)), voting.ErrZeroSpotPrice)
	assert.ErrorIs(t, m.UpdateSpotPrice(admin, colB, uint256.NewInt(1)), voting.ErrCollectionNotInWar)

	require.NoError(t, m.UpdateSpotPrice(admin, colA, uint256.NewInt(150)))
	cv, err := m.CollectionVotes(index, colA)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), cv.NftVotes.Uint64())
	assert.Equal(t, uint64(70), cv.TokenVotes.Uint64())
	assert.Equal(t, uint64(150), cv.SpotPrice.Uint64())

	// New options are priced at the new spot
	require.NoError(t, m.CreateOption(bob, colA, []war.OptionRequest{
		{TokenID: 2, Amount: 1, ExercisePercent: 100},
	}))
	cv, err = m.CollectionVotes(index, colA)
	require.NoError(t, err)
	assert.Equal(t, uint64(450), cv.NftVotes.Uint64())

	// The price ratio is truncated to 18 decimals before it is applied
	require.NoError(t, m.UpdateSpotPrice(admin, colA, uint256.NewInt(50)))
	cv, err = m.CollectionVotes(index, colA)
	require.NoError(t, err)
	assert.Equal(t, uint64(149), cv.NftVotes.Uint64())
}

func TestExerciseAndReclaim(t *testing.T) {
	f := newFixture(t)
	m := f.machine
	index := f.startWar(t, colA, colB)

	require.NoError(t, m.CreateOption(alice, colA, []war.OptionRequest{
		{TokenID: 1, Amount: 5, ExercisePercent: 80},
	}))
	require.NoError(t, m.CreateOption(bob, colB, []war.OptionRequest{
		{TokenID: 9, Amount: 1, ExercisePercent: 100},
	}))
	assert.ErrorIs(t, m.ExerciseOption(admin, index, 1, 1), voting.ErrWarNotEnded)
	assert.ErrorIs(
		t,
		m.ReclaimOptions(bob, index, colB, []uint64{9}),
		voting.ErrWarNotEnded,
	)

	outcome, err := m.EndWar(admin)
	require.NoError(t, err)
	require.Equal(t, colA, outcome.Winner)
	f.custodian.calls = nil

	// Exercise window: epochs 2 to 4
	assert.ErrorIs(t, m.ExerciseOption(alice, index, 1, 1), voting.ErrUnauthorized)
	assert.ErrorIs(t, m.ExerciseOption(admin, index, 9, 1), voting.ErrOptionNotFound)
	require.NoError(t, m.ExerciseOption(admin, index, 1, 2))
	assert.ErrorIs(t, m.ExerciseOption(admin, index, 1, 4), voting.ErrInsufficientCollateral)
	opt, err := m.Option(index, colA, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), opt.Remaining)

	// The loser's collateral unlocks one epoch after the war
	assert.ErrorIs(t, m.ReclaimOptions(bob, index, colB, []uint64{9}), voting.ErrCollateralLocked)
	f.clock.Set(3)
	assert.ErrorIs(t, m.ReclaimOptions(alice, index, colB, []uint64{9}), voting.ErrOptionNotFound)
	require.NoError(t, m.ReclaimOptions(bob, index, colB, []uint64{9}))
	assert.ErrorIs(t, m.ReclaimOptions(alice, index, colA, []uint64{1}), voting.ErrCollateralLocked)

	f.clock.Set(5)
	assert.ErrorIs(t, m.ExerciseOption(admin, index, 1, 1), voting.ErrExerciseWindowOver)
	require.NoError(t, m.ReclaimOptions(alice, index, colA, []uint64{1}))
	require.NoError(t, m.ReclaimOptions(alice, index, colA, []uint64{1}))
	opt, err = m.Option(index, colA, 1)
	require.NoError(t, err)
	assert.Zero(t, opt.Remaining)
	assert.Equal(t, uint64(5), opt.Amount)

	assert.Equal(t, []custodyCall{
		{account: admin, tokenID: 1, amount: 2},
		{account: bob, tokenID: 9, amount: 1},
		{account: alice, tokenID: 1, amount: 3},
	}, f.custodian.calls)
}

func TestReentrantVoteFails(t *testing.T) {
	f := newFixture(t)
	var nested error
	f.power.onRefresh = func(account voting.Account) {
		nested = f.machine.Vote(account, colB, uint256.NewInt(1))
	}
	index := f.startWar(t, colA, colB)

	require.NoError(t, f.machine.Vote(alice, colA, uint256.NewInt(10)))
	assert.ErrorIs(t, nested, voting.ErrReentrantCall)
	// The outer vote was committed before the notification
	cv, err := f.machine.CollectionVotes(index, colA)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), cv.TokenVotes.Uint64())
	cv, err = f.machine.CollectionVotes(index, colB)
	require.NoError(t, err)
	assert.True(t, cv.TokenVotes.IsZero())
}

func TestCheckpointRestore(t *testing.T) {
	f := newFixture(t)
	m := f.machine
	first := f.startWar(t, colA, colB)
	require.NoError(t, m.Vote(alice, colA, uint256.NewInt(10)))
	require.NoError(t, m.CreateOption(bob, colB, []war.OptionRequest{
		{TokenID: 3, Amount: 1, ExercisePercent: 0},
	}))
	_, err := m.EndWar(admin)
	require.NoError(t, err)
	second := f.startWar(t, colC)
	require.NoError(t, m.Vote(bob, colC, uint256.NewInt(4)))
	_, err = m.CreateWar(admin, 9, []voting.Subject{colA}, prices(1))
	require.NoError(t, err)

	data, err := m.Checkpoint()
	require.NoError(t, err)

	restored := newFixture(t)
	restored.clock.Set(f.clock.CurrentEpoch())
	require.NoError(t, restored.machine.Restore(data))
	r := restored.machine

	assert.Equal(t, m.Wars(), r.Wars())
	current, ok := r.CurrentWar()
	require.True(t, ok)
	assert.Equal(t, second, current.Index)
	outcome, err := r.Outcome(first)
	require.NoError(t, err)
	assert.Equal(t, colB, outcome.Winner)
	assert.Equal(t, uint64(200), outcome.WinnerVotes.Uint64())
	opts, err := r.Options(first)
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, bob, opts[0].Owner)
	vote := r.VoteOf(second, bob)
	require.NotNil(t, vote)
	assert.Equal(t, uint64(4), vote.Power.Uint64())
	index, ok := r.ScheduledFor(9)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), index)

	// Restored state keeps working
	require.NoError(t, r.Vote(bob, colC, uint256.NewInt(6)))
	cv, err := r.CollectionVotes(second, colC)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), cv.TokenVotes.Uint64())

	assert.ErrorIs(t, r.Restore([]byte{0xa1, 0x01, 0x05}), war.ErrCheckpointVersion)
}

func TestEventsAndMetrics(t *testing.T) {
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	reg := prometheus.NewRegistry()
	_, endedCh := bus.Subscribe(event.WarEndedEventType)
	_, voteCh := bus.Subscribe(event.WarVoteEventType)
	f := newFixture(t, func(cfg *war.Config) {
		cfg.EventBus = bus
		cfg.PromRegistry = reg
	})
	index := f.startWar(t, colA)
	require.NoError(t, f.machine.Vote(alice, colA, uint256.NewInt(3)))

	evt := <-voteCh
	voteEvt, ok := evt.Data.(event.WarVoteEvent)
	require.True(t, ok)
	assert.Equal(t, alice, voteEvt.Voter)
	assert.Equal(t, uint64(3), voteEvt.Amount.Uint64())

	_, err := f.machine.EndWar(admin)
	require.NoError(t, err)
	evt = <-endedCh
	endedEvt, ok := evt.Data.(event.WarEndedEvent)
	require.True(t, ok)
	assert.Equal(t, index, endedEvt.Outcome.Index)
	assert.Equal(t, colA, endedEvt.Outcome.Winner)

	expected := `
# HELP sweepwars_war_current_index_int index of the running war, 0 when none is running
# TYPE sweepwars_war_current_index_int gauge
sweepwars_war_current_index_int 0
# HELP sweepwars_wars_ended_total total wars ended
# TYPE sweepwars_wars_ended_total counter
sweepwars_wars_ended_total 1
`
	require.NoError(t, testutil.GatherAndCompare(
		reg,
		strings.NewReader(expected),
		"sweepwars_war_current_index_int",
		"sweepwars_wars_ended_total",
	))
}
