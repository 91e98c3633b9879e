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

package ledger_test

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/sweepwars/epoch"
	"github.com/blinklabs-io/sweepwars/event"
	"github.com/blinklabs-io/sweepwars/ledger"
	"github.com/blinklabs-io/sweepwars/registry"
	"github.com/blinklabs-io/sweepwars/staking"
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/blinklabs-io/sweepwars/wad"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	alice   = common.HexToAddress("0xa11ce")
	bob     = common.HexToAddress("0xb0b")
	manager = common.HexToAddress("0x3a3a")
	subjA   = common.HexToAddress("0xa0")
	subjB   = common.HexToAddress("0xb0")
	subjC   = common.HexToAddress("0xc0")
)

// fakePower grants power equal to the voted amount
type fakePower struct {
	balances  map[voting.Account]*uint256.Int
	refreshed []voting.Account
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
	f.refreshed = append(f.refreshed, account)
	if f.onRefresh != nil {
		f.onRefresh(account)
	}
}

type fixture struct {
	ledger   *ledger.Ledger
	power    *fakePower
	registry *registry.Registry
	clock    *epoch.Clock
}

func newFixture(t *testing.T, mutate ...func(*ledger.Config)) *fixture {
	t.Helper()
	f := &fixture{
		power: &fakePower{balances: map[voting.Account]*uint256.Int{
			alice: uint256.NewInt(10_000),
			bob:   uint256.NewInt(10_000),
		}},
		registry: registry.New(nil),
		clock:    epoch.NewClock(0),
	}
	for _, s := range []voting.Subject{subjA, subjB, subjC} {
		require.NoError(t, f.registry.Approve(s))
	}
	cfg := ledger.Config{
		PowerSource: f.power,
		Registry:    f.registry,
		Clock:       f.clock,
		Authorizer: voting.NewStaticAuthorizer().
			Grant(voting.RoleVoteManager, manager).
			Grant(voting.RoleTreasuryManager, manager),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	l, err := ledger.New(cfg)
	require.NoError(t, err)
	f.ledger = l
	return f
}

func (f *fixture) powerAt(t *testing.T, subject voting.Subject, e uint64) string {
	t.Helper()
	p, err := f.ledger.VotingPowerAt(subject, e)
	require.NoError(t, err)
	return wad.FormatSigned(p)
}

func (f *fixture) checkpoint(t *testing.T) []byte {
	t.Helper()
	data, err := f.ledger.Checkpoint()
	require.NoError(t, err)
	return data
}

func amt(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := ledger.New(ledger.Config{})
	require.Error(t, err)
	f := newFixture(t)
	assert.Equal(t, ledger.DefaultSampleSize, f.ledger.SampleSize())
}

func TestCastValidation(t *testing.T) {
	f := newFixture(t)
	before := f.checkpoint(t)

	assert.ErrorIs(t, f.ledger.Cast(alice, subjA, amt(0), voting.For), voting.ErrZeroAmount)
	assert.ErrorIs(t, f.ledger.Cast(alice, subjA, nil, voting.For), voting.ErrZeroAmount)
	assert.ErrorIs(
		t,
		f.ledger.Cast(alice, common.HexToAddress("0xdead"), amt(1), voting.For),
		voting.ErrSubjectNotApproved,
	)
	assert.ErrorIs(t, f.ledger.Cast(alice, subjA, amt(1), voting.Direction(9)), voting.ErrValidation)

	f.registry.Unapprove(subjA)
	assert.ErrorIs(t, f.ledger.Cast(alice, subjA, amt(1), voting.For), voting.ErrSubjectNotApproved)

	assert.Equal(t, before, f.checkpoint(t))
	assert.Empty(t, f.power.refreshed)
}

func TestCastBaseAssetIsAlwaysVotable(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.Cast(alice, voting.BaseAssetSubject, amt(500), voting.For))
	assert.Equal(t, "500", f.powerAt(t, voting.BaseAssetSubject, 0))
	assert.Equal(t, []voting.Account{alice}, f.power.refreshed)
}

func TestCastInsufficientVotingPower(t *testing.T) {
	f := newFixture(t)
	f.power.balances[alice] = amt(100)
	require.NoError(t, f.ledger.Cast(alice, subjA, amt(60), voting.For))
	before := f.checkpoint(t)

	err := f.ledger.Cast(alice, subjB, amt(50), voting.For)
	require.ErrorIs(t, err, voting.ErrInsufficientVotingPower)
	var perr *voting.InsufficientVotingPowerError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "40", perr.Available.Dec())
	assert.Equal(t, before, f.checkpoint(t))

	require.NoError(t, f.ledger.Cast(alice, subjB, amt(40), voting.Against))
	assert.True(t, f.ledger.Available(alice).IsZero())
	assert.Equal(t, "100", f.ledger.Committed(alice).Dec())

	// a shrinking balance never makes available power negative
	f.power.balances[alice] = amt(10)
	assert.True(t, f.ledger.Available(alice).IsZero())
}

func TestVotingPowerDecay(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.Cast(alice, subjA, amt(1040), voting.For))
	require.NoError(t, f.ledger.Cast(bob, subjB, amt(1040), voting.Against))

	tally := f.ledger.SubjectVotes(subjA)
	assert.Equal(t, "10", wad.FormatSigned(tally.PowerBurn))

	tests := []struct {
		epoch uint64
		a, b  string
	}{
		{0, "1040", "-1040"},
		{10, "940", "-940"},
		{103, "10", "-10"},
		{104, "0", "0"},
		{500, "0", "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.a, f.powerAt(t, subjA, tt.epoch), "epoch %d", tt.epoch)
		assert.Equal(t, tt.b, f.powerAt(t, subjB, tt.epoch), "epoch %d", tt.epoch)
	}

	// epochs in the past read as zero
	f.clock.Set(5)
	assert.Equal(t, "0", f.powerAt(t, subjA, 4))
	assert.Equal(t, "990", f.powerAt(t, subjA, 5))
	// unvoted subjects have no power
	assert.Equal(t, "0", f.powerAt(t, subjC, 5))
}

// halfPower grants half of the committed amount as power
type halfPower struct {
	fakePower
}

func (h *halfPower) PowerAt(_ voting.Account, amount *uint256.Int, _ uint64) *uint256.Int {
	return new(uint256.Int).Rsh(amount, 1)
}

func TestBurnRateFollowsContribution(t *testing.T) {
	power := &halfPower{fakePower: fakePower{balances: map[voting.Account]*uint256.Int{
		alice: uint256.NewInt(10_000),
	}}}
	f := newFixture(t, func(cfg *ledger.Config) {
		cfg.PowerSource = power
	})
	require.NoError(t, f.ledger.Cast(alice, subjA, amt(2080), voting.For))

	tally := f.ledger.SubjectVotes(subjA)
	assert.Equal(t, "1040", wad.FormatSigned(tally.Power))
	assert.Equal(t, "10", wad.FormatSigned(tally.PowerBurn))
	assert.Equal(t, "2080", tally.ForAmount.Dec())
	assert.Equal(t, "10", f.powerAt(t, subjA, 103))
	assert.Equal(t, "0", f.powerAt(t, subjA, 104))
}

func TestSignedTally(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.Cast(alice, subjA, amt(1000), voting.For))
	require.NoError(t, f.ledger.Cast(bob, subjA, amt(400), voting.Against))

	tally := f.ledger.SubjectVotes(subjA)
	assert.Equal(t, "600", wad.FormatSigned(tally.Power))
	// 1000/104 = 9 and -400/104 = -3, truncated toward zero
	assert.Equal(t, "6", wad.FormatSigned(tally.PowerBurn))
	assert.Equal(t, "1000", tally.ForAmount.Dec())
	assert.Equal(t, "400", tally.AgainstAmount.Dec())
	assert.Equal(t, uint64(2), tally.Voters)
	assert.Equal(t, "540", f.powerAt(t, subjA, 10))

	require.NoError(t, f.ledger.Revoke(alice, alice, []voting.Subject{subjA}))
	assert.Equal(t, "-400", f.powerAt(t, subjA, 0))
}

func TestDecayIsMonotonicAndSticksAtZero(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := range 25 {
		f := newFixture(t)
		voters := []voting.Account{alice, bob, manager}
		for _, v := range voters {
			f.power.balances[v] = amt(1_000_000)
		}
		for e := range uint64(5) {
			f.clock.Set(e * 7)
			for _, v := range voters {
				dir := voting.For
				if rng.IntN(3) == 0 {
					dir = voting.Against
				}
				require.NoError(t, f.ledger.Cast(v, subjA, amt(1+rng.Uint64N(50_000)), dir))
			}
		}
		start := f.clock.CurrentEpoch()
		prev, err := f.ledger.VotingPowerAt(subjA, start)
		require.NoError(t, err)
		reachedZero := prev.IsZero()
		for e := start + 1; e < start+300; e++ {
			cur, err := f.ledger.VotingPowerAt(subjA, e)
			require.NoError(t, err)
			require.False(
				t,
				wad.Abs(cur).Gt(wad.Abs(prev)),
				"trial %d: magnitude grew at epoch %d", trial, e,
			)
			if prev.Sign() != 0 && cur.Sign() != 0 {
				require.Equal(t, prev.Sign(), cur.Sign(), "trial %d: sign flipped", trial)
			}
			if reachedZero {
				require.True(t, cur.IsZero(), "trial %d: power left zero", trial)
			}
			reachedZero = cur.IsZero()
			prev = cur
		}
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.Cast(alice, subjA, amt(300), voting.For))
	require.NoError(t, f.ledger.Cast(alice, subjB, amt(200), voting.Against))
	f.clock.Set(3)

	require.NoError(t, f.ledger.Revoke(alice, alice, []voting.Subject{subjA}))
	once := f.checkpoint(t)
	require.NoError(t, f.ledger.Revoke(alice, alice, []voting.Subject{subjA}))
	assert.Equal(t, once, f.checkpoint(t))

	// never-voted subjects are skipped
	require.NoError(t, f.ledger.Revoke(alice, alice, []voting.Subject{subjC, subjA}))
	assert.Equal(t, once, f.checkpoint(t))

	assert.Equal(t, "200", f.ledger.Committed(alice).Dec())
	assert.Nil(t, f.ledger.VoteOf(alice, subjC))
	assert.True(t, f.ledger.VoteOf(alice, subjA).Committed().IsZero())
	assert.Equal(t, "0", f.powerAt(t, subjA, 3))
	assert.Equal(t, []voting.Subject{subjB}, f.ledger.VoterSubjects(alice))
}

func TestRevokeAuthorization(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.Cast(alice, subjA, amt(300), voting.For))
	require.NoError(t, f.ledger.Cast(alice, subjB, amt(300), voting.For))

	assert.ErrorIs(t, f.ledger.Revoke(bob, alice, []voting.Subject{subjA}), voting.ErrUnauthorized)
	assert.ErrorIs(t, f.ledger.RevokeAll(alice, alice), voting.ErrUnauthorized)
	assert.Equal(t, "600", f.ledger.Committed(alice).Dec())

	require.NoError(t, f.ledger.Revoke(manager, alice, []voting.Subject{subjA}))
	assert.Equal(t, "300", f.ledger.Committed(alice).Dec())
	require.NoError(t, f.ledger.RevokeAll(manager, alice))
	assert.True(t, f.ledger.Committed(alice).IsZero())
	assert.Equal(t, "10000", f.ledger.Available(alice).Dec())
	assert.Empty(t, f.ledger.VoterSubjects(alice))
}

func TestRevokeAfterFullDecayResetsTally(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.Cast(alice, subjA, amt(104), voting.For))
	f.clock.Set(100)
	require.NoError(t, f.ledger.Cast(bob, subjA, amt(1040), voting.For))
	f.clock.Set(110)

	// bob's contribution has decayed less than the aggregate
	require.NoError(t, f.ledger.Revoke(bob, bob, []voting.Subject{subjA}))
	tally := f.ledger.SubjectVotes(subjA)
	assert.Equal(t, uint64(1), tally.Voters)
	assert.Equal(t, "0", f.powerAt(t, subjA, 110))
	assert.Equal(t, "0", f.powerAt(t, subjA, 111))

	require.NoError(t, f.ledger.Revoke(alice, alice, []voting.Subject{subjA}))
	tally = f.ledger.SubjectVotes(subjA)
	assert.Equal(t, uint64(0), tally.Voters)
	assert.True(t, tally.Power.IsZero())
	assert.True(t, tally.PowerBurn.IsZero())
	assert.True(t, tally.ForAmount.IsZero())

	// a fresh vote is not burdened by stale decay
	require.NoError(t, f.ledger.Cast(alice, subjA, amt(1040), voting.For))
	assert.Equal(t, "940", f.powerAt(t, subjA, 120))
}

func TestRevokeAfterNetPowerClampedKeepsDecaying(t *testing.T) {
	f := newFixture(t)
	// burn 10 per epoch against a burn of 0
	require.NoError(t, f.ledger.Cast(alice, subjA, amt(1040), voting.For))
	require.NoError(t, f.ledger.Cast(bob, subjA, amt(52), voting.Against))
	f.clock.Set(99)
	assert.Equal(t, "0", f.powerAt(t, subjA, 99))

	require.NoError(t, f.ledger.Revoke(bob, bob, []voting.Subject{subjA}))
	tally := f.ledger.SubjectVotes(subjA)
	assert.Equal(t, uint64(1), tally.Voters)
	// only alice's own remaining power is left, still decaying
	assert.Equal(t, "50", wad.FormatSigned(tally.Power))
	assert.Equal(t, "10", wad.FormatSigned(tally.PowerBurn))

	tests := []struct {
		epoch uint64
		power string
	}{
		{99, "50"},
		{103, "10"},
		{104, "0"},
		{200, "0"},
		{1000, "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.power, f.powerAt(t, subjA, tt.epoch), "epoch %d", tt.epoch)
	}
}

func TestAvailablePowerInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	f := newFixture(t)
	voters := []voting.Account{alice, bob}
	subjects := []voting.Subject{subjA, subjB, subjC, voting.BaseAssetSubject}
	for step := range 500 {
		v := voters[rng.IntN(len(voters))]
		s := subjects[rng.IntN(len(subjects))]
		if step%50 == 0 {
			f.clock.Advance()
		}
		if rng.IntN(4) == 0 {
			require.NoError(t, f.ledger.Revoke(v, v, []voting.Subject{s}))
		} else {
			amount := amt(1 + rng.Uint64N(4000))
			before := f.checkpoint(t)
			available := f.ledger.Available(v)
			err := f.ledger.Cast(v, s, amount, voting.Direction(rng.IntN(2)))
			if amount.Gt(available) {
				require.ErrorIs(t, err, voting.ErrInsufficientVotingPower)
				require.Equal(t, before, f.checkpoint(t))
			} else {
				require.NoError(t, err)
			}
		}
		for _, voter := range voters {
			require.False(
				t,
				f.ledger.Committed(voter).Gt(f.power.BalanceOf(voter)),
				"step %d: committed exceeds balance", step,
			)
		}
	}
}

func TestReentrantCallsAreRejected(t *testing.T) {
	f := newFixture(t)
	var nestedCast, nestedRevoke, nestedSample error
	var committedDuringNotify string
	f.power.onRefresh = func(account voting.Account) {
		// state is already committed when the notification runs
		committedDuringNotify = f.ledger.Committed(account).Dec()
		nestedCast = f.ledger.Cast(account, subjB, amt(1), voting.For)
		nestedRevoke = f.ledger.Revoke(account, account, []voting.Subject{subjA})
		nestedSample = f.ledger.SetSampleSize(manager, 3)
	}
	require.NoError(t, f.ledger.Cast(alice, subjA, amt(700), voting.For))

	assert.Equal(t, "700", committedDuringNotify)
	assert.ErrorIs(t, nestedCast, voting.ErrReentrantCall)
	assert.ErrorIs(t, nestedRevoke, voting.ErrReentrantCall)
	assert.ErrorIs(t, nestedSample, voting.ErrReentrantCall)
	assert.Equal(t, "700", f.ledger.Committed(alice).Dec())
	assert.Equal(t, "0", f.powerAt(t, subjB, 0))
	assert.Equal(t, ledger.DefaultSampleSize, f.ledger.SampleSize())

	// the guard is released afterwards
	f.power.onRefresh = nil
	require.NoError(t, f.ledger.Cast(alice, subjB, amt(1), voting.For))
}

func TestBoostMultipliesPower(t *testing.T) {
	boost := staking.NewBoost()
	boost.SetFactor(subjA, amt(2_000_000_000))
	boost.SetFactor(subjB, amt(500_000_000))
	f := newFixture(t, func(cfg *ledger.Config) {
		cfg.Boost = boost
	})
	require.NoError(t, f.ledger.Cast(alice, subjA, amt(1040), voting.For))
	require.NoError(t, f.ledger.Cast(alice, subjB, amt(1040), voting.Against))
	require.NoError(t, f.ledger.Cast(alice, subjC, amt(1040), voting.For))
	assert.Equal(t, "2080", f.powerAt(t, subjA, 0))
	assert.Equal(t, "-520", f.powerAt(t, subjB, 0))
	assert.Equal(t, "1040", f.powerAt(t, subjC, 0))
	assert.Equal(t, "1880", f.powerAt(t, subjA, 10))
}

func TestSetSampleSize(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.ledger.SetSampleSize(alice, 3), voting.ErrUnauthorized)
	assert.ErrorIs(t, f.ledger.SetSampleSize(manager, 0), voting.ErrSampleSizeZero)
	require.NoError(t, f.ledger.SetSampleSize(manager, 3))
	assert.Equal(t, 3, f.ledger.SampleSize())
}

func TestCheckpointRestore(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.Cast(alice, subjA, amt(1000), voting.For))
	require.NoError(t, f.ledger.Cast(bob, subjA, amt(250), voting.Against))
	f.clock.Set(4)
	require.NoError(t, f.ledger.Cast(bob, subjB, amt(3000), voting.For))
	require.NoError(t, f.ledger.SetSampleSize(manager, 2))
	data := f.checkpoint(t)

	g := newFixture(t)
	g.clock.Set(4)
	require.NoError(t, g.ledger.Restore(data))
	assert.Equal(t, data, g.checkpoint(t))
	assert.Equal(t, 2, g.ledger.SampleSize())
	assert.Equal(t, f.ledger.Subjects(), g.ledger.Subjects())
	for _, v := range []voting.Account{alice, bob} {
		assert.Equal(t, f.ledger.Committed(v), g.ledger.Committed(v))
	}
	for _, e := range []uint64{4, 20, 90} {
		assert.Equal(t, f.powerAt(t, subjA, e), g.powerAt(t, subjA, e))
		assert.Equal(t, f.powerAt(t, subjB, e), g.powerAt(t, subjB, e))
	}
	// restored records can be revoked
	require.NoError(t, g.ledger.Revoke(bob, bob, []voting.Subject{subjA}))
	assert.Equal(t, "3000", g.ledger.Committed(bob).Dec())

	require.Error(t, g.ledger.Restore([]byte{0xff}))
}

func TestVoteEventsAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	_, castCh := bus.Subscribe(event.VoteCastEventType)
	_, revokeCh := bus.Subscribe(event.VoteRevokedEventType)
	f := newFixture(t, func(cfg *ledger.Config) {
		cfg.EventBus = bus
		cfg.PromRegistry = reg
	})
	require.NoError(t, f.ledger.Cast(alice, subjA, amt(10), voting.Against))
	require.NoError(t, f.ledger.Cast(bob, subjB, amt(10), voting.For))
	require.NoError(t, f.ledger.Revoke(alice, alice, []voting.Subject{subjA}))

	select {
	case evt := <-castCh:
		data := evt.Data.(event.VoteCastEvent)
		assert.Equal(t, alice, data.Voter)
		assert.Equal(t, voting.Against, data.Direction)
		assert.Equal(t, "-10", wad.FormatSigned(data.Power))
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for vote.cast")
	}
	select {
	case evt := <-revokeCh:
		data := evt.Data.(event.VoteRevokedEvent)
		assert.Equal(t, subjA, data.Subject)
		assert.Equal(t, "10", data.Amount.Dec())
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for vote.revoked")
	}

	expected := `
# HELP sweepwars_subjects_voted_int subjects with at least one active voter
# TYPE sweepwars_subjects_voted_int gauge
sweepwars_subjects_voted_int 1
# HELP sweepwars_votes_cast_total total votes cast
# TYPE sweepwars_votes_cast_total counter
sweepwars_votes_cast_total 2
# HELP sweepwars_votes_revoked_total total per-subject vote revocations
# TYPE sweepwars_votes_revoked_total counter
sweepwars_votes_revoked_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected)))
}
