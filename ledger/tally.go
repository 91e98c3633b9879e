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

package ledger

import (
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/blinklabs-io/sweepwars/wad"
	"github.com/holiman/uint256"
)

// DecayEpochs is the number of epochs over which a vote's power decays to
// zero. A vote burns contribution/DecayEpochs (truncated) every epoch.
const DecayEpochs = 104

// Leg is one direction of a voter's position on a subject
type Leg struct {
	// Amount is the raw committed voting balance
	Amount *uint256.Int
	// Power is the signed contribution as of Epoch
	Power *uint256.Int
	// Burn is the signed per-epoch decay of Power
	Burn  *uint256.Int
	Epoch uint64
}

func newLeg() Leg {
	return Leg{
		Amount: new(uint256.Int),
		Power:  new(uint256.Int),
		Burn:   new(uint256.Int),
	}
}

func (l Leg) clone() Leg {
	return Leg{
		Amount: new(uint256.Int).Set(l.Amount),
		Power:  new(uint256.Int).Set(l.Power),
		Burn:   new(uint256.Int).Set(l.Burn),
		Epoch:  l.Epoch,
	}
}

// rebase moves the leg forward to epoch, applying accumulated decay
func (l *Leg) rebase(epoch uint64) {
	if epoch <= l.Epoch {
		return
	}
	l.Power = decayed(l.Power, l.Burn, epoch-l.Epoch)
	if l.Power.IsZero() {
		l.Burn.Clear()
	}
	l.Epoch = epoch
}

// VoteRecord is a voter's committed position on one subject
type VoteRecord struct {
	For     Leg
	Against Leg
}

func newVoteRecord() *VoteRecord {
	return &VoteRecord{For: newLeg(), Against: newLeg()}
}

func (r *VoteRecord) clone() *VoteRecord {
	return &VoteRecord{For: r.For.clone(), Against: r.Against.clone()}
}

func (r *VoteRecord) leg(d voting.Direction) *Leg {
	if d == voting.Against {
		return &r.Against
	}
	return &r.For
}

// Committed returns the raw amount held in both legs
func (r *VoteRecord) Committed() *uint256.Int {
	return new(uint256.Int).Add(r.For.Amount, r.Against.Amount)
}

// Tally is the per-subject aggregate of every vote record
type Tally struct {
	// Power is the signed net vote power as of LastVoteEpoch
	Power *uint256.Int
	// PowerBurn is the signed per-epoch decay of Power
	PowerBurn     *uint256.Int
	LastVoteEpoch uint64
	ForAmount     *uint256.Int
	AgainstAmount *uint256.Int
	Voters        uint64
}

func newTally() *Tally {
	return &Tally{
		Power:         new(uint256.Int),
		PowerBurn:     new(uint256.Int),
		ForAmount:     new(uint256.Int),
		AgainstAmount: new(uint256.Int),
	}
}

func (t *Tally) clone() *Tally {
	return &Tally{
		Power:         new(uint256.Int).Set(t.Power),
		PowerBurn:     new(uint256.Int).Set(t.PowerBurn),
		LastVoteEpoch: t.LastVoteEpoch,
		ForAmount:     new(uint256.Int).Set(t.ForAmount),
		AgainstAmount: new(uint256.Int).Set(t.AgainstAmount),
		Voters:        t.Voters,
	}
}

// PowerAt returns the decayed signed power at epoch, without boost
func (t *Tally) PowerAt(epoch uint64) *uint256.Int {
	if epoch <= t.LastVoteEpoch {
		return new(uint256.Int).Set(t.Power)
	}
	return decayed(t.Power, t.PowerBurn, epoch-t.LastVoteEpoch)
}

func (t *Tally) rebase(epoch uint64) {
	if epoch <= t.LastVoteEpoch {
		return
	}
	t.Power = decayed(t.Power, t.PowerBurn, epoch-t.LastVoteEpoch)
	if t.Power.IsZero() {
		t.PowerBurn.Clear()
	}
	t.LastVoteEpoch = epoch
}

// reset zeroes the aggregate once its last voter has left
func (t *Tally) reset() {
	t.Power.Clear()
	t.PowerBurn.Clear()
	t.ForAmount.Clear()
	t.AgainstAmount.Clear()
}

// rebuild recomputes the net power and burn as the sum of records, each
// leg decayed to epoch
func (t *Tally) rebuild(records []*VoteRecord, epoch uint64) error {
	power := new(uint256.Int)
	burn := new(uint256.Int)
	var err error
	for _, r := range records {
		for _, leg := range []Leg{r.For, r.Against} {
			if leg.Amount.IsZero() {
				continue
			}
			leg = leg.clone()
			leg.rebase(epoch)
			if power, err = wad.SignedAdd(power, leg.Power); err != nil {
				return voting.ErrArithmeticOverflow
			}
			if burn, err = wad.SignedAdd(burn, leg.Burn); err != nil {
				return voting.ErrArithmeticOverflow
			}
		}
	}
	if power.IsZero() {
		burn.Clear()
	}
	t.Power = power
	t.PowerBurn = burn
	if epoch > t.LastVoteEpoch {
		t.LastVoteEpoch = epoch
	}
	return nil
}

// decayed moves power toward zero by |burn| per epoch for elapsed epochs.
// If the decay would overshoot, the result is zero rather than a value of
// the opposite sign.
func decayed(power, burn *uint256.Int, elapsed uint64) *uint256.Int {
	if power.IsZero() {
		return new(uint256.Int)
	}
	mag := wad.Abs(power)
	burnAmount, overflow := new(uint256.Int).MulOverflow(
		wad.Abs(burn),
		uint256.NewInt(elapsed),
	)
	if overflow || !burnAmount.Lt(mag) {
		return new(uint256.Int)
	}
	mag.Sub(mag, burnAmount)
	if wad.IsNegative(power) {
		return mag.Neg(mag)
	}
	return mag
}

// burnRate returns the per-epoch decay for a signed contribution
func burnRate(contribution *uint256.Int) *uint256.Int {
	return wad.SignedDivUint64(contribution, DecayEpochs)
}
