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
	"fmt"

	"github.com/blinklabs-io/sweepwars/event"
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/blinklabs-io/sweepwars/wad"
	"github.com/holiman/uint256"
)

// Cast commits amount of the voter's available power to subject in the
// given direction. The power source is told to refresh the voter's lock
// only after the ledger has been updated.
func (l *Ledger) Cast(
	voter voting.Account,
	subject voting.Subject,
	amount *uint256.Int,
	direction voting.Direction,
) error {
	if amount == nil || amount.IsZero() {
		return voting.ErrZeroAmount
	}
	if !direction.Valid() {
		return voting.ErrInvalidDirection
	}
	if !l.IsVotable(subject) {
		return fmt.Errorf("%w: %s", voting.ErrSubjectNotApproved, subject.Hex())
	}
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	available := l.Available(voter)
	if amount.Gt(available) {
		return &voting.InsufficientVotingPowerError{
			Account:   voter,
			Available: available,
			Requested: new(uint256.Int).Set(amount),
		}
	}
	epoch := l.currentEpoch()
	contribution := l.config.PowerSource.PowerAt(voter, amount, epoch)
	if contribution == nil {
		contribution = new(uint256.Int)
	}
	// The unsigned power must fit the signed range
	if wad.IsNegative(contribution) {
		return voting.ErrArithmeticOverflow
	}
	contribution = new(uint256.Int).Set(contribution)
	if direction == voting.Against {
		contribution.Neg(contribution)
	}
	burn := burnRate(contribution)

	// Stage every change on copies so a failure leaves state untouched
	key := recordKey{voter: voter, subject: subject}
	tally := newTally()
	if t, ok := l.tallies[subject]; ok {
		tally = t.clone()
	}
	record := newVoteRecord()
	existing, hasRecord := l.records[key]
	if hasRecord {
		record = existing.clone()
	}
	wasActive := hasRecord && !record.Committed().IsZero()
	committed, err := wad.Add(l.Committed(voter), amount)
	if err != nil {
		return voting.ErrArithmeticOverflow
	}

	tally.rebase(epoch)
	if tally.Power, err = wad.SignedAdd(tally.Power, contribution); err != nil {
		return voting.ErrArithmeticOverflow
	}
	if tally.PowerBurn, err = wad.SignedAdd(tally.PowerBurn, burn); err != nil {
		return voting.ErrArithmeticOverflow
	}
	tally.LastVoteEpoch = epoch
	total := tally.ForAmount
	if direction == voting.Against {
		total = tally.AgainstAmount
	}
	if _, overflow := total.AddOverflow(total, amount); overflow {
		return voting.ErrArithmeticOverflow
	}
	if !wasActive {
		tally.Voters++
	}

	leg := record.leg(direction)
	leg.rebase(epoch)
	leg.Amount.Add(leg.Amount, amount)
	if leg.Power, err = wad.SignedAdd(leg.Power, contribution); err != nil {
		return voting.ErrArithmeticOverflow
	}
	if leg.Burn, err = wad.SignedAdd(leg.Burn, burn); err != nil {
		return voting.ErrArithmeticOverflow
	}
	leg.Epoch = epoch

	// Commit
	if _, ok := l.tallies[subject]; !ok {
		l.subjects = append(l.subjects, subject)
	}
	l.tallies[subject] = tally
	l.records[key] = record
	l.committed[voter] = committed
	if !hasRecord {
		l.voterSubjects[voter] = append(l.voterSubjects[voter], subject)
		l.subjectVoters[subject] = append(l.subjectVoters[subject], voter)
	}
	l.metrics.votesCast.Inc()
	l.updateSubjectsGauge()
	l.logger.Debug(
		"vote cast",
		"voter", voter.Hex(),
		"subject", subject.Hex(),
		"direction", direction.String(),
		"amount", amount.Dec(),
		"power", wad.FormatSigned(contribution),
		"epoch", epoch,
	)

	// Notify last; any nested mutation fails on the guard
	l.config.PowerSource.RefreshLock(voter)

	l.publish(event.VoteCastEventType, event.VoteCastEvent{
		Epoch:     epoch,
		Voter:     voter,
		Subject:   subject,
		Direction: direction,
		Amount:    new(uint256.Int).Set(amount),
		Power:     new(uint256.Int).Set(contribution),
	})
	return nil
}

// Revoke removes the voter's votes from each subject. The caller must be
// the voter or hold the vote manager role. Subjects without committed votes
// are skipped.
func (l *Ledger) Revoke(
	caller voting.Account,
	voter voting.Account,
	subjects []voting.Subject,
) error {
	if caller != voter {
		if err := voting.Authorize(l.config.Authorizer, caller, voting.RoleVoteManager); err != nil {
			return err
		}
	}
	return l.revoke(caller, voter, subjects)
}

// RevokeAll removes every vote the voter holds. Only a vote manager may
// call it.
func (l *Ledger) RevokeAll(caller voting.Account, voter voting.Account) error {
	if err := voting.Authorize(l.config.Authorizer, caller, voting.RoleVoteManager); err != nil {
		return err
	}
	return l.revoke(caller, voter, l.voterSubjects[voter])
}

type revocation struct {
	subject voting.Subject
	amount  *uint256.Int
	tally   *Tally
	record  *VoteRecord
}

func (l *Ledger) revoke(
	caller voting.Account,
	voter voting.Account,
	subjects []voting.Subject,
) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	epoch := l.currentEpoch()
	staged := make(map[voting.Subject]*revocation)
	order := make([]voting.Subject, 0, len(subjects))
	released := new(uint256.Int)
	for _, subject := range subjects {
		if _, ok := staged[subject]; ok {
			continue
		}
		record, ok := l.records[recordKey{voter: voter, subject: subject}]
		if !ok || record.Committed().IsZero() {
			continue
		}
		rev, err := stageRevocation(
			l.tallies[subject],
			record,
			l.otherRecords(subject, voter),
			epoch,
		)
		if err != nil {
			return err
		}
		rev.subject = subject
		staged[subject] = rev
		order = append(order, subject)
		released.Add(released, rev.amount)
	}
	if len(order) == 0 {
		return nil
	}

	// Commit
	committed := l.Committed(voter)
	if released.Gt(committed) {
		committed.Clear()
	} else {
		committed.Sub(committed, released)
	}
	if committed.IsZero() {
		delete(l.committed, voter)
	} else {
		l.committed[voter] = committed
	}
	for _, subject := range order {
		rev := staged[subject]
		l.tallies[subject] = rev.tally
		l.records[recordKey{voter: voter, subject: subject}] = rev.record
		l.metrics.votesRevoked.Inc()
		l.logger.Debug(
			"vote revoked",
			"caller", caller.Hex(),
			"voter", voter.Hex(),
			"subject", subject.Hex(),
			"amount", rev.amount.Dec(),
			"epoch", epoch,
		)
	}
	l.updateSubjectsGauge()
	for _, subject := range order {
		l.publish(event.VoteRevokedEventType, event.VoteRevokedEvent{
			Epoch:   epoch,
			Caller:  caller,
			Voter:   voter,
			Subject: subject,
			Amount:  staged[subject].amount,
		})
	}
	return nil
}

// otherRecords returns the active records other voters hold on subject
func (l *Ledger) otherRecords(subject voting.Subject, voter voting.Account) []*VoteRecord {
	var ret []*VoteRecord
	for _, v := range l.subjectVoters[subject] {
		if v == voter {
			continue
		}
		r, ok := l.records[recordKey{voter: v, subject: subject}]
		if !ok || r.Committed().IsZero() {
			continue
		}
		ret = append(ret, r)
	}
	return ret
}

// stageRevocation computes the subject aggregate and voter record that
// result from removing record from tally at epoch. The remaining aggregate
// is rebuilt from the other voters' records, each decayed to epoch, so
// power the aggregate already clamped to zero cannot reappear.
func stageRevocation(
	current *Tally,
	record *VoteRecord,
	others []*VoteRecord,
	epoch uint64,
) (*revocation, error) {
	tally := newTally()
	if current != nil {
		tally = current.clone()
	}
	rec := record.clone()
	amount := rec.Committed()
	for _, d := range []voting.Direction{voting.For, voting.Against} {
		leg := rec.leg(d)
		if leg.Amount.IsZero() {
			continue
		}
		total := tally.ForAmount
		if d == voting.Against {
			total = tally.AgainstAmount
		}
		if leg.Amount.Gt(total) {
			total.Clear()
		} else {
			total.Sub(total, leg.Amount)
		}
		*leg = newLeg()
		leg.Epoch = epoch
	}
	if tally.Voters > 0 {
		tally.Voters--
	}
	if tally.Voters == 0 {
		tally.reset()
		if epoch > tally.LastVoteEpoch {
			tally.LastVoteEpoch = epoch
		}
		return &revocation{amount: amount, tally: tally, record: rec}, nil
	}
	if err := tally.rebuild(others, epoch); err != nil {
		return nil, err
	}
	return &revocation{
		amount: amount,
		tally:  tally,
		record: rec,
	}, nil
}

func (l *Ledger) updateSubjectsGauge() {
	count := 0
	for _, t := range l.tallies {
		if t.Voters > 0 {
			count++
		}
	}
	l.metrics.subjectsVoted.Set(float64(count))
}
