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
	"github.com/blinklabs-io/sweepwars/event"
	"github.com/blinklabs-io/sweepwars/voting"
)

// Amounts are decimal strings. Signed vote power is prefixed with "-" when
// negative.

type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

type EpochResponse struct {
	Epoch uint64 `json:"epoch"`
}

type SubjectsResponse struct {
	Subjects []string `json:"subjects"`
}

type SubjectPowerResponse struct {
	Subject string `json:"subject"`
	Epoch   uint64 `json:"epoch"`
	Power   string `json:"power"`
}

type AccountResponse struct {
	Account     string   `json:"account"`
	Staked      string   `json:"staked"`
	LockEpochs  uint64   `json:"lock_epochs"`
	UnlockEpoch uint64   `json:"unlock_epoch"`
	Committed   string   `json:"committed"`
	Available   string   `json:"available"`
	Subjects    []string `json:"subjects"`
}

type AllocationResponse struct {
	Subject string `json:"subject"`
	Power   string `json:"power"`
	Amount  string `json:"amount"`
}

type SnapshotResponse struct {
	Epoch       uint64               `json:"epoch"`
	Budget      string               `json:"budget"`
	TotalPower  string               `json:"total_power"`
	Allocations []AllocationResponse `json:"allocations"`
}

type CollectionResponse struct {
	Collection string `json:"collection"`
	TokenVotes string `json:"token_votes"`
	NftVotes   string `json:"nft_votes"`
	TotalVotes string `json:"total_votes"`
	SpotPrice  string `json:"spot_price"`
	LockEpoch  uint64 `json:"lock_epoch"`
}

type OutcomeResponse struct {
	Winner              *string `json:"winner"`
	WinnerVotes         string  `json:"winner_votes"`
	EndEpoch            uint64  `json:"end_epoch"`
	CollateralLockEpoch uint64  `json:"collateral_lock_epoch"`
}

type WarResponse struct {
	Index       uint64               `json:"index"`
	StartEpoch  uint64               `json:"start_epoch"`
	State       string               `json:"state"`
	Collections []CollectionResponse `json:"collections"`
	Outcome     *OutcomeResponse     `json:"outcome"`
}

type TransitionResponse struct {
	PreviousEpoch uint64            `json:"previous_epoch"`
	Epoch         uint64            `json:"epoch"`
	Snapshot      *SnapshotResponse `json:"snapshot"`
	EndedWar      *uint64           `json:"ended_war"`
	StartedWar    *uint64           `json:"started_war"`
}

type CastRequest struct {
	Subject   string `json:"subject"`
	Amount    string `json:"amount"`
	Direction string `json:"direction"`
}

type RevokeRequest struct {
	// Voter defaults to the caller
	Voter    string   `json:"voter"`
	Subjects []string `json:"subjects"`
}

type WarVoteRequest struct {
	Collection string `json:"collection"`
	Amount     string `json:"amount"`
}

type DepositRequest struct {
	Amount     string `json:"amount"`
	LockEpochs uint64 `json:"lock_epochs"`
}

type WithdrawRequest struct {
	Amount string `json:"amount"`
}

func hexList(subjects []voting.Subject) []string {
	ret := make([]string, len(subjects))
	for i, s := range subjects {
		ret[i] = s.Hex()
	}
	return ret
}

func snapshotResponse(d *voting.Distribution) *SnapshotResponse {
	ret := &SnapshotResponse{
		Epoch:       d.Epoch,
		Budget:      d.Budget.Dec(),
		TotalPower:  d.TotalPower.Dec(),
		Allocations: make([]AllocationResponse, len(d.Allocations)),
	}
	for i, a := range d.Allocations {
		ret.Allocations[i] = AllocationResponse{
			Subject: a.Subject.Hex(),
			Power:   a.Power.Dec(),
			Amount:  a.Amount.Dec(),
		}
	}
	return ret
}

func warResponse(v WarView) WarResponse {
	ret := WarResponse{
		Index:       v.War.Index,
		StartEpoch:  v.War.StartEpoch,
		State:       v.War.State.String(),
		Collections: make([]CollectionResponse, len(v.Collections)),
	}
	for i, c := range v.Collections {
		ret.Collections[i] = collectionResponse(c)
	}
	if v.Outcome != nil {
		out := &OutcomeResponse{
			WinnerVotes:         v.Outcome.WinnerVotes.Dec(),
			EndEpoch:            v.Outcome.EndEpoch,
			CollateralLockEpoch: v.Outcome.CollateralLockEpoch,
		}
		if v.Outcome.HasWinner {
			winner := v.Outcome.Winner.Hex()
			out.Winner = &winner
		}
		ret.Outcome = out
	}
	return ret
}

func collectionResponse(c CollectionView) CollectionResponse {
	votes := c.Votes
	return CollectionResponse{
		Collection: c.Collection.Hex(),
		TokenVotes: votes.TokenVotes.Dec(),
		NftVotes:   votes.NftVotes.Dec(),
		TotalVotes: votes.Total().Dec(),
		SpotPrice:  votes.SpotPrice.Dec(),
		LockEpoch:  votes.LockEpoch,
	}
}

func transitionResponse(evt *event.EpochTransitionEvent) TransitionResponse {
	ret := TransitionResponse{
		PreviousEpoch: evt.PreviousEpoch,
		Epoch:         evt.NewEpoch,
	}
	if evt.Distribution != nil {
		ret.Snapshot = snapshotResponse(evt.Distribution)
	}
	if evt.War != nil {
		index := evt.War.Index
		ret.EndedWar = &index
	}
	if evt.StartedWar != 0 {
		index := evt.StartedWar
		ret.StartedWar = &index
	}
	return ret
}
