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

package event

import (
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/holiman/uint256"
)

const (
	WarCreatedEventType EventType = "war.created"
	WarStartedEventType EventType = "war.started"
	WarEndedEventType   EventType = "war.ended"
	WarVoteEventType    EventType = "war.vote"
	WarOptionEventType  EventType = "war.option"
)

type WarCreatedEvent struct {
	Index       uint64
	StartEpoch  uint64
	Collections []voting.Subject
}

type WarStartedEvent struct {
	Index      uint64
	StartEpoch uint64
}

type WarEndedEvent struct {
	Outcome voting.WarOutcome
}

type WarVoteEvent struct {
	Index      uint64
	Voter      voting.Account
	Collection voting.Subject
	// Amount is zero when the event reports a revocation
	Amount *uint256.Int
}

type WarOptionEvent struct {
	Index           uint64
	Owner           voting.Account
	Collection      voting.Subject
	TokenID         uint64
	Amount          uint64
	ExercisePercent uint64
	Power           *uint256.Int
}
