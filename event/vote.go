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
	VoteCastEventType    EventType = "vote.cast"
	VoteRevokedEventType EventType = "vote.revoked"
)

type VoteCastEvent struct {
	Epoch     uint64
	Voter     voting.Account
	Subject   voting.Subject
	Direction voting.Direction
	Amount    *uint256.Int
	// Power is the signed contribution added to the subject tally
	Power *uint256.Int
}

type VoteRevokedEvent struct {
	Epoch   uint64
	Caller  voting.Account
	Voter   voting.Account
	Subject voting.Subject
	// Amount is the raw committed amount released
	Amount *uint256.Int
}
