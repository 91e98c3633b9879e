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

import "github.com/blinklabs-io/sweepwars/voting"

const EpochTransitionEventType EventType = "epoch.transition"

// EpochTransitionEvent is published after the node has closed an epoch.
// Distribution holds the reward split computed for PreviousEpoch and War
// is set when a war ended at the boundary.
type EpochTransitionEvent struct {
	PreviousEpoch uint64
	NewEpoch      uint64
	Distribution  *voting.Distribution
	War           *voting.WarOutcome
	// StartedWar is the index of the war started for NewEpoch, or 0
	StartedWar uint64
	// Checkpoints are the serialized component states after the transition,
	// keyed by component name
	Checkpoints map[string][]byte
}
