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

// Package topk selects the most-voted subjects for an epoch
package topk

import (
	"fmt"

	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/holiman/uint256"
)

// PowerReader reports the signed vote power of a subject at an epoch
type PowerReader interface {
	VotingPowerAt(subject voting.Subject, epoch uint64) (*uint256.Int, error)
}

type Entry struct {
	Subject voting.Subject
	Power   *uint256.Int
}

// SelectTop returns up to k subjects with positive power, most powerful
// first. It keeps a sorted window of at most k entries and inserts each
// candidate with a linear scan, so the cost is O(len(subjects) * k). A
// candidate only displaces a window entry with strictly lower power, so on
// ties the subject seen first wins.
func SelectTop(
	reader PowerReader,
	subjects []voting.Subject,
	epoch uint64,
	k int,
) ([]Entry, error) {
	if k <= 0 {
		return nil, voting.ErrSampleSizeZero
	}
	window := make([]Entry, 0, min(k, len(subjects)))
	for _, subject := range subjects {
		power, err := reader.VotingPowerAt(subject, epoch)
		if err != nil {
			return nil, fmt.Errorf("power of %s: %w", subject.Hex(), err)
		}
		if power == nil || power.Sign() <= 0 {
			continue
		}
		rank := len(window)
		for i, e := range window {
			if power.Gt(e.Power) {
				rank = i
				break
			}
		}
		if rank >= k {
			continue
		}
		if len(window) < k {
			window = append(window, Entry{})
		}
		// Shift lower entries down, dropping the last if the window is full
		copy(window[rank+1:], window[rank:len(window)-1])
		window[rank] = Entry{Subject: subject, Power: new(uint256.Int).Set(power)}
	}
	return window, nil
}
