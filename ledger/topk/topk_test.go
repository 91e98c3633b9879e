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

package topk_test

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/blinklabs-io/sweepwars/ledger/topk"
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/blinklabs-io/sweepwars/wad"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticPower map[voting.Subject]int64

func (s staticPower) VotingPowerAt(subject voting.Subject, _ uint64) (*uint256.Int, error) {
	return wad.NewSigned(s[subject]), nil
}

var (
	subjA = common.HexToAddress("0xa0")
	subjB = common.HexToAddress("0xb0")
	subjC = common.HexToAddress("0xc0")
	subjD = common.HexToAddress("0xd0")
)

func summary(entries []topk.Entry) []string {
	ret := make([]string, len(entries))
	for i, e := range entries {
		ret[i] = fmt.Sprintf("%x=%s", e.Subject[19], e.Power.Dec())
	}
	return ret
}

func TestSelectTop(t *testing.T) {
	powers := staticPower{subjA: 30, subjB: 50, subjC: 20}
	got, err := topk.SelectTop(powers, []voting.Subject{subjA, subjB, subjC}, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b0=50", "a0=30"}, summary(got))
}

func TestSelectTopCases(t *testing.T) {
	tests := []struct {
		name     string
		powers   staticPower
		subjects []voting.Subject
		k        int
		expected []string
	}{
		{
			name:     "fewer positive subjects than k",
			powers:   staticPower{subjA: 5, subjB: 0, subjC: -7},
			subjects: []voting.Subject{subjA, subjB, subjC},
			k:        5,
			expected: []string{"a0=5"},
		},
		{
			name:     "no positive subjects",
			powers:   staticPower{subjA: -1},
			subjects: []voting.Subject{subjA, subjB},
			k:        3,
			expected: []string{},
		},
		{
			name:     "tie at the window boundary keeps the first seen",
			powers:   staticPower{subjA: 40, subjB: 20, subjC: 20, subjD: 10},
			subjects: []voting.Subject{subjA, subjB, subjC, subjD},
			k:        2,
			expected: []string{"a0=40", "b0=20"},
		},
		{
			name:     "later tie is ranked after the earlier one",
			powers:   staticPower{subjA: 20, subjB: 30, subjC: 20},
			subjects: []voting.Subject{subjC, subjA, subjB},
			k:        3,
			expected: []string{"b0=30", "c0=20", "a0=20"},
		},
		{
			name:     "insertion evicts the lowest",
			powers:   staticPower{subjA: 1, subjB: 2, subjC: 3, subjD: 4},
			subjects: []voting.Subject{subjA, subjB, subjC, subjD},
			k:        2,
			expected: []string{"d0=4", "c0=3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := topk.SelectTop(tt.powers, tt.subjects, 1, tt.k)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, summary(got))
		})
	}
}

func TestSelectTopRejectsZeroK(t *testing.T) {
	_, err := topk.SelectTop(staticPower{}, nil, 0, 0)
	assert.ErrorIs(t, err, voting.ErrSampleSizeZero)
}

type failingPower struct{}

func (failingPower) VotingPowerAt(voting.Subject, uint64) (*uint256.Int, error) {
	return nil, voting.ErrArithmeticOverflow
}

func TestSelectTopPropagatesErrors(t *testing.T) {
	_, err := topk.SelectTop(failingPower{}, []voting.Subject{subjA}, 0, 1)
	assert.True(t, errors.Is(err, voting.ErrArithmeticOverflow))
}

func TestSelectTopIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	for range 50 {
		powers := staticPower{}
		var subjects []voting.Subject
		for i := range 40 {
			s := common.BigToAddress(uint256.NewInt(uint64(100 + i)).ToBig())
			subjects = append(subjects, s)
			// a narrow range forces ties
			powers[s] = rng.Int64N(12) - 3
		}
		k := 1 + rng.IntN(8)
		first, err := topk.SelectTop(powers, subjects, 0, k)
		require.NoError(t, err)
		second, err := topk.SelectTop(powers, subjects, 0, k)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		require.LessOrEqual(t, len(first), k)

		// matches a stable sort by descending power over positive subjects
		var positive []voting.Subject
		for _, s := range subjects {
			if powers[s] > 0 {
				positive = append(positive, s)
			}
		}
		sortStableDesc(positive, powers)
		if len(positive) > k {
			positive = positive[:k]
		}
		require.Len(t, first, len(positive))
		for i, e := range first {
			assert.Equal(t, positive[i], e.Subject)
		}
	}
}

// sortStableDesc is an insertion sort; stability keeps first-seen order
func sortStableDesc(subjects []voting.Subject, powers staticPower) {
	for i := 1; i < len(subjects); i++ {
		for j := i; j > 0 && powers[subjects[j]] > powers[subjects[j-1]]; j-- {
			subjects[j], subjects[j-1] = subjects[j-1], subjects[j]
		}
	}
}
