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

// Package epoch provides the logical epoch clock. The clock never advances
// on its own; the node moves it at each epoch boundary.
package epoch

import "sync/atomic"

type Clock struct {
	current atomic.Uint64
}

func NewClock(start uint64) *Clock {
	c := &Clock{}
	c.current.Store(start)
	return c
}

func (c *Clock) CurrentEpoch() uint64 {
	return c.current.Load()
}

// Advance moves the clock forward by one epoch
func (c *Clock) Advance() (prev uint64, next uint64) {
	next = c.current.Add(1)
	return next - 1, next
}

// Set moves the clock to epoch, used when restoring persisted state
func (c *Clock) Set(epoch uint64) {
	c.current.Store(epoch)
}
