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

// Package voting holds the types, collaborator interfaces and error taxonomy
// shared by the vote ledger, the reward allocator and the war state machine.
package voting

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Subject is a votable entity: a collection address or the base-asset sentinel
type Subject = common.Address

// Account is a voter or caller address
type Account = common.Address

// BaseAssetSubject is the sentinel subject representing the base asset
// itself. It is always votable and never appears in a collection registry.
var BaseAssetSubject = common.HexToAddress(
	"0x0000000000000000000000000000000000000001",
)

// IsBaseAsset reports whether s is the base-asset sentinel
func IsBaseAsset(s Subject) bool {
	return s == BaseAssetSubject
}

// ParseAddress parses a hex address and rejects malformed input
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address: %q", s)
	}
	return common.HexToAddress(s), nil
}

// Direction is the side a vote is cast on
type Direction uint8

const (
	For Direction = iota
	Against
)

func (d Direction) String() string {
	switch d {
	case For:
		return "for"
	case Against:
		return "against"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Valid reports whether d is a known direction
func (d Direction) Valid() bool {
	return d == For || d == Against
}

// ParseDirection maps "for"/"against" (or empty, meaning for) to a Direction
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "for":
		return For, nil
	case "against":
		return Against, nil
	default:
		return 0, fmt.Errorf("invalid vote direction: %q", s)
	}
}

// Role names a privileged capability checked through an Authorizer
type Role string

const (
	// RoleVoteManager may revoke votes on behalf of any account
	RoleVoteManager Role = "vote_manager"
	// RoleTreasuryManager may tune parameters, create wars, update spot
	// prices and exercise winning options
	RoleTreasuryManager Role = "treasury_manager"
	// RoleEpochManager may start scheduled wars
	RoleEpochManager Role = "epoch_manager"
	// RoleEpochTrigger may end the running war
	RoleEpochTrigger Role = "epoch_trigger"
)

// Roles lists every known role
var Roles = []Role{
	RoleVoteManager,
	RoleTreasuryManager,
	RoleEpochManager,
	RoleEpochTrigger,
}
