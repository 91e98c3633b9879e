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

package voting

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Error kinds. Every error below wraps exactly one of these, so callers can
// branch on the kind with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrAuthorization = errors.New("authorization error")
	ErrState         = errors.New("state error")
	ErrSolvency      = errors.New("arithmetic error")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Validation errors
var (
	ErrZeroAmount             = newKindError(ErrValidation, "amount must be greater than zero")
	ErrSubjectNotApproved     = newKindError(ErrValidation, "subject is not approved")
	ErrSampleSizeZero         = newKindError(ErrValidation, "sample size must be greater than zero")
	ErrArrayLengthMismatch    = newKindError(ErrValidation, "array lengths do not match")
	ErrInvalidExercisePercent = newKindError(ErrValidation, "exercise percent must be at most 100")
	ErrCollectionNotInWar     = newKindError(ErrValidation, "collection is not part of the war")
	ErrInvalidWarEpoch        = newKindError(ErrValidation, "war epoch must be in the future")
	ErrEmptyWar               = newKindError(ErrValidation, "war must contain at least one collection")
	ErrZeroSpotPrice          = newKindError(ErrValidation, "spot price must be greater than zero")
	ErrInvalidDirection       = newKindError(ErrValidation, "invalid vote direction")
	ErrDuplicateCollection    = newKindError(ErrValidation, "collection listed more than once")
)

// Authorization errors
var ErrUnauthorized = newKindError(ErrAuthorization, "caller lacks required role")

// State errors
var (
	ErrNoWarRunning        = newKindError(ErrState, "no war currently running")
	ErrWarAlreadyRunning   = newKindError(ErrState, "a war is already running")
	ErrWarEpochNotPassed   = newKindError(ErrState, "war epoch has not passed")
	ErrWarNotFound         = newKindError(ErrState, "war not found")
	ErrWarAlreadyScheduled = newKindError(ErrState, "a war is already scheduled for that epoch")
	ErrWarNotCurrent       = newKindError(ErrState, "war is not the current war")
	ErrWarAlreadyEnded     = newKindError(ErrState, "war has already ended")
	ErrWarNotEnded         = newKindError(ErrState, "war has not ended")
	ErrWarEpochMismatch    = newKindError(ErrState, "war start epoch is not the current epoch")
	ErrNotWarWinner        = newKindError(ErrState, "collection did not win the war")
	ErrReentrantCall       = newKindError(ErrState, "reentrant call")
	ErrOptionNotFound      = newKindError(ErrState, "option not found")
	ErrOptionExists        = newKindError(ErrState, "option already exists for that token")
	ErrExerciseWindowOver  = newKindError(ErrState, "option exercise window has closed")
)

// Arithmetic and solvency errors
var (
	ErrInsufficientVotingPower = newKindError(ErrSolvency, "insufficient voting power")
	ErrInsufficientCollateral  = newKindError(ErrSolvency, "insufficient staked collateral")
	ErrCollateralLocked        = newKindError(ErrSolvency, "collateral is still timelocked")
	ErrArithmeticOverflow      = newKindError(ErrSolvency, "arithmetic overflow")
)

// UnauthorizedError carries the caller and the role it was missing
type UnauthorizedError struct {
	Account Account
	Role    Role
}

// NewUnauthorizedError returns an UnauthorizedError
func NewUnauthorizedError(account Account, role Role) error {
	return &UnauthorizedError{Account: account, Role: role}
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf(
		"account %s lacks role %s",
		e.Account.Hex(),
		e.Role,
	)
}

func (e *UnauthorizedError) Unwrap() error { return ErrUnauthorized }

// InsufficientVotingPowerError reports the available and requested amounts
type InsufficientVotingPowerError struct {
	Account   Account
	Available *uint256.Int
	Requested *uint256.Int
}

func (e *InsufficientVotingPowerError) Error() string {
	return fmt.Sprintf(
		"account %s has %s voting power available, requested %s",
		e.Account.Hex(),
		e.Available.Dec(),
		e.Requested.Dec(),
	)
}

func (e *InsufficientVotingPowerError) Unwrap() error {
	return ErrInsufficientVotingPower
}

// Kind returns the kind sentinel an error belongs to, or nil if the error
// is not a domain error
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrAuthorization, ErrState, ErrSolvency} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
