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

package types

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrBlobKeyNotFound is returned by blob operations when a key is missing
var ErrBlobKeyNotFound = errors.New("blob key not found")

// ErrTxnWrongType is returned when a transaction has the wrong type
var ErrTxnWrongType = errors.New("invalid transaction type")

// ErrNilTxn is returned when a nil transaction is provided where a valid transaction is required
var ErrNilTxn = errors.New("nil transaction")

// ErrNotFound is returned by metadata lookups that match no record
var ErrNotFound = errors.New("record not found")

// Txn is a simple transaction handle for commit/rollback only
type Txn interface {
	Commit() error
	Rollback() error
}

// Uint256 stores a 256-bit value as a decimal string. Signed values are
// stored with a leading minus.
//
//nolint:recvcheck
type Uint256 struct {
	*uint256.Int
	Signed bool
}

func NewUint256(v *uint256.Int) Uint256 {
	if v == nil {
		return Uint256{Int: new(uint256.Int)}
	}
	return Uint256{Int: new(uint256.Int).Set(v)}
}

func NewSignedUint256(v *uint256.Int) Uint256 {
	ret := NewUint256(v)
	ret.Signed = true
	return ret
}

func (u Uint256) String() string {
	if u.Int == nil {
		return "0"
	}
	if u.Signed && u.Sign() < 0 {
		return "-" + new(uint256.Int).Abs(u.Int).Dec()
	}
	return u.Dec()
}

func (u Uint256) Value() (driver.Value, error) {
	return u.String(), nil
}

func (u *Uint256) Scan(val any) error {
	var v string
	switch t := val.(type) {
	case string:
		v = t
	case []byte:
		v = string(t)
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	neg := len(v) > 0 && v[0] == '-'
	if neg {
		v = v[1:]
	}
	tmp, err := uint256.FromDecimal(v)
	if err != nil {
		return fmt.Errorf("failed to parse uint256 value %q: %w", v, err)
	}
	if neg {
		tmp.Neg(tmp)
		u.Signed = true
	}
	u.Int = tmp
	return nil
}

// Address stores a 20-byte address as its hex string
//
//nolint:recvcheck
type Address common.Address

func (a Address) Value() (driver.Value, error) {
	return common.Address(a).Hex(), nil
}

func (a *Address) Scan(val any) error {
	var v string
	switch t := val.(type) {
	case string:
		v = t
	case []byte:
		v = string(t)
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	if !common.IsHexAddress(v) {
		return fmt.Errorf("invalid address: %q", v)
	}
	*a = Address(common.HexToAddress(v))
	return nil
}
