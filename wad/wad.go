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

// Package wad provides checked 256-bit arithmetic helpers for token amounts
// and vote power. Signed values (int256) are carried in two's complement
// inside a uint256.Int.
package wad

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// ErrOverflow is returned when a checked operation would leave the
// 256-bit range (or the int256 range for signed helpers).
var ErrOverflow = errors.New("arithmetic overflow")

// Unit is 1e18, the fixed-point scale of token amounts
const Unit uint64 = 1_000_000_000_000_000_000

// BoostUnit is the fixed-point denominator of collection boost factors
const BoostUnit uint64 = 1_000_000_000

// Wad returns a fresh 1e18
func Wad() *uint256.Int {
	return uint256.NewInt(Unit)
}

// Zero returns a fresh zero value
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// NewSigned returns v as an int256 value
func NewSigned(v int64) *uint256.Int {
	if v >= 0 {
		return uint256.NewInt(uint64(v))
	}
	// -(v+1) cannot overflow for math.MinInt64
	mag := uint256.NewInt(uint64(-(v + 1)))
	mag.AddUint64(mag, 1)
	return new(uint256.Int).Neg(mag)
}

// Neg returns -x for a signed value
func Neg(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Neg(x)
}

// Abs returns the magnitude of a signed value
func Abs(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Abs(x)
}

// IsNegative reports whether the signed value is below zero
func IsNegative(x *uint256.Int) bool {
	return x.Sign() < 0
}

// IsPositive reports whether the signed value is above zero
func IsPositive(x *uint256.Int) bool {
	return x.Sign() > 0
}

// FormatSigned renders a signed value in base 10
func FormatSigned(x *uint256.Int) string {
	if x == nil {
		return "0"
	}
	if x.Sign() < 0 {
		return "-" + new(uint256.Int).Abs(x).Dec()
	}
	return x.Dec()
}

// ParseSigned parses a base 10 string with an optional leading minus
func ParseSigned(s string) (*uint256.Int, error) {
	neg := strings.HasPrefix(s, "-")
	mag, err := uint256.FromDecimal(strings.TrimPrefix(s, "-"))
	if err != nil {
		return nil, fmt.Errorf("parse signed %q: %w", s, err)
	}
	// Magnitude must fit int256
	if mag.Sign() < 0 && !(neg && mag.Eq(minInt256())) {
		return nil, fmt.Errorf("parse signed %q: %w", s, ErrOverflow)
	}
	if neg {
		return mag.Neg(mag), nil
	}
	return mag, nil
}

// ParseAmount parses an unsigned base 10 amount
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}

func minInt256() *uint256.Int {
	return new(uint256.Int).Lsh(uint256.NewInt(1), 255)
}

// Add returns x+y or ErrOverflow
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sub returns x-y or ErrOverflow when y > x
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Mul returns x*y or ErrOverflow
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// MulDiv returns floor(x*y/d) with a 512-bit intermediate product. The
// result must fit 256 bits. A zero divisor yields zero.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// SignedAdd returns x+y for int256 operands
func SignedAdd(x, y *uint256.Int) (*uint256.Int, error) {
	z := new(uint256.Int).Add(x, y)
	// Overflow iff both operands share a sign that the result lacks
	if x.Sign() >= 0 && y.Sign() >= 0 && z.Sign() < 0 {
		return nil, ErrOverflow
	}
	if x.Sign() < 0 && y.Sign() < 0 && z.Sign() >= 0 {
		return nil, ErrOverflow
	}
	return z, nil
}

// SignedSub returns x-y for int256 operands
func SignedSub(x, y *uint256.Int) (*uint256.Int, error) {
	z := new(uint256.Int).Sub(x, y)
	if x.Sign() >= 0 && y.Sign() < 0 && z.Sign() < 0 {
		return nil, ErrOverflow
	}
	if x.Sign() < 0 && y.Sign() >= 0 && z.Sign() >= 0 {
		return nil, ErrOverflow
	}
	return z, nil
}

// SignedMulUint returns x*y for a signed x and an unsigned y
func SignedMulUint(x, y *uint256.Int) (*uint256.Int, error) {
	mag, err := Mul(Abs(x), y)
	if err != nil {
		return nil, err
	}
	if mag.Sign() < 0 {
		return nil, ErrOverflow
	}
	if x.Sign() < 0 {
		return mag.Neg(mag), nil
	}
	return mag, nil
}

// SignedMulDivUint returns x*y/d for a signed x, truncated toward zero
func SignedMulDivUint(x, y, d *uint256.Int) (*uint256.Int, error) {
	mag, err := MulDiv(Abs(x), y, d)
	if err != nil {
		return nil, err
	}
	if mag.Sign() < 0 {
		return nil, ErrOverflow
	}
	if x.Sign() < 0 {
		return mag.Neg(mag), nil
	}
	return mag, nil
}

// SignedDivUint64 returns x/d truncated toward zero
func SignedDivUint64(x *uint256.Int, d uint64) *uint256.Int {
	return new(uint256.Int).SDiv(x, uint256.NewInt(d))
}
