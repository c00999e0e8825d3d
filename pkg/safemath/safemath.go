// Package safemath provides overflow-aware integer arithmetic for counters
// and scores. Counter increases go through the Checked variants and fail on
// overflow; score decreases go through the Saturating variants and clamp at
// the int64 bounds instead of failing.
package safemath

import (
	"errors"
	"math"
)

var ErrOverflow = errors.New("arithmetic_overflow")

// CheckedAdd returns a + b, or ErrOverflow if the sum does not fit in int64.
func CheckedAdd(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, ErrOverflow
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// CheckedSub returns a - b, or ErrOverflow on underflow.
func CheckedSub(a, b int64) (int64, error) {
	if b == math.MinInt64 {
		if a >= 0 {
			return 0, ErrOverflow
		}
		return a - b, nil
	}
	return CheckedAdd(a, -b)
}

// CheckedMul returns a * b, or ErrOverflow if the product does not fit.
func CheckedMul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	p := a * b
	if p/b != a {
		return 0, ErrOverflow
	}
	return p, nil
}

// SaturatingAdd returns a + b clamped to the int64 range.
func SaturatingAdd(a, b int64) int64 {
	s, err := CheckedAdd(a, b)
	if err != nil {
		if b > 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return s
}

// SaturatingSub returns a - b clamped to the int64 range.
func SaturatingSub(a, b int64) int64 {
	s, err := CheckedSub(a, b)
	if err != nil {
		if b > 0 {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return s
}
