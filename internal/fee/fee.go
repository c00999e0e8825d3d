// Package fee computes the platform fee for a payment. The rate is expressed
// in basis points out of 10000 and the result is clamped into the platform's
// configured [min, max] fee band.
package fee

import (
	"errors"
	"math"
	"math/bits"
)

const (
	// BasisPointsDivisor converts basis points to a fraction (1 bp = 0.01%).
	BasisPointsDivisor = 10_000

	// MinBasisPoints and MaxBasisPoints bound the configurable platform rate
	// to 0.01%..5%.
	MinBasisPoints = 1
	MaxBasisPoints = 500
)

var ErrOverflow = errors.New("fee_overflow")

// Calculate returns amount * basisPoints / 10000 clamped into [minFee, maxFee].
// The product is taken at 128-bit width, so ErrOverflow is only reachable when
// the quotient itself does not fit in an int64, which cannot happen for rates
// within [MinBasisPoints, MaxBasisPoints].
func Calculate(amount int64, basisPoints int, minFee, maxFee int64) (int64, error) {
	if amount < 0 || basisPoints < 0 || minFee < 0 || maxFee < 0 {
		return 0, ErrOverflow
	}

	hi, lo := bits.Mul64(uint64(amount), uint64(basisPoints))
	if hi >= BasisPointsDivisor {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, BasisPointsDivisor)
	if q > math.MaxInt64 {
		return 0, ErrOverflow
	}

	f := int64(q)
	if f < minFee {
		f = minFee
	}
	if f > maxFee {
		f = maxFee
	}
	return f, nil
}
