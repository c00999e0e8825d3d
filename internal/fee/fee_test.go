package fee

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	cases := []struct {
		name        string
		amount      int64
		basisPoints int
		minFee      int64
		maxFee      int64
		want        int64
	}{
		{"two and a half percent", 1_000_000, 250, 10_000, 500_000, 25_000},
		{"one basis point", 1_000_000, 1, 0, 500_000, 100},
		{"raised to min fee", 100_000, 10, 10_000, 500_000, 10_000}, // raw fee 100
		{"capped at max fee", 1_000_000_000, 500, 10_000, 500_000, 500_000},
		{"zero amount floors at min", 0, 250, 10_000, 500_000, 10_000},
		{"max rate", 2_000_000, 500, 0, math.MaxInt64, 100_000},
		{"truncates", 10_001, 250, 0, math.MaxInt64, 250}, // 10_001*250/10_000 = 250.025
		{"huge amount", math.MaxInt64, 500, 0, math.MaxInt64, math.MaxInt64 / 20},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Calculate(tc.amount, tc.basisPoints, tc.minFee, tc.maxFee)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCalculateMinWinsOverMaxLast(t *testing.T) {
	// Clamp order is raise-to-min then cap-at-max, so an inverted band
	// resolves to maxFee.
	got, err := Calculate(1_000_000, 250, 600_000, 500_000)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), got)
}

func TestCalculateRejectsNegativeInputs(t *testing.T) {
	_, err := Calculate(-1, 250, 0, 100)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = Calculate(100, -1, 0, 100)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestCalculateBandInvariant(t *testing.T) {
	amounts := []int64{1, 999, 10_000, 1_000_000, 123_456_789, math.MaxInt64}
	for _, amount := range amounts {
		for _, bp := range []int{MinBasisPoints, 50, 250, MaxBasisPoints} {
			got, err := Calculate(amount, bp, 10_000, 500_000)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, got, int64(10_000))
			assert.LessOrEqual(t, got, int64(500_000))
		}
	}
}
