package safemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckedAdd(t *testing.T) {
	got, err := CheckedAdd(40, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	got, err = CheckedAdd(-40, -2)
	require.NoError(t, err)
	assert.Equal(t, int64(-42), got)

	_, err = CheckedAdd(math.MaxInt64, 1)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = CheckedAdd(math.MinInt64, -1)
	assert.ErrorIs(t, err, ErrOverflow)

	got, err = CheckedAdd(math.MaxInt64, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got)
}

func TestCheckedSub(t *testing.T) {
	got, err := CheckedSub(40, -2)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	_, err = CheckedSub(math.MinInt64, 1)
	assert.ErrorIs(t, err, ErrOverflow)

	// a - MinInt64 only fits when a is negative.
	_, err = CheckedSub(0, math.MinInt64)
	assert.ErrorIs(t, err, ErrOverflow)

	got, err = CheckedSub(-1, math.MinInt64)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got)
}

func TestCheckedMul(t *testing.T) {
	got, err := CheckedMul(6, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	got, err = CheckedMul(math.MaxInt64, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	_, err = CheckedMul(math.MaxInt64, 2)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestSaturating(t *testing.T) {
	assert.Equal(t, int64(math.MaxInt64), SaturatingAdd(math.MaxInt64, 10))
	assert.Equal(t, int64(math.MinInt64), SaturatingSub(math.MinInt64, 10))
	assert.Equal(t, int64(-25), SaturatingSub(0, 25))
	assert.Equal(t, int64(-125), SaturatingSub(-100, 25))
}
