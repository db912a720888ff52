package fixedpoint

import (
	"math"
	"math/big"
	"math/rand"
	"testing"

	fperrors "versemarket/core/errors"

	"github.com/stretchr/testify/require"
)

func TestU6464AddOverflow(t *testing.T) {
	max, err := NewU6464FromInt64(math.MaxInt64)
	require.NoError(t, err)
	_, err = max.Add(max.SaturatingAdd(max))
	require.ErrorIs(t, err, fperrors.ErrMathOverflow)
}

func TestU6464SaturatingAddClamps(t *testing.T) {
	a, err := NewU6464FromInt64(math.MaxInt64)
	require.NoError(t, err)
	sum := a.SaturatingAdd(a).SaturatingAdd(a)
	require.True(t, sum.Cmp(a) >= 0)
}

func TestU6464SubUnderflow(t *testing.T) {
	one := One6464()
	zero := Zero6464()
	_, err := zero.Sub(one)
	require.ErrorIs(t, err, fperrors.ErrMathUnderflow)
}

func TestU6464MulDivRoundTrip(t *testing.T) {
	three, err := NewU6464FromInt64(3)
	require.NoError(t, err)
	two, err := NewU6464FromInt64(2)
	require.NoError(t, err)
	product, err := three.Mul(two)
	require.NoError(t, err)
	back, err := product.Div(two)
	require.NoError(t, err)
	require.Equal(t, 0, back.Cmp(three))
}

func TestU6464Sqrt(t *testing.T) {
	four, err := NewU6464FromInt64(4)
	require.NoError(t, err)
	root, err := four.Sqrt()
	require.NoError(t, err)
	two, err := NewU6464FromInt64(2)
	require.NoError(t, err)
	require.Equal(t, 0, root.Cmp(two))
}

func TestU6464FromRat(t *testing.T) {
	half := big.NewRat(1, 2)
	v, err := NewU6464FromRat(half)
	require.NoError(t, err)
	require.InDelta(t, 0.5, v.Float64(), 1e-9)
}

func TestWidenNarrowRoundTrip(t *testing.T) {
	v, err := NewU6464FromInt64(7)
	require.NoError(t, err)
	wide := WidenU6464(v)
	back, err := wide.NarrowToU6464()
	require.NoError(t, err)
	require.Equal(t, 0, back.Cmp(v))
}

func TestTablesRejectLookupBeforePopulate(t *testing.T) {
	tb := NewTables()
	_, err := tb.CDF(0)
	require.ErrorIs(t, err, fperrors.ErrTablesNotInitialized)
}

func TestTablesRejectDoublePopulate(t *testing.T) {
	tb := NewTables()
	require.NoError(t, tb.Populate())
	err := tb.Populate()
	require.ErrorIs(t, err, fperrors.ErrAlreadyInitialized)
}

func TestTablesAccuracy(t *testing.T) {
	tb := NewTables()
	require.NoError(t, tb.Populate())
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		x := -4 + rng.Float64()*8
		cdf, err := tb.CDF(x)
		require.NoError(t, err)
		ref := 0.5 * (1 + math.Erf(x/math.Sqrt2))
		require.InDelta(t, ref, cdf, 1e-3)

		erf, err := tb.Erf(x)
		require.NoError(t, err)
		require.InDelta(t, math.Erf(x/math.Sqrt2), erf, 1e-3)

		pdf, err := tb.PDF(x)
		require.NoError(t, err)
		refPDF := math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
		require.InDelta(t, refPDF, pdf, 1e-3)
	}
}

func TestTablesClampOutOfDomain(t *testing.T) {
	tb := NewTables()
	require.NoError(t, tb.Populate())
	low, err := tb.CDF(-100)
	require.NoError(t, err)
	high, err := tb.CDF(100)
	require.NoError(t, err)
	require.InDelta(t, 0.5*(1+math.Erf(-4/math.Sqrt2)), low, 1e-3)
	require.InDelta(t, 0.5*(1+math.Erf(4/math.Sqrt2)), high, 1e-3)
}
