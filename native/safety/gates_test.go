package safety

import (
	"math/big"
	"testing"

	fperrors "versemarket/core/errors"
	"versemarket/core/fixedpoint"
	"versemarket/native/market"

	"github.com/stretchr/testify/require"
)

func fp(t *testing.T, num, den int64) fixedpoint.U6464 {
	t.Helper()
	v, err := fixedpoint.NewU6464FromRat(big.NewRat(num, den))
	require.NoError(t, err)
	return v
}

func TestCheckClampAcceptsWithinBudget(t *testing.T) {
	last := fp(t, 50, 100)
	next := fp(t, 51, 100)
	require.NoError(t, CheckClamp(last, 100, next, 101, DefaultClampBpsPerSlot))
}

func TestCheckClampRejectsBeyondBudget(t *testing.T) {
	last := fp(t, 50, 100)
	next := fp(t, 80, 100)
	err := CheckClamp(last, 100, next, 101, DefaultClampBpsPerSlot)
	require.ErrorIs(t, err, fperrors.ErrPriceManipulation)
}

func TestCheckClampScalesWithSlotDelta(t *testing.T) {
	last := fp(t, 50, 100)
	next := fp(t, 58, 100)
	require.NoError(t, CheckClamp(last, 100, next, 104, DefaultClampBpsPerSlot))
}

func TestCheckFlashLoanHaltsOnCumulativeMove(t *testing.T) {
	samples := []market.PriceSample{
		{Slot: 1, Price: fp(t, 50, 100)},
		{Slot: 2, Price: fp(t, 52, 100)},
		{Slot: 3, Price: fp(t, 54, 100)},
		{Slot: 4, Price: fp(t, 56, 100)},
		{Slot: 5, Price: fp(t, 58, 100)},
	}
	halted, err := CheckFlashLoan(samples, DefaultFlashLoanWindowSlots, DefaultFlashLoanThresholdBps)
	require.NoError(t, err)
	require.True(t, halted)
}

func TestCheckFlashLoanAllowsStableWindow(t *testing.T) {
	samples := []market.PriceSample{
		{Slot: 1, Price: fp(t, 50, 100)},
		{Slot: 2, Price: fp(t, 50, 100)},
		{Slot: 3, Price: fp(t, 50, 100)},
	}
	halted, err := CheckFlashLoan(samples, DefaultFlashLoanWindowSlots, DefaultFlashLoanThresholdBps)
	require.NoError(t, err)
	require.False(t, halted)
}

func TestManipulationScoreFlatHistory(t *testing.T) {
	history := []float64{0.5, 0.5, 0.5, 0.5}
	require.Equal(t, 0, ManipulationScore(history))
}

func TestManipulationScoreSpikeAlerts(t *testing.T) {
	history := []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.9}
	score := ManipulationScore(history)
	require.True(t, Alerts(score))
}
