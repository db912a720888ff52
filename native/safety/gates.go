// Package safety implements the price clamp, flash-loan halt, and
// manipulation-scoring gates every accepted price sample must pass before
// it reaches a proposal's price cache.
package safety

import (
	"math/big"

	fperrors "versemarket/core/errors"
	"versemarket/core/fixedpoint"
	"versemarket/native/market"
)

// DefaultClampBpsPerSlot is the per-slot allowed absolute basis-point price
// change: 200bp/slot, per spec.
const DefaultClampBpsPerSlot = 200

// DefaultFlashLoanWindowSlots is the sliding window width for cumulative
// flash-loan detection.
const DefaultFlashLoanWindowSlots = market.FlashLoanWindowSlots

// DefaultFlashLoanThresholdBps is the cumulative |Δprice| threshold over the
// flash-loan window that forces a halt: 5%.
const DefaultFlashLoanThresholdBps = 500

// BasisPoints is the scale of 1.0 in basis points.
const BasisPoints = 10000

func bpsDelta(last, next fixedpoint.U6464) (int64, error) {
	if last.Cmp(fixedpoint.Zero6464()) == 0 {
		return 0, fperrors.ErrInvalidInput
	}
	diff, err := subAbs(last, next)
	if err != nil {
		return 0, err
	}
	ratio := new(big.Rat).Quo(diff.Rat(), last.Rat())
	ratio.Mul(ratio, big.NewRat(BasisPoints, 1))
	f, _ := ratio.Float64()
	return int64(f), nil
}

func subAbs(a, b fixedpoint.U6464) (fixedpoint.U6464, error) {
	if a.Cmp(b) >= 0 {
		return a.Sub(b)
	}
	return b.Sub(a)
}

// CheckClamp enforces spec.md §4.F's per-slot price clamp: the allowed
// absolute basis-point change between consecutive accepted samples at slots
// s0 < s1 is clampBpsPerSlot·(s1-s0). Samples exceeding the cap are rejected
// with ErrPriceManipulation.
func CheckClamp(last fixedpoint.U6464, lastSlot uint64, next fixedpoint.U6464, nextSlot uint64, clampBpsPerSlot uint32) error {
	if nextSlot < lastSlot {
		return fperrors.ErrInvalidInput
	}
	diff, err := subAbs(last, next)
	if err != nil {
		return err
	}
	deltaBps := new(big.Rat).Mul(diff.Rat(), big.NewRat(BasisPoints, 1))
	f, _ := deltaBps.Float64()
	delta := int64(f)
	allowed := int64(clampBpsPerSlot) * int64(nextSlot-lastSlot)
	if delta > allowed {
		return fperrors.ErrPriceManipulation
	}
	return nil
}

// CheckFlashLoan inspects the cumulative absolute basis-point price change
// across the trailing windowSlots of samples (the caller supplies the
// candidate sample appended). If the cumulative change exceeds
// thresholdBps, the proposal must halt.
func CheckFlashLoan(samples []market.PriceSample, windowSlots int, thresholdBps uint32) (bool, error) {
	if len(samples) < 2 {
		return false, nil
	}
	start := len(samples) - windowSlots - 1
	if start < 0 {
		start = 0
	}
	window := samples[start:]
	cumulative := int64(0)
	for i := 1; i < len(window); i++ {
		delta, err := bpsDelta(window[i-1].Price, window[i].Price)
		if err != nil {
			return false, err
		}
		cumulative += delta
	}
	return cumulative > int64(thresholdBps), nil
}
