package config

import "fmt"

// BasisPointsScale is the scale of 1.0 in basis points; every *Bps field in
// Global is validated against this ceiling.
const BasisPointsScale = 10000

// ValidateConfig checks a Global's business-rule parameters for internal
// consistency before it is ever handed to the native engines. It does not
// mutate g; callers that want defaults applied should call Normalise first.
func ValidateConfig(g Global) error {
	lev := g.Leverage
	if lev.MinSteps < 1 {
		return fmt.Errorf("leverage: min_steps must be >= 1")
	}
	if lev.MaxSteps < lev.MinSteps {
		return fmt.Errorf("leverage: max_steps < min_steps")
	}
	if lev.MaxEffectiveLeverage < 1 {
		return fmt.Errorf("leverage: max_effective_leverage must be >= 1")
	}
	if lev.FlashLoanFeeBps < 0 || lev.FlashLoanFeeBps > BasisPointsScale {
		return fmt.Errorf("leverage: flash_loan_fee_bps out of range")
	}
	if lev.PostBorrowCooldown < 0 {
		return fmt.Errorf("leverage: post_borrow_cooldown_slots must be >= 0")
	}
	prevCoverage := uint32(BasisPointsScale + 1)
	for _, tier := range lev.CoverageTiers {
		if tier.MinCoverageBps >= prevCoverage {
			return fmt.Errorf("leverage: coverage_tiers must be strictly descending by min_coverage_bps")
		}
		if tier.MaxLeverage < 1 {
			return fmt.Errorf("leverage: coverage_tiers entries must have max_leverage >= 1")
		}
		prevCoverage = tier.MinCoverageBps
	}

	saf := g.Safety
	if saf.ClampBpsPerSlot == 0 || saf.ClampBpsPerSlot > BasisPointsScale {
		return fmt.Errorf("safety: clamp_bps_per_slot out of range")
	}
	if saf.FlashLoanWindowSlots < 1 {
		return fmt.Errorf("safety: flash_loan_window_slots must be >= 1")
	}
	if saf.FlashLoanThresholdBps == 0 || saf.FlashLoanThresholdBps > BasisPointsScale {
		return fmt.Errorf("safety: flash_loan_threshold_bps out of range")
	}
	if saf.MinConfidenceBps > BasisPointsScale {
		return fmt.Errorf("safety: min_confidence_bps out of range")
	}
	if saf.StalenessSlots == 0 {
		return fmt.Errorf("safety: staleness_slots must be >= 1")
	}
	if saf.IngestRateLimitPerSlot < 1 {
		return fmt.Errorf("safety: ingest_rate_limit_per_slot must be >= 1")
	}

	brk := g.Breaker
	if brk.VolatilityThresholdBps == 0 || brk.VolatilityThresholdBps > BasisPointsScale {
		return fmt.Errorf("breaker: volatility_threshold_bps out of range")
	}
	if brk.VolatilityWindowSlots < 1 {
		return fmt.Errorf("breaker: volatility_window_slots must be >= 1")
	}
	if brk.MinCoverageBps == 0 {
		return fmt.Errorf("breaker: min_coverage_bps must be >= 1")
	}

	fees := g.Fees
	if fees.FlashLoanFeeBps > BasisPointsScale {
		return fmt.Errorf("fees: flash_loan_fee_bps out of range")
	}
	if fees.KeeperRewardBps > BasisPointsScale {
		return fmt.Errorf("fees: keeper_reward_bps out of range")
	}
	return nil
}
