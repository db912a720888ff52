package config

import (
	"versemarket/native/market"
)

// Normalise returns a defensive copy of g with zero-valued fields replaced by
// the canonical defaults. Callers load a Global from TOML (where an operator
// may omit an entire section), call Normalise, then ValidateConfig the
// result before handing it to Parameters.
func (g Global) Normalise() Global {
	d := defaultGlobal()

	if g.Leverage.MinSteps == 0 {
		g.Leverage.MinSteps = d.Leverage.MinSteps
	}
	if g.Leverage.MaxSteps == 0 {
		g.Leverage.MaxSteps = d.Leverage.MaxSteps
	}
	if g.Leverage.MaxEffectiveLeverage == 0 {
		g.Leverage.MaxEffectiveLeverage = d.Leverage.MaxEffectiveLeverage
	}
	if g.Leverage.FlashLoanFeeBps == 0 {
		g.Leverage.FlashLoanFeeBps = d.Leverage.FlashLoanFeeBps
	}
	if len(g.Leverage.CoverageTiers) == 0 {
		g.Leverage.CoverageTiers = d.Leverage.CoverageTiers
	}

	if g.Safety.ClampBpsPerSlot == 0 {
		g.Safety.ClampBpsPerSlot = d.Safety.ClampBpsPerSlot
	}
	if g.Safety.FlashLoanWindowSlots == 0 {
		g.Safety.FlashLoanWindowSlots = d.Safety.FlashLoanWindowSlots
	}
	if g.Safety.FlashLoanThresholdBps == 0 {
		g.Safety.FlashLoanThresholdBps = d.Safety.FlashLoanThresholdBps
	}
	if g.Safety.MinConfidenceBps == 0 {
		g.Safety.MinConfidenceBps = d.Safety.MinConfidenceBps
	}
	if g.Safety.StalenessSlots == 0 {
		g.Safety.StalenessSlots = d.Safety.StalenessSlots
	}
	if g.Safety.IngestRateLimitPerSlot == 0 {
		g.Safety.IngestRateLimitPerSlot = d.Safety.IngestRateLimitPerSlot
	}

	if g.Breaker.VolatilityThresholdBps == 0 {
		g.Breaker.VolatilityThresholdBps = d.Breaker.VolatilityThresholdBps
	}
	if g.Breaker.VolatilityWindowSlots == 0 {
		g.Breaker.VolatilityWindowSlots = d.Breaker.VolatilityWindowSlots
	}
	if g.Breaker.MinCoverageBps == 0 {
		g.Breaker.MinCoverageBps = d.Breaker.MinCoverageBps
	}
	if g.Breaker.EmergencyGenesisWindowSlots == 0 {
		g.Breaker.EmergencyGenesisWindowSlots = d.Breaker.EmergencyGenesisWindowSlots
	}

	if g.Fees.FlashLoanFeeBps == 0 {
		g.Fees.FlashLoanFeeBps = d.Fees.FlashLoanFeeBps
	}
	if g.Fees.KeeperRewardBps == 0 {
		g.Fees.KeeperRewardBps = d.Fees.KeeperRewardBps
	}
	return g
}

// Parameters is the set of runtime values the native engines are wired with
// at process start, copied from Global's bps/int TOML fields into the plain
// integer and market types those engines actually consume.
type Parameters struct {
	Fees                        market.FeeParams
	CoverageTiers               []market.CoverageLeverageTier
	MinSteps                    int
	MaxSteps                    int
	MaxEffectiveLeverage        int
	PostBorrowCooldownSlots     uint64
	ClampBpsPerSlot             uint32
	FlashLoanWindowSlots        int
	FlashLoanThresholdBps       uint32
	MinConfidenceBps            uint32
	StalenessSlots              uint64
	IngestRateLimitPerSlot      int
	VolatilityThresholdBps      uint32
	VolatilityWindowSlots       int
	MinCoverageBps              uint32
	EmergencyGenesisWindowSlots uint64
}

// Parameters converts g's validated TOML fields into the runtime values the
// native/chain, native/safety, native/oracle, and native/breaker engines are
// constructed with. Callers must Normalise and ValidateConfig g first.
func (g Global) Parameters() (Parameters, error) {
	p := Parameters{
		CoverageTiers:               append([]market.CoverageLeverageTier(nil), g.Leverage.CoverageTiers...),
		MinSteps:                    g.Leverage.MinSteps,
		MaxSteps:                    g.Leverage.MaxSteps,
		MaxEffectiveLeverage:        g.Leverage.MaxEffectiveLeverage,
		PostBorrowCooldownSlots:     uint64(g.Leverage.PostBorrowCooldown),
		ClampBpsPerSlot:             g.Safety.ClampBpsPerSlot,
		FlashLoanWindowSlots:        g.Safety.FlashLoanWindowSlots,
		FlashLoanThresholdBps:       g.Safety.FlashLoanThresholdBps,
		MinConfidenceBps:            g.Safety.MinConfidenceBps,
		StalenessSlots:              g.Safety.StalenessSlots,
		IngestRateLimitPerSlot:      g.Safety.IngestRateLimitPerSlot,
		VolatilityThresholdBps:      g.Breaker.VolatilityThresholdBps,
		VolatilityWindowSlots:       g.Breaker.VolatilityWindowSlots,
		MinCoverageBps:              g.Breaker.MinCoverageBps,
		EmergencyGenesisWindowSlots: g.Breaker.EmergencyGenesisWindowSlots,
		Fees: market.FeeParams{
			FlashLoanFeeBps: g.Fees.FlashLoanFeeBps,
			KeeperRewardBps: g.Fees.KeeperRewardBps,
		},
	}
	return p, nil
}
