package config

import (
	"versemarket/native/market"
	"versemarket/native/safety"
)

// LeverageConfig holds the chain engine's composition limits.
type LeverageConfig struct {
	MinSteps             int `toml:"min_steps"`
	MaxSteps             int `toml:"max_steps"`
	MaxEffectiveLeverage int `toml:"max_effective_leverage"`
	FlashLoanFeeBps      int `toml:"flash_loan_fee_bps"`
	PostBorrowCooldown   int `toml:"post_borrow_cooldown_slots"`
	// CoverageTiers maps vault/open-interest coverage (bps of 1.0) to the
	// maximum leverage a chain may compose at that coverage band.
	CoverageTiers []market.CoverageLeverageTier `toml:"coverage_tiers"`
}

// SafetyConfig holds the oracle ingest and manipulation-detection gates.
type SafetyConfig struct {
	ClampBpsPerSlot        uint32 `toml:"clamp_bps_per_slot"`
	FlashLoanWindowSlots   int    `toml:"flash_loan_window_slots"`
	FlashLoanThresholdBps  uint32 `toml:"flash_loan_threshold_bps"`
	MinConfidenceBps       uint32 `toml:"min_confidence_bps"`
	StalenessSlots         uint64 `toml:"staleness_slots"`
	IngestRateLimitPerSlot int    `toml:"ingest_rate_limit_per_slot"`
}

// BreakerConfig holds the circuit breaker's trip thresholds.
type BreakerConfig struct {
	VolatilityThresholdBps      uint32 `toml:"volatility_threshold_bps"`
	VolatilityWindowSlots       int    `toml:"volatility_window_slots"`
	MinCoverageBps              uint32 `toml:"min_coverage_bps"`
	EmergencyGenesisWindowSlots uint64 `toml:"emergency_genesis_window_slots"`
}

// FeesConfig holds the fee basis-point parameters GlobalConfig owns at init.
type FeesConfig struct {
	FlashLoanFeeBps uint32 `toml:"flash_loan_fee_bps"`
	KeeperRewardBps uint32 `toml:"keeper_reward_bps"`
}

// Global is the set of validated business-rule parameters governing the
// native engines: leverage limits, safety gates, breaker thresholds, and
// genesis fee schedule. It is distinct from Config, which holds bootstrap
// knobs (data directory, admin listen address, keys) that never need
// domain validation.
type Global struct {
	Leverage LeverageConfig `toml:"leverage"`
	Safety   SafetyConfig   `toml:"safety"`
	Breaker  BreakerConfig  `toml:"breaker"`
	Fees     FeesConfig     `toml:"fees"`
}

// defaultGlobal returns the canonical parameter set, matching the constants
// hard-coded across native/chain, native/safety, and native/breaker.
func defaultGlobal() Global {
	return Global{
		Leverage: LeverageConfig{
			MinSteps:             2,
			MaxSteps:             5,
			MaxEffectiveLeverage: 500,
			FlashLoanFeeBps:      200,
			PostBorrowCooldown:   2,
			CoverageTiers:        append([]market.CoverageLeverageTier(nil), market.DefaultCoverageLeverageTiers...),
		},
		Safety: SafetyConfig{
			ClampBpsPerSlot:        safety.DefaultClampBpsPerSlot,
			FlashLoanWindowSlots:   safety.DefaultFlashLoanWindowSlots,
			FlashLoanThresholdBps:  safety.DefaultFlashLoanThresholdBps,
			MinConfidenceBps:       5000,
			StalenessSlots:         100,
			IngestRateLimitPerSlot: 1,
		},
		Breaker: BreakerConfig{
			VolatilityThresholdBps:      500,
			VolatilityWindowSlots:       4,
			MinCoverageBps:              10000,
			EmergencyGenesisWindowSlots: 28800,
		},
		Fees: FeesConfig{
			FlashLoanFeeBps: 200,
			KeeperRewardBps: 50,
		},
	}
}
