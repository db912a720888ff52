// Package position implements the position lifecycle: open/close/modify,
// health-factor computation, and graduated partial liquidation.
package position

import (
	"versemarket/core/fixedpoint"
	"versemarket/native/amm"
)

// Status is the position lifecycle state machine: Open →
// PartiallyLiquidated (stays open with reduced size) → … Closed | Liquidated.
// Transitions are monotone; re-opening requires a new position id.
type Status int

const (
	StatusOpen Status = iota
	StatusPartiallyLiquidated
	StatusClosed
	StatusLiquidated
)

// MaxOpenPositionsPerUserVerse bounds simultaneously open positions per
// (user, verse).
const MaxOpenPositionsPerUserVerse = 32

// MaxDirectLeverage is the highest leverage obtainable without chaining.
const MaxDirectLeverage = 100

// LiquidationGraceSlots is the cooldown between consecutive liquidations on
// the same position.
const LiquidationGraceSlots = 10

// KeeperRewardBps is the accounting-only keeper reward paid in collateral on
// each successful liquidation, partial or full: 0.5%.
const KeeperRewardBps = 50

// Position belongs to a (user, verse, proposal) and references them by id,
// never by ownership.
type Position struct {
	ID                  string
	User                string
	VerseID             string
	ProposalID          string
	Outcome             int
	Side                amm.Side
	Size                fixedpoint.U6464 // notional = collateral · leverage
	Leverage            int
	EntryPrice          fixedpoint.U6464
	Collateral           fixedpoint.U6464 // margin locked against the position
	UnrealizedPnL       fixedpoint.U6464
	UnrealizedPnLNegative bool
	HealthFactorBps     int64
	Status              Status
	OpenedSlot          uint64
	LastLiquidationSlot uint64
	HasLiquidated       bool
}

// RiskTier is the opaque risk-state the position engine consumes but does
// not own, per the risk-state external interface. Absent tiers default to
// 10x max leverage.
type RiskTier struct {
	MaxLeverage int
	QuizPassed  bool
}

// DefaultRiskTier is used when the caller supplies no risk-tier lookup.
var DefaultRiskTier = RiskTier{MaxLeverage: 10}

// LiquidationBand maps a health-factor ceiling (basis points, 10000=1.0) to
// the percentage of current size liquidated when the health factor is below
// it.
type LiquidationBand struct {
	MaxHealthFactorBps int64
	LiquidatePct        int
}

// DefaultLiquidationBands is the graduated 10/25/50/100% schedule.
var DefaultLiquidationBands = []LiquidationBand{
	{MaxHealthFactorBps: 10000, LiquidatePct: 10},
	{MaxHealthFactorBps: 7500, LiquidatePct: 25},
	{MaxHealthFactorBps: 5000, LiquidatePct: 50},
	{MaxHealthFactorBps: 2500, LiquidatePct: 100},
}

// BandFor returns the liquidation band a given health factor falls into, or
// false if the position is healthy (hf ≥ 10000).
func BandFor(hfBps int64, bands []LiquidationBand) (LiquidationBand, bool) {
	if bands == nil {
		bands = DefaultLiquidationBands
	}
	if hfBps >= 10000 {
		return LiquidationBand{}, false
	}
	best := bands[0]
	matched := false
	for _, b := range bands {
		if hfBps < b.MaxHealthFactorBps {
			best = b
			matched = true
		}
	}
	return best, matched
}
