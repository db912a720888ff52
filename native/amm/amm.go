// Package amm implements the three pluggable pricing engines (LMSR, PM-AMM,
// L2-AMM) and the deterministic selector between them. All three are
// expressed as a capability set {Quote, Trade, InvariantCheck} against a
// tagged variant, never as a runtime inheritance hierarchy, per the design
// notes.
package amm

import (
	"versemarket/core/fixedpoint"
	"versemarket/native/market"
)

// Side is the direction of a trade against an outcome.
type Side int

const (
	SideLong Side = iota
	SideShort
)

// TradeRequest describes a proposed trade against one outcome of a proposal.
type TradeRequest struct {
	Outcome int
	Side    Side
	Amount  fixedpoint.U6464 // notional size of the trade
}

// TradeResult is the outcome of a successful Quote or Trade call.
type TradeResult struct {
	NewPrices  []fixedpoint.U6464
	CostDelta  fixedpoint.U6464
	EntryPrice fixedpoint.U6464
}

// Pricer is the capability set every AMM variant implements.
type Pricer interface {
	// Quote computes the trade's effect without mutating the proposal.
	Quote(p *market.Proposal, req TradeRequest) (TradeResult, error)
	// Trade computes and applies the trade's effect, replacing p.Prices (and,
	// for LMSR and PM-AMM, p.Quantities).
	Trade(p *market.Proposal, req TradeRequest) (TradeResult, error)
	// InvariantCheck verifies Σ prices = 1 ± ε.
	InvariantCheck(p *market.Proposal) error
}

// ProbabilitySumEpsilon bounds the allowed deviation of Σ prices from 1.
const ProbabilitySumEpsilon = 1e-6

func sumPrices(prices []fixedpoint.U6464) fixedpoint.U6464 {
	sum := fixedpoint.Zero6464()
	for _, p := range prices {
		sum = sum.SaturatingAdd(p)
	}
	return sum
}
