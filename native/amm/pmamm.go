package amm

import (
	"math"
	"math/bits"

	fperrors "versemarket/core/errors"
	"versemarket/core/fixedpoint"
	"versemarket/native/market"
)

// PMMaxIterations bounds the Newton–Raphson solver; spec requires
// convergence within 10 iterations, typically 4-5.
const PMMaxIterations = 10

// PMConvergenceEpsilon is the |F(x)| threshold below which the solver
// accepts x as converged.
const PMConvergenceEpsilon = 1e-8

// PMAMM prices 2..64-outcome proposals by solving the implicit equation
// F(x) = Σ exp(λ(x−qᵢ)) − C = 0 for the scalar x that clears a proposed
// trade, then scales prices by inventory-adjusted Φ table lookups.
type PMAMM struct {
	Tables *fixedpoint.Tables
}

var _ Pricer = PMAMM{}

func pmInitialGuess(q []float64, target float64) float64 {
	mean := 0.0
	for _, qi := range q {
		mean += qi
	}
	mean /= float64(len(q))
	// Leading-zero bit count of the (rounded, non-negative) target notional
	// seeds a coarse magnitude correction, per the solver's initial-guess
	// policy.
	magnitude := uint64(math.Abs(target)) + 1
	lz := bits.LeadingZeros64(magnitude)
	scale := float64(64-lz) / 8.0
	return mean + scale
}

// pmSolve runs Newton–Raphson on F(x) = Σ exp(λ(x−qᵢ)) − C = 0.
func pmSolve(q []float64, lambda, target float64) (float64, int, error) {
	x := pmInitialGuess(q, target)
	for iter := 1; iter <= PMMaxIterations; iter++ {
		f := -target
		fPrime := 0.0
		for _, qi := range q {
			e := math.Exp(lambda * (x - qi))
			f += e
			fPrime += lambda * e
		}
		if math.Abs(f) < PMConvergenceEpsilon {
			return x, iter, nil
		}
		if fPrime == 0 {
			return 0, iter, fperrors.ErrSolverDidNotConverge
		}
		x -= f / fPrime
	}
	return 0, PMMaxIterations, fperrors.ErrSolverDidNotConverge
}

func (m PMAMM) quoteOrTrade(p *market.Proposal, req TradeRequest, apply bool) (TradeResult, error) {
	n := p.NumOutcomes
	if n < 2 || n > 64 {
		return TradeResult{}, fperrors.ErrInvalidOutcomeShape
	}
	if req.Outcome < 0 || req.Outcome >= n {
		return TradeResult{}, fperrors.ErrInvalidInput
	}
	if m.Tables == nil || !m.Tables.Populated() {
		return TradeResult{}, fperrors.ErrTableNotPopulated
	}
	lambda := p.LiquidityParam.Float64()
	if lambda <= 0 {
		return TradeResult{}, fperrors.ErrInvalidInput
	}
	q := toFloats(p.Quantities)

	delta := req.Amount.Float64()
	if req.Side == SideShort {
		delta = -delta
	}
	newQ := append([]float64(nil), q...)
	newQ[req.Outcome] += delta

	// C is the partition value Σ exp(λ·qᵢ) of the post-trade quantity
	// vector, held fixed while solving so the clearing x reprices every
	// outcome consistently.
	target := 0.0
	for _, qi := range newQ {
		target += math.Exp(lambda * qi)
	}

	x, _, err := pmSolve(newQ, lambda, target)
	if err != nil {
		return TradeResult{}, err
	}

	// Inventory-adjusted pricing: z=(y−x)/(λ√τ); each outcome's base price
	// is scaled by the table value Φ(z). The density φ(z) is not used. τ is
	// fixed at 1.0 (one settlement horizon unit) for a spot trade quote.
	tau := 1.0
	denom := lambda * math.Sqrt(tau)

	exps := make([]float64, n)
	sumExp := 0.0
	for i, qi := range newQ {
		exps[i] = math.Exp(lambda * (x - qi))
		sumExp += exps[i]
	}

	newPricesF := make([]float64, n)
	for i := range newPricesF {
		base := exps[i] / sumExp
		z := (newQ[i] - x) / denom
		cdf, err := m.Tables.CDF(z)
		if err != nil {
			return TradeResult{}, err
		}
		newPricesF[i] = base * cdf
	}
	sum := 0.0
	for _, pr := range newPricesF {
		sum += pr
	}
	if sum <= 0 {
		return TradeResult{}, fperrors.ErrInvalidProbabilities
	}
	for i := range newPricesF {
		newPricesF[i] /= sum
	}

	newPrices := make([]fixedpoint.U6464, n)
	for i, pr := range newPricesF {
		fp, err := floatToFixed(pr)
		if err != nil {
			return TradeResult{}, err
		}
		newPrices[i] = fp
	}

	if apply {
		p.Prices = newPrices
		newQuantities := make([]fixedpoint.U6464, n)
		for i, qv := range newQ {
			fp, err := floatToFixed(qv)
			if err != nil {
				return TradeResult{}, err
			}
			newQuantities[i] = fp
		}
		p.Quantities = newQuantities
	}

	costDelta, err := floatToFixed(math.Abs(newQ[req.Outcome] - q[req.Outcome]))
	if err != nil {
		return TradeResult{}, err
	}

	return TradeResult{NewPrices: newPrices, CostDelta: costDelta, EntryPrice: newPrices[req.Outcome]}, nil
}

// Quote implements Pricer.
func (m PMAMM) Quote(p *market.Proposal, req TradeRequest) (TradeResult, error) {
	return m.quoteOrTrade(p, req, false)
}

// Trade implements Pricer.
func (m PMAMM) Trade(p *market.Proposal, req TradeRequest) (TradeResult, error) {
	return m.quoteOrTrade(p, req, true)
}

// InvariantCheck implements Pricer.
func (PMAMM) InvariantCheck(p *market.Proposal) error {
	sum := sumPrices(p.Prices).Float64()
	if math.Abs(sum-1) > ProbabilitySumEpsilon {
		return fperrors.ErrInvalidProbabilities
	}
	return nil
}
