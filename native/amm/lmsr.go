package amm

import (
	"math"
	"math/big"

	fperrors "versemarket/core/errors"
	"versemarket/core/fixedpoint"
	"versemarket/native/market"
)

// LMSR implements the logarithmic market scoring rule for binary proposals:
// cost(q0,q1,b) = b·ln(e^{q0/b}+e^{q1/b}); price_i = e^{qi/b}/Σe^{qj/b}.
type LMSR struct{}

var _ Pricer = LMSR{}

func lmsrCost(q []float64, b float64) float64 {
	maxExp := q[0] / b
	for _, qi := range q[1:] {
		if e := qi / b; e > maxExp {
			maxExp = e
		}
	}
	sum := 0.0
	for _, qi := range q {
		sum += math.Exp(qi/b - maxExp)
	}
	return b * (maxExp + math.Log(sum))
}

func lmsrPrices(q []float64, b float64) []float64 {
	maxExp := q[0] / b
	for _, qi := range q[1:] {
		if e := qi / b; e > maxExp {
			maxExp = e
		}
	}
	exps := make([]float64, len(q))
	sum := 0.0
	for i, qi := range q {
		exps[i] = math.Exp(qi/b - maxExp)
		sum += exps[i]
	}
	prices := make([]float64, len(q))
	for i := range prices {
		prices[i] = exps[i] / sum
	}
	return prices
}

func toFloats(vals []fixedpoint.U6464) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = v.Float64()
	}
	return out
}

func floatToFixed(f float64) (fixedpoint.U6464, error) {
	if f < 0 {
		f = 0
	}
	r := new(big.Rat).SetFloat64(f)
	if r == nil {
		return fixedpoint.U6464{}, fperrors.ErrInvalidInput
	}
	return fixedpoint.NewU6464FromRat(r)
}

func (LMSR) quoteOrTrade(p *market.Proposal, req TradeRequest, apply bool) (TradeResult, error) {
	if p.Shape != market.ShapeBinary || p.NumOutcomes != 2 {
		return TradeResult{}, fperrors.ErrInvalidOutcomeShape
	}
	if req.Outcome < 0 || req.Outcome > 1 {
		return TradeResult{}, fperrors.ErrInvalidInput
	}
	b := p.LiquidityParam.Float64()
	if b <= 0 {
		return TradeResult{}, fperrors.ErrInvalidInput
	}
	q := toFloats(p.Quantities)
	oldCost := lmsrCost(q, b)

	delta := req.Amount.Float64()
	if req.Side == SideShort {
		delta = -delta
	}
	newQ := append([]float64(nil), q...)
	newQ[req.Outcome] += delta

	newCost := lmsrCost(newQ, b)
	newPricesF := lmsrPrices(newQ, b)

	sum := 0.0
	for _, pr := range newPricesF {
		sum += pr
	}
	if math.Abs(sum-1) > ProbabilitySumEpsilon {
		return TradeResult{}, fperrors.ErrInvalidProbabilities
	}

	newPrices := make([]fixedpoint.U6464, len(newPricesF))
	for i, pr := range newPricesF {
		fp, err := floatToFixed(pr)
		if err != nil {
			return TradeResult{}, err
		}
		newPrices[i] = fp
	}
	costDelta, err := floatToFixed(math.Abs(newCost - oldCost))
	if err != nil {
		return TradeResult{}, err
	}

	if apply {
		p.Prices = newPrices
		newQuantities := make([]fixedpoint.U6464, len(newQ))
		for i, qv := range newQ {
			fp, err := floatToFixed(qv)
			if err != nil {
				return TradeResult{}, err
			}
			newQuantities[i] = fp
		}
		p.Quantities = newQuantities
	}

	return TradeResult{NewPrices: newPrices, CostDelta: costDelta, EntryPrice: newPrices[req.Outcome]}, nil
}

// Quote implements Pricer.
func (l LMSR) Quote(p *market.Proposal, req TradeRequest) (TradeResult, error) {
	return l.quoteOrTrade(p, req, false)
}

// Trade implements Pricer.
func (l LMSR) Trade(p *market.Proposal, req TradeRequest) (TradeResult, error) {
	return l.quoteOrTrade(p, req, true)
}

// InvariantCheck implements Pricer.
func (LMSR) InvariantCheck(p *market.Proposal) error {
	sum := sumPrices(p.Prices).Float64()
	if math.Abs(sum-1) > ProbabilitySumEpsilon {
		return fperrors.ErrInvalidProbabilities
	}
	return nil
}
