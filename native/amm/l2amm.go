package amm

import (
	"math"

	fperrors "versemarket/core/errors"
	"versemarket/core/fixedpoint"
	"versemarket/native/market"
)

// L2NormScale is the constant multiplying liquidity_depth to derive the
// target L2 norm k = 100000·liquidity_depth.
const L2NormScale = 100000.0

// L2TargetError is the Richardson-extrapolated error bound Simpson
// integration must satisfy; the trade is rejected if it is exceeded.
const L2TargetError = 1e-6

// L2MinPoints is the minimum (even) number of Simpson integration points.
const L2MinPoints = 10

// L2AMM prices continuous/range proposals under an L2-norm constraint
// ‖f‖₂ = k, with payoff clipped to min(λp, b) and λ re-solved iteratively to
// restore the norm after clipping.
type L2AMM struct{}

var _ Pricer = L2AMM{}

// simpsonIntegrate applies composite Simpson's rule to n+1 samples (n even,
// n ≥ L2MinPoints) spaced by h.
func simpsonIntegrate(values []float64, h float64) (float64, error) {
	n := len(values) - 1
	if n < L2MinPoints || n%2 != 0 {
		return 0, fperrors.ErrInvalidInput
	}
	sum := values[0] + values[n]
	for i := 1; i < n; i++ {
		switch {
		case i%2 == 1:
			sum += 4 * values[i]
		default:
			sum += 2 * values[i]
		}
	}
	return sum * h / 3, nil
}

// sampleSquared resamples f^2 onto n+1 evenly spaced points over [0,1].
func sampleSquared(f []float64, n int) []float64 {
	out := make([]float64, n+1)
	step := float64(len(f)-1) / float64(n)
	for i := range out {
		pos := float64(i) * step
		lo := int(pos)
		if lo >= len(f)-1 {
			lo = len(f) - 2
		}
		frac := pos - float64(lo)
		v := f[lo] + frac*(f[lo+1]-f[lo])
		out[i] = v * v
	}
	return out
}

// l2Norm computes ‖f‖₂ over [0,1] via 10- and 20-point Simpson integration,
// Richardson-extrapolated, rejecting if the estimated error exceeds
// L2TargetError.
func l2Norm(f []float64) (float64, error) {
	coarse, err := simpsonIntegrate(sampleSquared(f, L2MinPoints), 1.0/L2MinPoints)
	if err != nil {
		return 0, err
	}
	fine, err := simpsonIntegrate(sampleSquared(f, 2*L2MinPoints), 1.0/(2*L2MinPoints))
	if err != nil {
		return 0, err
	}
	extrapolated := fine + (fine-coarse)/15 // Simpson error scales as h^4: 2^4-1=15
	if math.Abs(extrapolated-fine) > L2TargetError*math.Max(1, math.Abs(extrapolated)) {
		return 0, fperrors.ErrSolverDidNotConverge
	}
	if extrapolated < 0 {
		extrapolated = 0
	}
	return math.Sqrt(extrapolated), nil
}

func clip(f []float64, lambda, bound float64) []float64 {
	out := make([]float64, len(f))
	for i, v := range f {
		out[i] = math.Min(lambda*v, bound)
	}
	return out
}

// restoreNorm iteratively adjusts lambda so that ‖clip(λp,b)‖₂ = k,
// bisecting on lambda since the clipped norm is monotone non-decreasing in
// lambda for non-negative p.
func restoreNorm(p []float64, bound, target float64) (float64, []float64, error) {
	lo, hi := 0.0, 1.0
	for i := 0; i < 64; i++ {
		clipped := clip(p, hi, bound)
		norm, err := l2Norm(clipped)
		if err != nil {
			return 0, nil, err
		}
		if norm >= target {
			break
		}
		hi *= 2
		if i == 63 {
			return 0, nil, fperrors.ErrSolverDidNotConverge
		}
	}
	var mid float64
	var clipped []float64
	for iter := 0; iter < PMMaxIterations; iter++ {
		mid = (lo + hi) / 2
		clipped = clip(p, mid, bound)
		norm, err := l2Norm(clipped)
		if err != nil {
			return 0, nil, err
		}
		if math.Abs(norm-target) < L2TargetError*math.Max(1, target) {
			return mid, clipped, nil
		}
		if norm < target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return mid, clipped, nil
}

func (L2AMM) quoteOrTrade(p *market.Proposal, req TradeRequest, apply bool) (TradeResult, error) {
	if p.Shape != market.ShapeContinuousRange {
		return TradeResult{}, fperrors.ErrInvalidOutcomeShape
	}
	if len(p.Prices) < L2MinPoints+1 {
		return TradeResult{}, fperrors.ErrInvalidInput
	}
	if req.Outcome < 0 || req.Outcome >= len(p.Prices) {
		return TradeResult{}, fperrors.ErrInvalidInput
	}

	depth := p.LiquidityParam.Float64()
	if depth <= 0 {
		return TradeResult{}, fperrors.ErrInvalidInput
	}
	target := L2NormScale * depth
	bound := depth // max f ≤ b enforced by clipping; b derives from liquidity depth

	base := toFloats(p.Prices)
	delta := req.Amount.Float64()
	if req.Side == SideShort {
		delta = -delta
	}
	shifted := append([]float64(nil), base...)
	shifted[req.Outcome] += delta
	for i, v := range shifted {
		if v < 0 {
			shifted[i] = 0
		}
	}

	_, clipped, err := restoreNorm(shifted, bound, target)
	if err != nil {
		return TradeResult{}, err
	}

	sum := 0.0
	for _, v := range clipped {
		sum += v
	}
	if sum <= 0 {
		return TradeResult{}, fperrors.ErrInvalidProbabilities
	}
	newPrices := make([]fixedpoint.U6464, len(clipped))
	for i, v := range clipped {
		fp, err := floatToFixed(v / sum)
		if err != nil {
			return TradeResult{}, err
		}
		newPrices[i] = fp
	}

	if apply {
		p.Prices = newPrices
	}

	costDelta, err := floatToFixed(math.Abs(delta))
	if err != nil {
		return TradeResult{}, err
	}

	return TradeResult{NewPrices: newPrices, CostDelta: costDelta, EntryPrice: newPrices[req.Outcome]}, nil
}

// Quote implements Pricer.
func (l L2AMM) Quote(p *market.Proposal, req TradeRequest) (TradeResult, error) {
	return l.quoteOrTrade(p, req, false)
}

// Trade implements Pricer.
func (l L2AMM) Trade(p *market.Proposal, req TradeRequest) (TradeResult, error) {
	return l.quoteOrTrade(p, req, true)
}

// InvariantCheck implements Pricer.
func (L2AMM) InvariantCheck(p *market.Proposal) error {
	sum := sumPrices(p.Prices).Float64()
	if math.Abs(sum-1) > ProbabilitySumEpsilon {
		return fperrors.ErrInvalidProbabilities
	}
	return nil
}
