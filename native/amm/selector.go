package amm

import (
	fperrors "versemarket/core/errors"
	"versemarket/core/fixedpoint"
	"versemarket/native/market"
)

// NearSettleSlots is the "1 day" threshold (in slots) within which the
// selector forces PM-AMM regardless of outcome count, since LMSR's
// scoring-rule cost surface and L2-AMM's continuous constraint both degrade
// near expiry while PM-AMM's implicit solver stays well-conditioned.
const NearSettleSlots = 28800 // ~1 day at 3s/slot

// Select deterministically maps a proposal's outcome shape and
// time-to-settle to an AMM kind. There is no caller override.
func Select(p *market.Proposal, currentSlot uint64, tables *fixedpoint.Tables) (Pricer, market.AMMKind, error) {
	if p.SettleSlot > currentSlot && p.SettleSlot-currentSlot <= NearSettleSlots {
		return PMAMM{Tables: tables}, market.AMMPMAMM, nil
	}
	switch p.Shape {
	case market.ShapeBinary:
		return LMSR{}, market.AMMLMSR, nil
	case market.ShapeDiscrete:
		if p.NumOutcomes < 2 || p.NumOutcomes > 64 {
			return nil, market.AMMUnset, fperrors.ErrInvalidOutcomeShape
		}
		return PMAMM{Tables: tables}, market.AMMPMAMM, nil
	case market.ShapeContinuousRange:
		return L2AMM{}, market.AMML2AMM, nil
	default:
		return nil, market.AMMUnset, fperrors.ErrInvalidOutcomeShape
	}
}

// AssignAMM runs Select and stamps the resulting AMM kind onto the proposal.
func AssignAMM(p *market.Proposal, currentSlot uint64, tables *fixedpoint.Tables) (Pricer, error) {
	pricer, kind, err := Select(p, currentSlot, tables)
	if err != nil {
		return nil, err
	}
	p.AMM = kind
	return pricer, nil
}
