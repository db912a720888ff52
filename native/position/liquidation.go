package position

import (
	"math/big"
	"strconv"

	fperrors "versemarket/core/errors"
	"versemarket/core/events"
	"versemarket/core/fixedpoint"
	"versemarket/observability"
)

// Liquidate performs graduated partial (or full) liquidation based on the
// position's current health factor, rejecting a second attempt within the
// 10-slot grace period following a prior liquidation on the same position.
func (e *Engine) Liquidate(positionID string, currentSlot uint64, keeperAddress string, coverageBps uint32, maintenanceMarginBps uint32) (*Position, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	p, ok, err := e.state.GetPosition(positionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fperrors.ErrInvalidInput
	}
	if p.Status == StatusClosed || p.Status == StatusLiquidated {
		return nil, fperrors.ErrWrongStatus
	}
	if p.HasLiquidated && currentSlot-p.LastLiquidationSlot < LiquidationGraceSlots {
		return nil, fperrors.ErrLiquidationInGrace
	}

	hf, err := HealthFactorBps(p, coverageBps, maintenanceMarginBps)
	if err != nil {
		return nil, err
	}
	p.HealthFactorBps = hf
	band, hit := BandFor(hf, nil)
	if !hit {
		if err := e.state.PutPosition(p); err != nil {
			return nil, err
		}
		return p, nil
	}

	pct, err := fixedpoint.NewU6464FromRat(big.NewRat(int64(band.LiquidatePct), 100))
	if err != nil {
		return nil, err
	}
	liquidatedSize, err := p.Size.Mul(pct)
	if err != nil {
		return nil, err
	}
	remaining, err := p.Size.Sub(liquidatedSize)
	if err != nil {
		remaining = fixedpoint.Zero6464()
	}

	liquidatedCollateral, err := p.Collateral.Mul(pct)
	if err != nil {
		return nil, err
	}
	if _, err := e.credits.Release(p.User, p.VerseID, p.ID); err != nil {
		return nil, err
	}

	if band.LiquidatePct >= 100 {
		p.Status = StatusLiquidated
		p.Size = fixedpoint.Zero6464()
		p.Collateral = fixedpoint.Zero6464()
	} else {
		p.Status = StatusPartiallyLiquidated
		p.Size = remaining
		remainingCollateral, err := p.Collateral.Sub(liquidatedCollateral)
		if err != nil {
			remainingCollateral = fixedpoint.Zero6464()
		}
		p.Collateral = remainingCollateral
		if _, err := e.credits.Lock(p.User, p.VerseID, p.ID, p.Collateral); err != nil {
			return nil, err
		}
	}
	p.LastLiquidationSlot = currentSlot
	p.HasLiquidated = true

	if err := e.state.PutPosition(p); err != nil {
		return nil, err
	}
	if err := e.adjustOpenInterest(liquidatedSize, false); err != nil {
		return nil, err
	}

	keeperReward, err := liquidatedCollateral.Mul(bpsToFixed(KeeperRewardBps))
	if err == nil && keeperAddress != "" {
		e.emitter.Emit(events.NewKeeperRewardAccrued(p.ID, keeperAddress, keeperReward.Rat().FloatString(18), currentSlot))
		if err := e.accrueKeeperReward(keeperAddress, currentSlot, keeperReward); err != nil {
			return nil, err
		}
	}
	e.emitter.Emit(events.NewPositionLiquidated(p.ID, band.LiquidatePct, p.Size.Rat().FloatString(18), keeperAddress, currentSlot))
	observability.Position().RecordLiquidation(p.VerseID, strconv.Itoa(band.LiquidatePct)+"pct")
	return p, nil
}
