package position

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	fperrors "versemarket/core/errors"
	"versemarket/core/events"
	"versemarket/core/fixedpoint"
	"versemarket/native/amm"
	common "versemarket/native/common"
	"versemarket/native/market"
	"versemarket/observability"
)

// ModuleName identifies this engine to the pause-gate interface.
const ModuleName = "position"

// Engine implements open/close/modify and graduated liquidation over
// Position records, driving the credit manager for margin accounting and
// the AMM selector for entry/exit pricing.
type Engine struct {
	state   State
	market  MarketState
	credits CreditLocker
	tables  *fixedpoint.Tables
	pauses  common.PauseView
	emitter events.Emitter
	rewards KeeperRewardStore
}

// NewEngine constructs an Engine with a no-op emitter; call the Setters
// before use.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState injects the position store.
func (e *Engine) SetState(s State) { e.state = s }

// SetMarket injects the verse/proposal/global-config reader.
func (e *Engine) SetMarket(m MarketState) { e.market = m }

// SetCredits injects the credit manager driver.
func (e *Engine) SetCredits(c CreditLocker) { e.credits = c }

// SetTables injects the Φ/φ/erf tables used by the AMM selector.
func (e *Engine) SetTables(t *fixedpoint.Tables) { e.tables = t }

// SetPauses injects the pause-gate view.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetKeeperRewards injects the keeper reward ledger. Left nil, liquidations
// still emit KeeperRewardAccrued events but no running counter is kept.
func (e *Engine) SetKeeperRewards(r KeeperRewardStore) { e.rewards = r }

// SetEmitter injects the event sink.
func (e *Engine) SetEmitter(em events.Emitter) {
	if em == nil {
		em = events.NoopEmitter{}
	}
	e.emitter = em
}

func (e *Engine) guard() error {
	return common.Guard(e.pauses, ModuleName)
}

// derivePositionID mirrors the teacher's deterministic trade-id derivation:
// Keccak256 over the defining tuple plus a caller-supplied nonce.
func derivePositionID(user, verseID, proposalID string, outcome int, nonce uint64) string {
	preimage := fmt.Sprintf("%s|%s|%s|%d|%d", user, verseID, proposalID, outcome, nonce)
	hash := ethcrypto.Keccak256Hash([]byte(preimage))
	return hash.Hex()
}

// OpenRequest bundles the inputs to Open.
type OpenRequest struct {
	User        string
	VerseID     string
	ProposalID  string
	Outcome     int
	Side        amm.Side
	Amount      fixedpoint.U6464
	Leverage    int
	CurrentSlot uint64
	Nonce       uint64
	Tier        RiskTier
}

// Open validates preconditions, prices the entry via the selected AMM,
// locks margin, and records a new Position.
func (e *Engine) Open(req OpenRequest) (*Position, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if req.Leverage < 1 || req.Leverage > MaxDirectLeverage {
		return nil, fperrors.ErrExceedsLeverage
	}
	verse, ok, err := e.market.GetVerse(req.VerseID)
	if err != nil {
		return nil, err
	}
	if !ok || verse.Status != market.VerseActive {
		return nil, fperrors.ErrWrongStatus
	}
	proposal, ok, err := e.market.GetProposal(req.ProposalID)
	if err != nil {
		return nil, err
	}
	if !ok || proposal.Status != market.ProposalOpen {
		return nil, fperrors.ErrWrongStatus
	}

	tier := req.Tier
	if tier.MaxLeverage == 0 {
		tier = DefaultRiskTier
	}
	leverageCap := tier.MaxLeverage
	if cfg, ok, err := e.market.GetGlobalConfig(); err == nil && ok {
		coverageBps := uint32(cfg.Coverage.Float64() * 10000)
		if coverageCap := market.MaxLeverageForCoverage(coverageBps, nil); coverageCap < leverageCap {
			leverageCap = coverageCap
		}
	}
	if req.Leverage > leverageCap {
		return nil, fperrors.ErrExceedsLeverage
	}

	open, err := e.state.ListOpenPositions(req.User, req.VerseID)
	if err != nil {
		return nil, err
	}
	if len(open) >= MaxOpenPositionsPerUserVerse {
		return nil, fperrors.ErrExceedsPositions
	}

	pricer, _, err := amm.Select(proposal, req.CurrentSlot, e.tables)
	if err != nil {
		return nil, err
	}
	result, err := pricer.Trade(proposal, amm.TradeRequest{Outcome: req.Outcome, Side: req.Side, Amount: req.Amount})
	if err != nil {
		return nil, err
	}
	if err := e.market.PutProposal(proposal); err != nil {
		return nil, err
	}

	leverageFP, err := fixedpoint.NewU6464FromInt64(int64(req.Leverage))
	if err != nil {
		return nil, err
	}
	size, err := req.Amount.Mul(leverageFP)
	if err != nil {
		return nil, err
	}

	id := derivePositionID(req.User, req.VerseID, req.ProposalID, req.Outcome, req.Nonce)
	if _, err := e.credits.Lock(req.User, req.VerseID, id, req.Amount); err != nil {
		return nil, err
	}

	p := &Position{
		ID:         id,
		User:       req.User,
		VerseID:    req.VerseID,
		ProposalID: req.ProposalID,
		Outcome:    req.Outcome,
		Side:       req.Side,
		Size:       size,
		Leverage:   req.Leverage,
		EntryPrice: result.EntryPrice,
		Collateral: req.Amount,
		UnrealizedPnL: fixedpoint.Zero6464(),
		Status:     StatusOpen,
		OpenedSlot: req.CurrentSlot,
	}
	if err := e.state.PutPosition(p); err != nil {
		return nil, err
	}
	if err := e.adjustOpenInterest(size, true); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.NewPositionOpened(id, req.User, req.ProposalID, req.Outcome, sideString(req.Side), size.Rat().FloatString(18), req.Leverage, result.EntryPrice.Rat().FloatString(18), req.CurrentSlot))
	observability.Position().RecordOpen(req.VerseID)
	return p, nil
}

// adjustOpenInterest moves GlobalConfig.TotalOI by delta (added on open,
// removed on close/full liquidation) and recomputes Coverage from the new
// total. A missing GlobalConfig record is not an error: open interest
// tracking is best-effort until InitGlobalConfig has run.
func (e *Engine) adjustOpenInterest(delta fixedpoint.U6464, add bool) error {
	cfg, ok, err := e.market.GetGlobalConfig()
	if err != nil || !ok {
		return err
	}
	var next fixedpoint.U6464
	if add {
		next, err = cfg.TotalOI.Add(delta)
	} else {
		next, err = cfg.TotalOI.Sub(delta)
	}
	if err != nil {
		return err
	}
	cfg.TotalOI = next
	if err := market.RecomputeCoverage(cfg); err != nil {
		return err
	}
	return e.market.PutGlobalConfig(cfg)
}

func sideString(s amm.Side) string {
	if s == amm.SideShort {
		return "short"
	}
	return "long"
}

// computePnL returns the signed notional PnL of a position against a quoted
// exit price.
func computePnL(p *Position, exitPrice fixedpoint.U6464) (amount fixedpoint.U6464, gain bool, err error) {
	var diff fixedpoint.U6464
	var positiveForLong bool
	if exitPrice.Cmp(p.EntryPrice) >= 0 {
		diff, err = exitPrice.Sub(p.EntryPrice)
		positiveForLong = true
	} else {
		diff, err = p.EntryPrice.Sub(exitPrice)
		positiveForLong = false
	}
	if err != nil {
		return fixedpoint.U6464{}, false, err
	}
	gain = positiveForLong == (p.Side == amm.SideLong)
	notionalMove, err := diff.Mul(p.Size)
	if err != nil {
		return fixedpoint.U6464{}, false, err
	}
	priceScaled, err := notionalMove.Div(p.EntryPrice)
	if err != nil {
		return fixedpoint.U6464{}, false, err
	}
	return priceScaled, gain, nil
}

// Close fully exits a position, quoting via the same AMM, realizing PnL
// against locked credits, and releasing the margin.
func (e *Engine) Close(positionID string, currentSlot uint64) (*Position, error) {
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
	proposal, ok, err := e.market.GetProposal(p.ProposalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fperrors.ErrInvalidInput
	}

	exitSide := amm.SideShort
	if p.Side == amm.SideShort {
		exitSide = amm.SideLong
	}
	pricer, _, err := amm.Select(proposal, currentSlot, e.tables)
	if err != nil {
		return nil, err
	}
	result, err := pricer.Quote(proposal, amm.TradeRequest{Outcome: p.Outcome, Side: exitSide, Amount: p.Size})
	if err != nil {
		return nil, err
	}

	pnl, gain, err := computePnL(p, result.EntryPrice)
	if err != nil {
		return nil, err
	}
	if pnl.Cmp(fixedpoint.Zero6464()) != 0 {
		if _, err := e.credits.ApplyPnL(p.User, p.VerseID, pnl, gain); err != nil {
			return nil, err
		}
	}
	if _, err := e.credits.Release(p.User, p.VerseID, p.ID); err != nil {
		return nil, err
	}

	p.Status = StatusClosed
	p.UnrealizedPnL = fixedpoint.Zero6464()
	if err := e.state.PutPosition(p); err != nil {
		return nil, err
	}
	if err := e.adjustOpenInterest(p.Size, false); err != nil {
		return nil, err
	}

	sign := ""
	if !gain {
		sign = "-"
	}
	e.emitter.Emit(events.NewPositionClosed(p.ID, sign+pnl.Rat().FloatString(18), currentSlot))
	observability.Position().RecordClose(p.VerseID)
	return p, nil
}

// Modify re-quotes a position's mark-to-market PnL and health factor against
// the proposal's current price without closing it.
func (e *Engine) Modify(positionID string, currentSlot uint64, coverageBps uint32, maintenanceMarginBps uint32) (*Position, error) {
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
	proposal, ok, err := e.market.GetProposal(p.ProposalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fperrors.ErrInvalidInput
	}
	markPrice := proposal.Prices[p.Outcome]
	pnl, gain, err := computePnL(p, markPrice)
	if err != nil {
		return nil, err
	}
	p.UnrealizedPnL = pnl
	p.UnrealizedPnLNegative = !gain

	hf, err := HealthFactorBps(p, coverageBps, maintenanceMarginBps)
	if err != nil {
		return nil, err
	}
	p.HealthFactorBps = hf
	if err := e.state.PutPosition(p); err != nil {
		return nil, err
	}
	return p, nil
}

// HealthFactorBps computes the position's health factor in basis points of
// 1.0 (10000 = healthy), from vault coverage, unrealized PnL, and a
// maintenance margin requirement expressed in basis points of size.
func HealthFactorBps(p *Position, coverageBps uint32, maintenanceMarginBps uint32) (int64, error) {
	maintenance, err := p.Size.Mul(bpsToFixed(maintenanceMarginBps))
	if err != nil {
		return 0, err
	}
	if maintenance.Cmp(fixedpoint.Zero6464()) == 0 {
		return 10000, nil
	}
	equity := p.Collateral
	if p.UnrealizedPnLNegative {
		reduced, err := equity.Sub(p.UnrealizedPnL)
		if err != nil {
			equity = fixedpoint.Zero6464()
		} else {
			equity = reduced
		}
	} else {
		added, err := equity.Add(p.UnrealizedPnL)
		if err == nil {
			equity = added
		}
	}
	ratio := equity.Rat()
	ratio.Quo(ratio, maintenance.Rat())
	ratio.Mul(ratio, bigRat(10000))
	// Coverage below 1.0 proportionally tightens the health factor, so a
	// thinly covered vault liquidates positions earlier than their own PnL
	// alone would require.
	if coverageBps > 0 && coverageBps < 10000 {
		ratio.Mul(ratio, bigRat(int64(coverageBps)))
		ratio.Quo(ratio, bigRat(10000))
	}
	f, _ := ratio.Float64()
	return int64(f), nil
}
