package settlement

import (
	fperrors "versemarket/core/errors"
	"versemarket/core/events"
	"versemarket/core/fixedpoint"
	common "versemarket/native/common"
	"versemarket/native/market"
)

// ModuleName identifies this engine to the pause-gate interface.
const ModuleName = "settlement"

// Engine collapses proposals to a winning outcome and wires a proposal's
// users toward their credit refund.
type Engine struct {
	market  MarketState
	credits CreditPort
	pauses  common.PauseView
	emitter events.Emitter
}

// NewEngine constructs an Engine with a no-op emitter; call the Setters
// before use.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetMarket injects the proposal store.
func (e *Engine) SetMarket(m MarketState) { e.market = m }

// SetCredits injects the credit manager driver.
func (e *Engine) SetCredits(c CreditPort) { e.credits = c }

// SetPauses injects the pause-gate view.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

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

// winningOutcome returns the highest-probability outcome, breaking ties by
// the lowest outcome index.
func winningOutcome(prices []fixedpoint.U6464) int {
	winner := 0
	for i := 1; i < len(prices); i++ {
		if prices[i].Cmp(prices[winner]) > 0 {
			winner = i
		}
	}
	return winner
}

// Collapse settles a proposal at its scheduled slot, or earlier under an
// emergency trigger. It is idempotent: re-triggering an already-settled
// proposal returns its recorded outcome without emitting a second event.
func (e *Engine) Collapse(proposalID string, currentSlot uint64, emergency bool) (*market.Proposal, int, error) {
	if err := e.guard(); err != nil {
		return nil, 0, err
	}
	p, ok, err := e.market.GetProposal(proposalID)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, fperrors.ErrInvalidInput
	}
	if p.Status == market.ProposalSettled {
		return p, winningOutcome(p.Prices), nil
	}
	if p.Status == market.ProposalHalted {
		return nil, 0, fperrors.ErrWrongStatus
	}
	if !emergency && currentSlot < p.SettleSlot {
		return nil, 0, fperrors.ErrTooEarly
	}

	winner := winningOutcome(p.Prices)
	p.Status = market.ProposalSettled
	p.LastSlotUpdated = currentSlot
	if err := e.market.PutProposal(p); err != nil {
		return nil, 0, err
	}

	kind := "scheduled"
	if emergency {
		kind = "emergency"
	}
	e.emitter.Emit(events.NewMarketCollapsed(proposalID, winner, p.Prices[winner].Rat().FloatString(18), kind, currentSlot))
	return p, winner, nil
}

// RefundUser marks one user's credits against a settled proposal's verse as
// refund-eligible. Callers enumerate the proposal's position holders and
// call this once per user; it is independent per user, so a failure for one
// does not block the others.
func (e *Engine) RefundUser(proposalID, user string) error {
	if err := e.guard(); err != nil {
		return err
	}
	p, ok, err := e.market.GetProposal(proposalID)
	if err != nil {
		return err
	}
	if !ok {
		return fperrors.ErrInvalidInput
	}
	if p.Status != market.ProposalSettled {
		return fperrors.ErrWrongStatus
	}
	return e.credits.MarkRefundEligible(user, p.VerseID)
}
