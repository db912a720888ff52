package credit

import (
	"versemarket/core/errors"
	"versemarket/core/events"
	"versemarket/core/fixedpoint"
	common "versemarket/native/common"
	"versemarket/native/market"
)

// ModuleName identifies this engine to the pause-gate interface.
const ModuleName = "credit"

// Engine implements deposit, lock, release, and refund_at_settle over a
// per-(user,verse) UserCredits ledger, permitting superposed locks against
// conflicting outcomes of the same proposal so long as the sum of locks
// never exceeds the user's total deposit.
type Engine struct {
	state   State
	vault   VaultTracker
	pauses  common.PauseView
	emitter events.Emitter
}

// NewEngine constructs an Engine with a no-op emitter; call SetState and
// SetEmitter before use.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState injects the persistence layer.
func (e *Engine) SetState(s State) { e.state = s }

// SetPauses injects the pause-gate view.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetMarket injects the GlobalConfig vault tracker. Optional: when unset,
// deposits and refunds affect only the per-user ledger.
func (e *Engine) SetMarket(v VaultTracker) { e.vault = v }

// adjustVault moves GlobalConfig.TotalVault by delta (positive on deposit,
// negative on refund) and recomputes Coverage from the new total. A missing
// GlobalConfig record (not yet initialized) is not an error here: vault
// tracking is best-effort until InitGlobalConfig has run.
func (e *Engine) adjustVault(delta fixedpoint.U6464, credit bool) error {
	if e.vault == nil {
		return nil
	}
	cfg, ok, err := e.vault.GetGlobalConfig()
	if err != nil || !ok {
		return err
	}
	var next fixedpoint.U6464
	if credit {
		next, err = cfg.TotalVault.Add(delta)
	} else {
		next, err = cfg.TotalVault.Sub(delta)
	}
	if err != nil {
		return err
	}
	cfg.TotalVault = next
	if err := market.RecomputeCoverage(cfg); err != nil {
		return err
	}
	return e.vault.PutGlobalConfig(cfg)
}

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

func (e *Engine) getOrCreate(user, verseID string) (*UserCredits, error) {
	c, ok, err := e.state.GetUserCredits(user, verseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		c = newUserCredits(user, verseID)
	}
	return c, nil
}

// Deposit converts collateral into credits exactly 1:1, incrementing both
// total_deposit and available_credits.
func (e *Engine) Deposit(user, verseID string, amount fixedpoint.U6464) (*UserCredits, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	c, err := e.getOrCreate(user, verseID)
	if err != nil {
		return nil, err
	}
	total, err := c.TotalDeposit.Add(amount)
	if err != nil {
		return nil, err
	}
	available, err := c.AvailableCredits.Add(amount)
	if err != nil {
		return nil, err
	}
	c.TotalDeposit = total
	c.AvailableCredits = available
	if err := e.state.PutUserCredits(c); err != nil {
		return nil, err
	}
	if err := e.adjustVault(amount, true); err != nil {
		return nil, err
	}
	return c, nil
}

// Lock reserves margin against a position id, requiring available ≥ margin.
// Superposition is permitted: two positions on conflicting outcomes of the
// same proposal may each lock a portion of the same pool so long as the sum
// of locks never exceeds total_deposit.
func (e *Engine) Lock(user, verseID, positionID string, margin fixedpoint.U6464) (*UserCredits, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	c, err := e.getOrCreate(user, verseID)
	if err != nil {
		return nil, err
	}
	if c.AvailableCredits.Cmp(margin) < 0 {
		return nil, errors.ErrInsufficientFunds
	}
	available, err := c.AvailableCredits.Sub(margin)
	if err != nil {
		return nil, err
	}
	locked, err := c.LockedCredits.Add(margin)
	if err != nil {
		return nil, err
	}
	c.AvailableCredits = available
	c.LockedCredits = locked
	existing, ok := c.Locks[positionID]
	if !ok {
		existing = fixedpoint.Zero6464()
	}
	combined, err := existing.Add(margin)
	if err != nil {
		return nil, err
	}
	c.Locks[positionID] = combined
	c.ActivePositionCount++
	if err := e.state.PutUserCredits(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Release restores a position's locked margin back to available credits.
func (e *Engine) Release(user, verseID, positionID string) (*UserCredits, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	c, err := e.getOrCreate(user, verseID)
	if err != nil {
		return nil, err
	}
	margin, ok := c.Locks[positionID]
	if !ok {
		return c, nil
	}
	locked, err := c.LockedCredits.Sub(margin)
	if err != nil {
		return nil, err
	}
	available, err := c.AvailableCredits.Add(margin)
	if err != nil {
		return nil, err
	}
	c.LockedCredits = locked
	c.AvailableCredits = available
	delete(c.Locks, positionID)
	if c.ActivePositionCount > 0 {
		c.ActivePositionCount--
	}
	if err := e.state.PutUserCredits(c); err != nil {
		return nil, err
	}
	return c, nil
}

// RefundAtSettle transfers available credits back to the user atomically,
// without a claim action, once slot ≥ settleSlot and every position in the
// owning proposal is closed or collapsed.
func (e *Engine) RefundAtSettle(user, verseID string, slot, settleSlot uint64, allPositionsClosed bool) (fixedpoint.U6464, error) {
	if err := e.guard(); err != nil {
		return fixedpoint.U6464{}, err
	}
	c, ok, err := e.state.GetUserCredits(user, verseID)
	if err != nil {
		return fixedpoint.U6464{}, err
	}
	if !ok {
		return fixedpoint.U6464{}, errors.ErrNoCreditsToRefund
	}
	if slot < settleSlot {
		return fixedpoint.U6464{}, errors.ErrTooEarlyForRefund
	}
	if !allPositionsClosed {
		return fixedpoint.U6464{}, errors.ErrActivePositionsExist
	}
	if !c.RefundEligible && c.ActivePositionCount > 0 {
		return fixedpoint.U6464{}, errors.ErrNotEligibleForRefund
	}
	amount := c.AvailableCredits
	if amount.Cmp(fixedpoint.Zero6464()) == 0 {
		return fixedpoint.U6464{}, errors.ErrNoCreditsToRefund
	}
	c.AvailableCredits = fixedpoint.Zero6464()
	c.LockedCredits = fixedpoint.Zero6464()
	c.TotalDeposit = fixedpoint.Zero6464()
	c.RefundEligible = false
	if err := e.state.PutUserCredits(c); err != nil {
		return fixedpoint.U6464{}, err
	}
	if err := e.adjustVault(amount, false); err != nil {
		return fixedpoint.U6464{}, err
	}
	e.emitter.Emit(events.NewRefundProcessed(user, verseID, amount.Rat().FloatString(18), slot))
	return amount, nil
}

// RefundRequest is one entry in a batch refund call.
type RefundRequest struct {
	User       string
	VerseID    string
	SettleSlot uint64
	AllClosed  bool
}

// RefundResult is the per-entry outcome of a batch refund call.
type RefundResult struct {
	User    string
	VerseID string
	Amount  fixedpoint.U6464
	Err     error
}

// BatchRefund continues past individual failures and reports the aggregate
// outcome, per the batch refund failure-handling policy.
func (e *Engine) BatchRefund(requests []RefundRequest, slot uint64) []RefundResult {
	results := make([]RefundResult, 0, len(requests))
	for _, req := range requests {
		amount, err := e.RefundAtSettle(req.User, req.VerseID, slot, req.SettleSlot, req.AllClosed)
		results = append(results, RefundResult{User: req.User, VerseID: req.VerseID, Amount: amount, Err: err})
	}
	return results
}

// ApplyPnL settles a realized gain or loss against a user's available
// credits. Losses are clamped at zero available credits: a shortfall beyond
// available funds is the position engine's liquidation concern, not the
// credit manager's.
func (e *Engine) ApplyPnL(user, verseID string, amount fixedpoint.U6464, gain bool) (*UserCredits, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	c, err := e.getOrCreate(user, verseID)
	if err != nil {
		return nil, err
	}
	if gain {
		available, err := c.AvailableCredits.Add(amount)
		if err != nil {
			return nil, err
		}
		total, err := c.TotalDeposit.Add(amount)
		if err != nil {
			return nil, err
		}
		c.AvailableCredits = available
		c.TotalDeposit = total
	} else {
		if c.AvailableCredits.Cmp(amount) < 0 {
			amount = c.AvailableCredits
		}
		available, err := c.AvailableCredits.Sub(amount)
		if err != nil {
			return nil, err
		}
		total, err := c.TotalDeposit.Sub(amount)
		if err != nil {
			return nil, err
		}
		c.AvailableCredits = available
		c.TotalDeposit = total
	}
	if err := e.state.PutUserCredits(c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetUserCredits exposes a read-only view of a user's credit ledger for
// callers that need a pre-image snapshot (e.g. the chain engine's rollback
// bookkeeping) without mutating state.
func (e *Engine) GetUserCredits(user, verseID string) (*UserCredits, bool, error) {
	return e.state.GetUserCredits(user, verseID)
}

// MarkRefundEligible flags a user's credits as eligible once settlement has
// collapsed the owning proposal, for callers that do not yet have a
// proposal-scoped "all positions closed" signal at call time.
func (e *Engine) MarkRefundEligible(user, verseID string) error {
	if err := e.guard(); err != nil {
		return err
	}
	c, err := e.getOrCreate(user, verseID)
	if err != nil {
		return err
	}
	c.RefundEligible = true
	return e.state.PutUserCredits(c)
}
