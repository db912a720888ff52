package chain

import (
	fperrors "versemarket/core/errors"
	"versemarket/core/events"
	"versemarket/core/fixedpoint"
	common "versemarket/native/common"
	"versemarket/observability"
)

// ModuleName identifies this engine to the pause-gate interface.
const ModuleName = "chain"

// Engine composes 2..5 Borrow/Liquidity/Stake steps into one atomic
// transaction: cycle-checked and leverage-capped before any step runs, then
// executed step by step with a pre-image snapshot taken before each step so
// a mid-chain failure can be unwound in strict reverse order.
type Engine struct {
	state   State
	credits CreditPort
	pauses  common.PauseView
	emitter events.Emitter
}

// NewEngine constructs an Engine with a no-op emitter; call the Setters
// before use.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState injects the chain store.
func (e *Engine) SetState(s State) { e.state = s }

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

type stepTarget struct {
	kind   StepKind
	target string
}

// detectCycle rejects a chain that revisits the same (kind, target) pair,
// per the example sequence [Borrow(t), Stake(t), Borrow(t)] being rejected
// for re-targeting an already-affected primitive.
func detectCycle(steps []StepRequest) bool {
	seen := make(map[stepTarget]bool, len(steps))
	for _, s := range steps {
		key := stepTarget{s.Kind, s.Target}
		if seen[key] {
			return true
		}
		seen[key] = true
	}
	return false
}

// effectiveLeverage compounds each step's per-step multiplier.
func effectiveLeverage(steps []StepRequest) (fixedpoint.U6464, error) {
	total, err := fixedpoint.NewU6464FromInt64(1)
	if err != nil {
		return fixedpoint.U6464{}, err
	}
	for _, s := range steps {
		total, err = total.Mul(s.Multiplier)
		if err != nil {
			return fixedpoint.U6464{}, err
		}
	}
	return total, nil
}

// Compose validates step count, cycle-freedom, and leverage cap, and returns
// a new chain in the Preparing status. It does not yet touch credits.
func (e *Engine) Compose(id, user, verseID string, steps []StepRequest, coverageCapLeverage int) (*Chain, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if len(steps) < MinSteps || len(steps) > MaxSteps {
		return nil, fperrors.ErrTooManySteps
	}
	if detectCycle(steps) {
		return nil, fperrors.ErrChainCycle
	}
	leverage, err := effectiveLeverage(steps)
	if err != nil {
		return nil, err
	}
	leverageCap := MaxEffectiveLeverage
	if coverageCapLeverage > 0 && coverageCapLeverage < leverageCap {
		leverageCap = coverageCapLeverage
	}
	capFP, err := fixedpoint.NewU6464FromInt64(int64(leverageCap))
	if err != nil {
		return nil, err
	}
	if leverage.Cmp(capFP) > 0 {
		return nil, fperrors.ErrExceedsVerseLimit
	}

	steplist := make([]Step, len(steps))
	for i, s := range steps {
		steplist[i] = Step{Kind: s.Kind, Target: s.Target, Multiplier: s.Multiplier, Notional: s.Notional, Slot: s.Slot, FeeCharged: fixedpoint.Zero6464()}
	}
	c := &Chain{
		ID:                id,
		User:              user,
		VerseID:           verseID,
		Steps:             steplist,
		EffectiveLeverage: leverage,
		Status:            StatusPreparing,
	}
	if err := e.state.PutChain(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Execute runs a Preparing chain's steps in order. Each Borrow step charges
// a flash-loan fee and starts a cooldown; any non-Borrow step attempted
// before the cooldown elapses, or any step that otherwise fails, triggers a strict-reverse
// rollback of every step executed so far.
func (e *Engine) Execute(chainID string, currentSlot uint64) (*Chain, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	c, ok, err := e.state.GetChain(chainID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fperrors.ErrInvalidInput
	}
	if c.Status != StatusPreparing {
		return nil, fperrors.ErrWrongStatus
	}
	c.Status = StatusActive
	e.emitter.Emit(events.NewChainTransactionBegun(c.ID, len(c.Steps), currentSlot))

	var lastBorrowSlot uint64
	var haveBorrowed bool
	for i := range c.Steps {
		step := &c.Steps[i]
		if haveBorrowed && step.Kind != StepBorrow && step.Slot < lastBorrowSlot+PostBorrowCooldownSlots {
			return e.rollback(c, i, fperrors.ErrTooEarly, currentSlot)
		}

		snap, snapErr := e.snapshot(c.User, c.VerseID)
		if snapErr != nil {
			return e.rollback(c, i, snapErr, currentSlot)
		}
		step.PreImage = snap

		lockKey := stepLockKey(c.ID, i)
		notional := step.Notional
		if step.Kind == StepBorrow {
			fee, feeErr := notional.Mul(bpsToFixed(FlashLoanFeeBps))
			if feeErr != nil {
				return e.rollback(c, i, feeErr, currentSlot)
			}
			step.FeeCharged = fee
			lastBorrowSlot = step.Slot
			haveBorrowed = true
		}
		if _, lockErr := e.credits.Lock(c.User, c.VerseID, lockKey, notional); lockErr != nil {
			return e.rollback(c, i, lockErr, currentSlot)
		}
		if step.FeeCharged.Cmp(fixedpoint.Zero6464()) > 0 {
			if _, applyErr := e.credits.ApplyPnL(c.User, c.VerseID, step.FeeCharged, false); applyErr != nil {
				return e.rollback(c, i, applyErr, currentSlot)
			}
		}
		step.Executed = true
		c.StepsCompleted = i + 1
		if err := e.state.PutChain(c); err != nil {
			return nil, err
		}
	}

	c.Status = StatusCompleted
	if err := e.state.PutChain(c); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.NewChainTransactionCompleted(c.ID, c.EffectiveLeverage.Rat().FloatString(18), currentSlot))
	observability.Chain().RecordCompleted(c.VerseID, c.EffectiveLeverage.Float64())
	return c, nil
}

// UnwindStalled deferred-unwinds a chain left in StatusActive by an
// interrupted Execute — a halt engaged mid-chain, or a process restart
// between steps. It deliberately bypasses the pause guard: this is the
// admin action a halt defers to, so it must still run while the system is
// halted.
func (e *Engine) UnwindStalled(chainID string, currentSlot uint64) (*Chain, error) {
	c, ok, err := e.state.GetChain(chainID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fperrors.ErrInvalidInput
	}
	if c.Status != StatusActive {
		return nil, fperrors.ErrWrongStatus
	}
	unwound, err := e.rollback(c, c.StepsCompleted-1, fperrors.ErrSystemHalted, currentSlot)
	if unwound == nil {
		return nil, err
	}
	return unwound, nil
}

func stepLockKey(chainID string, index int) string {
	return chainID + "#" + itoa(index)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

func (e *Engine) snapshot(user, verseID string) (PreImage, error) {
	c, ok, err := e.credits.GetUserCredits(user, verseID)
	if err != nil {
		return PreImage{}, err
	}
	if !ok {
		return PreImage{Available: fixedpoint.Zero6464(), Locked: fixedpoint.Zero6464(), Total: fixedpoint.Zero6464()}, nil
	}
	return PreImage{Available: c.AvailableCredits, Locked: c.LockedCredits, Total: c.TotalDeposit}, nil
}

// rollback unwinds every executed step in strict reverse order by releasing
// its lock (and crediting back any flash-loan fee charged), then marks the
// chain RolledBack.
func (e *Engine) rollback(c *Chain, failedAt int, cause error, currentSlot uint64) (*Chain, error) {
	c.Status = StatusUnwinding
	for i := failedAt; i >= 0; i-- {
		step := &c.Steps[i]
		if !step.Executed {
			continue
		}
		lockKey := stepLockKey(c.ID, i)
		if _, err := e.credits.Release(c.User, c.VerseID, lockKey); err != nil {
			continue
		}
		if step.FeeCharged.Cmp(fixedpoint.Zero6464()) > 0 {
			if _, err := e.credits.ApplyPnL(c.User, c.VerseID, step.FeeCharged, true); err != nil {
				continue
			}
		}
		step.Executed = false
	}
	c.Status = StatusRolledBack
	c.StepsCompleted = 0
	if err := e.state.PutChain(c); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.NewChainTransactionRolledBack(c.ID, failedAt, cause.Error(), currentSlot))
	observability.Chain().RecordRollback(c.VerseID, c.Steps[failedAt].Kind.String())
	return c, cause
}
