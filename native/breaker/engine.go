package breaker

import (
	fperrors "versemarket/core/errors"
	"versemarket/core/events"
	"versemarket/observability"
)

// VolatilityThresholdBps is the cumulative price-move threshold over the
// trailing window that trips the breaker: 5%.
const VolatilityThresholdBps = 500

// VolatilityWindowSlots is the trailing window the volatility trigger
// evaluates over: 4 slots, matching the flash-loan window.
const VolatilityWindowSlots = 4

// MinCoverageBps is the minimum vault/open-interest coverage ratio below
// which the breaker trips: 1.0 (10000bps).
const MinCoverageBps = 10000

// EmergencyGenesisWindowSlots is the slot count from GenesisSlot during
// which any caller (not just the configured authority) may reset the
// breaker, covering the bootstrap period before an authority key is wired
// into deployment tooling.
const EmergencyGenesisWindowSlots = 28800

// Engine owns the global halt_flag: evaluating trip conditions, exposing it
// as a PauseView to every other native engine, and gating its reset behind
// the configured authority.
type Engine struct {
	market    MarketState
	authority string
	emitter   events.Emitter
}

// NewEngine constructs an Engine with a no-op emitter; call SetMarket and
// SetAuthority before use.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetMarket injects the global-config store.
func (e *Engine) SetMarket(m MarketState) { e.market = m }

// SetAuthority sets the address permitted to reset the breaker outside the
// emergency genesis window.
func (e *Engine) SetAuthority(addr string) { e.authority = addr }

// SetEmitter injects the event sink.
func (e *Engine) SetEmitter(em events.Emitter) {
	if em == nil {
		em = events.NoopEmitter{}
	}
	e.emitter = em
}

// IsPaused implements native/common.PauseView: the breaker gates every
// module uniformly through one global flag, independent of which module is
// asking.
func (e *Engine) IsPaused(_ string) bool {
	cfg, ok, err := e.market.GetGlobalConfig()
	if err != nil || !ok {
		return false
	}
	return cfg.HaltFlag
}

func (e *Engine) trip(kind, detail string, slot uint64) error {
	cfg, ok, err := e.market.GetGlobalConfig()
	if err != nil {
		return err
	}
	if !ok {
		return fperrors.ErrNotInitialized
	}
	if cfg.HaltFlag {
		return fperrors.ErrCircuitBreakerOpen
	}
	cfg.HaltFlag = true
	if err := e.market.PutGlobalConfig(cfg); err != nil {
		return err
	}
	e.emitter.Emit(events.NewCircuitBreakerTriggered(kind, detail, slot))
	observability.Breaker().RecordTrip(kind)
	observability.Breaker().SetHalted(true)
	return fperrors.ErrCircuitBreakerOpen
}

// EvaluateVolatility trips the breaker if the cumulative basis-point price
// move over the trailing window exceeds VolatilityThresholdBps.
func (e *Engine) EvaluateVolatility(cumulativeMoveBps uint32, slot uint64) error {
	if cumulativeMoveBps <= VolatilityThresholdBps {
		return nil
	}
	return e.trip("volatility", "", slot)
}

// EvaluateCoverage trips the breaker if vault coverage has fallen below
// MinCoverageBps (1.0).
func (e *Engine) EvaluateCoverage(coverageBps uint32, slot uint64) error {
	if coverageBps >= MinCoverageBps {
		return nil
	}
	return e.trip("coverage", "", slot)
}

// EvaluateLatency trips the breaker on an optional upstream latency signal
// (e.g. oracle feed staleness reported in milliseconds) exceeding maxMs.
func (e *Engine) EvaluateLatency(observedMs, maxMs uint32, slot uint64) error {
	if observedMs <= maxMs {
		return nil
	}
	return e.trip("latency", "", slot)
}

// Reset clears the halt flag. Outside the emergency genesis window, only the
// configured authority may reset; within it, any non-empty caller may.
func (e *Engine) Reset(caller string, currentSlot, genesisSlot uint64) error {
	cfg, ok, err := e.market.GetGlobalConfig()
	if err != nil {
		return err
	}
	if !ok {
		return fperrors.ErrNotInitialized
	}
	withinGenesisWindow := currentSlot <= genesisSlot || currentSlot-genesisSlot <= EmergencyGenesisWindowSlots
	if !withinGenesisWindow && caller != e.authority {
		return fperrors.ErrUnauthorized
	}
	if caller == "" {
		return fperrors.ErrUnauthorized
	}
	cfg.HaltFlag = false
	if err := e.market.PutGlobalConfig(cfg); err != nil {
		return err
	}
	observability.Breaker().SetHalted(false)
	return nil
}
