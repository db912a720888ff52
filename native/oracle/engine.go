package oracle

import (
	"golang.org/x/time/rate"

	fperrors "versemarket/core/errors"
	"versemarket/core/events"
	"versemarket/core/fixedpoint"
	common "versemarket/native/common"
	"versemarket/native/market"
	"versemarket/native/safety"
	"versemarket/observability"
)

// ModuleName identifies this engine to the pause-gate interface.
const ModuleName = "oracle"

// StalenessSlots bounds how far behind current slot a pushed sample's
// source_slot may be: 100 slots, ~5 minutes at 3s/slot.
const StalenessSlots = 100

// DefaultMinConfidenceBps is the minimum attestation confidence accepted.
// Confidence below this gates acceptance only; it never feeds the
// manipulation score, which is derived purely from price history.
const DefaultMinConfidenceBps = 5000

// Engine validates and ingests oracle price pushes, one per proposal,
// throttled by a token-bucket limiter so a misbehaving feed cannot flood the
// clamp/flash-loan gates with samples.
type Engine struct {
	market  MarketState
	pauses  common.PauseView
	emitter events.Emitter
	limiter *rate.Limiter

	clampBpsPerSlot   uint32
	flashThresholdBps uint32
	flashWindowSlots  int
	minConfidenceBps  uint32
}

// NewEngine constructs an Engine with the default gate parameters and an
// unthrottled limiter; call SetLimiter to install a real rate cap.
func NewEngine() *Engine {
	return &Engine{
		emitter:           events.NoopEmitter{},
		clampBpsPerSlot:   safety.DefaultClampBpsPerSlot,
		flashThresholdBps: safety.DefaultFlashLoanThresholdBps,
		flashWindowSlots:  safety.DefaultFlashLoanWindowSlots,
		minConfidenceBps:  DefaultMinConfidenceBps,
	}
}

// SetMarket injects the proposal/price-cache store.
func (e *Engine) SetMarket(m MarketState) { e.market = m }

// SetPauses injects the pause-gate view.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetEmitter injects the event sink.
func (e *Engine) SetEmitter(em events.Emitter) {
	if em == nil {
		em = events.NoopEmitter{}
	}
	e.emitter = em
}

// SetLimiter installs a token-bucket rate limiter bounding how often
// PushPrice accepts a sample, independent of the feed's own cadence.
func (e *Engine) SetLimiter(l *rate.Limiter) { e.limiter = l }

func (e *Engine) guard() error {
	return common.Guard(e.pauses, ModuleName)
}

// PushPriceRequest is one oracle ingest call.
type PushPriceRequest struct {
	ProposalID    string
	Outcome       int
	PriceFP       fixedpoint.U6464
	ConfidenceBps uint32
	SourceSlot    uint64
	CurrentSlot   uint64
}

// PushPrice validates staleness and confidence, runs the price-clamp and
// flash-loan safety gates, and on acceptance updates the proposal's price
// and price-cache/history.
func (e *Engine) PushPrice(req PushPriceRequest) error {
	if err := e.guard(); err != nil {
		return err
	}
	if e.limiter != nil && !e.limiter.Allow() {
		observability.Oracle().RecordRejected(req.ProposalID, "rate_limited")
		return fperrors.ErrIngestRateLimited
	}
	if req.CurrentSlot < req.SourceSlot {
		observability.Oracle().RecordRejected(req.ProposalID, "invalid_input")
		return fperrors.ErrInvalidInput
	}
	if req.CurrentSlot-req.SourceSlot > StalenessSlots {
		observability.Oracle().RecordRejected(req.ProposalID, "stale")
		return fperrors.ErrStalePrice
	}
	if req.ConfidenceBps < e.minConfidenceBps {
		observability.Oracle().RecordRejected(req.ProposalID, "low_confidence")
		return fperrors.ErrLowConfidence
	}

	proposal, ok, err := e.market.GetProposal(req.ProposalID)
	if err != nil {
		return err
	}
	if !ok {
		return fperrors.ErrInvalidInput
	}
	if proposal.Status != market.ProposalOpen {
		observability.Oracle().RecordRejected(req.ProposalID, "wrong_status")
		return fperrors.ErrWrongStatus
	}
	if req.Outcome < 0 || req.Outcome >= len(proposal.Prices) {
		return fperrors.ErrInvalidInput
	}

	cache, ok, err := e.market.GetPriceCache(req.ProposalID)
	if err != nil {
		return err
	}
	if !ok {
		cache = &market.PriceCache{ProposalID: req.ProposalID, LastPrice: fixedpoint.Zero6464()}
	}

	if cache.LastUpdateSlot > 0 {
		if err := safety.CheckClamp(cache.LastPrice, cache.LastUpdateSlot, req.PriceFP, req.CurrentSlot, e.clampBpsPerSlot); err != nil {
			e.emitter.Emit(events.NewMarketHalted(req.ProposalID, req.CurrentSlot, "price_clamp"))
			observability.Oracle().RecordRejected(req.ProposalID, "price_clamp")
			proposal.Status = market.ProposalHalted
			_ = e.market.PutProposal(proposal)
			return err
		}
	}

	candidateSamples := append(append([]market.PriceSample{}, cache.Samples...), market.PriceSample{Slot: req.CurrentSlot, Price: req.PriceFP})
	halt, err := safety.CheckFlashLoan(candidateSamples, e.flashWindowSlots, e.flashThresholdBps)
	if err != nil {
		return err
	}
	if halt {
		proposal.Status = market.ProposalHalted
		if err := e.market.PutProposal(proposal); err != nil {
			return err
		}
		e.emitter.Emit(events.NewMarketHalted(req.ProposalID, req.CurrentSlot, "flash_loan"))
		e.emitter.Emit(events.NewCircuitBreakerTriggered("flash_loan", req.ProposalID, req.CurrentSlot))
		observability.Oracle().RecordRejected(req.ProposalID, "flash_loan")
		return fperrors.ErrFlashLoanWindow
	}

	cache.LastPrice = req.PriceFP
	cache.LastUpdateSlot = req.CurrentSlot
	cache.Samples = appendBounded(candidateSamples, e.flashWindowSlots*4)
	if err := e.market.PutPriceCache(cache); err != nil {
		return err
	}

	proposal.Prices[req.Outcome] = req.PriceFP
	proposal.LastSlotUpdated = req.CurrentSlot
	proposal.PriceHistory = appendHistoryBounded(proposal.PriceHistory, market.PricePoint{Slot: req.CurrentSlot, Price: req.PriceFP}, market.PriceHistoryWindow)
	if err := e.market.PutProposal(proposal); err != nil {
		return err
	}

	observability.Oracle().RecordAccepted(req.ProposalID)
	if score := safety.ManipulationScore(historyFloats(proposal.PriceHistory)); safety.Alerts(score) {
		e.emitter.Emit(events.NewManipulationAlert(req.ProposalID, score, req.CurrentSlot))
		observability.Oracle().SetManipulationScore(req.ProposalID, score)
	}
	return nil
}

func appendBounded(samples []market.PriceSample, max int) []market.PriceSample {
	if len(samples) <= max {
		return samples
	}
	return samples[len(samples)-max:]
}

func appendHistoryBounded(history []market.PricePoint, point market.PricePoint, max int) []market.PricePoint {
	history = append(history, point)
	if len(history) <= max {
		return history
	}
	return history[len(history)-max:]
}

func historyFloats(history []market.PricePoint) []float64 {
	out := make([]float64, len(history))
	for i, p := range history {
		out[i] = p.Price.Float64()
	}
	return out
}
