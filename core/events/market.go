package events

import (
	"strconv"

	"versemarket/core/types"

	"github.com/google/uuid"
)

// MarketHalted fires when the flash-loan or manipulation safety gate forces
// a proposal to Halted.
type MarketHalted struct {
	ID         string
	ProposalID string
	Slot       uint64
	Reason     string
}

// EventType implements Event.
func (MarketHalted) EventType() string { return "MarketHalted" }

// Event renders the typed event into the generic wire representation.
func (e MarketHalted) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Slot: e.Slot,
		Attributes: map[string]string{
			"id":          e.ID,
			"proposal_id": e.ProposalID,
			"slot":        strconv.FormatUint(e.Slot, 10),
			"reason":      e.Reason,
		},
	}
}

// NewMarketHalted stamps a fresh event id.
func NewMarketHalted(proposalID string, slot uint64, reason string) MarketHalted {
	return MarketHalted{ID: uuid.NewString(), ProposalID: proposalID, Slot: slot, Reason: reason}
}

// MarketCollapsed fires exactly once per proposal, at settlement.
type MarketCollapsed struct {
	ID          string
	ProposalID  string
	Winner      int
	Probability string // decimal string rendering of the winning probability
	Kind        string // "scheduled" or "emergency"
	Slot        uint64
}

// EventType implements Event.
func (MarketCollapsed) EventType() string { return "MarketCollapsed" }

// Event renders the typed event into the generic wire representation.
func (e MarketCollapsed) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Slot: e.Slot,
		Attributes: map[string]string{
			"id":          e.ID,
			"proposal_id": e.ProposalID,
			"winner":      strconv.Itoa(e.Winner),
			"probability": e.Probability,
			"kind":        e.Kind,
			"slot":        strconv.FormatUint(e.Slot, 10),
		},
	}
}

// NewMarketCollapsed stamps a fresh event id.
func NewMarketCollapsed(proposalID string, winner int, probability, kind string, slot uint64) MarketCollapsed {
	return MarketCollapsed{ID: uuid.NewString(), ProposalID: proposalID, Winner: winner, Probability: probability, Kind: kind, Slot: slot}
}

// CircuitBreakerTriggered fires when a global halt condition trips.
type CircuitBreakerTriggered struct {
	ID     string
	Kind   string
	Slot   uint64
	Detail string
}

// EventType implements Event.
func (CircuitBreakerTriggered) EventType() string { return "CircuitBreakerTriggered" }

// Event renders the typed event into the generic wire representation.
func (e CircuitBreakerTriggered) Event() *types.Event {
	attrs := map[string]string{
		"id":   e.ID,
		"kind": e.Kind,
		"slot": strconv.FormatUint(e.Slot, 10),
	}
	if e.Detail != "" {
		attrs["detail"] = e.Detail
	}
	return &types.Event{Type: e.EventType(), Slot: e.Slot, Attributes: attrs}
}

// NewCircuitBreakerTriggered stamps a fresh event id.
func NewCircuitBreakerTriggered(kind, detail string, slot uint64) CircuitBreakerTriggered {
	return CircuitBreakerTriggered{ID: uuid.NewString(), Kind: kind, Detail: detail, Slot: slot}
}

// ManipulationAlert surfaces the optional manipulation z-score without
// halting the market on its own.
type ManipulationAlert struct {
	ID         string
	ProposalID string
	Score      int
	Slot       uint64
}

// EventType implements Event.
func (ManipulationAlert) EventType() string { return "ManipulationAlert" }

// Event renders the typed event into the generic wire representation.
func (e ManipulationAlert) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Slot: e.Slot,
		Attributes: map[string]string{
			"id":          e.ID,
			"proposal_id": e.ProposalID,
			"score":       strconv.Itoa(e.Score),
			"slot":        strconv.FormatUint(e.Slot, 10),
		},
	}
}

// NewManipulationAlert stamps a fresh event id.
func NewManipulationAlert(proposalID string, score int, slot uint64) ManipulationAlert {
	return ManipulationAlert{ID: uuid.NewString(), ProposalID: proposalID, Score: score, Slot: slot}
}
