package events

import (
	"strconv"

	"versemarket/core/types"

	"github.com/google/uuid"
)

// ChainTransactionBegun fires when a chain moves Preparing → Active.
type ChainTransactionBegun struct {
	ID      string
	ChainID string
	Steps   int
	Slot    uint64
}

// EventType implements Event.
func (ChainTransactionBegun) EventType() string { return "ChainTransactionBegun" }

// Event renders the typed event into the generic wire representation.
func (e ChainTransactionBegun) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Slot: e.Slot,
		Attributes: map[string]string{
			"id":       e.ID,
			"chain_id": e.ChainID,
			"steps":    strconv.Itoa(e.Steps),
			"slot":     strconv.FormatUint(e.Slot, 10),
		},
	}
}

// NewChainTransactionBegun stamps a fresh event id.
func NewChainTransactionBegun(chainID string, steps int, slot uint64) ChainTransactionBegun {
	return ChainTransactionBegun{ID: uuid.NewString(), ChainID: chainID, Steps: steps, Slot: slot}
}

// ChainTransactionCompleted fires when every step of a chain has executed.
type ChainTransactionCompleted struct {
	ID               string
	ChainID          string
	EffectiveLeverage string
	Slot             uint64
}

// EventType implements Event.
func (ChainTransactionCompleted) EventType() string { return "ChainTransactionCompleted" }

// Event renders the typed event into the generic wire representation.
func (e ChainTransactionCompleted) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Slot: e.Slot,
		Attributes: map[string]string{
			"id":                 e.ID,
			"chain_id":           e.ChainID,
			"effective_leverage": e.EffectiveLeverage,
			"slot":               strconv.FormatUint(e.Slot, 10),
		},
	}
}

// NewChainTransactionCompleted stamps a fresh event id.
func NewChainTransactionCompleted(chainID, effectiveLeverage string, slot uint64) ChainTransactionCompleted {
	return ChainTransactionCompleted{ID: uuid.NewString(), ChainID: chainID, EffectiveLeverage: effectiveLeverage, Slot: slot}
}

// ChainTransactionRolledBack fires when any step fails and the chain unwinds
// in strict reverse.
type ChainTransactionRolledBack struct {
	ID          string
	ChainID     string
	FailedStep  int
	Reason      string
	Slot        uint64
}

// EventType implements Event.
func (ChainTransactionRolledBack) EventType() string { return "ChainTransactionRolledBack" }

// Event renders the typed event into the generic wire representation.
func (e ChainTransactionRolledBack) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Slot: e.Slot,
		Attributes: map[string]string{
			"id":          e.ID,
			"chain_id":    e.ChainID,
			"failed_step": strconv.Itoa(e.FailedStep),
			"reason":      e.Reason,
			"slot":        strconv.FormatUint(e.Slot, 10),
		},
	}
}

// NewChainTransactionRolledBack stamps a fresh event id.
func NewChainTransactionRolledBack(chainID string, failedStep int, reason string, slot uint64) ChainTransactionRolledBack {
	return ChainTransactionRolledBack{ID: uuid.NewString(), ChainID: chainID, FailedStep: failedStep, Reason: reason, Slot: slot}
}
