package events

import (
	"strconv"

	"versemarket/core/types"

	"github.com/google/uuid"
)

// PositionOpened fires when the position engine opens a new position.
type PositionOpened struct {
	ID         string
	PositionID string
	User       string
	ProposalID string
	Outcome    int
	Side       string
	Size       string
	Leverage   int
	EntryPrice string
	Slot       uint64
}

// EventType implements Event.
func (PositionOpened) EventType() string { return "PositionOpened" }

// Event renders the typed event into the generic wire representation.
func (e PositionOpened) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Slot: e.Slot,
		Attributes: map[string]string{
			"id":          e.ID,
			"position_id": e.PositionID,
			"user":        e.User,
			"proposal_id": e.ProposalID,
			"outcome":     strconv.Itoa(e.Outcome),
			"side":        e.Side,
			"size":        e.Size,
			"leverage":    strconv.Itoa(e.Leverage),
			"entry_price": e.EntryPrice,
			"slot":        strconv.FormatUint(e.Slot, 10),
		},
	}
}

// NewPositionOpened stamps a fresh event id.
func NewPositionOpened(positionID, user, proposalID string, outcome int, side, size string, leverage int, entryPrice string, slot uint64) PositionOpened {
	return PositionOpened{ID: uuid.NewString(), PositionID: positionID, User: user, ProposalID: proposalID, Outcome: outcome, Side: side, Size: size, Leverage: leverage, EntryPrice: entryPrice, Slot: slot}
}

// PositionClosed fires on a full close, with realized PnL.
type PositionClosed struct {
	ID         string
	PositionID string
	RealizedPnL string
	Slot       uint64
}

// EventType implements Event.
func (PositionClosed) EventType() string { return "PositionClosed" }

// Event renders the typed event into the generic wire representation.
func (e PositionClosed) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Slot: e.Slot,
		Attributes: map[string]string{
			"id":           e.ID,
			"position_id":  e.PositionID,
			"realized_pnl": e.RealizedPnL,
			"slot":         strconv.FormatUint(e.Slot, 10),
		},
	}
}

// NewPositionClosed stamps a fresh event id.
func NewPositionClosed(positionID, realizedPnL string, slot uint64) PositionClosed {
	return PositionClosed{ID: uuid.NewString(), PositionID: positionID, RealizedPnL: realizedPnL, Slot: slot}
}

// PositionLiquidated fires on each partial or full liquidation.
type PositionLiquidated struct {
	ID             string
	PositionID     string
	LiquidatedPct  int // 10, 25, 50, or 100
	RemainingSize  string
	KeeperAddress  string
	Slot           uint64
}

// EventType implements Event.
func (PositionLiquidated) EventType() string { return "PositionLiquidated" }

// Event renders the typed event into the generic wire representation.
func (e PositionLiquidated) Event() *types.Event {
	attrs := map[string]string{
		"id":             e.ID,
		"position_id":    e.PositionID,
		"liquidated_pct": strconv.Itoa(e.LiquidatedPct),
		"remaining_size": e.RemainingSize,
		"slot":           strconv.FormatUint(e.Slot, 10),
	}
	if e.KeeperAddress != "" {
		attrs["keeper"] = e.KeeperAddress
	}
	return &types.Event{Type: e.EventType(), Slot: e.Slot, Attributes: attrs}
}

// NewPositionLiquidated stamps a fresh event id.
func NewPositionLiquidated(positionID string, pct int, remainingSize, keeper string, slot uint64) PositionLiquidated {
	return PositionLiquidated{ID: uuid.NewString(), PositionID: positionID, LiquidatedPct: pct, RemainingSize: remainingSize, KeeperAddress: keeper, Slot: slot}
}

// KeeperRewardAccrued is an accounting-only record of a keeper's earned
// reward share; the core never executes the payout itself.
type KeeperRewardAccrued struct {
	ID            string
	PositionID    string
	KeeperAddress string
	Amount        string
	Slot          uint64
}

// EventType implements Event.
func (KeeperRewardAccrued) EventType() string { return "KeeperRewardAccrued" }

// Event renders the typed event into the generic wire representation.
func (e KeeperRewardAccrued) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Slot: e.Slot,
		Attributes: map[string]string{
			"id":          e.ID,
			"position_id": e.PositionID,
			"keeper":      e.KeeperAddress,
			"amount":      e.Amount,
			"slot":        strconv.FormatUint(e.Slot, 10),
		},
	}
}

// NewKeeperRewardAccrued stamps a fresh event id.
func NewKeeperRewardAccrued(positionID, keeper, amount string, slot uint64) KeeperRewardAccrued {
	return KeeperRewardAccrued{ID: uuid.NewString(), PositionID: positionID, KeeperAddress: keeper, Amount: amount, Slot: slot}
}

// RefundProcessed fires when a user's available credits are transferred back
// atomically at or after settlement.
type RefundProcessed struct {
	ID      string
	User    string
	VerseID string
	Amount  string
	Slot    uint64
}

// EventType implements Event.
func (RefundProcessed) EventType() string { return "RefundProcessed" }

// Event renders the typed event into the generic wire representation.
func (e RefundProcessed) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Slot: e.Slot,
		Attributes: map[string]string{
			"id":       e.ID,
			"user":     e.User,
			"verse_id": e.VerseID,
			"amount":   e.Amount,
			"slot":     strconv.FormatUint(e.Slot, 10),
		},
	}
}

// NewRefundProcessed stamps a fresh event id.
func NewRefundProcessed(user, verseID, amount string, slot uint64) RefundProcessed {
	return RefundProcessed{ID: uuid.NewString(), User: user, VerseID: verseID, Amount: amount, Slot: slot}
}
