package position

import (
	"versemarket/core/fixedpoint"
	"versemarket/native/credit"
	"versemarket/native/market"
)

// State is the narrow persistence interface the position engine reads and
// writes through.
type State interface {
	GetPosition(id string) (*Position, bool, error)
	PutPosition(p *Position) error
	ListOpenPositions(user, verseID string) ([]*Position, error)
}

// MarketState is the subset of native/market.State the position engine
// needs to validate and reprice against.
type MarketState interface {
	GetVerse(id string) (*market.Verse, bool, error)
	GetProposal(id string) (*market.Proposal, bool, error)
	PutProposal(p *market.Proposal) error
	GetGlobalConfig() (*market.GlobalConfig, bool, error)
	PutGlobalConfig(g *market.GlobalConfig) error
}

// CreditLocker is the subset of native/credit.Engine the position engine
// drives to lock margin, release it, and settle realized PnL.
type CreditLocker interface {
	Lock(user, verseID, positionID string, margin fixedpoint.U6464) (*credit.UserCredits, error)
	Release(user, verseID, positionID string) (*credit.UserCredits, error)
	ApplyPnL(user, verseID string, amount fixedpoint.U6464, gain bool) (*credit.UserCredits, error)
}
