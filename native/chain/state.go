package chain

import (
	"versemarket/core/fixedpoint"
	"versemarket/native/credit"
)

// State persists Chain records.
type State interface {
	GetChain(id string) (*Chain, bool, error)
	PutChain(c *Chain) error
}

// CreditPort is the narrow slice of the credit manager the chain engine
// drives to fund and unwind Borrow/Liquidity/Stake steps. Locking uses a
// synthetic per-step key so rollback can release precisely the step that
// was locked, independent of any position the chain may also be opening.
type CreditPort interface {
	Lock(user, verseID, lockKey string, amount fixedpoint.U6464) (*credit.UserCredits, error)
	Release(user, verseID, lockKey string) (*credit.UserCredits, error)
	ApplyPnL(user, verseID string, amount fixedpoint.U6464, gain bool) (*credit.UserCredits, error)
	GetUserCredits(user, verseID string) (*credit.UserCredits, bool, error)
}
