// Package credit implements the credit manager: 1:1 deposit↔credit
// conversion, per-position margin locks that permit superposition of
// conflicting positions, and instant refund at settle.
package credit

import "versemarket/core/fixedpoint"

// UserCredits is the per-(user,verse) credit ledger. Invariant:
// TotalDeposit = AvailableCredits + LockedCredits; the sum of per-position
// locks never exceeds TotalDeposit.
type UserCredits struct {
	User                string
	VerseID             string
	TotalDeposit        fixedpoint.U6464
	AvailableCredits    fixedpoint.U6464
	LockedCredits       fixedpoint.U6464
	ActivePositionCount int
	RefundEligible      bool
	Locks               map[string]fixedpoint.U6464 // positionID -> locked margin
}

func newUserCredits(user, verseID string) *UserCredits {
	return &UserCredits{
		User:             user,
		VerseID:          verseID,
		TotalDeposit:     fixedpoint.Zero6464(),
		AvailableCredits: fixedpoint.Zero6464(),
		LockedCredits:    fixedpoint.Zero6464(),
		Locks:            make(map[string]fixedpoint.U6464),
	}
}
