// Package settlement implements proposal collapse: picking the winning
// outcome at the scheduled settle slot (or an emergency trigger), emitting
// exactly one MarketCollapsed per proposal, and making a proposal's users
// eligible for their credit refund.
package settlement

import "versemarket/native/market"

// MarketState is the narrow proposal read/write surface settlement drives.
type MarketState interface {
	GetProposal(id string) (*market.Proposal, bool, error)
	PutProposal(p *market.Proposal) error
}

// CreditPort lets settlement mark a user's credits refund-eligible once
// their proposal has collapsed.
type CreditPort interface {
	MarkRefundEligible(user, verseID string) error
}
