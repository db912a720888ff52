// Package oracle implements the push_price ingest adapter: staleness and
// confidence gating, then delegation into the price-clamp and flash-loan
// safety gates before a sample is allowed to update a proposal's PriceCache.
package oracle

import "versemarket/native/market"

// MarketState is the narrow proposal/price-cache surface the oracle adapter
// reads and writes through.
type MarketState interface {
	GetProposal(id string) (*market.Proposal, bool, error)
	PutProposal(p *market.Proposal) error

	GetPriceCache(proposalID string) (*market.PriceCache, bool, error)
	PutPriceCache(c *market.PriceCache) error
}
