package market

// State is the narrow persistence interface the market engine, and every
// other native engine that reads verses/proposals/price caches/global
// config, is injected with. Concrete implementations own any locking;
// storage.Store locks only its open-position index and takes no multi-record
// lock order across GlobalConfig, Verse, Proposal, UserCredits, Position and
// Chain.
type State interface {
	GetVerse(id string) (*Verse, bool, error)
	PutVerse(v *Verse) error

	GetProposal(id string) (*Proposal, bool, error)
	PutProposal(p *Proposal) error

	GetPriceCache(proposalID string) (*PriceCache, bool, error)
	PutPriceCache(c *PriceCache) error

	GetGlobalConfig() (*GlobalConfig, bool, error)
	PutGlobalConfig(g *GlobalConfig) error
}
