package credit

import "versemarket/native/market"

// State is the narrow persistence interface the credit engine reads and
// writes through.
type State interface {
	GetUserCredits(user, verseID string) (*UserCredits, bool, error)
	PutUserCredits(c *UserCredits) error
}

// VaultTracker is the subset of native/market.State the credit engine uses
// to keep GlobalConfig.TotalVault (and the Coverage ratio derived from it)
// in step with deposits and refunds. Optional: an Engine with no VaultTracker
// set tracks user ledgers only, exactly as before this was added.
type VaultTracker interface {
	GetGlobalConfig() (*market.GlobalConfig, bool, error)
	PutGlobalConfig(g *market.GlobalConfig) error
}
