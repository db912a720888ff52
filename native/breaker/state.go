// Package breaker implements the global circuit breaker: a single halt_flag
// on GlobalConfig gating every mutating entry point across the other native
// engines, tripped by cumulative volatility, vault coverage, or an optional
// latency signal, and reset only by the configured authority (or, during the
// emergency-halt genesis window, any caller).
package breaker

import "versemarket/native/market"

// MarketState is the narrow global-config surface the breaker reads and
// writes through.
type MarketState interface {
	GetGlobalConfig() (*market.GlobalConfig, bool, error)
	PutGlobalConfig(g *market.GlobalConfig) error
}
