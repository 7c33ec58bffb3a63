// Package models defines data structures for the CoPilot portal.
package models

// Market identifies a stock exchange scope for search and quotes.
type Market string

const (
	MarketUS     Market = "US"
	MarketNSE    Market = "NSE"
	MarketBSE    Market = "BSE"
	MarketGlobal Market = "Global"
)

// DefaultMarket is the market selected before any user preference exists.
const DefaultMarket = MarketNSE

// ValidMarket returns true if the market is one of US/NSE/BSE/Global.
func ValidMarket(m Market) bool {
	switch m {
	case MarketUS, MarketNSE, MarketBSE, MarketGlobal:
		return true
	}
	return false
}

// ParseMarket converts a string into a Market, falling back to the
// default market for unrecognized values.
func ParseMarket(s string) Market {
	m := Market(s)
	if ValidMarket(m) {
		return m
	}
	return DefaultMarket
}
