package common

import "fmt"

// currencySymbols maps ISO currency codes to display glyphs.
// Unknown codes fall back to the code itself.
var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "¥",
	"AUD": "A$",
	"CAD": "C$",
	"SGD": "S$",
	"HKD": "HK$",
}

// marketCurrencies maps market identifiers to their default currency codes.
var marketCurrencies = map[string]string{
	"NSE":    "INR",
	"BSE":    "INR",
	"US":     "USD",
	"Global": "USD",
}

// CurrencySymbol returns the display symbol for a currency code
// (e.g. "INR" -> "₹"). Unrecognized codes are returned unchanged.
func CurrencySymbol(code string) string {
	if sym, ok := currencySymbols[code]; ok {
		return sym
	}
	return code
}

// MarketCurrency returns the default currency code for a market
// (e.g. "NSE" -> "INR"). Unrecognized markets default to USD.
func MarketCurrency(market string) string {
	if code, ok := marketCurrencies[market]; ok {
		return code
	}
	return "USD"
}

// FormatPrice formats a price with the correct currency symbol.
// The API-reported currency wins over the market default; with neither,
// USD applies. Output is always "<symbol> <price>" with two decimals.
func FormatPrice(price float64, apiCurrency, market string) string {
	code := apiCurrency
	if code == "" {
		if market == "" {
			market = "US"
		}
		code = MarketCurrency(market)
	}
	return fmt.Sprintf("%s %.2f", CurrencySymbol(code), price)
}
