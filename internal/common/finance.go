package common

import (
	"fmt"
	"math"
)

// CalculateCAGR returns the compound annual growth rate between two
// prices as a signed percent string ("+12.34%"). Zero start price or a
// non-positive year count yields "0.00%".
func CalculateCAGR(currentPrice, startPrice float64, years float64) string {
	if startPrice == 0 || years <= 0 {
		return "0.00%"
	}
	cagr := (math.Pow(currentPrice/startPrice, 1/years) - 1) * 100
	return signedPct(cagr)
}

// CalculateReturns returns the simple return between two prices as a
// signed percent string. Zero start price yields "0.00%".
func CalculateReturns(currentPrice, startPrice float64) string {
	if startPrice == 0 {
		return "0.00%"
	}
	returns := ((currentPrice - startPrice) / startPrice) * 100
	return signedPct(returns)
}

func signedPct(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}
