package models

// SheetSettings is the key-value subset persisted to the Settings tab.
type SheetSettings struct {
	InvestmentStrategy string `json:"investmentStrategy"`
	Market             Market `json:"market"`
}

// DefaultSheetSettings is returned when the Settings tab is missing or
// unreadable.
func DefaultSheetSettings() SheetSettings {
	return SheetSettings{
		InvestmentStrategy: "",
		Market:             DefaultMarket,
	}
}
