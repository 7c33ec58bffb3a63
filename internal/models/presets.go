package models

// StrategyPreset is a predefined investment strategy users can select
// and customize further. The catalog is static and never mutated.
type StrategyPreset struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// StrategyPresets is the preset catalog, in display order.
var StrategyPresets = []StrategyPreset{
	{
		Label: "Conservative Income",
		Value: "I am a conservative investor focused on capital preservation and steady dividend income. I prefer blue-chip stocks with low volatility, strong balance sheets, and consistent dividend history. My risk tolerance is low.",
	},
	{
		Label: "Growth Investor",
		Value: "I am a growth investor seeking high-growth companies with strong revenue expansion, expanding market share, and innovative products. I am willing to accept higher volatility for potentially larger returns over 3-5 years.",
	},
	{
		Label: "Value Investor",
		Value: "I follow a value investing approach, looking for undervalued stocks with low P/E ratios, strong fundamentals, and a margin of safety. I prefer companies trading below their intrinsic value with catalysts for rerating.",
	},
	{
		Label: "Swing Trader",
		Value: "I am a short-to-medium term swing trader looking for momentum plays and technical setups. I focus on stocks with strong trend signals, volume breakouts, and favorable risk/reward ratios over 1-3 month periods.",
	},
	{
		Label: "Balanced Portfolio",
		Value: "I seek a balanced portfolio combining growth and income. I want a mix of growth stocks for capital appreciation and dividend-paying stocks for passive income. I target moderate risk with a 1-3 year investment horizon.",
	},
	{
		Label: "SIP / Long Term",
		Value: "I am a long-term systematic investor (SIP approach). I want to identify quality companies with durable competitive advantages, strong management, and consistent earnings growth for a 5-10 year holding period.",
	},
}
