package models

import (
	"encoding/json"
	"testing"
)

func structuredPayload(t *testing.T) string {
	t.Helper()
	h := AnalysisByHorizon{
		Short:  AnalysisIndicators{Good: []string{"Strong revenue growth", "Low debt"}, Bad: []string{"High P/E ratio"}},
		Medium: AnalysisIndicators{Good: []string{"Market leader"}, Bad: []string{"Sector headwinds"}},
		Long:   AnalysisIndicators{Good: []string{"Durable moat"}, Bad: []string{"Regulatory risk"}},
	}
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func TestDecodeAnalysisPayload_Structured(t *testing.T) {
	h := DecodeAnalysisPayload(structuredPayload(t))

	if len(h.Short.Good) != 2 || h.Short.Good[0] != "Strong revenue growth" {
		t.Errorf("unexpected short.good: %v", h.Short.Good)
	}
	if len(h.Short.Bad) != 1 || h.Short.Bad[0] != "High P/E ratio" {
		t.Errorf("unexpected short.bad: %v", h.Short.Bad)
	}
	if len(h.Long.Good) != 1 || h.Long.Good[0] != "Durable moat" {
		t.Errorf("unexpected long.good: %v", h.Long.Good)
	}
}

func TestDecodeAnalysisPayload_LegacyAndMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"legacy sentence shape", `{"short":"Looks fine short term","medium":"Hold","long":"Strong buy"}`},
		{"empty object", `{}`},
		{"empty string", ""},
		{"not json", "not json at all"},
		{"wrong nesting", `{"short":{"good":"single string not array"}}`},
	}

	for _, tt := range tests {
		h := DecodeAnalysisPayload(tt.raw)
		for name, ind := range map[string]AnalysisIndicators{
			"short": h.Short, "medium": h.Medium, "long": h.Long,
		} {
			if ind.Good == nil || ind.Bad == nil {
				t.Errorf("%s: horizon %s has nil lists, want empty slices", tt.name, name)
			}
			if len(ind.Good) != 0 || len(ind.Bad) != 0 {
				t.Errorf("%s: horizon %s not empty: %+v", tt.name, name, ind)
			}
		}
	}
}

func TestDecodeAnalysisPayload_PartialStructured(t *testing.T) {
	// Only short populated; the rest must still be complete.
	h := DecodeAnalysisPayload(`{"short":{"good":["Momentum"],"bad":[]}}`)

	if len(h.Short.Good) != 1 || h.Short.Good[0] != "Momentum" {
		t.Errorf("unexpected short.good: %v", h.Short.Good)
	}
	if h.Medium.Good == nil || h.Medium.Bad == nil || h.Long.Good == nil || h.Long.Bad == nil {
		t.Error("medium/long horizons must be populated with empty lists")
	}
}

func TestFindBySymbol(t *testing.T) {
	portfolio := []PortfolioItem{
		{Symbol: "AAPL"},
		{Symbol: "GOOGL"},
	}

	item, idx := FindBySymbol(portfolio, "GOOGL")
	if idx != 1 || item == nil || item.Symbol != "GOOGL" {
		t.Errorf("FindBySymbol(GOOGL) = %v, %d", item, idx)
	}

	item, idx = FindBySymbol(portfolio, "MSFT")
	if idx != -1 || item != nil {
		t.Errorf("FindBySymbol(MSFT) should miss, got %v, %d", item, idx)
	}

	item, idx = FindBySymbol(nil, "AAPL")
	if idx != -1 || item != nil {
		t.Errorf("FindBySymbol on empty portfolio should miss, got %v, %d", item, idx)
	}
}

func TestParseMarket(t *testing.T) {
	tests := []struct {
		in   string
		want Market
	}{
		{"US", MarketUS},
		{"NSE", MarketNSE},
		{"BSE", MarketBSE},
		{"Global", MarketGlobal},
		{"LSE", DefaultMarket},
		{"", DefaultMarket},
	}

	for _, tt := range tests {
		if got := ParseMarket(tt.in); got != tt.want {
			t.Errorf("ParseMarket(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
