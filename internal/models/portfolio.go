package models

import (
	"encoding/json"
	"strings"
)

// PortfolioItem is a tracked stock. Symbol is the identity; no two
// items in a portfolio share one (enforced by callers, not here).
type PortfolioItem struct {
	Symbol string `json:"symbol"`
	// AddedAt is the price at the time the item was added. It may be
	// the literal 0 when the quote had not resolved yet.
	AddedAt      float64        `json:"addedAt"`
	AddedDate    string         `json:"addedDate"` // ISO-8601, informational
	LastAnalysis *StockAnalysis `json:"lastAnalysis,omitempty"`
}

// StockAnalysis is an AI-generated outlook for one stock.
type StockAnalysis struct {
	Rating      int               `json:"rating"` // 1-5, 5 = strongest positive outlook
	Fundamental AnalysisByHorizon `json:"fundamental"`
	Technical   AnalysisByHorizon `json:"technical"`
	Timestamp   string            `json:"timestamp"` // set at analysis completion, not by the generator
}

// AnalysisByHorizon buckets indicators into the three fixed investment
// time windows.
type AnalysisByHorizon struct {
	Short  AnalysisIndicators `json:"short"`
	Medium AnalysisIndicators `json:"medium"`
	Long   AnalysisIndicators `json:"long"`
}

// AnalysisIndicators holds ordered positive and negative signals.
// Order is display order only.
type AnalysisIndicators struct {
	Good []string `json:"good"`
	Bad  []string `json:"bad"`
}

// EmptyByHorizon returns a fully-populated structure with empty
// indicator lists. Used wherever legacy or malformed payloads are
// coerced: horizons and lists are always present, never nil.
func EmptyByHorizon() AnalysisByHorizon {
	return AnalysisByHorizon{
		Short:  AnalysisIndicators{Good: []string{}, Bad: []string{}},
		Medium: AnalysisIndicators{Good: []string{}, Bad: []string{}},
		Long:   AnalysisIndicators{Good: []string{}, Bad: []string{}},
	}
}

// Normalize fills in nil indicator lists so the structure is complete.
func (h AnalysisByHorizon) Normalize() AnalysisByHorizon {
	h.Short = h.Short.normalize()
	h.Medium = h.Medium.normalize()
	h.Long = h.Long.normalize()
	return h
}

func (i AnalysisIndicators) normalize() AnalysisIndicators {
	if i.Good == nil {
		i.Good = []string{}
	}
	if i.Bad == nil {
		i.Bad = []string{}
	}
	return i
}

// structuredProbe mirrors the current payload shape just enough to
// detect it. Legacy rows stored plain sentences per horizon instead of
// good/bad lists, so the probe checks for the nested arrays.
type structuredProbe struct {
	Short struct {
		Good *[]string `json:"good"`
	} `json:"short"`
}

// DecodeAnalysisPayload decodes one serialized fundamental or technical
// column. Two historical shapes exist: the current structured good/bad
// form and a legacy sentence form. Legacy or undecodable payloads are
// coerced to an empty-but-complete structure rather than surfaced as
// errors.
func DecodeAnalysisPayload(raw string) AnalysisByHorizon {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return EmptyByHorizon()
	}

	var probe structuredProbe
	if err := json.Unmarshal([]byte(raw), &probe); err != nil || probe.Short.Good == nil {
		return EmptyByHorizon()
	}

	var h AnalysisByHorizon
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return EmptyByHorizon()
	}
	return h.Normalize()
}

// FindBySymbol returns the item and index for a symbol, or -1 if not
// found. Matching is exact.
func FindBySymbol(portfolio []PortfolioItem, symbol string) (*PortfolioItem, int) {
	for i := range portfolio {
		if portfolio[i].Symbol == symbol {
			return &portfolio[i], i
		}
	}
	return nil, -1
}
