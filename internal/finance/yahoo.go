// Package finance adapts the Yahoo Finance public endpoints to the
// DataProvider interface.
package finance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	common "github.com/bobmcallan/copilot-portal/internal/common"
	"github.com/bobmcallan/copilot-portal/internal/interfaces"
	"github.com/bobmcallan/copilot-portal/internal/models"
)

const (
	searchPath = "/v1/finance/search"
	chartPath  = "/v8/finance/chart/"

	searchQuoteCount = 10
)

// YahooProvider fetches quotes, history, and search results from the
// Yahoo Finance chart and search APIs.
type YahooProvider struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
}

// NewYahooProvider creates a provider targeting the given base URL
// (normally https://query1.finance.yahoo.com).
func NewYahooProvider(baseURL string, logger *common.Logger) *YahooProvider {
	return &YahooProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (p *YahooProvider) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := p.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach yahoo finance: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo returned %d: %s", resp.StatusCode, string(body))
	}

	p.logger.Debug().Str("path", path).Int("bytes", len(body)).Msg("yahoo finance response")
	return body, nil
}

// Search queries the search endpoint and filters matches to the given
// market. Yahoo's search is global, so the market filter works on the
// exchange code and symbol suffix: NSE keeps NSI-listed or .NS symbols,
// BSE keeps BSE-listed or .BO symbols, US keeps suffix-free NMS/NYQ
// symbols. Global applies no filter.
func (p *YahooProvider) Search(ctx context.Context, query string, market models.Market) ([]interfaces.StockSearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("quotesCount", fmt.Sprint(searchQuoteCount))
	params.Set("newsCount", "0")

	body, err := p.get(ctx, searchPath, params)
	if err != nil {
		return nil, err
	}

	results := make([]interfaces.StockSearchResult, 0, searchQuoteCount)
	for _, q := range gjson.GetBytes(body, "quotes").Array() {
		symbol := q.Get("symbol").String()
		exchange := q.Get("exchange").String()
		if symbol == "" || !matchesMarket(symbol, exchange, market) {
			continue
		}

		name := q.Get("shortname").String()
		if name == "" {
			name = q.Get("longname").String()
		}
		results = append(results, interfaces.StockSearchResult{
			Symbol:   symbol,
			Name:     name,
			Exchange: exchange,
			Type:     q.Get("quoteType").String(),
		})
	}
	return results, nil
}

func matchesMarket(symbol, exchange string, market models.Market) bool {
	switch market {
	case models.MarketNSE:
		return exchange == "NSI" || strings.HasSuffix(symbol, ".NS")
	case models.MarketBSE:
		return exchange == "BSE" || strings.HasSuffix(symbol, ".BO")
	case models.MarketUS:
		return !strings.Contains(symbol, ".") && (exchange == "NMS" || exchange == "NYQ")
	default:
		return true
	}
}

// GetQuote fetches the current quote from the chart endpoint's metadata.
// Change is measured against the chart's previous close.
func (p *YahooProvider) GetQuote(ctx context.Context, symbol string) (*interfaces.StockQuote, error) {
	body, err := p.get(ctx, chartPath+url.PathEscape(symbol), nil)
	if err != nil {
		return nil, err
	}

	meta := gjson.GetBytes(body, "chart.result.0.meta")
	if !meta.Exists() {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}

	price := meta.Get("regularMarketPrice").Float()
	prevClose := meta.Get("chartPreviousClose").Float()
	change := price - prevClose
	var changePercent float64
	if prevClose != 0 {
		changePercent = change / prevClose * 100
	}

	return &interfaces.StockQuote{
		Symbol:        meta.Get("symbol").String(),
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		Currency:      meta.Get("currency").String(),
		MarketTime:    time.Unix(meta.Get("regularMarketTime").Int(), 0).UTC().Format(time.RFC3339),
	}, nil
}

// GetHistory fetches daily closes over the given range (Yahoo range
// syntax, e.g. "1mo"). Points come back ascending by date; days without
// a close (holidays, in-progress sessions) are dropped.
func (p *YahooProvider) GetHistory(ctx context.Context, symbol, rng string) ([]interfaces.PricePoint, error) {
	if rng == "" {
		rng = "1mo"
	}
	params := url.Values{}
	params.Set("range", rng)
	params.Set("interval", "1d")

	body, err := p.get(ctx, chartPath+url.PathEscape(symbol), params)
	if err != nil {
		return nil, err
	}

	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}

	timestamps := result.Get("timestamp").Array()
	closes := result.Get("indicators.quote.0.close").Array()

	points := make([]interfaces.PricePoint, 0, len(timestamps))
	for i, ts := range timestamps {
		if i >= len(closes) || closes[i].Type == gjson.Null {
			continue
		}
		points = append(points, interfaces.PricePoint{
			Date:  time.Unix(ts.Int(), 0).UTC().Format(time.RFC3339),
			Price: closes[i].Float(),
		})
	}
	return points, nil
}
