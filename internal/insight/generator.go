// Package insight generates AI stock outlooks from price history and
// the user's investment strategy.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	common "github.com/bobmcallan/copilot-portal/internal/common"
	"github.com/bobmcallan/copilot-portal/internal/interfaces"
	"github.com/bobmcallan/copilot-portal/internal/models"
)

// Generator produces structured stock analyses with the Gemini API.
type Generator struct {
	client *genai.Client
	model  string
	logger *common.Logger
}

// NewGenerator initializes the Gemini client. The API key comes from
// configuration; model is the Gemini model name.
func NewGenerator(ctx context.Context, apiKey, model string, logger *common.Logger) (*Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Generator{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Generate asks the model for a rating and per-horizon good/bad signal
// lists, constrained to a JSON response. The returned analysis is
// structurally complete: all horizons present, all lists non-nil.
func (g *Generator) Generate(ctx context.Context, history []interfaces.PricePoint, strategy string) (*models.StockAnalysis, error) {
	prompt := buildPrompt(history, strategy)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from model %s", g.model)
	}
	text := resp.Candidates[0].Content.Parts[0].Text

	analysis, err := decodeAnalysis([]byte(text))
	if err != nil {
		g.logger.Warn().Err(err).Msg("model returned undecodable analysis")
		return nil, err
	}
	return analysis, nil
}

// buildPrompt summarizes the history (start price, end price, trend)
// rather than dumping every point: the model needs the shape of the
// move, not thirty rows of closes.
func buildPrompt(history []interfaces.PricePoint, strategy string) string {
	var startPrice, endPrice float64
	trend := "Flat"
	if len(history) > 0 {
		startPrice = history[0].Price
		endPrice = history[len(history)-1].Price
		switch {
		case endPrice > startPrice:
			trend = "Up"
		case endPrice < startPrice:
			trend = "Down"
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "As an expert financial analyst, analyze the following stock history and provide a rating (1-5, where 5 is Strong Buy) and outlook based on the user's strategy: %q.\n\n", strategy)
	fmt.Fprintf(&b, "Stock History (Last 30 days summary):\n")
	fmt.Fprintf(&b, "Start Price: %.2f\nEnd Price: %.2f\nTrend: %s\n\n", startPrice, endPrice, trend)
	b.WriteString(`Return a JSON object with this exact structure:
{
  "rating": number,
  "fundamental": {
    "short": {"good": ["string"], "bad": ["string"]},
    "medium": {"good": ["string"], "bad": ["string"]},
    "long": {"good": ["string"], "bad": ["string"]}
  },
  "technical": {
    "short": {"good": ["string"], "bad": ["string"]},
    "medium": {"good": ["string"], "bad": ["string"]},
    "long": {"good": ["string"], "bad": ["string"]}
  }
}
Give at most 5 fundamental points and at most 3 technical points per list. Each point is one short phrase.`)
	return b.String()
}

// decodeAnalysis parses the model's JSON reply and enforces structural
// completeness. The rating is clamped to 1-5 and the timestamp is set
// to the decode time.
func decodeAnalysis(data []byte) (*models.StockAnalysis, error) {
	var analysis models.StockAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}

	if analysis.Rating < 1 {
		analysis.Rating = 1
	}
	if analysis.Rating > 5 {
		analysis.Rating = 5
	}
	analysis.Fundamental = analysis.Fundamental.Normalize()
	analysis.Technical = analysis.Technical.Normalize()
	analysis.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return &analysis, nil
}
