package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/logger"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// AnalysisWindow is how many recent transactions the health analysis sees.
const AnalysisWindow = 10

// Status is the financial position sent along with a simulation.
type Status struct {
	NetWorth       decimal.Decimal
	MonthlyExpense decimal.Decimal
}

// ParseText turns a free-text note such as "午餐 120" into a draft. The
// caller must check Draft.HasAmount before recording anything.
func (g *Gateway) ParseText(ctx context.Context, text string) (domain.Draft, error) {
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: parseTextPrompt(text, g.today())}}},
	}

	raw, err := g.generate(ctx, "ParseText", contents, jsonConfig(draftSchema()))
	if err != nil {
		return domain.Draft{}, err
	}

	var draft domain.Draft
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &draft); err != nil {
		return domain.Draft{}, fmt.Errorf("ParseText: %w: %v", ErrMalformedReply, err)
	}
	return draft, nil
}

// ParseImage extracts every transaction visible in a screenshot.
func (g *Gateway) ParseImage(ctx context.Context, img Image) ([]domain.Draft, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("ParseImage: %w: no image data", ErrInvalidImage)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: img.mimeType(), Data: img.Data}},
				{Text: parseImagePrompt(g.today())},
			},
		},
	}

	raw, err := g.generate(ctx, "ParseImage", contents, jsonConfig(draftListSchema()))
	if err != nil {
		return nil, err
	}

	var drafts []domain.Draft
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &drafts); err != nil {
		return nil, fmt.Errorf("ParseImage: %w: %v", ErrMalformedReply, err)
	}
	if drafts == nil {
		drafts = []domain.Draft{}
	}
	return drafts, nil
}

// ParseImageDataURL decodes a data: URL and calls ParseImage.
func (g *Gateway) ParseImageDataURL(ctx context.Context, dataURL string) ([]domain.Draft, error) {
	img, err := ParseDataURL(dataURL)
	if err != nil {
		return nil, fmt.Errorf("ParseImageDataURL: %w", err)
	}
	return g.ParseImage(ctx, img)
}

// AnalyzeHealth asks for a narrative report based on the most recent
// transactions and the current net worth. Only the first AnalysisWindow
// entries of recent are sent.
func (g *Gateway) AnalyzeHealth(ctx context.Context, recent []domain.Transaction, netWorth decimal.Decimal) (string, error) {
	if len(recent) > AnalysisWindow {
		recent = recent[:AnalysisWindow]
	}
	if recent == nil {
		recent = []domain.Transaction{}
	}
	recentJSON, err := json.Marshal(recent)
	if err != nil {
		return "", fmt.Errorf("AnalyzeHealth: marshal transactions: %w", err)
	}

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: analysisPrompt(netWorth.String(), string(recentJSON), g.hourlyWage)}}},
	}

	return g.generate(ctx, "AnalyzeHealth", contents, nil)
}

// Simulate evaluates a what-if scenario over the next twelve months.
func (g *Gateway) Simulate(ctx context.Context, scenario string, status Status) (domain.SimulationResult, error) {
	if status.MonthlyExpense.IsZero() {
		status.MonthlyExpense = decimal.NewFromInt(DefaultMonthlyExpense)
	}
	statusJSON, err := json.Marshal(map[string]json.Number{
		"netWorth":       json.Number(status.NetWorth.String()),
		"monthlyExpense": json.Number(status.MonthlyExpense.String()),
	})
	if err != nil {
		return domain.SimulationResult{}, fmt.Errorf("Simulate: marshal status: %w", err)
	}

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: simulationPrompt(scenario, string(statusJSON))}}},
	}

	raw, err := g.generate(ctx, "Simulate", contents, jsonConfig(simulationSchema()))
	if err != nil {
		return domain.SimulationResult{}, err
	}

	var result domain.SimulationResult
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &result); err != nil {
		return domain.SimulationResult{}, fmt.Errorf("Simulate: %w: %v", ErrMalformedReply, err)
	}
	return result, nil
}

// generate performs one model call and returns the reply text.
func (g *Gateway) generate(ctx context.Context, op string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	log := logger.WithComponent(logger.FromContext(ctx), "gateway")
	start := time.Now()

	resp, err := g.gen.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		log.Warn().Err(err).Str("op", op).Str("model", g.model).Msg("Model call failed")
		return "", fmt.Errorf("%s: %w: %w", op, ErrModelCall, err)
	}

	var text string
	if resp != nil {
		text = resp.Text()
	}
	log.Debug().
		Str("op", op).
		Str("model", g.model).
		Dur("duration", time.Since(start)).
		Int("reply_bytes", len(text)).
		Msg("Model call completed")

	if text == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyReply)
	}
	return text, nil
}
