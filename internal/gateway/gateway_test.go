package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// mockGenerator is a mock implementation of Generator for testing.
type mockGenerator struct {
	GenerateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

	lastModel    string
	lastContents []*genai.Content
	lastConfig   *genai.GenerateContentConfig
}

func (m *mockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.lastModel, m.lastContents, m.lastConfig = model, contents, config
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, model, contents, config)
	}
	return reply(""), nil
}

func (m *mockGenerator) promptText() string {
	var b strings.Builder
	for _, c := range m.lastContents {
		for _, p := range c.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func reply(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

func replying(text string) *mockGenerator {
	return &mockGenerator{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return reply(text), nil
		},
	}
}

func failing(err error) *mockGenerator {
	return &mockGenerator{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, err
		},
	}
}

func fixedClock() Option {
	return WithClock(func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) })
}

func TestParseText(t *testing.T) {
	tests := []struct {
		name         string
		gen          *mockGenerator
		wantOutcome  Outcome
		wantAmount   string
		wantCategory string
	}{
		{
			name:         "plain JSON",
			gen:          replying(`{"amount":120,"category":"餐飲食品","description":"午餐","type":"expense","merchant":"八方雲集"}`),
			wantOutcome:  OutcomeOK,
			wantAmount:   "120",
			wantCategory: "餐飲食品",
		},
		{
			name:         "fenced JSON",
			gen:          replying("```json\n{\"amount\": 45.5, \"category\": \"交通運輸\"}\n```"),
			wantOutcome:  OutcomeOK,
			wantAmount:   "45.5",
			wantCategory: "交通運輸",
		},
		{
			name:         "out of set category passes through",
			gen:          replying(`{"amount":300,"category":"寵物用品"}`),
			wantOutcome:  OutcomeOK,
			wantAmount:   "300",
			wantCategory: "寵物用品",
		},
		{
			name:        "no amount",
			gen:         replying(`{"description":"不知道"}`),
			wantOutcome: OutcomeOK,
		},
		{name: "empty reply", gen: replying(""), wantOutcome: OutcomeEmpty},
		{name: "not JSON", gen: replying("抱歉，我無法理解"), wantOutcome: OutcomeEmpty},
		{name: "network failure", gen: failing(errors.New("connection reset")), wantOutcome: OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.gen, fixedClock())
			draft, err := g.ParseText(context.Background(), "午餐 120")

			if got := Classify(err); got != tt.wantOutcome {
				t.Fatalf("Classify(%v) = %s, want %s", err, got, tt.wantOutcome)
			}
			if tt.wantOutcome != OutcomeOK {
				if draft.HasAmount() {
					t.Error("failed call must not yield an amount")
				}
				return
			}
			if tt.wantAmount == "" {
				if draft.HasAmount() {
					t.Errorf("expected no amount, got %s", draft.Amount)
				}
				return
			}
			if !draft.HasAmount() || !draft.Amount.Equal(decimal.RequireFromString(tt.wantAmount)) {
				t.Errorf("Amount = %v, want %s", draft.Amount, tt.wantAmount)
			}
			if draft.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", draft.Category, tt.wantCategory)
			}
		})
	}
}

func TestParseText_Request(t *testing.T) {
	gen := replying(`{}`)
	g := New(gen, fixedClock(), WithModel("gemini-test"))

	if _, err := g.ParseText(context.Background(), "捷運 35"); err != nil {
		t.Fatalf("ParseText: %v", err)
	}

	if gen.lastModel != "gemini-test" {
		t.Errorf("model = %q", gen.lastModel)
	}
	if gen.lastConfig == nil || gen.lastConfig.ResponseMIMEType != "application/json" {
		t.Fatalf("expected JSON response config, got %+v", gen.lastConfig)
	}
	if gen.lastConfig.ResponseSchema.Type != genai.TypeObject {
		t.Errorf("schema type = %v", gen.lastConfig.ResponseSchema.Type)
	}
	prompt := gen.promptText()
	for _, want := range []string{`"捷運 35"`, "2026-03-14", "餐飲食品", "income 或 expense"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, domain.CategoryFees) {
		t.Error("prompt should not offer the fees category")
	}
}

func TestParseImage(t *testing.T) {
	gen := replying(`[
		{"amount":120,"category":"餐飲食品","description":"早餐","type":"expense","date":"2026-03-13"},
		{"amount":42000,"category":"薪資收入","description":"薪水","type":"income","date":"2026-03-05"}
	]`)
	g := New(gen, fixedClock())

	png := []byte{0x89, 'P', 'N', 'G'}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	drafts, err := g.ParseImageDataURL(context.Background(), dataURL)
	if err != nil {
		t.Fatalf("ParseImageDataURL: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("len = %d, want 2", len(drafts))
	}
	if drafts[1].Type != domain.TypeIncome || drafts[1].Date != "2026-03-05" {
		t.Errorf("unexpected second draft: %+v", drafts[1])
	}

	parts := gen.lastContents[0].Parts
	if parts[0].InlineData == nil || parts[0].InlineData.MIMEType != "image/png" {
		t.Fatalf("expected inline png first, got %+v", parts[0])
	}
	if string(parts[0].InlineData.Data) != string(png) {
		t.Error("image bytes not forwarded")
	}
	if gen.lastConfig.ResponseSchema.Type != genai.TypeArray {
		t.Errorf("schema type = %v", gen.lastConfig.ResponseSchema.Type)
	}
	if len(gen.lastConfig.ResponseSchema.Items.Required) != 5 {
		t.Errorf("required = %v", gen.lastConfig.ResponseSchema.Items.Required)
	}
}

func TestParseImage_Failures(t *testing.T) {
	g := New(replying("not json"))
	drafts, err := g.ParseImage(context.Background(), Image{Data: []byte{1}})
	if Classify(err) != OutcomeEmpty || len(drafts) != 0 {
		t.Errorf("malformed reply: drafts=%v err=%v", drafts, err)
	}

	_, err = g.ParseImage(context.Background(), Image{})
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("empty image err = %v", err)
	}

	_, err = g.ParseImageDataURL(context.Background(), "garbage")
	if !errors.Is(err, ErrInvalidImage) || Classify(err) != OutcomeFailed {
		t.Errorf("bad data URL err = %v", err)
	}
}

func TestAnalyzeHealth(t *testing.T) {
	gen := replying("你的緊急預備金可以撐 17 個月。")
	g := New(gen, WithHourlyWage(250))

	var recent []domain.Transaction
	for i := 0; i < 15; i++ {
		recent = append(recent, domain.Transaction{
			ID:     fmt.Sprintf("tx-%02d", i),
			Date:   civil.Date{Year: 2026, Month: 3, Day: 1},
			Amount: decimal.NewFromInt(int64(100 + i)),
			Type:   domain.TypeExpense,
		})
	}

	report, err := g.AnalyzeHealth(context.Background(), recent, decimal.NewFromInt(443000))
	if err != nil {
		t.Fatalf("AnalyzeHealth: %v", err)
	}
	if !strings.Contains(report, "17 個月") {
		t.Errorf("report = %q", report)
	}

	prompt := gen.promptText()
	if !strings.Contains(prompt, "tx-09") || strings.Contains(prompt, "tx-10") {
		t.Error("prompt should carry exactly the first ten transactions")
	}
	if !strings.Contains(prompt, "443000") || !strings.Contains(prompt, "時薪 250 元") {
		t.Errorf("prompt missing net worth or wage:\n%s", prompt)
	}
	if gen.lastConfig != nil {
		t.Error("analysis is free text and should not request JSON")
	}

	_, err = New(replying("")).AnalyzeHealth(context.Background(), nil, decimal.Zero)
	if !errors.Is(err, ErrEmptyReply) {
		t.Errorf("empty reply err = %v", err)
	}
}

func TestSimulate(t *testing.T) {
	gen := replying(`{"scenario":"買車","impactOnCashFlow":"每月減少 15000","recommendation":"延後購買","safetyScore":42}`)
	g := New(gen)

	res, err := g.Simulate(context.Background(), "如果我買一台 80 萬的車", Status{NetWorth: decimal.NewFromInt(443000)})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if res.SafetyScore != 42 || res.Recommendation != "延後購買" {
		t.Errorf("result = %+v", res)
	}
	prompt := gen.promptText()
	if !strings.Contains(prompt, `"monthlyExpense":25000`) || !strings.Contains(prompt, `"netWorth":443000`) {
		t.Errorf("status not serialised as numbers:\n%s", prompt)
	}
	if !strings.Contains(prompt, "12 個月") {
		t.Error("prompt should ask for a twelve month horizon")
	}
}

func TestSimulate_ErrorsAreSurfaced(t *testing.T) {
	_, err := New(failing(errors.New("quota exceeded"))).Simulate(context.Background(), "x", Status{})
	if !errors.Is(err, ErrModelCall) || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("err = %v", err)
	}

	_, err = New(replying("[1,2")).Simulate(context.Background(), "x", Status{})
	if !errors.Is(err, ErrMalformedReply) {
		t.Errorf("err = %v", err)
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare object", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced array", in: "```json\n[1,2]\n```", want: "[1,2]"},
		{name: "chatter around object", in: "Here you go: {\"a\":1} hope it helps", want: `{"a":1}`},
		{name: "array with nested objects", in: `ok [{"a":1},{"b":2}] done`, want: `[{"a":1},{"b":2}]`},
		{name: "no JSON", in: "  hello  ", want: "hello"},
		{name: "single line fence", in: "```", want: "```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.in); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDataURL(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("img"))

	img, err := ParseDataURL("data:image/webp;base64," + payload)
	if err != nil || img.MIMEType != "image/webp" || string(img.Data) != "img" {
		t.Errorf("webp: %+v %v", img, err)
	}

	img, err = ParseDataURL("data:;base64," + payload)
	if err != nil || img.MIMEType != DefaultImageMIMEType {
		t.Errorf("missing mime: %+v %v", img, err)
	}

	if _, err := ParseDataURL("data:image/png;base64,%%%"); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("bad base64 err = %v", err)
	}
}

func TestReadImageFile(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "receipt.PNG")
	if err := os.WriteFile(png, []byte("img"), 0o600); err != nil {
		t.Fatal(err)
	}
	img, err := ReadImageFile(png)
	if err != nil || img.MIMEType != "image/png" || string(img.Data) != "img" {
		t.Errorf("png: %+v %v", img, err)
	}

	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("hi"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadImageFile(txt); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("txt err = %v", err)
	}

	empty := filepath.Join(dir, "empty.jpg")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadImageFile(empty); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("empty err = %v", err)
	}

	if _, err := ReadImageFile(filepath.Join(dir, "missing.jpg")); err == nil || errors.Is(err, ErrInvalidImage) {
		t.Errorf("missing err = %v", err)
	}

	// The extension is checked before the disk is touched.
	_, err = ReadImageFile(filepath.Join(dir, "missing.pdf"))
	if !errors.Is(err, ErrInvalidImage) || !strings.Contains(err.Error(), "not an image") {
		t.Errorf("missing non-image err = %v", err)
	}
}

func TestClassify(t *testing.T) {
	if Classify(nil) != OutcomeOK {
		t.Error("nil should be OK")
	}
	if Classify(fmt.Errorf("wrap: %w", ErrEmptyReply)) != OutcomeEmpty {
		t.Error("empty reply should classify as empty")
	}
	if Classify(context.Canceled) != OutcomeFailed {
		t.Error("unknown errors should classify as failed")
	}
}
