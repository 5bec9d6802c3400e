// Package gateway adapts four product features onto the Gemini API:
// free-text parsing, screenshot parsing, health analysis and what-if
// simulation.
//
// Every call returns its value together with an error, and errors fall into
// three classes (see Classify): the model call itself failed, the model
// answered with nothing, or the answer was not the expected JSON. Callers
// decide which fallback to show. Model output is not otherwise validated:
// categories outside the known set pass through untouched.
package gateway

import (
	"context"
	"errors"
	"time"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used for all calls.
const DefaultModelName = "gemini-3-flash-preview"

// DefaultMonthlyExpense is the baseline monthly spend sent with simulations.
const DefaultMonthlyExpense = 25000

// AnalysisFallback is shown when no health report could be produced.
const AnalysisFallback = "無法生成分析報告。"

// Error classes.
var (
	ErrModelCall      = errors.New("model call failed")
	ErrEmptyReply     = errors.New("model returned an empty reply")
	ErrMalformedReply = errors.New("model reply is not the expected JSON")
	ErrInvalidImage   = errors.New("invalid image data")
)

// Outcome is the coarse result of a gateway call.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeEmpty means the model produced no usable content.
	OutcomeEmpty
	// OutcomeFailed means the call did not complete or the input was rejected.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// Classify maps an error returned by this package to an Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrEmptyReply), errors.Is(err, ErrMalformedReply):
		return OutcomeEmpty
	default:
		return OutcomeFailed
	}
}

// Generator is the slice of the genai client the gateway needs.
// *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gateway issues the model calls. It holds no conversation state.
type Gateway struct {
	gen        Generator
	model      string
	hourlyWage int
	now        func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithModel overrides DefaultModelName.
func WithModel(model string) Option {
	return func(g *Gateway) {
		if model != "" {
			g.model = model
		}
	}
}

// WithHourlyWage sets the wage the health analysis uses to express spending
// as working hours.
func WithHourlyWage(wage int) Option {
	return func(g *Gateway) {
		if wage > 0 {
			g.hourlyWage = wage
		}
	}
}

// WithClock replaces time.Now, which supplies "today" to the prompts.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New wraps an existing generator.
func New(gen Generator, opts ...Option) *Gateway {
	g := &Gateway{
		gen:        gen,
		model:      DefaultModelName,
		hourlyWage: 200,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewGemini creates a Gemini API client for apiKey and wraps it.
func NewGemini(ctx context.Context, apiKey string, opts ...Option) (*Gateway, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Join(ErrModelCall, err)
	}
	return New(client.Models, opts...), nil
}

// Model returns the model name in use.
func (g *Gateway) Model() string {
	return g.model
}

func (g *Gateway) today() string {
	return g.now().Format("2006-01-02")
}
