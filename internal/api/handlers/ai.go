package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dvloznov/smart-finance/internal/api/middleware"
	"github.com/dvloznov/smart-finance/internal/flow"
	"github.com/dvloznov/smart-finance/internal/gateway"
	"github.com/dvloznov/smart-finance/internal/ledger"
	"github.com/rs/zerolog"
)

// AIHandler handles quick capture, health analysis and simulation.
type AIHandler struct {
	ledger         *ledger.Ledger
	parser         flow.Parser
	advisor        flow.Advisor
	clock          flow.Clock
	monthlyExpense int
	log            zerolog.Logger
}

// NewAIHandler creates a new AI handler. parser and advisor may be nil, in
// which case every endpoint answers 503.
func NewAIHandler(l *ledger.Ledger, parser flow.Parser, advisor flow.Advisor, clock flow.Clock, monthlyExpense int, log zerolog.Logger) *AIHandler {
	return &AIHandler{
		ledger:         l,
		parser:         parser,
		advisor:        advisor,
		clock:          clock,
		monthlyExpense: monthlyExpense,
		log:            log,
	}
}

func (h *AIHandler) available(w http.ResponseWriter) bool {
	if h.parser == nil || h.advisor == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "AI features are not configured")
		return false
	}
	return true
}

// QuickCapture handles POST /api/ai/quick
func (h *AIHandler) QuickCapture(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	q := flow.NewQuickCapture(h.ledger, h.parser, h.clock)
	_ = q.Open()
	saved, err := q.Submit(r.Context(), req.Text)
	if err != nil {
		writeErr(w, h.log, err, "Quick capture failed")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, saved)
}

// Analysis handles POST /api/ai/analysis. Model failures are reported as the
// fallback text, never as an HTTP error.
func (h *AIHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	rep := flow.NewInsights(h.ledger, h.advisor, h.monthlyExpense).Analyze(r.Context())
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"text":     rep.Text,
		"fallback": rep.Fallback,
		"outcome":  rep.Outcome.String(),
	})
}

// Simulate handles POST /api/ai/simulate
func (h *AIHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var req struct {
		Scenario string `json:"scenario"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := flow.NewInsights(h.ledger, h.advisor, h.monthlyExpense).Simulate(r.Context(), req.Scenario)
	if err != nil {
		writeErr(w, h.log, err, "Simulation failed")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

func isGatewayError(err error) bool {
	return errors.Is(err, gateway.ErrModelCall) ||
		errors.Is(err, gateway.ErrEmptyReply) ||
		errors.Is(err, gateway.ErrMalformedReply) ||
		errors.Is(err, gateway.ErrInvalidImage)
}

func gatewayStatus(err error) int {
	if errors.Is(err, gateway.ErrInvalidImage) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
