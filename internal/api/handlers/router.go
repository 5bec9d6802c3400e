package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/smart-finance/internal/api/middleware"
	"github.com/dvloznov/smart-finance/internal/flow"
	"github.com/dvloznov/smart-finance/internal/jobs"
	"github.com/dvloznov/smart-finance/internal/ledger"
	"github.com/rs/zerolog"
)

// Deps are the components the router serves.
type Deps struct {
	Ledger *ledger.Ledger
	// AI is nil when no API key is configured.
	AI             AI
	Publisher      jobs.Publisher
	JobStore       jobs.JobStore
	Clock          flow.Clock
	HourlyWage     int
	MonthlyExpense int
	Log            zerolog.Logger
}

// AI is everything the model-backed endpoints need.
type AI interface {
	flow.Parser
	flow.Advisor
}

// NewRouter registers every endpoint and wraps the mux in the middleware
// chain.
func NewRouter(d Deps) http.Handler {
	ledgerHandler := NewLedgerHandler(d.Ledger, d.Clock, d.HourlyWage, d.Log)

	var parser flow.Parser
	var advisor flow.Advisor
	publisher := d.Publisher
	if d.AI != nil {
		parser, advisor = d.AI, d.AI
	} else {
		publisher = nil
	}
	aiHandler := NewAIHandler(d.Ledger, parser, advisor, d.Clock, d.MonthlyExpense, d.Log)
	jobsHandler := NewJobsHandler(publisher, d.JobStore, d.Ledger, d.Clock, d.Log)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/transactions", ledgerHandler.ListTransactions)
	mux.HandleFunc("POST /api/transactions", ledgerHandler.SaveTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", ledgerHandler.UpdateTransaction)
	mux.HandleFunc("GET /api/accounts", ledgerHandler.ListAccounts)
	mux.HandleFunc("POST /api/accounts", ledgerHandler.OpenAccount)
	mux.HandleFunc("GET /api/stats", ledgerHandler.Stats)
	mux.HandleFunc("GET /api/dashboard", ledgerHandler.Dashboard)
	mux.HandleFunc("GET /api/theme", ledgerHandler.GetTheme)
	mux.HandleFunc("PUT /api/theme", ledgerHandler.SetTheme)

	mux.HandleFunc("POST /api/ai/quick", aiHandler.QuickCapture)
	mux.HandleFunc("POST /api/ai/analysis", aiHandler.Analysis)
	mux.HandleFunc("POST /api/ai/simulate", aiHandler.Simulate)

	mux.HandleFunc("POST /api/import", jobsHandler.EnqueueImport)
	mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.GetJob)
	mux.HandleFunc("POST /api/jobs/{id}/confirm", jobsHandler.ConfirmJob)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"ai":       d.AI != nil,
			"revision": d.Ledger.Revision(),
		})
	})

	return middleware.Chain(d.Log, mux)
}
