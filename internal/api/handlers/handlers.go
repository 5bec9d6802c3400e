package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dvloznov/smart-finance/internal/api/middleware"
	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/flow"
	"github.com/dvloznov/smart-finance/internal/ledger"
	"github.com/dvloznov/smart-finance/internal/stats"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerHandler handles transaction, account, stats and theme endpoints.
type LedgerHandler struct {
	ledger     *ledger.Ledger
	clock      flow.Clock
	hourlyWage int
	log        zerolog.Logger
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(l *ledger.Ledger, clock flow.Clock, hourlyWage int, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger:     l,
		clock:      clock,
		hourlyWage: hourlyWage,
		log:        log,
	}
}

// ListTransactions handles GET /api/transactions
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var txs []domain.Transaction
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		txs = h.ledger.Recent(limit)
	} else {
		txs = h.ledger.Transactions()
	}

	if category := query.Get("category"); category != "" {
		filtered := txs[:0]
		for _, tx := range txs {
			if tx.Category == category {
				filtered = append(filtered, tx)
			}
		}
		txs = filtered
	}

	if txs == nil {
		txs = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, txs)
}

// transactionPatch is a transaction request body. Fields left out of the
// JSON keep the form's prefilled value: defaults for a new transaction, the
// stored value for an edit.
type transactionPatch struct {
	ID          string  `json:"id,omitempty"`
	Date        *string `json:"date"`
	Amount      *string `json:"amount"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Type        *string `json:"type"`
	AccountID   *string `json:"accountId"`
	Mood        *string `json:"mood"`
	Merchant    *string `json:"merchant"`
}

func (p transactionPatch) apply(in flow.FormInput) flow.FormInput {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&in.Date, p.Date)
	set(&in.Amount, p.Amount)
	set(&in.Category, p.Category)
	set(&in.Description, p.Description)
	set(&in.Type, p.Type)
	set(&in.AccountID, p.AccountID)
	set(&in.Mood, p.Mood)
	set(&in.Merchant, p.Merchant)
	return in
}

// SaveTransaction handles POST /api/transactions. A body with an id edits
// that transaction; without one a new transaction is recorded.
func (h *LedgerHandler) SaveTransaction(w http.ResponseWriter, r *http.Request) {
	var patch transactionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.submit(w, r, patch)
}

// UpdateTransaction handles PUT /api/transactions/{id}
func (h *LedgerHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var patch transactionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	patch.ID = r.PathValue("id")
	h.submit(w, r, patch)
}

func (h *LedgerHandler) submit(w http.ResponseWriter, r *http.Request, patch transactionPatch) {
	ctx := r.Context()
	form := flow.NewForm(h.ledger, h.clock, h.hourlyWage)

	status := http.StatusCreated
	if patch.ID != "" {
		existing, ok := h.ledger.Transaction(patch.ID)
		if !ok {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		_ = form.OpenEdit(existing)
		status = http.StatusOK
	} else {
		_ = form.OpenNew()
	}
	form.SetInput(patch.apply(form.Input()))

	saved, err := form.Submit(ctx)
	if err != nil {
		writeErr(w, h.log, err, "Failed to save transaction")
		return
	}

	resp := map[string]interface{}{"transaction": saved}
	if saved.Type == domain.TypeExpense {
		resp["laborHours"] = domain.LaborHours(saved.Amount, decimal.NewFromInt(int64(h.hourlyWage)))
	}
	middleware.WriteJSON(w, status, resp)
}

// ListAccounts handles GET /api/accounts
func (h *LedgerHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.ledger.Accounts())
}

// OpenAccount handles POST /api/accounts
func (h *LedgerHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Type    string `json:"type"`
		Balance string `json:"balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	opening := decimal.Zero
	if req.Balance != "" {
		var err error
		if opening, err = decimal.NewFromString(req.Balance); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid balance")
			return
		}
	}

	acc, err := h.ledger.OpenAccount(r.Context(), req.Name, domain.AccountType(req.Type), opening)
	if err != nil {
		writeErr(w, h.log, err, "Failed to open account")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, acc)
}

// Stats handles GET /api/stats
func (h *LedgerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.ledger.Stats())
}

// Dashboard handles GET /api/dashboard: everything the home and wealth
// views render in one response.
func (h *LedgerHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	txs := h.ledger.Transactions()
	accounts := h.ledger.Accounts()
	theme := h.ledger.Theme()

	recent := txs
	if len(recent) > 5 {
		recent = recent[:5]
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"stats":             h.ledger.Stats(),
		"expenseByCategory": stats.ExpenseByCategory(txs),
		"netWorthByType":    stats.NetWorthByType(accounts),
		"budgets":           stats.BudgetProgress(nil),
		"recent":            recent,
		"accounts":          accounts,
		"theme":             theme,
		"palette":           theme.Palette(),
	})
}

// GetTheme handles GET /api/theme
func (h *LedgerHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	theme := h.ledger.Theme()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"theme":   theme,
		"palette": theme.Palette(),
		"themes":  domain.Themes,
	})
}

// SetTheme handles PUT /api/theme
func (h *LedgerHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	theme, err := domain.ParseTheme(req.Theme)
	if err != nil {
		writeErr(w, h.log, err, "Failed to set theme")
		return
	}
	if err := h.ledger.SetTheme(r.Context(), theme); err != nil {
		writeErr(w, h.log, err, "Failed to set theme")
		return
	}
	h.GetTheme(w, r)
}

// writeErr maps domain and flow errors to HTTP status codes.
func writeErr(w http.ResponseWriter, log zerolog.Logger, err error, msg string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.WriteError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, ledger.ErrTransactionNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, flow.ErrNoAmount):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "No amount recognised")
	case errors.Is(err, flow.ErrNothingToConfirm):
		middleware.WriteError(w, http.StatusConflict, "Nothing to confirm")
	case isGatewayError(err):
		log.Warn().Err(err).Msg(msg)
		middleware.WriteError(w, gatewayStatus(err), msg)
	default:
		log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	}
}
