package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/gateway"
	"github.com/dvloznov/smart-finance/internal/jobs"
	"github.com/dvloznov/smart-finance/internal/jobs/inmemory"
	"github.com/dvloznov/smart-finance/internal/ledger"
	"github.com/dvloznov/smart-finance/internal/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAI struct {
	ParseTextFunc     func(ctx context.Context, text string) (domain.Draft, error)
	ParseImageFunc    func(ctx context.Context, img gateway.Image) ([]domain.Draft, error)
	AnalyzeHealthFunc func(ctx context.Context, recent []domain.Transaction, netWorth decimal.Decimal) (string, error)
	SimulateFunc      func(ctx context.Context, scenario string, status gateway.Status) (domain.SimulationResult, error)
}

func (m *mockAI) ParseText(ctx context.Context, text string) (domain.Draft, error) {
	return m.ParseTextFunc(ctx, text)
}

func (m *mockAI) ParseImage(ctx context.Context, img gateway.Image) ([]domain.Draft, error) {
	return m.ParseImageFunc(ctx, img)
}

func (m *mockAI) AnalyzeHealth(ctx context.Context, recent []domain.Transaction, netWorth decimal.Decimal) (string, error) {
	return m.AnalyzeHealthFunc(ctx, recent, netWorth)
}

func (m *mockAI) Simulate(ctx context.Context, scenario string, status gateway.Status) (domain.SimulationResult, error) {
	return m.SimulateFunc(ctx, scenario, status)
}

var _ AI = (*mockAI)(nil)

type testServer struct {
	handler http.Handler
	ledger  *ledger.Ledger
	store   *inmemory.Store
}

func newTestServer(t *testing.T, ai *mockAI) *testServer {
	t.Helper()
	n := 0
	l := ledger.New(ledger.Snapshot{Accounts: domain.InitialAccounts()}, nil, ledger.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("tx-%d", n)
	}))

	store := inmemory.NewStore()
	queue := inmemory.NewQueue(4, store)

	deps := Deps{
		Ledger:         l,
		Publisher:      queue,
		JobStore:       store,
		Clock:          func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local) },
		HourlyWage:     200,
		MonthlyExpense: 25000,
		Log:            logger.NewWithWriter(&bytes.Buffer{}),
	}
	if ai != nil {
		deps.AI = ai
		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, queue.Start(ctx, jobs.NewParseImageHandler(ai)))
		t.Cleanup(func() {
			cancel()
			queue.Close()
		})
	}

	return &testServer{handler: NewRouter(deps), ledger: l, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestTransactions_AddEditList(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/transactions", map[string]string{
		"date": "2026-05-01", "amount": "400", "category": domain.CategoryFood,
		"description": "dinner", "type": "expense", "accountId": "acc1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Transaction domain.Transaction `json:"transaction"`
		LaborHours  string             `json:"laborHours"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "tx-1", created.Transaction.ID)
	assert.Equal(t, "2", created.LaborHours)

	rec = s.do(t, http.MethodPut, "/api/transactions/tx-1", map[string]string{
		"date": "2026-05-01", "amount": "100", "category": domain.CategoryFood,
		"description": "dinner", "type": "expense", "accountId": "acc1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	acc, _ := s.ledger.Account("acc1")
	assert.True(t, decimal.NewFromInt(4900).Equal(acc.Balance))

	rec = s.do(t, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.Transaction
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.True(t, decimal.NewFromInt(100).Equal(list[0].Amount))
}

func TestTransactions_OmittedFieldsKeepDefaults(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/transactions", map[string]string{
		"amount": "250", "description": "taxi",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Transaction domain.Transaction `json:"transaction"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "acc1", created.Transaction.AccountID)
	assert.Equal(t, domain.TypeExpense, created.Transaction.Type)
	assert.Equal(t, domain.Categories[0], created.Transaction.Category)
	assert.Equal(t, "2026-05-01", created.Transaction.Date.String())

	acc, _ := s.ledger.Account("acc1")
	assert.True(t, decimal.NewFromInt(4750).Equal(acc.Balance), acc.Balance.String())

	// A partial edit changes only the fields it names.
	rec = s.do(t, http.MethodPut, "/api/transactions/tx-1", map[string]string{"amount": "300"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	tx, ok := s.ledger.Transaction("tx-1")
	require.True(t, ok)
	assert.Equal(t, "taxi", tx.Description)
	assert.Equal(t, "acc1", tx.AccountID)
	acc, _ = s.ledger.Account("acc1")
	assert.True(t, decimal.NewFromInt(4700).Equal(acc.Balance), acc.Balance.String())
}

func TestTransactions_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/transactions", map[string]string{"amount": "", "type": "expense", "date": "2026-05-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/transactions/nope", map[string]string{"amount": "1", "type": "expense", "date": "2026-05-01"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Empty(t, s.ledger.Transactions())
}

func TestAccountsAndTheme(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/accounts", map[string]string{"name": "LINE Pay", "type": "e-pay", "balance": "300"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/accounts", map[string]string{"name": "x", "type": "crypto"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/accounts", nil)
	var accounts []domain.Account
	decode(t, rec, &accounts)
	assert.Len(t, accounts, 5)

	rec = s.do(t, http.MethodPut, "/api/theme", map[string]string{"theme": "mha"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ThemeMHA, s.ledger.Theme())

	rec = s.do(t, http.MethodPut, "/api/theme", map[string]string{"theme": "vaporwave"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dash map[string]json.RawMessage
	decode(t, rec, &dash)
	assert.Contains(t, dash, "stats")
	assert.Contains(t, dash, "palette")
	assert.Contains(t, dash, "netWorthByType")
}

func TestAI_DisabledWithoutKey(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/api/ai/quick", "/api/ai/analysis", "/api/ai/simulate", "/api/import"} {
		rec := s.do(t, http.MethodPost, path, map[string]string{})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestAI_QuickCapture(t *testing.T) {
	amt := decimal.NewFromInt(65)
	s := newTestServer(t, &mockAI{
		ParseTextFunc: func(ctx context.Context, text string) (domain.Draft, error) {
			if text == "hello" {
				return domain.Draft{}, nil
			}
			if text == "broken" {
				return domain.Draft{}, fmt.Errorf("ParseText: %w", gateway.ErrModelCall)
			}
			return domain.Draft{Amount: &amt, Category: domain.CategoryTransport}, nil
		},
	})

	rec := s.do(t, http.MethodPost, "/api/ai/quick", map[string]string{"text": "捷運 65"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tx domain.Transaction
	decode(t, rec, &tx)
	assert.Equal(t, "捷運 65", tx.Description)
	assert.Equal(t, "acc1", tx.AccountID)

	rec = s.do(t, http.MethodPost, "/api/ai/quick", map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/ai/quick", map[string]string{"text": "broken"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	assert.Len(t, s.ledger.Transactions(), 1)
}

func TestAI_AnalysisFallback(t *testing.T) {
	s := newTestServer(t, &mockAI{
		AnalyzeHealthFunc: func(ctx context.Context, recent []domain.Transaction, netWorth decimal.Decimal) (string, error) {
			return "", gateway.ErrModelCall
		},
	})

	rec := s.do(t, http.MethodPost, "/api/ai/analysis", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Text     string `json:"text"`
		Fallback bool   `json:"fallback"`
	}
	decode(t, rec, &body)
	assert.Equal(t, gateway.AnalysisFallback, body.Text)
	assert.True(t, body.Fallback)
}

func TestAI_Simulate(t *testing.T) {
	s := newTestServer(t, &mockAI{
		SimulateFunc: func(ctx context.Context, scenario string, status gateway.Status) (domain.SimulationResult, error) {
			return domain.SimulationResult{Scenario: scenario, SafetyScore: 55, Recommendation: "ok"}, nil
		},
	})

	rec := s.do(t, http.MethodPost, "/api/ai/simulate", map[string]string{"scenario": "換手機"})
	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.SimulationResult
	decode(t, rec, &res)
	assert.Equal(t, 55.0, res.SafetyScore)

	rec = s.do(t, http.MethodPost, "/api/ai/simulate", map[string]string{"scenario": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImport_JobLifecycle(t *testing.T) {
	amt := decimal.NewFromInt(180)
	s := newTestServer(t, &mockAI{
		ParseImageFunc: func(ctx context.Context, img gateway.Image) ([]domain.Draft, error) {
			assert.Equal(t, "image/png", img.MIMEType)
			return []domain.Draft{{Amount: &amt, Category: domain.CategoryShopping, Description: "socks"}}, nil
		},
	})

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("fake-png"))
	rec := s.do(t, http.MethodPost, "/api/import", map[string]string{"image": dataURL})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var accepted map[string]string
	decode(t, rec, &accepted)
	jobID := accepted["job_id"]
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		job, err := s.store.GetJob(context.Background(), jobID)
		return err == nil && job.Status == jobs.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	rec = s.do(t, http.MethodGet, "/api/jobs/"+jobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Confirmable bool `json:"confirmable"`
	}
	decode(t, rec, &got)
	assert.True(t, got.Confirmable)

	rec = s.do(t, http.MethodPost, "/api/jobs/"+jobID+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, s.ledger.Transactions(), 1)
	assert.Equal(t, "acc1", s.ledger.Transactions()[0].AccountID)

	rec = s.do(t, http.MethodPost, "/api/jobs/"+jobID+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, s.ledger.Transactions(), 1)

	rec = s.do(t, http.MethodGet, "/api/jobs", nil)
	var listed struct {
		Count int `json:"count"`
	}
	decode(t, rec, &listed)
	assert.Equal(t, 1, listed.Count)
}

func TestImport_FailedJobCannotConfirm(t *testing.T) {
	s := newTestServer(t, &mockAI{
		ParseImageFunc: func(ctx context.Context, img gateway.Image) ([]domain.Draft, error) {
			return nil, gateway.ErrMalformedReply
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader([]byte{0x89, 'P', 'N', 'G'}))
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted map[string]string
	decode(t, rec, &accepted)

	require.Eventually(t, func() bool {
		job, err := s.store.GetJob(context.Background(), accepted["job_id"])
		return err == nil && job.Status == jobs.JobStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	rec = s.do(t, http.MethodPost, "/api/jobs/"+accepted["job_id"]+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, s.ledger.Transactions())
}

func TestImport_BadImage(t *testing.T) {
	s := newTestServer(t, &mockAI{})
	rec := s.do(t, http.MethodPost, "/api/import", map[string]string{"image": "not a data url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
