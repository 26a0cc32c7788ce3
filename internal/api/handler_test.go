package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/payoff/internal/autoupdate"
	"github.com/cleared-dev/payoff/internal/model"
	"github.com/cleared-dev/payoff/internal/payments"
	"github.com/cleared-dev/payoff/internal/store/filestore"
	"github.com/cleared-dev/payoff/internal/summary"
)

type testServer struct {
	router http.Handler
	store  *filestore.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	st := filestore.New(t.TempDir())
	svc := payments.NewService(st, log)
	h := NewHandler(Deps{
		Accounts:  st,
		Payments:  svc,
		Summaries: summary.NewAggregator(st, log),
		Runner:    autoupdate.NewRunner(st, svc, 1, log),
		CycleDay:  1,
		Now:       func() time.Time { return model.Date(2025, 2, 10) },
		Log:       log,
	})
	return &testServer{router: h.Router(), store: st}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (s *testServer) createMortgage(t *testing.T, autoUpdate bool) accountDTO {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/accounts", createAccountRequest{
		Name:                "Mortgage",
		OriginalBalance:     "250000.00",
		APRRate:             "0.035",
		TermMonths:          300,
		PaymentType:         "fixed",
		FixedMonthlyPayment: "1249.25",
		OriginationDate:     "2025-01-15",
		AutoUpdate:          autoUpdate,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[accountDTO](t, rr)
}

func TestCreateAndListAccounts(t *testing.T) {
	s := newTestServer(t)
	created := s.createMortgage(t, true)
	assert.Equal(t, "250000.00", created.CurrentBalance)
	assert.Equal(t, 300, created.RemainingMonths)
	require.NotNil(t, created.Terms)
	assert.Equal(t, "1249.25", created.Terms.FixedMonthlyPayment)

	rr := s.do(t, http.MethodGet, "/accounts", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]accountDTO](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	rr = s.do(t, http.MethodGet, "/accounts/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Mortgage", decode[accountDTO](t, rr).Name)
}

func TestCreateAccount_Invalid(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/accounts", createAccountRequest{
		Name:            "Bad",
		OriginalBalance: "1000.00",
		APRRate:         "0.05",
		TermMonths:      0,
		PaymentType:     "fixed",
		OriginationDate: "2025-01-01",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "term_months", decode[errorDTO](t, rr).Field)
}

func TestGetSchedule(t *testing.T) {
	s := newTestServer(t)
	acct := s.createMortgage(t, false)

	rr := s.do(t, http.MethodGet, "/accounts/"+acct.ID+"/schedule", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	sched := decode[scheduleDTO](t, rr)

	assert.Equal(t, "1249.25", sched.MonthlyPayment)
	require.Len(t, sched.Payments, 300)
	first := sched.Payments[0]
	assert.Equal(t, 1, first.Index)
	assert.Equal(t, "2025-02-15", first.DueDate)
	assert.Equal(t, "729.17", first.InterestPayment)
	assert.Equal(t, "520.08", first.PrincipalPayment)
	assert.Equal(t, "249479.92", first.RemainingBalanceAfter)
	assert.Equal(t, "0.00", sched.Payments[299].RemainingBalanceAfter)
	assert.Equal(t, "250000.00", sched.TotalPrincipal)
}

func TestGetNextPayment(t *testing.T) {
	s := newTestServer(t)
	acct := s.createMortgage(t, false)

	rr := s.do(t, http.MethodGet, "/accounts/"+acct.ID+"/next", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	next := decode[scheduledPaymentDTO](t, rr)
	assert.Equal(t, "729.17", next.InterestPayment)
	assert.Equal(t, "520.08", next.PrincipalPayment)
	assert.Equal(t, "1249.25", next.TotalPayment)
}

func TestApplyPayment(t *testing.T) {
	s := newTestServer(t)
	acct := s.createMortgage(t, false)

	rr := s.do(t, http.MethodPost, "/accounts/"+acct.ID+"/payments", paymentRequest{
		Amount: "1200.00",
		Date:   "2025-02-15",
		Intent: "mixed",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	res := decode[paymentResultDTO](t, rr)
	assert.Equal(t, "499.58", res.PrincipalPaid)
	assert.Equal(t, "700.42", res.InterestPaid)
	assert.Equal(t, "1200.00", res.TotalPaid)
	assert.Equal(t, "249500.42", res.NewBalance)

	entries, err := s.store.Entries(t.Context(), uuid.MustParse(acct.ID))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.KindManualPayment, entries[0].Kind)
}

func TestApplyPayment_ExplicitSplit(t *testing.T) {
	s := newTestServer(t)
	acct := s.createMortgage(t, false)

	rr := s.do(t, http.MethodPost, "/accounts/"+acct.ID+"/payments", paymentRequest{
		Amount:    "1000.00",
		Principal: "900.00",
		Interest:  "100.00",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	res := decode[paymentResultDTO](t, rr)
	assert.Equal(t, "249100.00", res.NewBalance)
}

func TestApplyPayment_Errors(t *testing.T) {
	s := newTestServer(t)
	acct := s.createMortgage(t, false)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"bad id", "/accounts/nope/payments", paymentRequest{Amount: "1.00"}, http.StatusBadRequest},
		{"unknown account", "/accounts/" + uuid.NewString() + "/payments", paymentRequest{Amount: "1.00"}, http.StatusNotFound},
		{"zero amount", "/accounts/" + acct.ID + "/payments", paymentRequest{Amount: "0"}, http.StatusBadRequest},
		{"sub-cent amount", "/accounts/" + acct.ID + "/payments", paymentRequest{Amount: "1.005"}, http.StatusBadRequest},
		{"split mismatch", "/accounts/" + acct.ID + "/payments", paymentRequest{Amount: "10.00", Principal: "1.00", Interest: "1.00"}, http.StatusBadRequest},
		{"malformed body", "/accounts/" + acct.ID + "/payments", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}

func TestApplyAutoUpdate(t *testing.T) {
	s := newTestServer(t)
	acct := s.createMortgage(t, true)
	path := "/accounts/" + acct.ID + "/auto-update"

	rr := s.do(t, http.MethodPost, path, autoUpdateRequest{AsOf: "2025-02-20"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[autoUpdateResultDTO](t, rr)
	assert.True(t, res.Applied)
	assert.Equal(t, "2025-02-01..2025-03-01", res.Period)
	assert.Equal(t, "729.17", res.InterestAdded)
	assert.Equal(t, "249479.92", res.NewBalance)

	// Same period again is a no-op.
	rr = s.do(t, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res = decode[autoUpdateResultDTO](t, rr)
	assert.False(t, res.Applied)
	assert.Equal(t, "0.00", res.InterestAdded)
	assert.Equal(t, "249479.92", res.NewBalance)
}

func TestApplyAutoUpdate_Disabled(t *testing.T) {
	s := newTestServer(t)
	acct := s.createMortgage(t, false)

	rr := s.do(t, http.MethodPost, "/accounts/"+acct.ID+"/auto-update", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRunAutoUpdate(t *testing.T) {
	s := newTestServer(t)
	s.createMortgage(t, true)
	s.createMortgage(t, false)

	rr := s.do(t, http.MethodPost, "/auto-update?as_of=2025-02-20", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	run := decode[autoUpdateRunDTO](t, rr)
	assert.Equal(t, 1, run.Applied)
	assert.Equal(t, 0, run.Failed)
	require.Len(t, run.Outcomes, 1)
	require.NotNil(t, run.Outcomes[0].Result)
}

func TestGetSummary(t *testing.T) {
	s := newTestServer(t)
	acct := s.createMortgage(t, false)
	s.do(t, http.MethodPost, "/accounts/"+acct.ID+"/payments", paymentRequest{Amount: "1200.00", Date: "2025-02-15"})

	rr := s.do(t, http.MethodGet, "/summary?account="+acct.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rep := decode[reportDTO](t, rr)
	require.Len(t, rep.Accounts, 1)
	assert.Equal(t, "499.58", rep.Accounts[0].TotalPrincipalPaid)
	assert.Equal(t, "700.42", rep.Accounts[0].TotalInterestPaid)
	assert.Equal(t, "249500.42", rep.Total.CurrentBalance)
	assert.NotEmpty(t, rep.Accounts[0].ProjectedPayoffDate)

	rr = s.do(t, http.MethodGet, "/summary?account="+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodGet, "/summary?account=bad", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNonDebtAccount(t *testing.T) {
	s := newTestServer(t)
	plain := model.DebtAccount{ID: uuid.New(), Name: "Checking", State: model.LoanState{CurrentBalance: decimal.Zero}}
	require.NoError(t, s.store.CreateAccount(t.Context(), plain))

	rr := s.do(t, http.MethodGet, "/accounts/"+plain.ID.String()+"/schedule", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "not a debt account"))
}
