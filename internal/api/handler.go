// Package api serves the debt engine over a JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/payoff/internal/amortize"
	"github.com/cleared-dev/payoff/internal/autoupdate"
	"github.com/cleared-dev/payoff/internal/model"
	"github.com/cleared-dev/payoff/internal/payments"
	"github.com/cleared-dev/payoff/internal/summary"
)

// Accounts is the account storage the API reads and creates.
type Accounts interface {
	GetAccount(ctx context.Context, id uuid.UUID) (model.DebtAccount, error)
	ListAccounts(ctx context.Context) ([]model.DebtAccount, error)
	CreateAccount(ctx context.Context, acct model.DebtAccount) error
}

// Payments applies payments and auto-updates.
type Payments interface {
	ApplyPayment(ctx context.Context, req payments.PaymentRequest) (payments.PaymentResult, error)
	ApplyAutoUpdate(ctx context.Context, id uuid.UUID, period model.BillingPeriod) (payments.AutoUpdateResult, error)
}

// Summaries builds payoff reports.
type Summaries interface {
	Summarize(ctx context.Context, ids []uuid.UUID) (summary.Report, error)
}

// Handler serves the API.
type Handler struct {
	accounts  Accounts
	payments  Payments
	summaries Summaries
	runner    *autoupdate.Runner
	cycleDay  int
	now       func() time.Time
	log       logrus.FieldLogger
}

// Deps are the Handler's collaborators.
type Deps struct {
	Accounts  Accounts
	Payments  Payments
	Summaries Summaries
	Runner    *autoupdate.Runner
	CycleDay  int
	Now       func() time.Time // defaults to time.Now
	Log       logrus.FieldLogger
}

// NewHandler creates a Handler.
func NewHandler(d Deps) *Handler {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		accounts:  d.Accounts,
		payments:  d.Payments,
		summaries: d.Summaries,
		runner:    d.Runner,
		cycleDay:  d.CycleDay,
		now:       now,
		log:       d.Log,
	}
}

// Router returns a router with every route registered.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger(h.log))
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the API routes on router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/accounts", h.ListAccounts).Methods(http.MethodGet)
	router.HandleFunc("/accounts", h.CreateAccount).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{id}", h.GetAccount).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/schedule", h.GetSchedule).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/next", h.GetNextPayment).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/payments", h.ApplyPayment).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{id}/auto-update", h.ApplyAutoUpdate).Methods(http.MethodPost)
	router.HandleFunc("/auto-update", h.RunAutoUpdate).Methods(http.MethodPost)
	router.HandleFunc("/summary", h.GetSummary).Methods(http.MethodGet)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accts, err := h.accounts.ListAccounts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]accountDTO, len(accts))
	for i, a := range accts {
		out[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, model.ValidationError{Field: "body", Description: err.Error()})
		return
	}
	acct, err := newAccount(req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.accounts.CreateAccount(r.Context(), acct); err != nil {
		h.writeError(w, err)
		return
	}
	h.log.WithFields(logrus.Fields{"account_id": acct.ID, "name": acct.Name}).Info("account created")
	writeJSON(w, http.StatusCreated, toAccountDTO(acct))
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.loadAccount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(acct))
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.loadDebt(w, r)
	if !ok {
		return
	}
	payment, err := amortize.MonthlyPayment(*acct.Terms)
	if err != nil {
		h.writeError(w, err)
		return
	}
	schedule, err := amortize.GenerateSchedule(*acct.Terms)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(acct, payment, schedule))
}

func (h *Handler) GetNextPayment(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.loadDebt(w, r)
	if !ok {
		return
	}
	next, ok := amortize.NextPayment(acct.Terms, acct.State.CurrentBalance)
	if !ok {
		h.writeError(w, model.ComputationError{Description: "no next payment can be computed for this loan"})
		return
	}
	writeJSON(w, http.StatusOK, toScheduledPaymentDTO(next))
}

func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var body paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, model.ValidationError{Field: "body", Description: err.Error()})
		return
	}
	req, err := h.toPaymentRequest(id, body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.payments.ApplyPayment(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResultDTO(res))
}

func (h *Handler) ApplyAutoUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	period, err := h.period(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.payments.ApplyAutoUpdate(r.Context(), id, period)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAutoUpdateResultDTO(period, res))
}

func (h *Handler) RunAutoUpdate(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rep, err := h.runner.RunOnce(r.Context(), asOf)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAutoUpdateRunDTO(rep))
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	var ids []uuid.UUID
	for _, s := range r.URL.Query()["account"] {
		id, err := uuid.Parse(s)
		if err != nil {
			h.writeError(w, model.ValidationError{Field: "account", Description: fmt.Sprintf("%q is not an account ID", s)})
			return
		}
		ids = append(ids, id)
	}
	rep, err := h.summaries.Summarize(r.Context(), ids)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(rep))
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		h.writeError(w, model.ValidationError{Field: "id", Description: fmt.Sprintf("%q is not an account ID", raw)})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) loadAccount(w http.ResponseWriter, r *http.Request) (model.DebtAccount, bool) {
	id, ok := h.pathID(w, r)
	if !ok {
		return model.DebtAccount{}, false
	}
	acct, err := h.accounts.GetAccount(r.Context(), id)
	if errors.Is(err, model.ErrAccountNotFound) {
		err = model.NotFoundError{AccountID: id, Description: "no such account"}
	}
	if err != nil {
		h.writeError(w, err)
		return model.DebtAccount{}, false
	}
	return acct, true
}

func (h *Handler) loadDebt(w http.ResponseWriter, r *http.Request) (model.DebtAccount, bool) {
	acct, ok := h.loadAccount(w, r)
	if !ok {
		return acct, false
	}
	if !acct.IsDebt() {
		h.writeError(w, model.NotFoundError{AccountID: acct.ID, Description: "not a debt account"})
		return acct, false
	}
	return acct, true
}

// asOf reads the optional as_of date from the JSON body or query string.
func (h *Handler) asOf(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if r.ContentLength != 0 && r.Body != nil {
		var body autoUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return time.Time{}, model.ValidationError{Field: "body", Description: err.Error()}
		}
		if body.AsOf != "" {
			raw = body.AsOf
		}
	}
	if raw == "" {
		return h.now(), nil
	}
	t, err := model.ParseDate(raw)
	if err != nil {
		return time.Time{}, model.ValidationError{Field: "as_of", Description: err.Error()}
	}
	return t, nil
}

func (h *Handler) period(r *http.Request) (model.BillingPeriod, error) {
	asOf, err := h.asOf(r)
	if err != nil {
		return model.BillingPeriod{}, err
	}
	return model.PeriodFor(asOf, h.cycleDay)
}

func (h *Handler) toPaymentRequest(id uuid.UUID, body paymentRequest) (payments.PaymentRequest, error) {
	amount, err := model.ParseMoney(body.Amount)
	if err != nil {
		return payments.PaymentRequest{}, model.ValidationError{Field: "amount", Description: err.Error()}
	}
	date := h.now()
	if body.Date != "" {
		if date, err = model.ParseDate(body.Date); err != nil {
			return payments.PaymentRequest{}, model.ValidationError{Field: "date", Description: err.Error()}
		}
	}
	req := payments.PaymentRequest{
		AccountID: id,
		Amount:    amount,
		Date:      date,
		Intent:    model.PaymentIntent(strings.ToLower(body.Intent)),
		Memo:      body.Memo,
	}
	if body.Principal != "" || body.Interest != "" {
		split, err := parseSplit(body.Principal, body.Interest)
		if err != nil {
			return payments.PaymentRequest{}, err
		}
		req.Split = &split
	}
	return req, nil
}

func parseSplit(principal, interest string) (payments.Split, error) {
	p, err := model.ParseMoney(principal)
	if err != nil {
		return payments.Split{}, model.ValidationError{Field: "principal", Description: err.Error()}
	}
	i, err := model.ParseMoney(interest)
	if err != nil {
		return payments.Split{}, model.ValidationError{Field: "interest", Description: err.Error()}
	}
	return payments.Split{Principal: p, Interest: i}, nil
}

func newAccount(req createAccountRequest) (model.DebtAccount, error) {
	if strings.TrimSpace(req.Name) == "" {
		return model.DebtAccount{}, model.ValidationError{Field: "name", Description: "is required"}
	}
	original, err := model.ParseMoney(req.OriginalBalance)
	if err != nil {
		return model.DebtAccount{}, model.ValidationError{Field: "original_balance", Description: err.Error()}
	}
	apr, err := decimal.NewFromString(req.APRRate)
	if err != nil {
		return model.DebtAccount{}, model.ValidationError{Field: "apr_rate", Description: err.Error()}
	}
	orig, err := model.ParseDate(req.OriginationDate)
	if err != nil {
		return model.DebtAccount{}, model.ValidationError{Field: "origination_date", Description: err.Error()}
	}
	terms := model.LoanTerms{
		OriginalBalance: original,
		APRRate:         apr,
		TermMonths:      req.TermMonths,
		PaymentType:     model.PaymentType(req.PaymentType),
		OriginationDate: orig,
	}
	if req.FixedMonthlyPayment != "" {
		p, err := model.ParseMoney(req.FixedMonthlyPayment)
		if err != nil {
			return model.DebtAccount{}, model.ValidationError{Field: "fixed_monthly_payment", Description: err.Error()}
		}
		terms.FixedMonthlyPayment = decimal.NewNullDecimal(p)
	}
	if err := amortize.Validate(terms); err != nil {
		return model.DebtAccount{}, err
	}
	return model.NewDebtAccount(req.Name, terms, req.AutoUpdate), nil
}

// writeError maps typed domain errors to HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		ve model.ValidationError
		ce model.ComputationError
		ne model.NotFoundError
		se model.StateError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorDTO{Error: ve.Error(), Field: ve.Field})
	case errors.As(err, &ce):
		writeJSON(w, http.StatusUnprocessableEntity, errorDTO{Error: ce.Error()})
	case errors.As(err, &ne):
		writeJSON(w, http.StatusNotFound, errorDTO{Error: ne.Error()})
	case errors.As(err, &se):
		writeJSON(w, http.StatusConflict, errorDTO{Error: se.Error()})
	default:
		h.log.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorDTO{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
