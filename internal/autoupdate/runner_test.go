package autoupdate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/payoff/internal/model"
	"github.com/cleared-dev/payoff/internal/payments"
)

type fakeLister []model.DebtAccount

func (f fakeLister) ListAccounts(context.Context) ([]model.DebtAccount, error) {
	return f, nil
}

type fakeApplier struct {
	mu      sync.Mutex
	calls   map[uuid.UUID]model.BillingPeriod
	failFor uuid.UUID
}

func (f *fakeApplier) ApplyAutoUpdate(_ context.Context, id uuid.UUID, period model.BillingPeriod) (payments.AutoUpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[uuid.UUID]model.BillingPeriod)
	}
	f.calls[id] = period
	if id == f.failFor {
		return payments.AutoUpdateResult{}, errors.New("disk full")
	}
	return payments.AutoUpdateResult{Applied: true, NewBalance: decimal.NewFromInt(1)}, nil
}

func loan(name string, autoUpdate bool, balance int64) model.DebtAccount {
	a := model.NewDebtAccount(name, model.LoanTerms{
		OriginalBalance: decimal.NewFromInt(1000),
		APRRate:         decimal.RequireFromString("0.05"),
		TermMonths:      12,
		PaymentType:     model.PaymentTypeFixed,
		OriginationDate: model.Date(2025, 1, 1),
	}, autoUpdate)
	a.State.CurrentBalance = decimal.NewFromInt(balance)
	return a
}

func TestRunOnce(t *testing.T) {
	enabled := loan("Enabled", true, 500)
	failing := loan("Failing", true, 500)
	disabled := loan("Disabled", false, 500)
	paidOff := loan("Paid off", true, 0)
	plain := model.DebtAccount{ID: uuid.New(), Name: "Checking", AutoUpdate: true}

	applier := &fakeApplier{failFor: failing.ID}
	log, hook := logtest.NewNullLogger()
	r := NewRunner(fakeLister{enabled, failing, disabled, paidOff, plain}, applier, 15, log)

	report, err := r.RunOnce(context.Background(), model.Date(2025, 3, 20))
	require.NoError(t, err)

	want := model.BillingPeriod{Start: model.Date(2025, 3, 15), End: model.Date(2025, 4, 15)}
	assert.Equal(t, want, report.Period)
	assert.Equal(t, 1, report.Applied())
	assert.Equal(t, 1, report.Failed())

	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, enabled.ID, report.Outcomes[0].AccountID)
	assert.Equal(t, failing.ID, report.Outcomes[1].AccountID)
	assert.ErrorContains(t, report.Outcomes[1].Err, "disk full")
	assert.Equal(t, "paid off", report.Outcomes[2].Skipped)

	assert.Len(t, applier.calls, 2)
	assert.Equal(t, want, applier.calls[enabled.ID])
	_, called := applier.calls[disabled.ID]
	assert.False(t, called)

	var sawFailure bool
	for _, e := range hook.AllEntries() {
		if e.Message == "auto-update failed" {
			sawFailure = true
			assert.Equal(t, failing.ID, e.Data["account_id"])
		}
	}
	assert.True(t, sawFailure)
}

func TestRunOnce_BadCycleDay(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	r := NewRunner(fakeLister{}, &fakeApplier{}, 30, log)
	_, err := r.RunOnce(context.Background(), model.Date(2025, 3, 20))

	var ve model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "cycle_day", ve.Field)
}

func TestStart_BadSchedule(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	r := NewRunner(fakeLister{}, &fakeApplier{}, 1, log)
	_, err := r.Start(context.Background(), "whenever")
	assert.ErrorContains(t, err, "scheduling auto-update")
}

func TestStart_StopsWithContext(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	r := NewRunner(fakeLister{}, &fakeApplier{}, 1, log)
	ctx, cancel := context.WithCancel(context.Background())

	c, err := r.Start(ctx, "@every 1h")
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	cancel()
}

func TestStart_AfterRun(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	acct := loan("Enabled", true, 500)
	r := NewRunner(fakeLister{acct}, &fakeApplier{}, 1, log)

	reports := make(chan Report, 4)
	r.AfterRun(func(rep Report) { reports <- rep })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := r.Start(ctx, "@every 1s")
	require.NoError(t, err)

	select {
	case rep := <-reports:
		assert.Equal(t, 1, rep.Applied())
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled run did not happen")
	}
}
