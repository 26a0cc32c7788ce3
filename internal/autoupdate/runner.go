// Package autoupdate posts the monthly automatic update to every loan that
// has it enabled, once per billing period.
package autoupdate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/payoff/internal/model"
	"github.com/cleared-dev/payoff/internal/payments"
)

// Lister lists stored accounts.
type Lister interface {
	ListAccounts(ctx context.Context) ([]model.DebtAccount, error)
}

// Applier advances one account by one billing period.
type Applier interface {
	ApplyAutoUpdate(ctx context.Context, id uuid.UUID, period model.BillingPeriod) (payments.AutoUpdateResult, error)
}

// Outcome is what a run did to one account.
type Outcome struct {
	AccountID uuid.UUID
	Name      string
	Result    payments.AutoUpdateResult
	Skipped   string // reason the account was not attempted
	Err       error
}

// Report summarizes one run.
type Report struct {
	Period   model.BillingPeriod
	Outcomes []Outcome
}

// Applied counts the accounts that were advanced.
func (r Report) Applied() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil && o.Result.Applied {
			n++
		}
	}
	return n
}

// Failed counts the accounts whose update returned an error.
func (r Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Runner applies auto-updates across all accounts.
type Runner struct {
	accounts Lister
	applier  Applier
	cycleDay int
	log      logrus.FieldLogger
	afterRun func(Report)
}

// NewRunner creates a Runner for billing cycles starting on cycleDay.
func NewRunner(accounts Lister, applier Applier, cycleDay int, log logrus.FieldLogger) *Runner {
	return &Runner{accounts: accounts, applier: applier, cycleDay: cycleDay, log: log}
}

// RunOnce applies the auto-update for the billing period containing now to
// every enabled, unpaid loan. A failing account is logged and recorded in
// the report; the run continues with the next one.
func (r *Runner) RunOnce(ctx context.Context, now time.Time) (Report, error) {
	period, err := model.PeriodFor(now, r.cycleDay)
	if err != nil {
		return Report{}, err
	}
	accts, err := r.accounts.ListAccounts(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("listing accounts: %w", err)
	}

	report := Report{Period: period}
	for _, acct := range accts {
		if !acct.IsDebt() || !acct.AutoUpdate {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		out := Outcome{AccountID: acct.ID, Name: acct.Name}
		log := r.log.WithFields(logrus.Fields{"account_id": acct.ID, "period": period.String()})

		if !acct.State.CurrentBalance.IsPositive() {
			out.Skipped = "paid off"
			report.Outcomes = append(report.Outcomes, out)
			continue
		}

		out.Result, out.Err = r.applier.ApplyAutoUpdate(ctx, acct.ID, period)
		if out.Err != nil {
			log.WithError(out.Err).Error("auto-update failed")
		}
		report.Outcomes = append(report.Outcomes, out)
	}

	r.log.WithFields(logrus.Fields{
		"period":  period.String(),
		"applied": report.Applied(),
		"failed":  report.Failed(),
	}).Info("auto-update run finished")
	return report, nil
}

// AfterRun registers fn to be called with the report of every scheduled run
// that completed.
func (r *Runner) AfterRun(fn func(Report)) {
	r.afterRun = fn
}

// Start runs RunOnce on the cron schedule until ctx is done. Overlapping
// runs are skipped.
func (r *Runner) Start(ctx context.Context, schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		rep, err := r.RunOnce(ctx, time.Now())
		if err != nil {
			r.log.WithError(err).Error("auto-update run failed")
			return
		}
		if r.afterRun != nil {
			r.afterRun(rep)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling auto-update %q: %w", schedule, err)
	}
	c.Start()

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}
