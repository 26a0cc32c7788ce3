package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/payoff/internal/activity"
	"github.com/cleared-dev/payoff/internal/autoupdate"
	"github.com/cleared-dev/payoff/internal/config"
	"github.com/cleared-dev/payoff/internal/gitops"
	"github.com/cleared-dev/payoff/internal/logging"
	"github.com/cleared-dev/payoff/internal/model"
	"github.com/cleared-dev/payoff/internal/payments"
	"github.com/cleared-dev/payoff/internal/store"
	"github.com/cleared-dev/payoff/internal/summary"
)

// app is an opened project: config, logger, store and services.
type app struct {
	root     string
	cfg      *config.Config
	log      *logrus.Logger
	store    store.Store
	payments *payments.Service
	summary  *summary.Aggregator

	commitMu sync.Mutex
}

func openApp(repo string, logOut io.Writer) (*app, error) {
	root, err := filepath.Abs(repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.LoadProject(root)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Logging, logOut)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg, root)
	if err != nil {
		return nil, err
	}
	return &app{
		root:     root,
		cfg:      cfg,
		log:      log,
		store:    st,
		payments: payments.NewService(st, log),
		summary:  summary.NewAggregator(st, log),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) runner() *autoupdate.Runner {
	return autoupdate.NewRunner(a.store, a.payments, a.cfg.Billing.CycleDay, a.log)
}

// scheduledRunner is a runner that commits after every run that advanced a
// loan.
func (a *app) scheduledRunner(command string) *autoupdate.Runner {
	r := a.runner()
	r.AfterRun(func(rep autoupdate.Report) {
		a.commitAutoUpdates(command, rep)
	})
	return r
}

// commitAutoUpdates logs and commits the accounts a run advanced.
func (a *app) commitAutoUpdates(command string, rep autoupdate.Report) {
	var entries []activity.Entry
	for _, o := range rep.Outcomes {
		if o.Err != nil || !o.Result.Applied {
			continue
		}
		entries = append(entries, newActivity(command, string(model.KindAutoUpdate), o.AccountID,
			o.Result.InterestAdded, fmt.Sprintf("%s %s", o.Name, rep.Period)))
	}
	if len(entries) == 0 {
		return
	}
	a.commit(fmt.Sprintf("autoupdate: %s (%d accounts)", rep.Period.Start.Format(model.DateFormat), len(entries)), entries...)
}

func newActivity(command, action string, id uuid.UUID, amount decimal.Decimal, details string) activity.Entry {
	return activity.Entry{
		Timestamp: time.Now(),
		Command:   command,
		Action:    action,
		AccountID: id,
		Amount:    decimal.NewNullDecimal(amount),
		Details:   details,
	}
}

// commit appends entries to the activity log and records pending project
// changes in git. Failures are logged; the mutation itself already
// succeeded.
func (a *app) commit(message string, entries ...activity.Entry) {
	a.commitMu.Lock()
	defer a.commitMu.Unlock()

	if len(entries) > 0 {
		if err := activity.Append(a.root, entries); err != nil {
			a.log.WithError(err).Warn("writing activity log failed")
		}
	}
	hash, err := gitops.AutoCommit(a.cfg.Git, a.root, message)
	if err != nil {
		a.log.WithError(err).Warn("auto-commit failed")
		return
	}
	if hash != "" {
		a.log.WithField("commit", hash).Debug("committed")
	}
}

// resolveAccount accepts an account ID or a unique, case-insensitive name.
func (a *app) resolveAccount(ctx context.Context, arg string) (model.DebtAccount, error) {
	if id, err := uuid.Parse(arg); err == nil {
		acct, err := a.store.GetAccount(ctx, id)
		if errors.Is(err, model.ErrAccountNotFound) {
			return model.DebtAccount{}, model.NotFoundError{AccountID: id, Description: "no such account"}
		}
		return acct, err
	}

	all, err := a.store.ListAccounts(ctx)
	if err != nil {
		return model.DebtAccount{}, err
	}
	var matches []model.DebtAccount
	for _, acct := range all {
		if strings.EqualFold(acct.Name, arg) {
			matches = append(matches, acct)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return model.DebtAccount{}, model.NotFoundError{Description: fmt.Sprintf("no account named %q", arg)}
	default:
		return model.DebtAccount{}, model.ValidationError{Field: "account", Description: fmt.Sprintf("%d accounts are named %q; use the ID", len(matches), arg)}
	}
}

func (a *app) resolveDebt(ctx context.Context, arg string) (model.DebtAccount, error) {
	acct, err := a.resolveAccount(ctx, arg)
	if err != nil {
		return acct, err
	}
	if !acct.IsDebt() {
		return acct, model.NotFoundError{AccountID: acct.ID, Description: "not a debt account"}
	}
	return acct, nil
}
