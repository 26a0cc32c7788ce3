package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/payoff/internal/model"
	"github.com/cleared-dev/payoff/internal/payments"
)

type payOptions struct {
	amount    string
	date      string
	intent    string
	principal string
	interest  string
	memo      string
	scheduled bool
}

func newPayCommand(repo *string) *cobra.Command {
	var opts payOptions

	cmd := &cobra.Command{
		Use:   "pay <account>",
		Short: "Record a payment against a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*repo, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			acct, err := a.resolveDebt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			req, err := opts.request(acct, time.Now())
			if err != nil {
				return err
			}
			res, err := a.payments.ApplyPayment(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.commit(fmt.Sprintf("payment: %s %s on %s", acct.Name, res.TotalPaid.StringFixed(2), req.Date.Format(model.DateFormat)),
				newActivity("pay", string(req.Kind), acct.ID, res.TotalPaid, fmt.Sprintf("%s %s", acct.Name, req.Date.Format(model.DateFormat))))

			tw := newTable(cmd.OutOrStdout())
			tw.row("Principal", res.PrincipalPaid.StringFixed(2))
			tw.row("Interest", res.InterestPaid.StringFixed(2))
			tw.row("Total", res.TotalPaid.StringFixed(2))
			if res.Unapplied.IsPositive() {
				tw.row("Unapplied", res.Unapplied.StringFixed(2))
			}
			tw.row("New balance", res.NewBalance.StringFixed(2))
			tw.row("Remaining months", fmt.Sprint(res.RemainingMonths))
			return tw.flush()
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.amount, "amount", "", "payment amount (required)")
	f.StringVar(&opts.date, "date", "", "payment date YYYY-MM-DD (default today)")
	f.StringVar(&opts.intent, "intent", string(model.IntentMixed), "principal, interest or mixed")
	f.StringVar(&opts.principal, "principal", "", "explicit principal portion (with --interest)")
	f.StringVar(&opts.interest, "interest", "", "explicit interest portion (with --principal)")
	f.StringVar(&opts.memo, "memo", "", "free-form note stored with the entry")
	f.BoolVar(&opts.scheduled, "scheduled", false, "record as the scheduled installment")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func (o payOptions) request(acct model.DebtAccount, now time.Time) (payments.PaymentRequest, error) {
	amount, err := model.ParseMoney(o.amount)
	if err != nil {
		return payments.PaymentRequest{}, model.ValidationError{Field: "amount", Description: err.Error()}
	}
	date := now
	if o.date != "" {
		if date, err = model.ParseDate(o.date); err != nil {
			return payments.PaymentRequest{}, model.ValidationError{Field: "date", Description: err.Error()}
		}
	}

	req := payments.PaymentRequest{
		AccountID: acct.ID,
		Amount:    amount,
		Date:      date,
		Intent:    model.PaymentIntent(strings.ToLower(o.intent)),
		Kind:      model.KindManualPayment,
		Memo:      o.memo,
	}
	if o.scheduled {
		req.Kind = model.KindScheduledPayment
	}

	if o.principal != "" || o.interest != "" {
		p, err := model.ParseMoney(o.principal)
		if err != nil {
			return payments.PaymentRequest{}, model.ValidationError{Field: "principal", Description: err.Error()}
		}
		i, err := model.ParseMoney(o.interest)
		if err != nil {
			return payments.PaymentRequest{}, model.ValidationError{Field: "interest", Description: err.Error()}
		}
		req.Split = &payments.Split{Principal: p, Interest: i}
	}
	return req, nil
}
