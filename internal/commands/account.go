package commands

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/payoff/internal/amortize"
	"github.com/cleared-dev/payoff/internal/model"
)

func newAccountCommand(repo *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage debt accounts",
	}
	cmd.AddCommand(newAccountAddCommand(repo), newAccountListCommand(repo))
	return cmd
}

type accountAddOptions struct {
	name        string
	balance     string
	apr         string
	term        int
	paymentType string
	payment     string
	origination string
	autoUpdate  bool
}

func newAccountAddCommand(repo *string) *cobra.Command {
	var opts accountAddOptions

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a loan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			terms, err := opts.terms()
			if err != nil {
				return err
			}
			a, err := openApp(*repo, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			acct := model.NewDebtAccount(opts.name, terms, opts.autoUpdate)
			if err := a.store.CreateAccount(cmd.Context(), acct); err != nil {
				return err
			}
			a.commit(fmt.Sprintf("account: Add %s", acct.Name),
				newActivity("account add", "create_account", acct.ID, terms.OriginalBalance, acct.Name))

			payment, err := amortize.MonthlyPayment(terms)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s), monthly payment %s\n", acct.Name, acct.ID, payment.StringFixed(2))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.name, "name", "", "account name (required)")
	f.StringVar(&opts.balance, "balance", "", "original balance, e.g. 250000.00 (required)")
	f.StringVar(&opts.apr, "apr", "", "annual rate as a fraction, e.g. 0.035 (required)")
	f.IntVar(&opts.term, "term", 0, "term in months (required)")
	f.StringVar(&opts.paymentType, "type", string(model.PaymentTypeFixed), "payment type: fixed or interest_only")
	f.StringVar(&opts.payment, "payment", "", "fixed monthly payment from the loan documents")
	f.StringVar(&opts.origination, "origination", "", "origination date YYYY-MM-DD (required)")
	f.BoolVar(&opts.autoUpdate, "auto-update", false, "advance the loan automatically each billing period")
	for _, name := range []string{"name", "balance", "apr", "term", "origination"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func (o accountAddOptions) terms() (model.LoanTerms, error) {
	if strings.TrimSpace(o.name) == "" {
		return model.LoanTerms{}, model.ValidationError{Field: "name", Description: "is required"}
	}
	balance, err := model.ParseMoney(o.balance)
	if err != nil {
		return model.LoanTerms{}, model.ValidationError{Field: "original_balance", Description: err.Error()}
	}
	apr, err := decimal.NewFromString(o.apr)
	if err != nil {
		return model.LoanTerms{}, model.ValidationError{Field: "apr_rate", Description: err.Error()}
	}
	orig, err := model.ParseDate(o.origination)
	if err != nil {
		return model.LoanTerms{}, model.ValidationError{Field: "origination_date", Description: err.Error()}
	}

	terms := model.LoanTerms{
		OriginalBalance: balance,
		APRRate:         apr,
		TermMonths:      o.term,
		PaymentType:     model.PaymentType(o.paymentType),
		OriginationDate: orig,
	}
	if o.payment != "" {
		p, err := model.ParseMoney(o.payment)
		if err != nil {
			return model.LoanTerms{}, model.ValidationError{Field: "fixed_monthly_payment", Description: err.Error()}
		}
		terms.FixedMonthlyPayment = decimal.NewNullDecimal(p)
	}
	if err := amortize.Validate(terms); err != nil {
		return model.LoanTerms{}, err
	}
	return terms, nil
}

func newAccountListCommand(repo *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*repo, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			accts, err := a.store.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}
			if len(accts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No accounts.")
				return nil
			}

			tw := newTable(cmd.OutOrStdout())
			tw.row("ID", "NAME", "BALANCE", "APR", "REMAINING", "TYPE", "AUTO")
			for _, acct := range accts {
				if !acct.IsDebt() {
					tw.row(acct.ID.String(), acct.Name, acct.State.CurrentBalance.StringFixed(2), "-", "-", "-", "-")
					continue
				}
				tw.row(
					acct.ID.String(),
					acct.Name,
					acct.State.CurrentBalance.StringFixed(2),
					percent(acct.Terms.APRRate),
					fmt.Sprintf("%d/%d", acct.State.RemainingMonths, acct.Terms.TermMonths),
					string(acct.Terms.PaymentType),
					yesNo(acct.AutoUpdate),
				)
			}
			return tw.flush()
		},
	}
}
