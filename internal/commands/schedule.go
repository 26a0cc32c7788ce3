package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/payoff/internal/amortize"
	"github.com/cleared-dev/payoff/internal/model"
)

func newScheduleCommand(repo *string) *cobra.Command {
	var summaryOnly bool

	cmd := &cobra.Command{
		Use:   "schedule <account>",
		Short: "Print a loan's amortization schedule from origination",
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
			payment, err := amortize.MonthlyPayment(*acct.Terms)
			if err != nil {
				return err
			}
			schedule, err := amortize.GenerateSchedule(*acct.Terms)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s at %s over %d months, payment %s\n",
				acct.Name,
				acct.Terms.OriginalBalance.StringFixed(2),
				percent(acct.Terms.APRRate),
				acct.Terms.TermMonths,
				payment.StringFixed(2),
			)

			if !summaryOnly {
				tw := newTable(out)
				tw.row("#", "DUE", "PRINCIPAL", "INTEREST", "PAYMENT", "BALANCE")
				for _, p := range schedule {
					tw.row(
						strconv.Itoa(p.Index),
						p.DueDate.Format(model.DateFormat),
						p.PrincipalPayment.StringFixed(2),
						p.InterestPayment.StringFixed(2),
						p.TotalPayment.StringFixed(2),
						p.RemainingBalanceAfter.StringFixed(2),
					)
				}
				if err := tw.flush(); err != nil {
					return err
				}
			}

			totals := amortize.Totals(schedule)
			fmt.Fprintf(out, "Total principal %s, interest %s, paid %s\n",
				totals.Principal.StringFixed(2), totals.Interest.StringFixed(2), totals.Payments.StringFixed(2))
			if i := amortize.PayoffIndex(schedule); i >= 0 {
				fmt.Fprintf(out, "Paid off %s\n", schedule[i].DueDate.Format(model.DateFormat))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&summaryOnly, "totals", false, "print only the totals")
	return cmd
}

func newNextCommand(repo *string) *cobra.Command {
	return &cobra.Command{
		Use:   "next <account>",
		Short: "Show the next payment at the loan's current balance",
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
			next, ok := amortize.NextPayment(acct.Terms, acct.State.CurrentBalance)
			if !ok {
				return model.ComputationError{Description: "no next payment can be computed for " + acct.Name}
			}

			tw := newTable(cmd.OutOrStdout())
			tw.row("Balance", acct.State.CurrentBalance.StringFixed(2))
			tw.row("Principal", next.PrincipalPayment.StringFixed(2))
			tw.row("Interest", next.InterestPayment.StringFixed(2))
			tw.row("Payment", next.TotalPayment.StringFixed(2))
			tw.row("Balance after", next.RemainingBalanceAfter.StringFixed(2))
			return tw.flush()
		},
	}
}
