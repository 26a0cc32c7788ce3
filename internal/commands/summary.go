package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSummaryCommand(repo *string) *cobra.Command {
	return &cobra.Command{
		Use:   "summary [account...]",
		Short: "Report payoff progress for some or all loans",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*repo, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			var ids []uuid.UUID
			for _, arg := range args {
				acct, err := a.resolveDebt(cmd.Context(), arg)
				if err != nil {
					return err
				}
				ids = append(ids, acct.ID)
			}

			rep, err := a.summary.Summarize(cmd.Context(), ids)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rep.Accounts) == 0 {
				fmt.Fprintln(out, "No debt accounts.")
				return nil
			}

			tw := newTable(out)
			tw.row("ACCOUNT", "ORIGINAL", "BALANCE", "PRINCIPAL PAID", "INTEREST PAID", "PAID OFF", "PAYOFF")
			for _, s := range rep.Accounts {
				tw.row(
					s.Name,
					s.OriginalBalance.StringFixed(2),
					s.CurrentBalance.StringFixed(2),
					s.TotalPrincipalPaid.StringFixed(2),
					s.TotalInterestPaid.StringFixed(2),
					paidOff(s.PercentPaidOff),
					optDate(s.ProjectedPayoffDate),
				)
			}
			t := rep.Total
			tw.row(
				fmt.Sprintf("TOTAL (%d)", t.Accounts),
				t.OriginalBalance.StringFixed(2),
				t.CurrentBalance.StringFixed(2),
				t.TotalPrincipalPaid.StringFixed(2),
				t.TotalInterestPaid.StringFixed(2),
				paidOff(t.PercentPaidOff),
				optDate(t.LatestPayoffDate),
			)
			if err := tw.flush(); err != nil {
				return err
			}
			if t.UnprojectedAccounts > 0 {
				fmt.Fprintf(out, "%d account(s) could not be projected.\n", t.UnprojectedAccounts)
			}
			return nil
		},
	}
}
