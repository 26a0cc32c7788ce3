package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/payoff/internal/activity"
)

func newLogCommand(repo *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log [account]",
		Short: "Show recent changes made through the CLI",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*repo, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := activity.Read(a.root)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				acct, err := a.resolveAccount(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				entries = activity.ForAccount(entries, acct.ID)
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No activity.")
				return nil
			}
			tw := newTable(out)
			tw.row("WHEN", "COMMAND", "ACTION", "AMOUNT", "DETAILS")
			for _, e := range entries {
				amount := "-"
				if e.Amount.Valid {
					amount = e.Amount.Decimal.StringFixed(2)
				}
				tw.row(e.Timestamp.Local().Format(time.DateTime), e.Command, e.Action, amount, e.Details)
			}
			return tw.flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many entries (0 for all)")
	return cmd
}
