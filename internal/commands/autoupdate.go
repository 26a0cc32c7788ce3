package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/payoff/internal/autoupdate"
	"github.com/cleared-dev/payoff/internal/model"
)

type autoUpdateOptions struct {
	all   bool
	asOf  string
	watch bool
}

func newAutoUpdateCommand(repo *string) *cobra.Command {
	var opts autoUpdateOptions

	cmd := &cobra.Command{
		Use:   "autoupdate [account]",
		Short: "Advance auto-updating loans by one billing period",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !opts.all && !opts.watch {
				return model.ValidationError{Field: "account", Description: "name an account or pass --all"}
			}
			asOf := time.Now()
			if opts.asOf != "" {
				t, err := model.ParseDate(opts.asOf)
				if err != nil {
					return model.ValidationError{Field: "as-of", Description: err.Error()}
				}
				asOf = t
			}

			a, err := openApp(*repo, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			switch {
			case opts.watch:
				return watchAutoUpdate(cmd.Context(), a, out)
			case len(args) == 1:
				return autoUpdateOne(cmd.Context(), a, out, args[0], asOf)
			default:
				rep, err := a.runner().RunOnce(cmd.Context(), asOf)
				if err != nil {
					return err
				}
				a.commitAutoUpdates("autoupdate", rep)
				if err := printAutoUpdateReport(out, rep); err != nil {
					return err
				}
				if n := rep.Failed(); n > 0 {
					return fmt.Errorf("%d of %d auto-updates failed", n, len(rep.Outcomes))
				}
				return nil
			}
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.all, "all", false, "update every loan with auto-update enabled")
	f.StringVar(&opts.asOf, "as-of", "", "date inside the billing period to post, YYYY-MM-DD (default today)")
	f.BoolVar(&opts.watch, "watch", false, "stay running and update on the configured schedule")

	return cmd
}

func autoUpdateOne(ctx context.Context, a *app, out io.Writer, arg string, asOf time.Time) error {
	acct, err := a.resolveDebt(ctx, arg)
	if err != nil {
		return err
	}
	period, err := model.PeriodFor(asOf, a.cfg.Billing.CycleDay)
	if err != nil {
		return err
	}
	res, err := a.payments.ApplyAutoUpdate(ctx, acct.ID, period)
	if err != nil {
		return err
	}
	if !res.Applied {
		fmt.Fprintf(out, "%s: already updated for %s\n", acct.Name, period)
		return nil
	}
	a.commit(fmt.Sprintf("autoupdate: %s %s", acct.Name, period.Start.Format(model.DateFormat)),
		newActivity("autoupdate", string(model.KindAutoUpdate), acct.ID, res.InterestAdded, fmt.Sprintf("%s %s", acct.Name, period)))
	fmt.Fprintf(out, "%s: interest %s, principal %s, balance %s\n",
		acct.Name, res.InterestAdded.StringFixed(2), res.PrincipalPaid.StringFixed(2), res.NewBalance.StringFixed(2))
	return nil
}

func printAutoUpdateReport(out io.Writer, rep autoupdate.Report) error {
	fmt.Fprintf(out, "Billing period %s\n", rep.Period)
	if len(rep.Outcomes) == 0 {
		fmt.Fprintln(out, "No accounts have auto-update enabled.")
		return nil
	}
	tw := newTable(out)
	tw.row("ACCOUNT", "STATUS", "INTEREST", "PRINCIPAL", "BALANCE")
	for _, o := range rep.Outcomes {
		switch {
		case o.Err != nil:
			tw.row(o.Name, "failed: "+o.Err.Error(), "-", "-", "-")
		case o.Skipped != "":
			tw.row(o.Name, "skipped: "+o.Skipped, "-", "-", "-")
		case !o.Result.Applied:
			tw.row(o.Name, "already updated", "-", "-", "-")
		default:
			tw.row(o.Name, "updated",
				o.Result.InterestAdded.StringFixed(2),
				o.Result.PrincipalPaid.StringFixed(2),
				o.Result.NewBalance.StringFixed(2))
		}
	}
	return tw.flush()
}

// watchAutoUpdate runs the scheduler until interrupted, committing after
// each run that changed something.
func watchAutoUpdate(ctx context.Context, a *app, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := a.scheduledRunner("autoupdate").Start(ctx, a.cfg.AutoUpdate.Schedule)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Auto-update scheduled %q; press Ctrl-C to stop\n", a.cfg.AutoUpdate.Schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
