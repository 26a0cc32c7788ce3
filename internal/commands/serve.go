package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/payoff/internal/api"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(repo *string) *cobra.Command {
	var (
		addr      string
		noUpdates bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and run scheduled auto-updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*repo, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner := a.scheduledRunner("serve")
			if !noUpdates {
				c, err := runner.Start(ctx, a.cfg.AutoUpdate.Schedule)
				if err != nil {
					return err
				}
				defer c.Stop()
			}

			handler := api.NewHandler(api.Deps{
				Accounts:  a.store,
				Payments:  a.payments,
				Summaries: a.summary,
				Runner:    runner,
				CycleDay:  a.cfg.Billing.CycleDay,
				Log:       a.log,
			})
			srv := &http.Server{
				Addr:              addr,
				Handler:           handler.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.WithField("addr", addr).Info("listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("serving %s: %w", addr, err)
				}
				return nil
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noUpdates, "no-auto-update", false, "do not run scheduled auto-updates")
	return cmd
}
