package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/payoff/internal/activity"
	"github.com/cleared-dev/payoff/internal/importer"
	"github.com/cleared-dev/payoff/internal/model"
)

func newImportCommand(repo *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Apply payment CSVs waiting in import/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*repo, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			rules, err := importer.RulesFromConfig(a.cfg.Import.Rules)
			if err != nil {
				return err
			}
			parser := importer.DefaultRegistry(rules).Get(format)
			if parser == nil {
				return model.ValidationError{Field: "format", Description: fmt.Sprintf("unknown import format %q", format)}
			}

			files, err := importer.Scan(a.root)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintln(out, "No files to import.")
				return nil
			}

			var (
				applied, failed int
				logged          []activity.Entry
			)
			for _, f := range files {
				res, err := importer.ImportFile(cmd.Context(), a.root, f, parser, a.payments, a.log)
				if err != nil {
					return err
				}
				applied += res.Applied
				if res.Applied > 0 {
					logged = append(logged, activity.Entry{
						Timestamp: time.Now(),
						Command:   "import",
						Action:    "import_file",
						Details:   fmt.Sprintf("%s (%s): %d applied, %d failed", res.File, format, res.Applied, len(res.Failed)),
					})
				}
				failed += len(res.Failed)
				fmt.Fprintf(out, "%s: %d applied, %d failed\n", res.File, res.Applied, len(res.Failed))
				for _, re := range res.Failed {
					fmt.Fprintf(out, "  row %d: %v\n", re.Row, re.Err)
				}
			}

			if applied > 0 {
				a.commit(fmt.Sprintf("import: %d payments from %d files", applied, len(files)), logged...)
			}
			if failed > 0 {
				return fmt.Errorf("%d rows failed to import", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "payments", "file format: payments or chase")
	return cmd
}
