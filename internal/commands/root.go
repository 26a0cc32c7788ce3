package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/payoff/internal/buildinfo"
	"github.com/cleared-dev/payoff/internal/model"
)

// Exit codes for typed errors.
const (
	ExitError       = 1
	ExitValidation  = 2
	ExitComputation = 3
	ExitNotFound    = 4
	ExitState       = 5
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var repo string

	rootCmd := &cobra.Command{
		Use:     "payoff",
		Short:   "Track and project debt payoff",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&repo, "repo", ".", "project directory")

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountCommand(&repo),
		newScheduleCommand(&repo),
		newNextCommand(&repo),
		newPayCommand(&repo),
		newAutoUpdateCommand(&repo),
		newSummaryCommand(&repo),
		newImportCommand(&repo),
		newLogCommand(&repo),
		newServeCommand(&repo),
	)

	return rootCmd
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	var (
		ve model.ValidationError
		ce model.ComputationError
		ne model.NotFoundError
		se model.StateError
	)
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ve):
		return ExitValidation
	case errors.As(err, &ce):
		return ExitComputation
	case errors.As(err, &ne):
		return ExitNotFound
	case errors.As(err, &se):
		return ExitState
	default:
		return ExitError
	}
}
