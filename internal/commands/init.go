package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/payoff/internal/accounts"
	"github.com/cleared-dev/payoff/internal/config"
	"github.com/cleared-dev/payoff/internal/gitops"
	"github.com/cleared-dev/payoff/internal/journal"
)

type initOptions struct {
	name     string
	backend  string
	cycleDay int
	noGit    bool
}

func newInitCommand() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new payoff project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "project name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.backend, "backend", config.BackendFile, "storage backend: file or sqlite")
	cmd.Flags().IntVar(&opts.cycleDay, "cycle-day", 1, "day of month billing periods start (1-28)")
	cmd.Flags().BoolVar(&opts.noGit, "no-git", false, "do not initialize a git repository")

	return cmd
}

func runInit(out io.Writer, dir string, opts initOptions) error {
	cfg := config.Default(opts.name)
	cfg.Storage.Backend = opts.backend
	cfg.Billing.CycleDay = opts.cycleDay
	if opts.noGit {
		cfg.Git.AutoCommit = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		return fmt.Errorf("%s already exists in %s", config.FileName, dir)
	}

	// Create directory structure.
	dirs := []string{
		"accounts",
		journal.Dir,
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// An empty registry, so the layout is visible before the first account.
	if cfg.Storage.Backend == config.BackendFile {
		if err := accounts.NewRegistry(nil).Save(dir); err != nil {
			return fmt.Errorf("writing debt accounts: %w", err)
		}
	}

	gitignore := "*.db\n*.db-journal\n.env\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	for _, keep := range []string{journal.Dir, "import"} {
		if err := os.WriteFile(filepath.Join(dir, keep, ".gitkeep"), []byte{}, 0o644); err != nil {
			return fmt.Errorf("writing .gitkeep: %w", err)
		}
	}

	if opts.noGit {
		fmt.Fprintf(out, "Initialized payoff project at %s\n", dir)
		return nil
	}

	if err := gitops.Init(dir); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	hash, err := gitops.CommitAll(dir, "init: Initialize "+opts.name, cfg.Git.AuthorName, cfg.Git.AuthorEmail)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(out, "Initialized payoff project at %s (%s)\n", dir, hash)
	return nil
}
