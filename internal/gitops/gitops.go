// Package gitops records project changes as git commits.
package gitops

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cleared-dev/payoff/internal/config"
)

// Init initializes a new git repository at dir.
func Init(dir string) error {
	if out, err := git(dir, "init", "--quiet"); err != nil {
		return fmt.Errorf("git init: %s: %w", out, err)
	}
	return nil
}

// CommitAll stages all files and creates a commit. Returns the short commit hash.
func CommitAll(dir, message, authorName, authorEmail string) (string, error) {
	author := fmt.Sprintf("%s <%s>", authorName, authorEmail)

	if out, err := git(dir, "add", "-A"); err != nil {
		return "", fmt.Errorf("git add: %s: %w", out, err)
	}

	// Commit with an explicit identity so machines without git config work.
	if out, err := git(dir,
		"-c", "user.name="+authorName, "-c", "user.email="+authorEmail,
		"commit", "--quiet", "-m", message, "--author", author); err != nil {
		return "", fmt.Errorf("git commit: %s: %w", out, err)
	}

	out, err := git(dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return out, nil
}

// HasChanges reports whether the working tree differs from HEAD, including
// untracked files.
func HasChanges(dir string) (bool, error) {
	out, err := git(dir, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %s: %w", out, err)
	}
	return out != "", nil
}

// IsRepo reports whether dir is inside a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// AutoCommit commits all pending changes when auto_commit is enabled and
// the project is a repository. It returns "" when nothing was committed.
func AutoCommit(cfg config.GitConfig, dir, message string) (string, error) {
	if !cfg.AutoCommit || !IsRepo(dir) {
		return "", nil
	}
	changed, err := HasChanges(dir)
	if err != nil || !changed {
		return "", err
	}
	return CommitAll(dir, message, cfg.AuthorName, cfg.AuthorEmail)
}

func git(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}
