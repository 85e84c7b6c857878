// Package vcs commits accepted configuration changes. It is an
// external collaborator of the arena core, invoked only after a round
// that accepted at least one proposal.
package vcs

import (
	"fmt"
	"os/exec"
)

// Client stages and commits files.
type Client interface {
	Stage(paths ...string) error
	Commit(message string) error
}

// GitClient shells out to git in a working directory.
type GitClient struct {
	Dir string
}

// NewGitClient creates a git-backed client rooted at dir.
func NewGitClient(dir string) *GitClient {
	return &GitClient{Dir: dir}
}

// Stage adds the given paths to the index.
func (g *GitClient) Stage(paths ...string) error {
	args := append([]string{"add"}, paths...)
	cmd := exec.Command("git", args...)
	cmd.Dir = g.Dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git add failed: %s: %w", out, err)
	}
	return nil
}

// Commit records the staged changes.
func (g *GitClient) Commit(message string) error {
	cmd := exec.Command("git", "commit", "-m", message)
	cmd.Dir = g.Dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git commit failed: %s: %w", out, err)
	}
	return nil
}

// NoopClient discards all operations; used when auto-commit is off.
type NoopClient struct{}

// Stage does nothing.
func (NoopClient) Stage(paths ...string) error { return nil }

// Commit does nothing.
func (NoopClient) Commit(message string) error { return nil }
