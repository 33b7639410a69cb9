package git

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/semmidev/repovault/internal/domain"
)

// Git mirrors repositories by shelling out to the git binary. Command output
// is streamed to out, which a backup run points at its run log.
type Git struct {
	out io.Writer
}

func New(out io.Writer) *Git {
	if out == nil {
		out = io.Discard
	}
	return &Git{out: out}
}

// Clone creates a fresh local mirror of repo at destPath over SSH.
func (g *Git) Clone(ctx context.Context, repo domain.Repository, destPath string) error {
	parent := filepath.Dir(destPath)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("failed to create repo directory %s: %w", parent, err)
	}

	if err := g.run(ctx, parent, "clone", repo.CloneAddr(), destPath); err != nil {
		return fmt.Errorf("clone %s: %w", repo.FullName, err)
	}

	return nil
}

// Update fetches and fast-forwards every remote branch of the mirror at
// destPath. The checked-out branch is merged; the rest have their local
// refs moved to the fetched position. origin/HEAD is skipped.
func (g *Git) Update(ctx context.Context, repo domain.Repository, destPath string) error {
	if err := g.run(ctx, destPath, "fetch", "--prune", "origin"); err != nil {
		return fmt.Errorf("fetch %s: %w", repo.Name, err)
	}

	branches, err := g.remoteBranches(ctx, destPath)
	if err != nil {
		return fmt.Errorf("list branches %s: %w", repo.Name, err)
	}

	current, err := g.currentBranch(ctx, destPath)
	if err != nil {
		return fmt.Errorf("current branch %s: %w", repo.Name, err)
	}

	for _, branch := range branches {
		if branch == current {
			if err := g.run(ctx, destPath, "merge", "--ff-only", "origin/"+branch); err != nil {
				return fmt.Errorf("update %s branch %s: %w", repo.Name, branch, err)
			}
			continue
		}
		if err := g.run(ctx, destPath, "branch", "--force", branch, "origin/"+branch); err != nil {
			return fmt.Errorf("update %s branch %s: %w", repo.Name, branch, err)
		}
	}

	return nil
}

func (g *Git) remoteBranches(ctx context.Context, dir string) ([]string, error) {
	out, err := g.capture(ctx, dir, "branch", "-r")
	if err != nil {
		return nil, err
	}
	return parseRemoteBranches(out), nil
}

// parseRemoteBranches turns `git branch -r` output into branch names,
// dropping the origin/ prefix and the origin/HEAD pointer entry.
func parseRemoteBranches(out string) []string {
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(line)
		if name == "" || strings.Contains(name, "origin/HEAD") {
			continue
		}
		branches = append(branches, strings.TrimPrefix(name, "origin/"))
	}
	return branches
}

func (g *Git) currentBranch(ctx context.Context, dir string) (string, error) {
	out, err := g.capture(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (g *Git) run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Stdout = g.out
	cmd.Stderr = g.out

	fmt.Fprintf(g.out, "+ git %s\n", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s failed: %w", args[0], err)
	}

	return nil
}

func (g *Git) capture(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = g.out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s failed: %w", args[0], err)
	}

	return stdout.String(), nil
}
