package domain

import (
	"context"
	"fmt"
)

// Repository is one remote repository belonging to the backed-up organization.
type Repository struct {
	Name          string
	FullName      string
	SSHURL        string
	DefaultBranch string
	Archived      bool
}

// CloneAddr returns the SSH remote address. Cloning goes over SSH, never
// over the token-bearing HTTPS URL, so no credential ends up in .git/config.
func (r Repository) CloneAddr() string {
	if r.SSHURL != "" {
		return r.SSHURL
	}
	return fmt.Sprintf("git@github.com:%s.git", r.FullName)
}

// RepoSource lists the repositories that a backup run must mirror.
type RepoSource interface {
	ListRepos(ctx context.Context) ([]Repository, error)
}

// VCS mirrors a single repository into a local directory.
type VCS interface {
	// Clone creates a fresh local mirror of repo at destPath.
	Clone(ctx context.Context, repo Repository, destPath string) error
	// Update refreshes every remote branch of an existing local mirror.
	Update(ctx context.Context, repo Repository, destPath string) error
}
