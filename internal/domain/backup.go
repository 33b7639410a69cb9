package domain

import (
	"context"
	"time"
)

// SyncReport summarizes one backup run.
type SyncReport struct {
	Org       string
	Cloned    int
	Updated   int
	Failed    int
	Skipped   int
	StartedAt time.Time
	Duration  time.Duration
	LogPath   string
}

// Total returns the number of repositories the run considered.
func (r SyncReport) Total() int {
	return r.Cloned + r.Updated + r.Failed + r.Skipped
}

// BackupExecutor is a schedulable unit of work.
type BackupExecutor interface {
	Execute(ctx context.Context) error
}

// Locker guards a backup run against overlapping executions. Acquire must
// not block: when the lock is already held it returns false immediately.
type Locker interface {
	Acquire() (bool, error)
	Release() error
}
