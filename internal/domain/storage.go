package domain

import (
	"context"
	"time"
)

// Storage is a destination for run artifacts (archives, notifications).
// GetOldFiles returns names whose age is strictly past cutoffTime.
type Storage interface {
	Upload(ctx context.Context, localPath string, remoteName string) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, remoteName string) error
	GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error)
}
