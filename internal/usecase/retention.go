package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/semmidev/repovault/internal/domain"
)

// Retention prunes run logs (and remote archives) strictly older than the
// retention window. A run over an empty directory is a successful no-op.
type Retention struct {
	runLogs       domain.Storage
	uploadTargets []UploadTarget
	logger        Logger
	retentionDays int

	now func() time.Time
}

func NewRetention(
	runLogs domain.Storage,
	uploadTargets []UploadTarget,
	logger Logger,
	retentionDays int,
) *Retention {
	return &Retention{
		runLogs:       runLogs,
		uploadTargets: uploadTargets,
		logger:        logger,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

func (uc *Retention) Execute(ctx context.Context) error {
	uc.logger.Infof("Starting retention pass, window: %d days", uc.retentionDays)

	// Strictly-older-than: a file aged exactly retentionDays is kept.
	cutoff := uc.now().AddDate(0, 0, -uc.retentionDays)

	if err := uc.pruneRunLogs(ctx, cutoff); err != nil {
		return fmt.Errorf("prune run logs: %w", err)
	}

	if len(uc.uploadTargets) > 0 {
		uc.pruneTargets(ctx, cutoff)
	}

	uc.logger.Infof("Retention pass completed")
	return nil
}

func (uc *Retention) pruneRunLogs(ctx context.Context, cutoff time.Time) error {
	old, err := uc.runLogs.GetOldFiles(ctx, cutoff)
	if err != nil {
		return err
	}

	if len(old) == 0 {
		uc.logger.Infof("No run logs past retention")
		return nil
	}

	deleted := 0
	for _, name := range old {
		uc.logger.Infof("Deleting old run log: %s", name)
		if err := uc.runLogs.Delete(ctx, name); err != nil {
			uc.logger.Errorf("Failed to delete run log %s: %v", name, err)
			continue
		}
		deleted++
	}

	uc.logger.Infof("Deleted %d old run log(s)", deleted)
	return nil
}

func (uc *Retention) pruneTargets(ctx context.Context, cutoff time.Time) {
	var wg sync.WaitGroup

	for _, target := range uc.uploadTargets {
		wg.Add(1)
		go func(t UploadTarget) {
			defer wg.Done()

			if err := uc.pruneTarget(ctx, t, cutoff); err != nil {
				uc.logger.Errorf("Retention failed for %s: %v", t.Name, err)
			}
		}(target)
	}

	wg.Wait()
}

func (uc *Retention) pruneTarget(ctx context.Context, target UploadTarget, cutoff time.Time) error {
	files, err := target.Storage.GetOldFiles(ctx, cutoff)
	if err != nil {
		files, err = uc.fallbackListFiles(ctx, target, cutoff)
		if err != nil {
			return err
		}
	}

	deleted := 0
	for _, filename := range files {
		uc.logger.Infof("Deleting old archive from %s: %s", target.Name, filename)

		if err := target.Storage.Delete(ctx, filename); err != nil {
			uc.logger.Errorf("Failed to delete %s from %s: %v", filename, target.Name, err)
		} else {
			deleted++
		}
	}

	uc.logger.Infof("Deleted %d old archive(s) from %s", deleted, target.Name)
	return nil
}

// fallbackListFiles selects old files by the timestamp embedded in their
// names, for targets that cannot report modification times.
func (uc *Retention) fallbackListFiles(ctx context.Context, target UploadTarget, cutoff time.Time) ([]string, error) {
	files, err := target.Storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	oldFiles := make([]string, 0)
	for _, filename := range files {
		timestamp, err := extractTimestamp(filename)
		if err != nil {
			uc.logger.Warnf("Could not parse timestamp from %s: %v", filename, err)
			continue
		}

		if timestamp.Before(cutoff) {
			oldFiles = append(oldFiles, filename)
		}
	}

	return oldFiles, nil
}
