package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/semmidev/repovault/internal/domain"
)

// Backup performs one full sync of the organization's repositories. Each
// run is guarded by a non-blocking advisory lock: if the previous run is
// still going, the new trigger walks away and the next one tries again.
type Backup struct {
	source        domain.RepoSource
	lock          domain.Locker
	newVCS        VCSFactory
	archiver      domain.Archiver
	uploadTargets []UploadTarget
	openRunLog    RunLogOpener
	logger        Logger

	org          string
	localRepoDir string
	archive      bool
	dryRun       bool

	now func() time.Time
}

type UploadTarget struct {
	Name    string
	Storage domain.Storage
}

// VCSFactory builds a VCS whose command output goes to the given writer,
// so git noise lands in the run log rather than the service log.
type VCSFactory func(out io.Writer) domain.VCS

// RunLog is the per-run combined output file.
type RunLog interface {
	Logger
	Path() string
	Writer() io.Writer
	Close()
}

// RunLogOpener creates the run log for a run started at the given time.
type RunLogOpener func(startedAt time.Time) (RunLog, error)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

type BackupParams struct {
	Source        domain.RepoSource
	Lock          domain.Locker
	NewVCS        VCSFactory
	Archiver      domain.Archiver
	UploadTargets []UploadTarget
	OpenRunLog    RunLogOpener
	Logger        Logger
	Org           string
	LocalRepoDir  string
	Archive       bool
	DryRun        bool
}

func NewBackup(p BackupParams) *Backup {
	return &Backup{
		source:        p.Source,
		lock:          p.Lock,
		newVCS:        p.NewVCS,
		archiver:      p.Archiver,
		uploadTargets: p.UploadTargets,
		openRunLog:    p.OpenRunLog,
		logger:        p.Logger,
		org:           p.Org,
		localRepoDir:  p.LocalRepoDir,
		archive:       p.Archive,
		dryRun:        p.DryRun,
		now:           time.Now,
	}
}

func (uc *Backup) Execute(ctx context.Context) error {
	acquired, err := uc.lock.Acquire()
	if err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	if !acquired {
		// Expected under contention: the previous run is still going.
		// No retry, no queue; the next trigger fires on schedule.
		uc.logger.Infof("[%s] Previous backup still running, skipping this trigger", uc.org)
		return nil
	}
	defer func() {
		if err := uc.lock.Release(); err != nil {
			uc.logger.Errorf("[%s] Failed to release lock: %v", uc.org, err)
		}
	}()

	startedAt := uc.now()

	runLog, err := uc.openRunLog(startedAt)
	if err != nil {
		return fmt.Errorf("run log: %w", err)
	}
	defer runLog.Close()

	uc.logger.Infof("[%s] Starting backup run, log: %s", uc.org, runLog.Path())

	report, err := uc.sync(ctx, runLog, startedAt)
	if err != nil {
		runLog.Errorf("Backup run failed: %v", err)
		return err
	}

	uc.logger.Infof("[%s] Backup run completed in %s: %d cloned, %d updated, %d failed, %d skipped",
		uc.org, report.Duration.Round(time.Second),
		report.Cloned, report.Updated, report.Failed, report.Skipped)

	return nil
}

func (uc *Backup) sync(ctx context.Context, runLog RunLog, startedAt time.Time) (domain.SyncReport, error) {
	report := domain.SyncReport{
		Org:       uc.org,
		StartedAt: startedAt,
		LogPath:   runLog.Path(),
	}

	if uc.dryRun {
		runLog.Warnf("Dry-run mode, no changes will be made")
	}

	runLog.Infof("Getting repo list for organization %s...", uc.org)
	repos, err := uc.source.ListRepos(ctx)
	if err != nil {
		return report, fmt.Errorf("list repos: %w", err)
	}
	runLog.Infof("Organization %s has %d repo(s)", uc.org, len(repos))

	if err := os.MkdirAll(uc.localRepoDir, 0755); err != nil {
		return report, fmt.Errorf("create local repodir: %w", err)
	}

	vcs := uc.newVCS(runLog.Writer())

	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		repoPath := filepath.Join(uc.localRepoDir, repo.Name)
		exists := dirExists(repoPath)

		if uc.dryRun {
			if exists {
				runLog.Infof("Would update %s (all branches)", repo.FullName)
			} else {
				runLog.Infof("Would clone %s into %s", repo.FullName, repoPath)
			}
			report.Skipped++
			continue
		}

		if exists {
			runLog.Infof("Updating local repo %s, all branches", repoPath)
			if err := vcs.Update(ctx, repo, repoPath); err != nil {
				// Per-repo failures don't abort the run.
				runLog.Errorf("Error updating repo %s: %v", repo.Name, err)
				report.Failed++
				continue
			}
			report.Updated++
		} else {
			runLog.Infof("Creating local repo %s", repoPath)
			if err := vcs.Clone(ctx, repo, repoPath); err != nil {
				runLog.Errorf("Error cloning repo %s: %v", repo.Name, err)
				report.Failed++
				continue
			}
			report.Cloned++
		}
	}

	if uc.archive && !uc.dryRun && len(uc.uploadTargets) > 0 {
		if err := uc.archiveAndUpload(ctx, runLog, startedAt); err != nil {
			runLog.Errorf("Archive upload failed: %v", err)
		}
	}

	report.Duration = uc.now().Sub(startedAt)
	runLog.Infof("Run finished: %d repo(s), %d cloned, %d updated, %d failed, %d skipped, took %s",
		report.Total(), report.Cloned, report.Updated, report.Failed, report.Skipped,
		report.Duration.Round(time.Second))

	return report, nil
}

func (uc *Backup) archiveAndUpload(ctx context.Context, runLog RunLog, startedAt time.Time) error {
	archiveName := fmt.Sprintf("%s_%s.tar.gz", uc.org, startedAt.Format("2006-01-02_15.04.05"))
	archivePath := filepath.Join(os.TempDir(), archiveName)

	runLog.Infof("Archiving %s into %s...", uc.localRepoDir, archiveName)
	if err := uc.archiver.Archive(uc.localRepoDir, archivePath); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer os.Remove(archivePath)

	info, err := os.Stat(archivePath)
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}
	runLog.Infof("Archive created, size: %.2f MB", float64(info.Size())/(1024*1024))

	uc.uploadToTargets(ctx, runLog, archivePath, archiveName)
	return nil
}

func (uc *Backup) uploadToTargets(ctx context.Context, runLog RunLog, filePath, filename string) {
	var wg sync.WaitGroup

	for _, target := range uc.uploadTargets {
		wg.Add(1)
		go func(t UploadTarget) {
			defer wg.Done()

			runLog.Infof("Uploading archive to %s...", t.Name)
			if err := t.Storage.Upload(ctx, filePath, filename); err != nil {
				runLog.Errorf("Failed to upload to %s: %v", t.Name, err)
			} else {
				runLog.Infof("Successfully uploaded to %s", t.Name)
			}
		}(target)
	}

	wg.Wait()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
