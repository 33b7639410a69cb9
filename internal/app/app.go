package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/semmidev/repovault/internal/adapter/archiver"
	"github.com/semmidev/repovault/internal/adapter/git"
	"github.com/semmidev/repovault/internal/adapter/github"
	"github.com/semmidev/repovault/internal/adapter/storage"
	"github.com/semmidev/repovault/internal/config"
	"github.com/semmidev/repovault/internal/domain"
	"github.com/semmidev/repovault/internal/infrastructure/lock"
	"github.com/semmidev/repovault/internal/infrastructure/logger"
	"github.com/semmidev/repovault/internal/infrastructure/scheduler"
	"github.com/semmidev/repovault/internal/usecase"
)

type App struct {
	config      *config.Config
	logger      *logger.Logger
	scheduler   *scheduler.Scheduler
	backupUC    *usecase.Backup
	retentionUC *usecase.Retention
	oauthSvc    OAuthService
	oauthAddr   string
}

func New(cfg *config.Config) (*App, error) {
	// Initialize logger
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting %s", cfg.App.Name)
	log.Infof("Backing up organization %s into %s", cfg.GitHub.Org, cfg.Backup.LocalRepoDir)

	// Advisory lock shared by every backup trigger
	fileLock, err := lock.New(cfg.Backup.LockFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize lock: %w", err)
	}
	log.Infof("✓ Advisory lock at %s", fileLock.Path())

	// GitHub repo source; the token file must be owner-access-only
	token, err := github.ReadTokenFile(cfg.GitHub.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read github token: %w", err)
	}
	source := github.NewClient(cfg.GitHub.APIURL, cfg.GitHub.Org, token, cfg.GitHub.PerPage)

	// Run-log directory doubles as the retention job's storage
	runLogs, err := storage.NewLocal(cfg.Backup.RunLogDir, logger.RunLogPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize run log storage: %w", err)
	}

	// Archive upload targets
	uploadTargets := initializeUploadTargets(cfg, log)

	backupUC := usecase.NewBackup(usecase.BackupParams{
		Source: source,
		Lock:   fileLock,
		NewVCS: func(out io.Writer) domain.VCS {
			return git.New(out)
		},
		Archiver:      archiver.NewTarGz(),
		UploadTargets: uploadTargets,
		OpenRunLog: func(startedAt time.Time) (usecase.RunLog, error) {
			runLog, err := logger.NewRunLog(cfg.Backup.RunLogDir, startedAt)
			if err != nil {
				return nil, err
			}
			return runLog, nil
		},
		Logger:       log,
		Org:          cfg.GitHub.Org,
		LocalRepoDir: cfg.Backup.LocalRepoDir,
		Archive:      cfg.Backup.Archive,
		DryRun:       cfg.Backup.DryRun,
	})

	retentionUC := usecase.NewRetention(
		runLogs,
		uploadTargets,
		log,
		cfg.Retention.Days,
	)

	sched := scheduler.New(func(jobName string, err error) {
		log.Errorf("Job %s failed: %v", jobName, err)
	})

	a := &App{
		config:      cfg,
		logger:      log,
		scheduler:   sched,
		backupUC:    backupUC,
		retentionUC: retentionUC,
	}

	// Optional one-time Google Drive token issuance helper
	for _, targetCfg := range cfg.GetEnabledUploadTargets() {
		if targetCfg.Type != "gdrive" || targetCfg.AuthAddr == "" {
			continue
		}
		oauthSvc, err := NewGoogleOAuthService(log, targetCfg.CredentialsFile)
		if err != nil {
			log.Errorf("Failed to initialize Google OAuth helper: %v", err)
			continue
		}
		a.oauthSvc = oauthSvc
		a.oauthAddr = targetCfg.AuthAddr
		break
	}

	return a, nil
}

func initializeUploadTargets(cfg *config.Config, log *logger.Logger) []usecase.UploadTarget {
	var targets []usecase.UploadTarget

	for _, targetCfg := range cfg.GetEnabledUploadTargets() {
		var stor domain.Storage
		var err error

		switch targetCfg.Type {
		case "gdrive":
			stor, err = storage.NewGDrive(&targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Google Drive: %v", err)
				continue
			}
			log.Infof("✓ Google Drive archive upload enabled")

		case "s3":
			stor, err = storage.NewS3(&targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize S3: %v", err)
				continue
			}
			log.Infof("✓ AWS S3 archive upload enabled (bucket: %s)", targetCfg.Bucket)

		case "telegram":
			stor, err = storage.NewTelegram(&targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Telegram: %v", err)
				continue
			}
			log.Infof("✓ Telegram notifications enabled")

		default:
			log.Warnf("Unknown upload target type: %s", targetCfg.Type)
			continue
		}

		targets = append(targets, usecase.UploadTarget{
			Name:    targetCfg.Type,
			Storage: stor,
		})
	}

	return targets
}

func (a *App) Run(ctx context.Context) error {
	if err := a.scheduler.AddJob("backup", a.config.Backup.Schedule, a.backupUC.Execute); err != nil {
		return fmt.Errorf("failed to schedule backup: %w", err)
	}
	a.logger.Infof("✓ Scheduled backup: %s", a.config.Backup.Schedule)

	if err := a.scheduler.AddJob("retention", a.config.Retention.Schedule, a.retentionUC.Execute); err != nil {
		return fmt.Errorf("failed to schedule retention: %w", err)
	}
	a.logger.Infof("✓ Scheduled retention: %s (%d days)",
		a.config.Retention.Schedule, a.config.Retention.Days)

	if a.oauthSvc != nil {
		if err := a.oauthSvc.StartAuthServer(ctx, a.oauthAddr); err != nil {
			return fmt.Errorf("failed to start OAuth server: %w", err)
		}
	}

	a.scheduler.Start()
	a.logger.Infof("Scheduler started successfully")

	// Keep running until context is cancelled
	<-ctx.Done()
	return nil
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down application...")
	a.scheduler.Stop()
	if a.oauthSvc != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.oauthSvc.Shutdown(shutdownCtx)
	}
	a.logger.Close()
}
