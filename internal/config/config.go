package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Backup    BackupConfig    `mapstructure:"backup"`
	Retention RetentionConfig `mapstructure:"retention"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type GitHubConfig struct {
	Org       string `mapstructure:"org"`
	TokenFile string `mapstructure:"token_file"`
	APIURL    string `mapstructure:"api_url"`
	PerPage   int    `mapstructure:"per_page"`
}

type BackupConfig struct {
	LocalRepoDir  string         `mapstructure:"local_repodir"`
	Schedule      string         `mapstructure:"schedule"`
	LockFile      string         `mapstructure:"lock_file"`
	RunLogDir     string         `mapstructure:"run_log_dir"`
	DryRun        bool           `mapstructure:"dry_run"`
	Archive       bool           `mapstructure:"archive"`
	UploadTargets []UploadTarget `mapstructure:"upload_targets"`
}

type RetentionConfig struct {
	Schedule string `mapstructure:"schedule"`
	Days     int    `mapstructure:"days"`
}

type UploadTarget struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`

	// Google Drive. When AuthAddr is set, a one-time OAuth helper server
	// is started there to mint the refresh token.
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`
	AuthAddr        string `mapstructure:"auth_addr"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`

	// Telegram
	BotToken   string `mapstructure:"bot_token"`
	ChatID     string `mapstructure:"chat_id"`
	SendFile   bool   `mapstructure:"send_file"`
	NotifyOnly bool   `mapstructure:"notify_only"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("app.name", "repovault")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("github.token_file", "~/.ssh/github_api_token")
	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("github.per_page", 100)
	// Twice an hour at fixed :00/:30 offsets.
	v.SetDefault("backup.schedule", "0 0,30 * * * *")
	v.SetDefault("backup.lock_file", "/var/run/repovault.lock")
	v.SetDefault("backup.run_log_dir", "/var/log/repovault")
	v.SetDefault("retention.schedule", "0 0 17 * * *")
	v.SetDefault("retention.days", 30)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.GitHub.Org == "" {
		return fmt.Errorf("github.org is required")
	}
	if c.GitHub.TokenFile == "" {
		return fmt.Errorf("github.token_file is required")
	}
	if c.GitHub.PerPage < 1 || c.GitHub.PerPage > 100 {
		return fmt.Errorf("github.per_page must be between 1 and 100")
	}

	if c.Backup.LocalRepoDir == "" {
		return fmt.Errorf("backup.local_repodir is required")
	}
	if c.Backup.Schedule == "" {
		return fmt.Errorf("backup.schedule is required")
	}
	if c.Backup.LockFile == "" {
		return fmt.Errorf("backup.lock_file is required")
	}
	if c.Backup.RunLogDir == "" {
		return fmt.Errorf("backup.run_log_dir is required")
	}

	if c.Retention.Schedule == "" {
		return fmt.Errorf("retention.schedule is required")
	}
	if c.Retention.Days < 1 {
		return fmt.Errorf("retention.days must be at least 1")
	}

	for i, target := range c.Backup.UploadTargets {
		if !target.Enabled {
			continue
		}
		switch target.Type {
		case "s3":
			if target.Bucket == "" {
				return fmt.Errorf("upload_targets[%d]: bucket is required for s3", i)
			}
		case "gdrive":
			if target.CredentialsFile == "" {
				return fmt.Errorf("upload_targets[%d]: credentials_file is required for gdrive", i)
			}
		case "telegram":
			if target.BotToken == "" || target.ChatID == "" {
				return fmt.Errorf("upload_targets[%d]: bot_token and chat_id are required for telegram", i)
			}
		default:
			return fmt.Errorf("upload_targets[%d]: unknown type %q", i, target.Type)
		}
	}

	return nil
}

func (c *Config) GetEnabledUploadTargets() []UploadTarget {
	var enabled []UploadTarget
	for _, target := range c.Backup.UploadTargets {
		if target.Enabled {
			enabled = append(enabled, target)
		}
	}
	return enabled
}
