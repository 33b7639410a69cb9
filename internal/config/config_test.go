package config

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfig(t *testing.T) {
	Convey("Given the config package", t, func() {
		tempDir, err := os.MkdirTemp("", "config_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		Convey("Load function", func() {
			Convey("When loading a minimal valid config", func() {
				path := writeConfig(t, tempDir, `
github:
  org: mycompany
backup:
  local_repodir: /data/repo_backups
`)
				cfg, err := Load(path)

				Convey("It should succeed and apply defaults", func() {
					So(err, ShouldBeNil)
					So(cfg, ShouldNotBeNil)
					So(cfg.App.Name, ShouldEqual, "repovault")
					So(cfg.App.LogLevel, ShouldEqual, "info")
					So(cfg.GitHub.TokenFile, ShouldEqual, "~/.ssh/github_api_token")
					So(cfg.GitHub.APIURL, ShouldEqual, "https://api.github.com")
					So(cfg.GitHub.PerPage, ShouldEqual, 100)
					So(cfg.Backup.Schedule, ShouldEqual, "0 0,30 * * * *")
					So(cfg.Backup.LockFile, ShouldEqual, "/var/run/repovault.lock")
					So(cfg.Backup.RunLogDir, ShouldEqual, "/var/log/repovault")
					So(cfg.Retention.Schedule, ShouldEqual, "0 0 17 * * *")
					So(cfg.Retention.Days, ShouldEqual, 30)
				})
			})

			Convey("When the file does not exist", func() {
				cfg, err := Load(filepath.Join(tempDir, "missing.yaml"))

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(cfg, ShouldBeNil)
				})
			})

			Convey("When the org is missing", func() {
				path := writeConfig(t, tempDir, `
backup:
  local_repodir: /data/repo_backups
`)
				cfg, err := Load(path)

				Convey("It should fail validation", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "github.org is required")
					So(cfg, ShouldBeNil)
				})
			})

			Convey("When the local repodir is missing", func() {
				path := writeConfig(t, tempDir, `
github:
  org: mycompany
`)
				cfg, err := Load(path)

				Convey("It should fail validation", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "backup.local_repodir is required")
					So(cfg, ShouldBeNil)
				})
			})

			Convey("When per_page is out of range", func() {
				path := writeConfig(t, tempDir, `
github:
  org: mycompany
  per_page: 500
backup:
  local_repodir: /data/repo_backups
`)
				cfg, err := Load(path)

				Convey("It should fail validation", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "per_page")
					So(cfg, ShouldBeNil)
				})
			})

			Convey("When an enabled target is incomplete", func() {
				path := writeConfig(t, tempDir, `
github:
  org: mycompany
backup:
  local_repodir: /data/repo_backups
  upload_targets:
    - type: s3
      enabled: true
`)
				cfg, err := Load(path)

				Convey("It should fail validation", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "bucket is required")
					So(cfg, ShouldBeNil)
				})
			})

			Convey("When a target type is unknown", func() {
				path := writeConfig(t, tempDir, `
github:
  org: mycompany
backup:
  local_repodir: /data/repo_backups
  upload_targets:
    - type: ftp
      enabled: true
`)
				cfg, err := Load(path)

				Convey("It should fail validation", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "unknown type")
					So(cfg, ShouldBeNil)
				})
			})

			Convey("When a target is disabled", func() {
				path := writeConfig(t, tempDir, `
github:
  org: mycompany
backup:
  local_repodir: /data/repo_backups
  upload_targets:
    - type: s3
      enabled: false
    - type: telegram
      enabled: true
      bot_token: abc
      chat_id: "123"
`)
				cfg, err := Load(path)

				Convey("Incomplete disabled targets should not fail validation", func() {
					So(err, ShouldBeNil)
					So(cfg, ShouldNotBeNil)
				})

				Convey("GetEnabledUploadTargets should only return enabled ones", func() {
					So(err, ShouldBeNil)
					enabled := cfg.GetEnabledUploadTargets()
					So(len(enabled), ShouldEqual, 1)
					So(enabled[0].Type, ShouldEqual, "telegram")
				})
			})

			Convey("When retention days is zero", func() {
				path := writeConfig(t, tempDir, `
github:
  org: mycompany
backup:
  local_repodir: /data/repo_backups
retention:
  days: 0
`)
				cfg, err := Load(path)

				Convey("It should fail validation", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "retention.days")
					So(cfg, ShouldBeNil)
				})
			})
		})
	})
}
