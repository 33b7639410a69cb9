package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/semmidev/repovault/internal/domain"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeLogger struct {
	mu    sync.Mutex
	lines []string
}

func (f *fakeLogger) logf(level, template string, args ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, level+": "+fmt.Sprintf(template, args...))
}

func (f *fakeLogger) Infof(template string, args ...interface{})  { f.logf("INFO", template, args...) }
func (f *fakeLogger) Errorf(template string, args ...interface{}) { f.logf("ERROR", template, args...) }
func (f *fakeLogger) Warnf(template string, args ...interface{})  { f.logf("WARN", template, args...) }

func (f *fakeLogger) contains(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, line := range f.lines {
		if bytes.Contains([]byte(line), []byte(substr)) {
			return true
		}
	}
	return false
}

type fakeRunLog struct {
	fakeLogger
	buf    bytes.Buffer
	path   string
	closed bool
}

func (f *fakeRunLog) Path() string      { return f.path }
func (f *fakeRunLog) Writer() io.Writer { return &f.buf }
func (f *fakeRunLog) Close()            { f.closed = true }

type fakeLock struct {
	acquired   bool
	acquireErr error
	acquires   int
	releases   int
}

func (f *fakeLock) Acquire() (bool, error) {
	f.acquires++
	return f.acquired, f.acquireErr
}

func (f *fakeLock) Release() error {
	f.releases++
	return nil
}

type fakeSource struct {
	repos []domain.Repository
	err   error
	calls int
}

func (f *fakeSource) ListRepos(ctx context.Context) ([]domain.Repository, error) {
	f.calls++
	return f.repos, f.err
}

type fakeVCS struct {
	mu      sync.Mutex
	cloned  []string
	updated []string
	failOn  map[string]error
}

func (f *fakeVCS) Clone(ctx context.Context, repo domain.Repository, destPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[repo.Name]; err != nil {
		return err
	}
	f.cloned = append(f.cloned, repo.Name)
	return nil
}

func (f *fakeVCS) Update(ctx context.Context, repo domain.Repository, destPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[repo.Name]; err != nil {
		return err
	}
	f.updated = append(f.updated, repo.Name)
	return nil
}

type fakeArchiver struct {
	archived bool
	err      error
}

func (f *fakeArchiver) Archive(sourceDir, destPath string) error {
	if f.err != nil {
		return f.err
	}
	f.archived = true
	return os.WriteFile(destPath, []byte("archive"), 0644)
}

func (f *fakeArchiver) Extract(sourcePath, destDir string) error { return nil }

type fakeStorage struct {
	mu        sync.Mutex
	uploads   []string
	files     []string
	listErr   error
	old       []string
	oldErr    error
	deleted   []string
	deleteErr map[string]error
}

func (f *fakeStorage) Upload(ctx context.Context, localPath, remoteName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, remoteName)
	return nil
}

func (f *fakeStorage) List(ctx context.Context) ([]string, error) {
	return f.files, f.listErr
}

func (f *fakeStorage) Delete(ctx context.Context, remoteName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[remoteName]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, remoteName)
	return nil
}

func (f *fakeStorage) GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error) {
	return f.old, f.oldErr
}

func newTestBackup(p BackupParams, runLog *fakeRunLog) *Backup {
	if p.OpenRunLog == nil {
		p.OpenRunLog = func(startedAt time.Time) (RunLog, error) {
			return runLog, nil
		}
	}
	if p.Logger == nil {
		p.Logger = &fakeLogger{}
	}
	if p.NewVCS == nil {
		p.NewVCS = func(out io.Writer) domain.VCS { return &fakeVCS{} }
	}
	return NewBackup(p)
}

func TestBackup(t *testing.T) {
	Convey("Given a Backup use case", t, func() {
		tempDir, err := os.MkdirTemp("", "backup_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		repoDir := filepath.Join(tempDir, "repos")
		runLog := &fakeRunLog{path: filepath.Join(tempDir, "bkp_test.log")}

		Convey("When the lock is already held", func() {
			lock := &fakeLock{acquired: false}
			source := &fakeSource{}
			log := &fakeLogger{}

			uc := newTestBackup(BackupParams{
				Source:       source,
				Lock:         lock,
				Logger:       log,
				Org:          "mycompany",
				LocalRepoDir: repoDir,
			}, runLog)

			err := uc.Execute(context.Background())

			Convey("It should skip silently without side effects", func() {
				So(err, ShouldBeNil)
				So(source.calls, ShouldEqual, 0)
				So(lock.releases, ShouldEqual, 0)
				So(log.contains("skipping"), ShouldBeTrue)
			})
		})

		Convey("When acquiring the lock fails", func() {
			lock := &fakeLock{acquireErr: fmt.Errorf("flock: permission denied")}

			uc := newTestBackup(BackupParams{
				Source:       &fakeSource{},
				Lock:         lock,
				Org:          "mycompany",
				LocalRepoDir: repoDir,
			}, runLog)

			err := uc.Execute(context.Background())

			Convey("It should return the error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "lock")
			})
		})

		Convey("When repos need cloning and updating", func() {
			// An existing local mirror takes the update path.
			So(os.MkdirAll(filepath.Join(repoDir, "existing"), 0755), ShouldBeNil)

			lock := &fakeLock{acquired: true}
			vcs := &fakeVCS{failOn: map[string]error{
				"broken": fmt.Errorf("remote hung up"),
			}}
			source := &fakeSource{repos: []domain.Repository{
				{Name: "broken", FullName: "mycompany/broken"},
				{Name: "existing", FullName: "mycompany/existing"},
				{Name: "fresh", FullName: "mycompany/fresh"},
			}}

			uc := newTestBackup(BackupParams{
				Source:       source,
				Lock:         lock,
				NewVCS:       func(out io.Writer) domain.VCS { return vcs },
				Org:          "mycompany",
				LocalRepoDir: repoDir,
			}, runLog)

			err := uc.Execute(context.Background())

			Convey("It should clone missing repos and update existing ones", func() {
				So(err, ShouldBeNil)
				So(vcs.cloned, ShouldResemble, []string{"fresh"})
				So(vcs.updated, ShouldResemble, []string{"existing"})
			})

			Convey("A per-repo failure should not abort the run", func() {
				So(err, ShouldBeNil)
				So(runLog.contains("Error cloning repo broken"), ShouldBeTrue)
				So(runLog.contains("1 failed"), ShouldBeTrue)
			})

			Convey("The lock should be released and the run log closed", func() {
				So(err, ShouldBeNil)
				So(lock.releases, ShouldEqual, 1)
				So(runLog.closed, ShouldBeTrue)
			})
		})

		Convey("When dry-run is enabled", func() {
			So(os.MkdirAll(filepath.Join(repoDir, "existing"), 0755), ShouldBeNil)

			vcs := &fakeVCS{}
			source := &fakeSource{repos: []domain.Repository{
				{Name: "existing", FullName: "mycompany/existing"},
				{Name: "fresh", FullName: "mycompany/fresh"},
			}}

			uc := newTestBackup(BackupParams{
				Source:       source,
				Lock:         &fakeLock{acquired: true},
				NewVCS:       func(out io.Writer) domain.VCS { return vcs },
				Org:          "mycompany",
				LocalRepoDir: repoDir,
				DryRun:       true,
			}, runLog)

			err := uc.Execute(context.Background())

			Convey("It should plan but not touch anything", func() {
				So(err, ShouldBeNil)
				So(len(vcs.cloned), ShouldEqual, 0)
				So(len(vcs.updated), ShouldEqual, 0)
				So(runLog.contains("Would clone mycompany/fresh"), ShouldBeTrue)
				So(runLog.contains("Would update mycompany/existing"), ShouldBeTrue)
			})
		})

		Convey("When listing repos fails", func() {
			lock := &fakeLock{acquired: true}
			source := &fakeSource{err: fmt.Errorf("status=401")}

			uc := newTestBackup(BackupParams{
				Source:       source,
				Lock:         lock,
				Org:          "mycompany",
				LocalRepoDir: repoDir,
			}, runLog)

			err := uc.Execute(context.Background())

			Convey("It should fail the run but still release the lock", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "list repos")
				So(lock.releases, ShouldEqual, 1)
				So(runLog.closed, ShouldBeTrue)
			})
		})

		Convey("When archiving is enabled with upload targets", func() {
			arch := &fakeArchiver{}
			target := &fakeStorage{}
			source := &fakeSource{repos: []domain.Repository{
				{Name: "fresh", FullName: "mycompany/fresh"},
			}}

			uc := newTestBackup(BackupParams{
				Source:        source,
				Lock:          &fakeLock{acquired: true},
				Archiver:      arch,
				UploadTargets: []UploadTarget{{Name: "s3", Storage: target}},
				Org:           "mycompany",
				LocalRepoDir:  repoDir,
				Archive:       true,
			}, runLog)
			uc.now = func() time.Time {
				return time.Date(2024, 3, 5, 14, 5, 0, 0, time.Local)
			}

			err := uc.Execute(context.Background())

			Convey("It should archive the tree and upload it", func() {
				So(err, ShouldBeNil)
				So(arch.archived, ShouldBeTrue)
				So(target.uploads, ShouldResemble, []string{"mycompany_2024-03-05_14.05.00.tar.gz"})
			})
		})
	})
}
