package lock

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFileLock(t *testing.T) {
	Convey("Given a FileLock", t, func() {
		tempDir, err := os.MkdirTemp("", "lock_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		lockPath := filepath.Join(tempDir, "backup.lock")

		Convey("New function", func() {
			Convey("When creating with a valid path", func() {
				l, err := New(lockPath)

				Convey("It should create successfully", func() {
					So(err, ShouldBeNil)
					So(l, ShouldNotBeNil)
					So(l.Path(), ShouldEqual, lockPath)
				})
			})

			Convey("When creating with an empty path", func() {
				l, err := New("")

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(l, ShouldBeNil)
				})
			})

			Convey("When the lock directory does not exist", func() {
				nested := filepath.Join(tempDir, "run", "locks", "backup.lock")
				l, err := New(nested)

				Convey("It should create the directory", func() {
					So(err, ShouldBeNil)
					So(l, ShouldNotBeNil)
				})
			})
		})

		Convey("Acquire and Release", func() {
			Convey("When the lock is free", func() {
				l, err := New(lockPath)
				So(err, ShouldBeNil)

				acquired, err := l.Acquire()

				Convey("It should acquire immediately", func() {
					So(err, ShouldBeNil)
					So(acquired, ShouldBeTrue)

					So(l.Release(), ShouldBeNil)
				})
			})

			Convey("When another holder has the lock", func() {
				holder, err := New(lockPath)
				So(err, ShouldBeNil)
				acquired, err := holder.Acquire()
				So(err, ShouldBeNil)
				So(acquired, ShouldBeTrue)
				defer holder.Release()

				contender, err := New(lockPath)
				So(err, ShouldBeNil)

				acquired, err = contender.Acquire()

				Convey("It should return false without blocking", func() {
					So(err, ShouldBeNil)
					So(acquired, ShouldBeFalse)
				})
			})

			Convey("When the holder releases", func() {
				holder, err := New(lockPath)
				So(err, ShouldBeNil)
				acquired, err := holder.Acquire()
				So(err, ShouldBeNil)
				So(acquired, ShouldBeTrue)
				So(holder.Release(), ShouldBeNil)

				contender, err := New(lockPath)
				So(err, ShouldBeNil)

				acquired, err = contender.Acquire()

				Convey("The next Acquire should succeed", func() {
					So(err, ShouldBeNil)
					So(acquired, ShouldBeTrue)

					So(contender.Release(), ShouldBeNil)
				})
			})
		})
	})
}
