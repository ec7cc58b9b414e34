package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/daydump/internal/domain"
)

func TestLocalStorage(t *testing.T) {
	Convey("Given a LocalStorage", t, func() {
		tempDir, err := os.MkdirTemp("", "local_storage_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		Convey("NewLocal", func() {
			Convey("When creating with a non-existent path", func() {
				newPath := filepath.Join(tempDir, "new", "nested", "dir")
				storage, err := NewLocal(newPath)

				Convey("It should create the directory", func() {
					So(err, ShouldBeNil)
					So(storage.basePath, ShouldEqual, newPath)

					info, err := os.Stat(newPath)
					So(err, ShouldBeNil)
					So(info.IsDir(), ShouldBeTrue)
				})
			})
		})

		storage, err := NewLocal(tempDir)
		So(err, ShouldBeNil)

		Convey("GetPath joins slash paths under the base", func() {
			So(storage.GetPath("testdb/foo.sql.gz"), ShouldEqual, filepath.Join(tempDir, "testdb", "foo.sql.gz"))
		})

		Convey("EnsureDir", func() {
			Convey("When the directory is missing", func() {
				err := storage.EnsureDir("testdb/foo")

				Convey("It should create it recursively", func() {
					So(err, ShouldBeNil)
					info, err := os.Stat(filepath.Join(tempDir, "testdb", "foo"))
					So(err, ShouldBeNil)
					So(info.IsDir(), ShouldBeTrue)
				})
			})

			Convey("When the directory already exists", func() {
				So(os.MkdirAll(filepath.Join(tempDir, "testdb"), 0755), ShouldBeNil)
				So(storage.EnsureDir("testdb"), ShouldBeNil)
			})

			Convey("When a file occupies the path", func() {
				So(os.WriteFile(filepath.Join(tempDir, "testdb"), []byte("x"), 0644), ShouldBeNil)
				err := storage.EnsureDir("testdb")

				Convey("It should fail naming the path", func() {
					So(errors.Is(err, domain.ErrNotDirectory), ShouldBeTrue)
					So(err.Error(), ShouldContainSubstring, filepath.Join(tempDir, "testdb"))
				})
			})
		})

		Convey("Exists", func() {
			So(os.WriteFile(filepath.Join(tempDir, "present.sql.gz"), nil, 0644), ShouldBeNil)
			So(os.Mkdir(filepath.Join(tempDir, "adir"), 0755), ShouldBeNil)

			ok, err := storage.Exists("present.sql.gz")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			ok, err = storage.Exists("absent.sql.gz")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)

			ok, err = storage.Exists("adir")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("Create", func() {
			target := filepath.Join(tempDir, "foo.sql.gz")

			Convey("When closed it should move the archive into place", func() {
				w, err := storage.Create("foo.sql.gz")
				So(err, ShouldBeNil)
				_, err = w.Write([]byte("content"))
				So(err, ShouldBeNil)

				_, err = os.Stat(target)
				So(os.IsNotExist(err), ShouldBeTrue)

				So(w.Close(), ShouldBeNil)
				So(w.Close(), ShouldBeNil)

				data, err := os.ReadFile(target)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "content")

				_, err = os.Stat(target + ".tmp")
				So(os.IsNotExist(err), ShouldBeTrue)
			})

			Convey("When aborted it should leave nothing behind", func() {
				w, err := storage.Create("foo.sql.gz")
				So(err, ShouldBeNil)
				_, _ = w.Write([]byte("partial"))

				So(w.Abort(), ShouldBeNil)
				So(w.Close(), ShouldBeNil)

				_, err = os.Stat(target)
				So(os.IsNotExist(err), ShouldBeTrue)
				_, err = os.Stat(target + ".tmp")
				So(os.IsNotExist(err), ShouldBeTrue)
			})

			Convey("When replacing an existing archive", func() {
				So(os.WriteFile(target, []byte("old"), 0644), ShouldBeNil)
				w, err := storage.Create("foo.sql.gz")
				So(err, ShouldBeNil)
				_, _ = w.Write([]byte("new"))
				So(w.Close(), ShouldBeNil)

				data, _ := os.ReadFile(target)
				So(string(data), ShouldEqual, "new")
			})

			Convey("When the parent directory is missing", func() {
				_, err := storage.Create("missing/foo.sql.gz")
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to create")
			})
		})
	})
}
