package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/daydump/internal/config"
	"github.com/semmidev/daydump/internal/domain"
)

func TestApp(t *testing.T) {
	Convey("Given a config pointing at a fake mysqldump", t, func() {
		tempDir, err := os.MkdirTemp("", "app_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		// Prints its arguments so the archives show what was asked for.
		script := filepath.Join(tempDir, "mysqldump")
		So(os.WriteFile(script, []byte("#!/bin/sh\necho \"-- $*\"\n"), 0755), ShouldBeNil)

		outputDir := filepath.Join(tempDir, "out")
		cfg := &config.Config{
			App: config.AppConfig{Name: "daydump", LogLevel: "error"},
			Database: config.DatabaseConfig{
				Name:          "testdb",
				User:          "dbuser",
				MysqldumpPath: script,
				Tables: []config.TableConfig{
					{Name: "foo"},
					{Name: "events", Daily: true, StartDate: "2024-06-08"},
				},
			},
			Backup: config.BackupConfig{
				OutputDir: outputDir,
				Schedule:  "0 0 1 * * *",
			},
		}
		So(cfg.Validate(), ShouldBeNil)

		clock := domain.FixedClock{At: time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)}
		ctx := context.Background()

		application, err := New(ctx, cfg, Options{Clock: clock})
		So(err, ShouldBeNil)
		defer application.Shutdown()

		Convey("Plan lists what a run would write", func() {
			plan, err := application.Plan(ctx)
			So(err, ShouldBeNil)
			So(len(plan), ShouldEqual, 4)
			So(plan[3].Path, ShouldEqual, "testdb/events/events.2024-06-09.sql.gz")
		})

		Convey("RunOnce writes the layout", func() {
			report, err := application.RunOnce(ctx)
			So(err, ShouldBeNil)
			So(len(report.Written), ShouldEqual, 3)

			structure, err := os.ReadFile(filepath.Join(outputDir, "testdb", "structure.sql"))
			So(err, ShouldBeNil)
			So(string(structure), ShouldEqual, "-- --user=dbuser --no-data testdb\n")

			for _, rel := range []string{
				"testdb/foo.sql.gz",
				"testdb/events/events.2024-06-08.sql.gz",
				"testdb/events/events.2024-06-09.sql.gz",
			} {
				info, err := os.Stat(filepath.Join(outputDir, filepath.FromSlash(rel)))
				So(err, ShouldBeNil)
				So(info.Size(), ShouldBeGreaterThan, 0)
			}

			Convey("and a second run only refreshes whole tables", func() {
				report, err := application.RunOnce(ctx)
				So(err, ShouldBeNil)
				So(len(report.Written), ShouldEqual, 1)
				So(len(report.Skipped), ShouldEqual, 2)
			})
		})

		Convey("Cleanup is a no-op without retention", func() {
			So(application.Cleanup(ctx), ShouldBeNil)
		})

		Convey("Run stops when the context is cancelled", func() {
			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() { done <- application.Run(runCtx) }()
			cancel()

			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(5 * time.Second):
				t.Fatal("Run did not return")
			}
		})
	})

	Convey("A bad schedule is reported by Run", t, func() {
		tempDir, err := os.MkdirTemp("", "app_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		cfg := &config.Config{
			App: config.AppConfig{Name: "daydump", LogLevel: "error"},
			Database: config.DatabaseConfig{
				Name:   "testdb",
				User:   "dbuser",
				Tables: []config.TableConfig{{Name: "foo"}},
			},
			Backup: config.BackupConfig{OutputDir: tempDir, Schedule: "daily"},
		}

		application, err := New(context.Background(), cfg, Options{})
		So(err, ShouldBeNil)
		defer application.Shutdown()

		err = application.Run(context.Background())
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "failed to schedule dump")
	})
}
