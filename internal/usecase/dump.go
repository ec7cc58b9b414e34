package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/semmidev/daydump/internal/domain"
)

type UploadTarget struct {
	Name    string
	Storage domain.Storage
}

type Notifier interface {
	Notify(ctx context.Context, report *domain.Report) error
}

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// DumpParams holds what the coordinator needs. The password lives in the
// Runner, which owns the connection flags.
type DumpParams struct {
	Database      string
	User          string
	Tables        []domain.Table
	Runner        domain.DumpRunner
	Compressor    domain.Compressor
	Store         domain.ArchiveStore
	Clock         domain.Clock
	Logger        Logger
	UploadTargets []UploadTarget
	Notifiers     []Notifier
}

// Dump is the backup coordinator: schema, then every whole table, then the
// missing days of every daily table.
type Dump struct {
	database      string
	user          string
	tables        []domain.Table
	runner        domain.DumpRunner
	compressor    domain.Compressor
	store         domain.ArchiveStore
	clock         domain.Clock
	logger        Logger
	uploadTargets []UploadTarget
	notifiers     []Notifier
}

func NewDump(p DumpParams) *Dump {
	clock := p.Clock
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Dump{
		database:      p.Database,
		user:          p.User,
		tables:        p.Tables,
		runner:        p.Runner,
		compressor:    p.Compressor,
		store:         p.Store,
		clock:         clock,
		logger:        p.Logger,
		uploadTargets: p.UploadTargets,
		notifiers:     p.Notifiers,
	}
}

func (uc *Dump) validate() error {
	if uc.database == "" {
		return domain.ErrMissingDatabase
	}
	if uc.user == "" {
		return domain.ErrMissingUser
	}
	return nil
}

// Execute runs one backup. Directory failures and a failed structure dump
// abort the run. A failed table is recorded in the report and the run moves
// on to the next table; for daily tables the remaining days of that table
// are left for the next run. The returned error joins every table failure.
func (uc *Dump) Execute(ctx context.Context) (*domain.Report, error) {
	if err := uc.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	report := &domain.Report{Database: uc.database, Started: start}
	uc.logger.Infof("[%s] Starting dump of %d table(s)...", uc.database, len(uc.tables))

	if err := uc.store.EnsureDir(uc.database); err != nil {
		return report, fmt.Errorf("output directory: %w", err)
	}

	if err := uc.dumpStructure(ctx, report); err != nil {
		return report, err
	}

	whole, daily := domain.SplitTables(uc.tables)

	for _, t := range whole {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		uc.dumpWhole(ctx, t, report)
	}

	for _, t := range daily {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := uc.dumpDaily(ctx, t, report); err != nil {
			return report, err
		}
	}

	report.Duration = time.Since(start)

	uc.upload(ctx, report)
	uc.notify(ctx, report)

	uc.logger.Infof("[%s] Dump completed in %s: %d written, %d skipped, %d failed",
		uc.database, report.Duration.Round(time.Millisecond),
		len(report.Written), len(report.Skipped), len(report.Failed))

	return report, report.Err()
}

func (uc *Dump) dumpStructure(ctx context.Context, report *domain.Report) error {
	rel := domain.StructurePath(uc.database)

	w, err := uc.store.Create(rel)
	if err != nil {
		return fmt.Errorf("structure dump: %w", err)
	}

	if err := uc.runner.Dump(ctx, domain.DumpRequest{Mode: domain.DumpStructure}, w); err != nil {
		_ = w.Abort()
		return fmt.Errorf("structure dump: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("structure dump: %w", err)
	}

	report.Structure = rel
	uc.logger.Infof("[%s] Structure written to %s", uc.database, rel)
	return nil
}

func (uc *Dump) dumpWhole(ctx context.Context, t domain.WholeTable, report *domain.Report) {
	if t.Name == "" {
		uc.fail(report, &domain.TableError{Err: domain.ErrEmptyTableName})
		return
	}

	rel := domain.WholeArchivePath(uc.database, t.Name)
	req := domain.DumpRequest{Mode: domain.DumpWhole, Table: t.Name}

	size, err := uc.writeArchive(ctx, req, rel)
	if err != nil {
		uc.fail(report, &domain.TableError{Table: t.Name, Err: err})
		return
	}

	report.Written = append(report.Written, domain.Archive{
		Path: rel, Table: t.Name, Mode: domain.DumpWhole, Size: size,
	})
	uc.logger.Infof("[%s] %s written (%d bytes)", uc.database, rel, size)
}

// dumpDaily returns an error only for environment failures, which abort the
// whole run.
func (uc *Dump) dumpDaily(ctx context.Context, t domain.DailyTable, report *domain.Report) error {
	if t.Name == "" {
		uc.fail(report, &domain.TableError{Err: domain.ErrEmptyTableName})
		return nil
	}
	t = domain.NewDailyTable(t.Name, t.DateField, t.StartDate, uc.clock)

	if err := uc.store.EnsureDir(domain.DailyDir(uc.database, t.Name)); err != nil {
		return fmt.Errorf("output directory for %s: %w", t.Name, err)
	}

	end := domain.Yesterday(uc.clock)
	for day := range domain.DateRange(t.StartDate, end) {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel := domain.DailyArchivePath(uc.database, t.Name, day)
		archive := domain.Archive{Path: rel, Table: t.Name, Mode: domain.DumpDaily, Date: day}

		exists, err := uc.store.Exists(rel)
		if err != nil {
			uc.fail(report, &domain.TableError{Table: t.Name, Date: day, Err: err})
			return nil
		}
		if exists {
			report.Skipped = append(report.Skipped, archive)
			continue
		}

		req := domain.DumpRequest{Mode: domain.DumpDaily, Table: t.Name, DateField: t.DateField, Date: day}
		archive.Size, err = uc.writeArchive(ctx, req, rel)
		if err != nil {
			uc.fail(report, &domain.TableError{Table: t.Name, Date: day, Err: err})
			return nil
		}

		report.Written = append(report.Written, archive)
		uc.logger.Infof("[%s] %s written (%d bytes)", uc.database, rel, archive.Size)
	}

	return nil
}

// writeArchive pipes the dump through the compressor into rel. The archive
// only appears at rel when both sides succeed.
func (uc *Dump) writeArchive(ctx context.Context, req domain.DumpRequest, rel string) (int64, error) {
	w, err := uc.store.Create(rel)
	if err != nil {
		return 0, err
	}
	counter := &countingWriter{w: w}

	pr, pw := io.Pipe()
	dumpDone := make(chan error, 1)
	go func() {
		err := uc.runner.Dump(ctx, req, pw)
		_ = pw.CloseWithError(err)
		dumpDone <- err
	}()

	_, compressErr := uc.compressor.Compress(counter, pr)
	if compressErr != nil {
		_ = pr.CloseWithError(compressErr)
	}
	dumpErr := <-dumpDone

	if dumpErr != nil || compressErr != nil {
		_ = w.Abort()
		if dumpErr != nil {
			return 0, dumpErr
		}
		return 0, fmt.Errorf("compress: %w", compressErr)
	}

	if err := w.Close(); err != nil {
		return 0, err
	}
	return counter.n, nil
}

func (uc *Dump) fail(report *domain.Report, err *domain.TableError) {
	report.Failed = append(report.Failed, err)
	uc.logger.Errorf("[%s] Dump failed: %v", uc.database, err)
}

func (uc *Dump) upload(ctx context.Context, report *domain.Report) {
	if len(uc.uploadTargets) == 0 {
		return
	}

	files := make([]string, 0, len(report.Written)+1)
	if report.Structure != "" {
		files = append(files, report.Structure)
	}
	for _, a := range report.Written {
		files = append(files, a.Path)
	}

	for _, rel := range files {
		uc.uploadToTargets(ctx, uc.store.GetPath(rel), rel)
	}
}

func (uc *Dump) uploadToTargets(ctx context.Context, filePath, remoteName string) {
	var wg sync.WaitGroup

	for _, target := range uc.uploadTargets {
		wg.Add(1)
		go func(t UploadTarget) {
			defer wg.Done()

			if err := t.Storage.Upload(ctx, filePath, remoteName); err != nil {
				uc.logger.Errorf("[%s] Failed to upload %s to %s: %v", uc.database, remoteName, t.Name, err)
			}
		}(target)
	}

	wg.Wait()
}

func (uc *Dump) notify(ctx context.Context, report *domain.Report) {
	for _, n := range uc.notifiers {
		if err := n.Notify(ctx, report); err != nil {
			uc.logger.Warnf("[%s] Notification failed: %v", uc.database, err)
		}
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// IsTableError reports whether err carries at least one table failure, as
// opposed to an aborted run.
func IsTableError(err error) bool {
	var te *domain.TableError
	return errors.As(err, &te)
}
