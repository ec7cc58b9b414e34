package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingDatabase = errors.New("database name is required")
	ErrMissingUser     = errors.New("database user is required")
	ErrEmptyTableName  = errors.New("table name is empty")
	ErrNotDirectory    = errors.New("path exists and is not a directory")
)

// TableError records which table, and for daily tables which day, failed.
type TableError struct {
	Table string
	Date  Date
	Err   error
}

func (e *TableError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("table %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("table %s (%s): %v", e.Table, e.Date, e.Err)
}

func (e *TableError) Unwrap() error { return e.Err }

type Archive struct {
	Path  string
	Table string
	Mode  DumpMode
	Date  Date
	Size  int64
}

type Report struct {
	Database  string
	Structure string
	Written   []Archive
	Skipped   []Archive
	Failed    []*TableError
	Started   time.Time
	Duration  time.Duration
}

func (r *Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}
