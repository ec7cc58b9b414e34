package domain

import (
	"context"
	"io"
)

type DumpMode int

const (
	// DumpStructure exports the schema of every table with no row data.
	DumpStructure DumpMode = iota
	// DumpWhole exports one table including drop/create statements.
	DumpWhole
	// DumpDaily exports the rows of one table for a single day, without
	// drop/create statements.
	DumpDaily
)

func (m DumpMode) String() string {
	switch m {
	case DumpStructure:
		return "structure"
	case DumpWhole:
		return "whole"
	case DumpDaily:
		return "daily"
	default:
		return "unknown"
	}
}

type DumpRequest struct {
	Mode      DumpMode
	Table     string
	DateField string
	Date      Date
}

// DumpRunner streams the SQL text of one dump into w.
type DumpRunner interface {
	Dump(ctx context.Context, req DumpRequest, w io.Writer) error
}

// Inspector checks the live database before a run.
type Inspector interface {
	Ping(ctx context.Context) error
	CheckTables(ctx context.Context, tables []Table) error
	Close() error
}
