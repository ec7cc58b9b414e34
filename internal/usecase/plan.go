package usecase

import (
	"context"

	"github.com/semmidev/daydump/internal/domain"
)

// Plan lists the archives Execute would write right now, without touching
// the database or creating anything on disk.
func (uc *Dump) Plan(ctx context.Context) ([]domain.Archive, error) {
	if err := uc.validate(); err != nil {
		return nil, err
	}

	plan := []domain.Archive{{Path: domain.StructurePath(uc.database), Mode: domain.DumpStructure}}

	whole, daily := domain.SplitTables(uc.tables)
	for _, t := range whole {
		if t.Name == "" {
			return nil, domain.ErrEmptyTableName
		}
		plan = append(plan, domain.Archive{
			Path: domain.WholeArchivePath(uc.database, t.Name), Table: t.Name, Mode: domain.DumpWhole,
		})
	}

	end := domain.Yesterday(uc.clock)
	for _, t := range daily {
		if t.Name == "" {
			return nil, domain.ErrEmptyTableName
		}
		t = domain.NewDailyTable(t.Name, t.DateField, t.StartDate, uc.clock)

		for day := range domain.DateRange(t.StartDate, end) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rel := domain.DailyArchivePath(uc.database, t.Name, day)
			exists, err := uc.store.Exists(rel)
			if err != nil {
				return nil, err
			}
			if exists {
				continue
			}
			plan = append(plan, domain.Archive{Path: rel, Table: t.Name, Mode: domain.DumpDaily, Date: day})
		}
	}

	return plan, nil
}
