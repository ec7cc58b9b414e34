package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/semmidev/daydump/internal/domain"
)

// Cleanup prunes daily archives from remote upload targets once they are
// older than the retention window. Local archives are never touched: they are
// what tells the next run which days are already done.
type Cleanup struct {
	uploadTargets []UploadTarget
	logger        Logger
	retentionDays int
	clock         domain.Clock
}

func NewCleanup(
	uploadTargets []UploadTarget,
	logger Logger,
	retentionDays int,
	clock domain.Clock,
) *Cleanup {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Cleanup{
		uploadTargets: uploadTargets,
		logger:        logger,
		retentionDays: retentionDays,
		clock:         clock,
	}
}

func (uc *Cleanup) Execute(ctx context.Context) error {
	if uc.retentionDays <= 0 {
		uc.logger.Infof("Cleanup skipped, retention is off")
		return nil
	}

	uc.logger.Infof("Starting cleanup, retention: %d days", uc.retentionDays)

	cutoff := uc.clock.Now().AddDate(0, 0, -uc.retentionDays)

	if len(uc.uploadTargets) > 0 {
		uc.cleanupTargets(ctx, cutoff)
	}

	uc.logger.Infof("Cleanup completed")
	return nil
}

func (uc *Cleanup) cleanupTargets(ctx context.Context, cutoff time.Time) {
	var wg sync.WaitGroup

	for _, target := range uc.uploadTargets {
		wg.Add(1)
		go func(t UploadTarget) {
			defer wg.Done()

			if err := uc.cleanupTarget(ctx, t, cutoff); err != nil {
				uc.logger.Errorf("Cleanup failed for %s: %v", t.Name, err)
			}
		}(target)
	}

	wg.Wait()
}

func (uc *Cleanup) cleanupTarget(ctx context.Context, target UploadTarget, cutoff time.Time) error {
	files, err := target.Storage.GetOldFiles(ctx, cutoff)
	if err != nil {
		uc.logger.Warnf("Listing old files on %s failed, falling back to archive names: %v", target.Name, err)
		files, err = uc.fallbackListFiles(ctx, target, cutoff)
		if err != nil {
			return err
		}
	}

	deleted := 0
	for _, filename := range files {
		if _, ok := domain.ParseDailyArchiveDate(filename); !ok {
			continue
		}

		uc.logger.Infof("Deleting old archive from %s: %s", target.Name, filename)
		if err := target.Storage.Delete(ctx, filename); err != nil {
			uc.logger.Errorf("Failed to delete %s from %s: %v", filename, target.Name, err)
		} else {
			deleted++
		}
	}

	uc.logger.Infof("Deleted %d old archive(s) from %s", deleted, target.Name)
	return nil
}

func (uc *Cleanup) fallbackListFiles(ctx context.Context, target UploadTarget, cutoff time.Time) ([]string, error) {
	files, err := target.Storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	cutoffDay := domain.DateOf(cutoff)
	oldFiles := make([]string, 0)
	for _, filename := range files {
		day, ok := domain.ParseDailyArchiveDate(filename)
		if !ok {
			continue
		}
		if day.Before(cutoffDay) {
			oldFiles = append(oldFiles, filename)
		}
	}

	return oldFiles, nil
}
