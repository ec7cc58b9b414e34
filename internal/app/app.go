package app

import (
	"context"
	"fmt"

	"github.com/semmidev/daydump/internal/adapter/compressor"
	"github.com/semmidev/daydump/internal/adapter/database"
	"github.com/semmidev/daydump/internal/adapter/storage"
	"github.com/semmidev/daydump/internal/config"
	"github.com/semmidev/daydump/internal/domain"
	"github.com/semmidev/daydump/internal/infrastructure/logger"
	"github.com/semmidev/daydump/internal/infrastructure/scheduler"
	"github.com/semmidev/daydump/internal/usecase"
)

const cleanupSchedule = "0 0 3 * * *"

type Options struct {
	// Clock overrides the wall clock, e.g. to backfill as of another day.
	Clock domain.Clock
	// Verbose is OR-ed with database.verbose.
	Verbose bool
}

type App struct {
	config        *config.Config
	logger        *logger.Logger
	scheduler     *scheduler.Scheduler
	inspector     domain.Inspector
	tables        []domain.Table
	uploadTargets []usecase.UploadTarget
	dumpUC        *usecase.Dump
	cleanupUC     *usecase.Cleanup
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	verbose := cfg.Database.Verbose || opts.Verbose

	log, err := NewLogger(cfg, verbose)
	if err != nil {
		return nil, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = domain.SystemClock{}
	}

	log.Infof("Starting %s for database %s", cfg.App.Name, cfg.Database.Name)

	tables, err := cfg.BuildTables(clock)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewLocal(cfg.Backup.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local storage: %w", err)
	}

	runner := database.NewMySQLDump(
		cfg.Database.MysqldumpPath,
		cfg.Database.Name,
		cfg.Database.User,
		cfg.Database.Password,
		verbose,
		log,
	)

	var inspector domain.Inspector
	if cfg.Database.Preflight {
		inspector, err = database.OpenMySQL(cfg.Database.Name, cfg.Database.User, cfg.Database.Password)
		if err != nil {
			return nil, err
		}
	}

	uploadTargets, notifiers := initializeUploadTargets(ctx, cfg, log)

	dumpUC := usecase.NewDump(usecase.DumpParams{
		Database:      cfg.Database.Name,
		User:          cfg.Database.User,
		Tables:        tables,
		Runner:        runner,
		Compressor:    compressor.NewGzip(),
		Store:         store,
		Clock:         clock,
		Logger:        log,
		UploadTargets: uploadTargets,
		Notifiers:     notifiers,
	})

	cleanupUC := usecase.NewCleanup(uploadTargets, log, cfg.Backup.RetentionDays, clock)

	return &App{
		config:        cfg,
		logger:        log,
		scheduler:     scheduler.New(log),
		inspector:     inspector,
		tables:        tables,
		uploadTargets: uploadTargets,
		dumpUC:        dumpUC,
		cleanupUC:     cleanupUC,
	}, nil
}

func NewLogger(cfg *config.Config, verbose bool) (*logger.Logger, error) {
	log, err := logger.New(logger.Options{
		Level:   cfg.App.LogLevel,
		File:    cfg.App.LogFile,
		Verbose: verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}

func initializeUploadTargets(ctx context.Context, cfg *config.Config, log *logger.Logger) ([]usecase.UploadTarget, []usecase.Notifier) {
	var targets []usecase.UploadTarget
	var notifiers []usecase.Notifier

	for _, targetCfg := range cfg.GetEnabledUploadTargets() {
		var stor domain.Storage

		switch targetCfg.Type {
		case "gdrive":
			gd, err := storage.NewGDrive(ctx, &targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Google Drive: %v", err)
				continue
			}
			stor = gd
			log.Infof("Google Drive upload enabled")

		case "s3":
			s3, err := storage.NewS3(ctx, &targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize S3: %v", err)
				continue
			}
			stor = s3
			log.Infof("AWS S3 upload enabled (bucket: %s)", targetCfg.Bucket)

		case "telegram":
			tg, err := storage.NewTelegram(&targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Telegram: %v", err)
				continue
			}
			stor = tg
			notifiers = append(notifiers, tg)
			log.Infof("Telegram notifications enabled")

		default:
			log.Warnf("Unknown upload target type: %s", targetCfg.Type)
			continue
		}

		targets = append(targets, usecase.UploadTarget{
			Name:    targetCfg.Type,
			Storage: stor,
		})
	}

	return targets, notifiers
}

// Preflight checks the server is reachable and every configured table and
// date column exists. It is a no-op when database.preflight is off.
func (a *App) Preflight(ctx context.Context) error {
	if a.inspector == nil {
		return nil
	}
	if err := a.inspector.Ping(ctx); err != nil {
		return fmt.Errorf("preflight: %w", err)
	}
	if err := a.inspector.CheckTables(ctx, a.tables); err != nil {
		return fmt.Errorf("preflight: %w", err)
	}
	a.logger.Debugf("Preflight passed for %d table(s)", len(a.tables))
	return nil
}

func (a *App) RunOnce(ctx context.Context) (*domain.Report, error) {
	if err := a.Preflight(ctx); err != nil {
		return nil, err
	}
	return a.dumpUC.Execute(ctx)
}

func (a *App) Plan(ctx context.Context) ([]domain.Archive, error) {
	return a.dumpUC.Plan(ctx)
}

func (a *App) Cleanup(ctx context.Context) error {
	return a.cleanupUC.Execute(ctx)
}

// Run schedules the dump, and remote cleanup when retention is on, and
// blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	schedule := a.config.Backup.Schedule

	if err := a.scheduler.AddJob("dump", schedule, func(ctx context.Context) error {
		a.logger.Infof("=== Triggered scheduled dump for %s ===", a.config.Database.Name)
		_, err := a.RunOnce(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("failed to schedule dump for %s: %w", a.config.Database.Name, err)
	}
	a.logger.Infof("Scheduled dump for %s: %s", a.config.Database.Name, schedule)

	if a.config.Backup.RetentionDays > 0 && len(a.uploadTargets) > 0 {
		a.logger.Infof("Scheduling cleanup: %s", cleanupSchedule)
		if err := a.scheduler.AddJob("cleanup", cleanupSchedule, a.cleanupUC.Execute); err != nil {
			return fmt.Errorf("failed to schedule cleanup: %w", err)
		}
	}

	a.scheduler.Start()
	a.logger.Infof("Scheduler started successfully")
	a.logger.Infof("Dump destinations: %s + %d remote target(s)", a.config.Backup.OutputDir, len(a.uploadTargets))

	<-ctx.Done()
	return nil
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down application...")
	a.scheduler.Stop()
	if a.inspector != nil {
		if err := a.inspector.Close(); err != nil {
			a.logger.Warnf("Failed to close database connection: %v", err)
		}
	}
	a.logger.Close()
}
