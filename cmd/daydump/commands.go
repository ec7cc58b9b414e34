package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semmidev/daydump/internal/app"
	"github.com/semmidev/daydump/internal/config"
	"github.com/semmidev/daydump/internal/domain"
)

type rootFlags struct {
	configPath string
	verbose    bool
	today      string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "daydump",
		Short: "Incremental, day-partitioned MySQL dumps",
		Long: `daydump dumps a MySQL database with mysqldump and gzip.

Whole tables are dumped in full on every run. Daily tables get one archive
per calendar day, and only days without an archive are dumped, so a run
never locks a big table for longer than one day's rows.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "configs/config.yaml", "path to config file")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log every mysqldump command")
	root.PersistentFlags().StringVar(&flags.today, "today", "", "treat this day (YYYY-MM-DD) as today")

	root.AddCommand(
		newRunCmd(flags),
		newPlanCmd(flags),
		newDaemonCmd(flags),
		newCleanupCmd(flags),
		newGDriveAuthCmd(flags),
	)
	return root
}

func (f *rootFlags) options() (app.Options, error) {
	opts := app.Options{Verbose: f.verbose}
	if f.today != "" {
		day, err := domain.ParseDate(f.today)
		if err != nil {
			return opts, fmt.Errorf("--today: %w", err)
		}
		opts.Clock = domain.FixedClock{At: day.Time()}
	}
	return opts, nil
}

// withApp loads the config, builds the app and hands it a context that is
// cancelled on SIGINT or SIGTERM.
func withApp(f *rootFlags, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	opts, err := f.options()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg, opts)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	return fn(ctx, application)
}

func newRunCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Dump once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(f, func(ctx context.Context, a *app.App) error {
				_, err := a.RunOnce(ctx)
				return err
			})
		},
	}
}

func newPlanCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "List the archives a run would write",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(f, func(ctx context.Context, a *app.App) error {
				plan, err := a.Plan(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, archive := range plan {
					fmt.Fprintf(out, "%-9s %s\n", archive.Mode, archive.Path)
				}
				return nil
			})
		},
	}
}

func newDaemonCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Dump on backup.schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(f, func(ctx context.Context, a *app.App) error {
				return a.Run(ctx)
			})
		},
	}
}

func newCleanupCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Prune remote daily archives older than backup.retention_days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(f, func(ctx context.Context, a *app.App) error {
				return a.Cleanup(ctx)
			})
		},
	}
}

func newGDriveAuthCmd(f *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "gdrive-auth",
		Short: "Authorize the Google Drive target and save its token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			target, ok := cfg.DriveTarget()
			if !ok {
				return fmt.Errorf("no gdrive upload target configured")
			}

			log, err := app.NewLogger(cfg, f.verbose)
			if err != nil {
				return err
			}
			defer log.Close()

			auth, err := app.NewDriveAuthorizer(log, target.ClientSecretFile, target.TokenFile)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return auth.Serve(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8085", "address for the OAuth callback server")
	return cmd
}
