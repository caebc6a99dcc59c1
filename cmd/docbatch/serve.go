package docbatch

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/liliang-cn/docbatch/internal/scheduler"
	"github.com/liliang-cn/docbatch/internal/web"
	"github.com/liliang-cn/docbatch/pkg/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Start the HTTP adapter together with the scheduled storage cleaner.
On startup, task directories older than the retention window and stale
transcoder intermediates are swept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := buildApp(cfg)
		if err != nil {
			return err
		}

		// Startup sweeps: expired tasks and stale intermediates.
		application.cleaner.CleanOldBatchTasks(cfg.Storage.CleanKeepDays)
		application.cleaner.CleanOldSingleFiles(cfg.Storage.CleanKeepDays)
		application.cleaner.CleanTempFiles(time.Hour)

		sched := scheduler.New()
		if err := sched.AddJob(cfg.Storage.CleanSchedule, "storage-clean", func() {
			application.cleaner.CleanOldBatchTasks(cfg.Storage.CleanKeepDays)
			application.cleaner.CleanOldSingleFiles(cfg.Storage.CleanKeepDays)
			application.cleaner.CleanTempFiles(time.Hour)
		}); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		server := web.NewServer(
			cfg.Server,
			application.orchestrator,
			application.classifier,
			application.cleaner,
			application.layout,
			cfg.Storage.CleanKeepDays,
		)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return server.Run(ctx) })

		log.Info("docbatch serving", "host", cfg.Server.Host, "port", cfg.Server.Port)
		return g.Wait()
	},
}
