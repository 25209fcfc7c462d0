package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-proxypay/config"
)

var workerMode bool

var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Aggregate completed payments into revenue buckets and log them",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"revenue_rollup",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.RollupInterval },
			func(ctx context.Context, cfg *config.Config, services *serviceContainer) error {
				return services.rollup.LogRollup(ctx, cfg.Jobs.RollupWindow)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(rollupCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(ctx context.Context, cfg *config.Config, services *serviceContainer) error,
) {
	cfg, services, cleanup := mustCreateServices()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), func(ctx context.Context) error {
			return fn(ctx, cfg, services)
		})
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(ctx, cfg, services) })
}

func runWorker(name string, interval time.Duration, fn func(ctx context.Context) error) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
