package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobdeck/internal/filter"
	"github.com/amishk599/jobdeck/internal/metrics"
	"github.com/amishk599/jobdeck/internal/model"
	"github.com/amishk599/jobdeck/internal/notifier"
	"github.com/amishk599/jobdeck/internal/poller"
	"github.com/amishk599/jobdeck/internal/scheduler"
	"github.com/amishk599/jobdeck/internal/store"
)

var watchFlags struct {
	once        bool
	dryRun      bool
	testNotify  bool
	metricsAddr string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch saved searches and notify about new jobs",
	Long: `Polls every search under watch.searches on the configured interval and
notifies about jobs not seen before. Blocks until SIGINT/SIGTERM.

The first poll of each search only records what is already listed.`,
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.BoolVar(&watchFlags.once, "once", false, "poll every search once and exit")
	f.BoolVar(&watchFlags.dryRun, "dry-run", false, "poll once, log every match, record nothing")
	f.BoolVar(&watchFlags.testNotify, "test-notify", false, "send a test notification and exit")
	f.StringVar(&watchFlags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides watch.metrics_addr)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(!watchFlags.dryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, logger := a.cfg, a.logger

	if watchFlags.testNotify {
		if err := notifier.SendTestMessage(setupNotifier(cfg, logger)); err != nil {
			return fmt.Errorf("test notification failed: %w", err)
		}
		logger.Info("test notification sent successfully")
		return nil
	}

	if len(cfg.Watch.Searches) == 0 {
		return fmt.Errorf("no searches to watch: add entries under watch.searches")
	}

	var (
		jobs  model.JobStore
		notif model.Notifier
	)
	if watchFlags.dryRun {
		logger.Info("dry run: no jobs will be marked as seen")
		jobs = store.NewNopStore()
		notif = notifier.NewLogNotifier(logger)
	} else {
		jobs = a.store
		notif = setupNotifier(cfg, logger)
	}

	metricsAddr := cfg.Watch.MetricsAddr
	if watchFlags.metricsAddr != "" {
		metricsAddr = watchFlags.metricsAddr
	}
	var watchMetrics *metrics.Watch
	if metricsAddr != "" {
		watchMetrics = metrics.NewWatch()
	}

	pollers := make([]*poller.SearchPoller, 0, len(cfg.Watch.Searches))
	for _, s := range cfg.Watch.Searches {
		q := filter.Parse(s.Query)
		logger.Debug("watching search", "search", s.Name, "query", filter.Serialize(q))
		p := poller.NewSearchPoller(s.Name, q, cfg.Watch.Pages, a.svc, jobs, notif, cfg.Watch.MaxAge, logger)
		if watchMetrics != nil {
			p.SetObserver(watchMetrics)
		}
		pollers = append(pollers, p)
	}

	opts := []scheduler.Option{scheduler.WithPause(cfg.Watch.Pause)}
	if a.store != nil {
		opts = append(opts, scheduler.WithCleanup(a.store, cfg.Watch.Retain))
	}
	schedule, err := cfg.Watch.CronSchedule()
	if err != nil {
		return fmt.Errorf("watch.schedule: %w", err)
	}
	if schedule != nil {
		opts = append(opts, scheduler.WithSchedule(schedule))
	}
	sched := scheduler.NewScheduler(pollers, cfg.Watch.Interval, logger, opts...)

	ctx, stop := signalContext()
	defer stop()

	if watchMetrics != nil {
		go func() {
			if err := watchMetrics.Serve(ctx, metricsAddr, logger); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	if watchFlags.once || watchFlags.dryRun {
		if failed := sched.RunOnce(ctx); failed > 0 {
			return fmt.Errorf("%d of %d searches failed", failed, len(pollers))
		}
		return nil
	}

	logger.Info("watching",
		"searches", len(pollers),
		"interval", cfg.Watch.Interval.String(),
		"schedule", cfg.Watch.Schedule,
		"notification", cfg.Watch.Notification.Type,
	)
	if err := sched.Run(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	logger.Info("goodbye")
	return nil
}
