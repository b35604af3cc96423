package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fairlensai/fairlens/internal/config"
	"github.com/fairlensai/fairlens/internal/history"
	"github.com/fairlensai/fairlens/internal/httpclient"
	"github.com/fairlensai/fairlens/internal/metrics"
	"github.com/fairlensai/fairlens/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var schedule string
	var biasThreshold, minCompliance float64
	var webhookURL, metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the watch daemon: poll posture, publish metrics, alert on breaches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDefault()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Offline {
				return fmt.Errorf("watch requires network access; offline mode is enabled")
			}

			opts := watch.Options{
				Schedule:      cfg.Watch.Schedule,
				BiasThreshold: cfg.Watch.BiasThreshold,
				MinCompliance: cfg.Watch.MinCompliance,
				WebhookURL:    cfg.Watch.WebhookURL,
				WebhookSecret: cfg.Watch.WebhookSecret,
				MetricsAddr:   cfg.Watch.MetricsAddr,
			}
			// Flags take precedence over the config file.
			if schedule != "" {
				opts.Schedule = schedule
			}
			if biasThreshold > 0 {
				opts.BiasThreshold = biasThreshold
			}
			if minCompliance > 0 {
				opts.MinCompliance = minCompliance
			}
			if webhookURL != "" {
				opts.WebhookURL = webhookURL
			}
			if metricsAddr != "" {
				opts.MetricsAddr = metricsAddr
			}

			logger := newLogger()
			recorder := metrics.NewRecorder()

			client, err := buildClient(cfg, recorder)
			if err != nil {
				return err
			}

			var sender *watch.WebhookSender
			if opts.WebhookURL != "" {
				sender = watch.NewWebhookSender(httpclient.NewSimple(30*time.Second), logger)
			}

			watcher := watch.New(client, recorder, sender, opts, logger)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Printf("Watching %s (schedule %q)\n", cfg.ResolveServerURL(serverFlag), opts.Schedule)
			if opts.MetricsAddr != "" {
				fmt.Printf("Metrics on http://%s/metrics\n", opts.MetricsAddr)
			}

			return watcher.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "Poll schedule (cron or @every syntax)")
	cmd.Flags().Float64Var(&biasThreshold, "bias-threshold", 0, "Alert when a model's bias score drops below this")
	cmd.Flags().Float64Var(&minCompliance, "min-compliance", 0, "Alert when overall compliance drops below this")
	cmd.Flags().StringVar(&webhookURL, "webhook", "", "Webhook URL for alerts")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on")

	return cmd
}

// openHistoryStore opens the run-history database under the config dir.
func openHistoryStore() (*history.Store, error) {
	dir, err := config.DefaultConfigDir()
	if err != nil {
		return nil, err
	}
	return history.NewStore(dir, newLogger())
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Review locally recorded analysis runs",
	}

	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryPruneCmd(),
	)

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var modelID string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistoryStore()
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			var runs []*history.Run
			if modelID != "" {
				runs, err = store.ListByModel(ctx, modelID, limit)
			} else {
				runs, err = store.List(ctx, limit)
			}
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			if len(runs) == 0 {
				fmt.Println("No recorded runs")
				return nil
			}

			fmt.Printf("%-10s %-20s %-12s %8s  %s\n", "KIND", "MODEL", "STATUS", "SCORE", "WHEN")
			for _, r := range runs {
				fmt.Printf("%-10s %-20s %-12s %8.3f  %s\n",
					r.Kind, r.ModelID, r.Status, r.Score, r.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modelID, "model", "", "Filter by model ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum runs to show")

	return cmd
}

func newHistoryPruneCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove runs older than a number of days",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistoryStore()
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			n, err := store.Prune(ctx, time.Duration(days)*24*time.Hour)
			if err != nil {
				return fmt.Errorf("prune history: %w", err)
			}
			fmt.Printf("Removed %d runs older than %d days\n", n, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 90, "Remove runs older than this many days")

	return cmd
}
