// Package watch implements the long-running mode of the CLI: periodic
// refresh of compliance and bias state, metrics exposition, and webhook
// alerts when a score crosses a threshold.
package watch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/fairlensai/fairlens/internal/api"
	"github.com/fairlensai/fairlens/internal/metrics"
	"github.com/fairlensai/fairlens/internal/resource"
)

// DefaultSchedule refreshes every five minutes.
const DefaultSchedule = "@every 5m"

// Options configures a Watcher.
type Options struct {
	// Schedule is a cron expression (robfig/cron syntax, @every accepted).
	Schedule string
	// BiasThreshold alerts when any model's bias score drops below it.
	// Zero disables the check.
	BiasThreshold float64
	// MinCompliance alerts when the overall compliance score drops below
	// it. Zero disables the check.
	MinCompliance float64
	// WebhookURL receives alerts; empty disables alerting.
	WebhookURL    string
	WebhookSecret string
	// MetricsAddr serves Prometheus metrics when non-empty (e.g.
	// "127.0.0.1:9464").
	MetricsAddr string
}

// Watcher periodically refreshes platform state and raises alerts.
type Watcher struct {
	client   *api.Client
	recorder *metrics.Recorder
	sender   *WebhookSender
	opts     Options
	logger   zerolog.Logger

	posture  *resource.Resource[*api.CompliancePosture]
	analyses *resource.Resource[[]api.BiasAnalysis]
}

// New creates a Watcher. recorder and sender may be nil, disabling metrics
// exposition and alerting respectively.
func New(client *api.Client, recorder *metrics.Recorder, sender *WebhookSender, opts Options, logger zerolog.Logger) *Watcher {
	if opts.Schedule == "" {
		opts.Schedule = DefaultSchedule
	}

	w := &Watcher{
		client:   client,
		recorder: recorder,
		sender:   sender,
		opts:     opts,
		logger:   logger.With().Str("component", "watcher").Logger(),
	}

	offline := func() bool { return client.Offline() }
	w.posture = resource.New("compliance_posture",
		func(ctx context.Context) (*api.CompliancePosture, error) {
			return client.GetCompliancePosture(ctx)
		},
		resource.WithLogger[*api.CompliancePosture](logger),
		resource.WithOfflineGuard[*api.CompliancePosture](offline),
	)
	w.analyses = resource.New("bias_analyses",
		func(ctx context.Context) ([]api.BiasAnalysis, error) {
			return client.ListBiasAnalyses(ctx, "")
		},
		resource.WithLogger[[]api.BiasAnalysis](logger),
		resource.WithOfflineGuard[[]api.BiasAnalysis](offline),
	)

	return w
}

// Run blocks until ctx is cancelled, refreshing on the configured schedule.
func (w *Watcher) Run(ctx context.Context) error {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(w.opts.Schedule, func() { w.Tick(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", w.opts.Schedule, err)
	}

	var metricsSrv *http.Server
	if w.opts.MetricsAddr != "" && w.recorder != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", w.recorder.Handler())
		metricsSrv = &http.Server{Addr: w.opts.MetricsAddr, Handler: mux}
		go func() {
			w.logger.Info().Str("addr", w.opts.MetricsAddr).Msg("metrics listener started")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				w.logger.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	// Initial refresh before the first scheduled tick.
	w.Tick(ctx)

	scheduler.Start()
	w.logger.Info().Str("schedule", w.opts.Schedule).Msg("watcher running")

	<-ctx.Done()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	return nil
}

// Tick performs one refresh cycle: fetch, publish metrics, evaluate
// thresholds.
func (w *Watcher) Tick(ctx context.Context) {
	w.posture.Fetch(ctx)
	w.analyses.Fetch(ctx)

	w.publishMetrics()
	w.evaluate(ctx)
}

func (w *Watcher) publishMetrics() {
	if w.recorder == nil {
		return
	}

	if snap := w.posture.Snapshot(); snap.State == resource.StateReady && snap.Data != nil {
		w.recorder.SetComplianceScore(snap.Data.OverallScore)
	}
	if snap := w.analyses.Snapshot(); snap.State == resource.StateReady {
		for _, a := range snap.Data {
			w.recorder.SetBiasScore(a.ModelID, a.OverallScore)
		}
	}
}

// evaluate checks thresholds and sends alerts for breaches.
func (w *Watcher) evaluate(ctx context.Context) {
	if w.sender == nil || w.opts.WebhookURL == "" {
		return
	}

	if w.opts.MinCompliance > 0 {
		if snap := w.posture.Snapshot(); snap.State == resource.StateReady && snap.Data != nil &&
			snap.Data.OverallScore < w.opts.MinCompliance {
			w.alert(ctx, AlertPayload{
				EventType: "compliance_below_threshold",
				Timestamp: time.Now().UTC(),
				Severity:  "warning",
				Summary: fmt.Sprintf("Compliance score %.2f below threshold %.2f",
					snap.Data.OverallScore, w.opts.MinCompliance),
				Details: map[string]any{
					"score":     snap.Data.OverallScore,
					"threshold": w.opts.MinCompliance,
				},
			})
		}
	}

	if w.opts.BiasThreshold > 0 {
		if snap := w.analyses.Snapshot(); snap.State == resource.StateReady {
			for _, a := range snap.Data {
				if a.Status == "completed" && a.OverallScore < w.opts.BiasThreshold {
					w.alert(ctx, AlertPayload{
						EventType: "bias_below_threshold",
						Timestamp: time.Now().UTC(),
						Severity:  "critical",
						Summary: fmt.Sprintf("Model %s bias score %.2f below threshold %.2f",
							a.ModelID, a.OverallScore, w.opts.BiasThreshold),
						Details: map[string]any{
							"model_id":    a.ModelID,
							"analysis_id": a.ID,
							"score":       a.OverallScore,
							"threshold":   w.opts.BiasThreshold,
						},
					})
				}
			}
		}
	}
}

func (w *Watcher) alert(ctx context.Context, payload AlertPayload) {
	if err := w.sender.Send(ctx, w.opts.WebhookURL, payload, w.opts.WebhookSecret); err != nil {
		w.logger.Warn().Err(err).Str("event", payload.EventType).Msg("alert delivery failed")
	}
}

// PostureSnapshot exposes the latest compliance posture for display.
func (w *Watcher) PostureSnapshot() resource.Snapshot[*api.CompliancePosture] {
	return w.posture.Snapshot()
}
