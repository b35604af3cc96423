// Package metrics exposes Prometheus metrics for outbound API traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects request-level metrics from the API client. It satisfies
// the client's Recorder interface.
type Recorder struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	duration *prometheus.HistogramVec

	biasScore       *prometheus.GaugeVec
	complianceScore prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fairlens_client_requests_total",
			Help: "Outbound API requests by method and HTTP status.",
		}, []string{"method", "status"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fairlens_client_retries_total",
			Help: "Retry attempts by method.",
		}, []string{"method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fairlens_client_request_duration_seconds",
			Help:    "Outbound API request duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		biasScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fairlens_bias_score",
			Help: "Latest overall bias score per model.",
		}, []string{"model_id"}),
		complianceScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fairlens_compliance_score",
			Help: "Latest overall compliance score.",
		}),
	}

	r.registry.MustRegister(r.requests, r.retries, r.duration, r.biasScore, r.complianceScore)
	return r
}

// ObserveRequest records one completed (or failed) request. A status of 0
// means the request never reached the server.
func (r *Recorder) ObserveRequest(method string, statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	r.requests.WithLabelValues(method, status).Inc()
	r.duration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveRetry records one retry attempt.
func (r *Recorder) ObserveRetry(method string) {
	r.retries.WithLabelValues(method).Inc()
}

// SetBiasScore publishes the latest bias score for a model.
func (r *Recorder) SetBiasScore(modelID string, score float64) {
	r.biasScore.WithLabelValues(modelID).Set(score)
}

// SetComplianceScore publishes the latest overall compliance score.
func (r *Recorder) SetComplianceScore(score float64) {
	r.complianceScore.Set(score)
}

// Handler serves the registry in the Prometheus exposition format. The watch
// daemon mounts it on its metrics listener.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
