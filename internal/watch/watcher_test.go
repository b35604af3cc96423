package watch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairlensai/fairlens/internal/api"
	"github.com/fairlensai/fairlens/internal/metrics"
	"github.com/fairlensai/fairlens/internal/resource"
)

// fakeBackend serves the two endpoints a watch tick hits.
func fakeBackend(t *testing.T, complianceScore, biasScore float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/v1/ai-governance/compliance"):
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"overall_score": complianceScore, "risk_level": "medium"},
			})
		case strings.HasPrefix(r.URL.Path, "/api/v1/bias-detection/analyses"):
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": map[string]any{
					"analyses": []map[string]any{{
						"id":            "an-1",
						"model_id":      "model-1",
						"status":        "completed",
						"overall_score": biasScore,
					}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestTickRefreshesPosture(t *testing.T) {
	srv := fakeBackend(t, 0.83, 0.95)
	defer srv.Close()

	client := api.NewClient(srv.URL)
	w := New(client, nil, nil, Options{}, zerolog.Nop())

	w.Tick(context.Background())

	snap := w.PostureSnapshot()
	require.Equal(t, resource.StateReady, snap.State)
	require.NotNil(t, snap.Data)
	assert.InDelta(t, 0.83, snap.Data.OverallScore, 1e-9)
}

func TestTickPublishesMetrics(t *testing.T) {
	srv := fakeBackend(t, 0.83, 0.95)
	defer srv.Close()

	client := api.NewClient(srv.URL)
	rec := metrics.NewRecorder()
	w := New(client, rec, nil, Options{}, zerolog.Nop())

	w.Tick(context.Background())

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	rec.Handler().ServeHTTP(rr, req)

	body := rr.Body.String()
	assert.Contains(t, body, "fairlens_compliance_score 0.83")
	assert.Contains(t, body, `fairlens_bias_score{model_id="model-1"} 0.95`)
}

func TestTickAlertsOnBreach(t *testing.T) {
	srv := fakeBackend(t, 0.42, 0.5)
	defer srv.Close()

	var alerts atomic.Int64
	var mu sync.Mutex
	var events []string
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		alerts.Add(1)
		var payload AlertPayload
		json.NewDecoder(r.Body).Decode(&payload)
		mu.Lock()
		events = append(events, payload.EventType)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	client := api.NewClient(srv.URL)
	sender := NewWebhookSender(hook.Client(), zerolog.Nop())
	w := New(client, nil, sender, Options{
		BiasThreshold: 0.8,
		MinCompliance: 0.7,
		WebhookURL:    hook.URL,
	}, zerolog.Nop())

	w.Tick(context.Background())

	assert.EqualValues(t, 2, alerts.Load())
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, events, "compliance_below_threshold")
	assert.Contains(t, events, "bias_below_threshold")
}

func TestTickNoAlertsWhenHealthy(t *testing.T) {
	srv := fakeBackend(t, 0.95, 0.97)
	defer srv.Close()

	var alerts atomic.Int64
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		alerts.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	client := api.NewClient(srv.URL)
	sender := NewWebhookSender(hook.Client(), zerolog.Nop())
	w := New(client, nil, sender, Options{
		BiasThreshold: 0.8,
		MinCompliance: 0.7,
		WebhookURL:    hook.URL,
	}, zerolog.Nop())

	w.Tick(context.Background())

	assert.EqualValues(t, 0, alerts.Load())
}
