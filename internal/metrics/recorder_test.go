package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRecorderExposition(t *testing.T) {
	r := NewRecorder()

	r.ObserveRequest("GET", 200, 120*time.Millisecond)
	r.ObserveRequest("POST", 500, 80*time.Millisecond)
	r.ObserveRequest("GET", 0, 5*time.Millisecond)
	r.ObserveRetry("POST")
	r.SetBiasScore("model-1", 0.92)
	r.SetComplianceScore(0.77)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		`fairlens_client_requests_total{method="GET",status="200"} 1`,
		`fairlens_client_requests_total{method="POST",status="500"} 1`,
		`fairlens_client_requests_total{method="GET",status="error"} 1`,
		`fairlens_client_retries_total{method="POST"} 1`,
		`fairlens_bias_score{model_id="model-1"} 0.92`,
		`fairlens_compliance_score 0.77`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
