package api

import (
	"context"
	"fmt"
	"time"
)

// BiasRunRequest starts a bias analysis for a model against a dataset.
type BiasRunRequest struct {
	ModelID             string   `json:"model_id"`
	DatasetID           string   `json:"dataset_id"`
	TargetColumn        string   `json:"target_column,omitempty"`
	SensitiveAttributes []string `json:"sensitive_attributes,omitempty"`
	FairnessMetrics     []string `json:"fairness_metrics,omitempty"`
}

// BiasMetric is a single fairness metric computed by the backend.
type BiasMetric struct {
	Name      string  `json:"name"`
	Attribute string  `json:"attribute,omitempty"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold,omitempty"`
	Passed    bool    `json:"passed"`
}

// BiasAnalysis is the result of a bias detection run.
type BiasAnalysis struct {
	ID           string       `json:"id"`
	ModelID      string       `json:"model_id"`
	DatasetID    string       `json:"dataset_id"`
	Status       string       `json:"status"`
	OverallScore float64      `json:"overall_score"`
	Metrics      []BiasMetric `json:"metrics,omitempty"`
	StartedAt    time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// RunBiasAnalysis starts a bias detection run. Retry is enabled because the
// analysis engine sheds load with 429/503 while busy.
func (c *Client) RunBiasAnalysis(ctx context.Context, req BiasRunRequest) (*BiasAnalysis, error) {
	opts := &RequestOptions{EnableRetry: true}
	env := Post[BiasAnalysis](ctx, c, "/api/v1/bias-detection/analyze", req, opts)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("run bias analysis: %w", err)
	}
	return &env.Data, nil
}

// GetBiasAnalysis fetches the state and metrics of an analysis run.
func (c *Client) GetBiasAnalysis(ctx context.Context, id string) (*BiasAnalysis, error) {
	env := Get[BiasAnalysis](ctx, c, "/api/v1/bias-detection/analyses/"+id, nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("get bias analysis %s: %w", id, err)
	}
	return &env.Data, nil
}

// biasAnalysisList unwraps both list shapes the backend emits.
type biasAnalysisList struct {
	Analyses []BiasAnalysis `json:"analyses"`
	Data     []BiasAnalysis `json:"data"`
}

// ListBiasAnalyses retrieves recent analyses for a model. An empty modelID
// lists across all models.
func (c *Client) ListBiasAnalyses(ctx context.Context, modelID string) ([]BiasAnalysis, error) {
	path := "/api/v1/bias-detection/analyses"
	if modelID != "" {
		path = joinQuery(path, "model_id="+modelID)
	}
	env := Get[biasAnalysisList](ctx, c, path, nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("list bias analyses: %w", err)
	}
	if env.Data.Analyses != nil {
		return env.Data.Analyses, nil
	}
	return env.Data.Data, nil
}

// RunBiasAnalysisV2 starts an analysis on the second-generation engine, which
// accepts the same request but reports richer per-attribute metrics.
func (c *Client) RunBiasAnalysisV2(ctx context.Context, req BiasRunRequest) (*BiasAnalysis, error) {
	opts := &RequestOptions{EnableRetry: true}
	env := Post[BiasAnalysis](ctx, c, "/api/v1/bias-v2/analyze", req, opts)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("run bias analysis (v2): %w", err)
	}
	return &env.Data, nil
}
