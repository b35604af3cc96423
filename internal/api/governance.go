package api

import (
	"context"
	"fmt"
	"time"
)

// CompliancePosture summarizes compliance standing across frameworks.
type CompliancePosture struct {
	OverallScore float64               `json:"overall_score"`
	RiskLevel    string                `json:"risk_level,omitempty"`
	Frameworks   []FrameworkCompliance `json:"frameworks,omitempty"`
	EvaluatedAt  time.Time             `json:"evaluated_at,omitempty"`
}

// FrameworkCompliance is the score against one regulatory framework.
type FrameworkCompliance struct {
	Framework string  `json:"framework"`
	Score     float64 `json:"score"`
	Status    string  `json:"status,omitempty"`
	Gaps      int     `json:"gaps,omitempty"`
}

// RiskAssessmentRequest asks the governance engine to assess model risks.
type RiskAssessmentRequest struct {
	ModelID    string   `json:"model_id"`
	Frameworks []string `json:"frameworks,omitempty"`
}

// RiskAssessment is the outcome of a risk assessment.
type RiskAssessment struct {
	ID        string    `json:"id"`
	ModelID   string    `json:"model_id"`
	RiskLevel string    `json:"risk_level"`
	Score     float64   `json:"score"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ComplianceReport is a generated governance report.
type ComplianceReport struct {
	ID          string    `json:"id"`
	Framework   string    `json:"framework,omitempty"`
	Format      string    `json:"format,omitempty"`
	DownloadURL string    `json:"download_url,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// GetCompliancePosture fetches the current compliance posture.
func (c *Client) GetCompliancePosture(ctx context.Context) (*CompliancePosture, error) {
	env := Get[CompliancePosture](ctx, c, "/api/v1/ai-governance/compliance", nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("get compliance posture: %w", err)
	}
	return &env.Data, nil
}

type frameworkList struct {
	Frameworks []string `json:"frameworks"`
	Data       []string `json:"data"`
}

// ListFrameworks retrieves the regulatory frameworks the backend can score
// against (EU AI Act, NIST AI RMF, and so on).
func (c *Client) ListFrameworks(ctx context.Context) ([]string, error) {
	env := Get[frameworkList](ctx, c, "/api/v1/ai-governance/frameworks", nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("list frameworks: %w", err)
	}
	if env.Data.Frameworks != nil {
		return env.Data.Frameworks, nil
	}
	return env.Data.Data, nil
}

// AssessRisks runs a risk assessment for a model.
func (c *Client) AssessRisks(ctx context.Context, req RiskAssessmentRequest) (*RiskAssessment, error) {
	env := Post[RiskAssessment](ctx, c, "/api/v1/ai-governance/assess-risks", req, nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("assess risks: %w", err)
	}
	return &env.Data, nil
}

// GenerateReport asks the backend to produce a compliance report.
func (c *Client) GenerateReport(ctx context.Context, framework, format string) (*ComplianceReport, error) {
	req := struct {
		Framework string `json:"framework"`
		Format    string `json:"format,omitempty"`
	}{Framework: framework, Format: format}

	env := Post[ComplianceReport](ctx, c, "/api/v1/ai-governance/reports", req, nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	return &env.Data, nil
}
