package api

import (
	"context"
	"fmt"
	"time"
)

// SecurityScanRequest starts a security scan for a model endpoint.
type SecurityScanRequest struct {
	ModelID    string   `json:"model_id"`
	ScanType   string   `json:"scan_type,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// SecurityFinding is a single issue reported by the scanner.
type SecurityFinding struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}

// SecurityScan is the state of a scan run.
type SecurityScan struct {
	ID          string            `json:"id"`
	ModelID     string            `json:"model_id"`
	Status      string            `json:"status"`
	RiskScore   float64           `json:"risk_score,omitempty"`
	Findings    []SecurityFinding `json:"findings,omitempty"`
	StartedAt   time.Time         `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// StartSecurityScan kicks off a security scan.
func (c *Client) StartSecurityScan(ctx context.Context, req SecurityScanRequest) (*SecurityScan, error) {
	env := Post[SecurityScan](ctx, c, "/api/v1/security/scans", req, &RequestOptions{EnableRetry: true})
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("start security scan: %w", err)
	}
	return &env.Data, nil
}

// GetSecurityScan fetches scan status and findings.
func (c *Client) GetSecurityScan(ctx context.Context, id string) (*SecurityScan, error) {
	env := Get[SecurityScan](ctx, c, "/api/v1/security/scans/"+id, nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("get security scan %s: %w", id, err)
	}
	return &env.Data, nil
}

type securityScanList struct {
	Scans []SecurityScan `json:"scans"`
	Data  []SecurityScan `json:"data"`
}

// ListSecurityScans retrieves scans, optionally filtered by model.
func (c *Client) ListSecurityScans(ctx context.Context, modelID string) ([]SecurityScan, error) {
	path := "/api/v1/security/scans"
	if modelID != "" {
		path = joinQuery(path, "model_id="+modelID)
	}
	env := Get[securityScanList](ctx, c, path, nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("list security scans: %w", err)
	}
	if env.Data.Scans != nil {
		return env.Data.Scans, nil
	}
	return env.Data.Data, nil
}
