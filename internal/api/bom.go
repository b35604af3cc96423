package api

import (
	"context"
	"fmt"
	"time"
)

// BOMComponent is one inventory entry in an AI bill of materials.
type BOMComponent struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Version   string `json:"version,omitempty"`
	License   string `json:"license,omitempty"`
	RiskLevel string `json:"risk_level,omitempty"`
}

// BOMDocument is an AI bill-of-materials document.
type BOMDocument struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Framework  string         `json:"framework,omitempty"`
	Components []BOMComponent `json:"components,omitempty"`
	RiskScore  float64        `json:"risk_score,omitempty"`
	CreatedAt  time.Time      `json:"created_at,omitempty"`
}

// CreateBOMRequest is the payload for creating a BOM document.
type CreateBOMRequest struct {
	Name       string         `json:"name"`
	Framework  string         `json:"framework,omitempty"`
	Components []BOMComponent `json:"components,omitempty"`
}

// bomDocumentList handles the two list shapes the BOM endpoints emit:
// {documents: [...]} and {data: [...]}.
type bomDocumentList struct {
	Documents []BOMDocument `json:"documents"`
	Data      []BOMDocument `json:"data"`
}

// ListBOMDocuments retrieves all BOM documents.
func (c *Client) ListBOMDocuments(ctx context.Context) ([]BOMDocument, error) {
	env := Get[bomDocumentList](ctx, c, "/api/v1/ai-bom/documents", nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("list bom documents: %w", err)
	}
	if env.Data.Documents != nil {
		return env.Data.Documents, nil
	}
	return env.Data.Data, nil
}

// GetBOMDocument retrieves one BOM document.
func (c *Client) GetBOMDocument(ctx context.Context, id string) (*BOMDocument, error) {
	env := Get[BOMDocument](ctx, c, "/api/v1/ai-bom/documents/"+id, nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("get bom document %s: %w", id, err)
	}
	return &env.Data, nil
}

// CreateBOM creates a new BOM document. Failures surface to the caller;
// the caller decides whether to refresh any listing it holds.
func (c *Client) CreateBOM(ctx context.Context, req CreateBOMRequest) (*BOMDocument, error) {
	env := Post[BOMDocument](ctx, c, "/api/v1/ai-bom/create", req, nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("create bom: %w", err)
	}
	return &env.Data, nil
}

// ExportBOM exports a BOM document in the given format (e.g. "cyclonedx",
// "spdx") and returns the raw document bytes. Exports are documents, not
// envelopes, so the body is returned unparsed.
func (c *Client) ExportBOM(ctx context.Context, id, format string) ([]byte, error) {
	path := joinQuery("/api/v1/ai-bom/documents/"+id+"/export", "format="+format)
	data, err := c.GetRaw(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("export bom %s: %w", id, err)
	}
	return data, nil
}
