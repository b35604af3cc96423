package api

import (
	"context"
	"fmt"
	"time"
)

// Model is a registered AI model in the platform's core registry.
type Model struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version,omitempty"`
	Framework   string    `json:"framework,omitempty"`
	ModelType   string    `json:"model_type,omitempty"`
	Description string    `json:"description,omitempty"`
	RiskLevel   string    `json:"risk_level,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// RegisterModelRequest is the payload for registering a model.
type RegisterModelRequest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	Framework   string   `json:"framework,omitempty"`
	ModelType   string   `json:"model_type,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// modelList is the payload shape of the model list endpoint.
type modelList struct {
	Models []Model `json:"models"`
	Data   []Model `json:"data"`
	Total  int     `json:"total"`
}

// ListModels retrieves all registered models.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	env := Get[modelList](ctx, c, "/api/v1/core/models", nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	if env.Data.Models != nil {
		return env.Data.Models, nil
	}
	return env.Data.Data, nil
}

// GetModel retrieves a single model by id.
func (c *Client) GetModel(ctx context.Context, id string) (*Model, error) {
	env := Get[Model](ctx, c, "/api/v1/core/models/"+id, nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("get model %s: %w", id, err)
	}
	return &env.Data, nil
}

// RegisterModel registers a new model in the core registry.
func (c *Client) RegisterModel(ctx context.Context, req RegisterModelRequest) (*Model, error) {
	env := Post[Model](ctx, c, "/api/v1/core/models", req, nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("register model: %w", err)
	}
	return &env.Data, nil
}

// UpdateModelRequest is the payload for updating a registered model. Empty
// fields are left unchanged by the backend.
type UpdateModelRequest struct {
	Name        string   `json:"name,omitempty"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description,omitempty"`
	RiskLevel   string   `json:"risk_level,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// UpdateModel updates a registered model's metadata.
func (c *Client) UpdateModel(ctx context.Context, id string, req UpdateModelRequest) (*Model, error) {
	env := Put[Model](ctx, c, "/api/v1/core/models/"+id, req, nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("update model %s: %w", id, err)
	}
	return &env.Data, nil
}

// DeleteModel removes a model from the registry.
func (c *Client) DeleteModel(ctx context.Context, id string) error {
	env := Delete[struct{}](ctx, c, "/api/v1/core/models/"+id, nil)
	if err := env.Err(); err != nil {
		return fmt.Errorf("delete model %s: %w", id, err)
	}
	return nil
}
