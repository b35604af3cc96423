package api

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"
)

// Dataset is an uploaded dataset available for bias analysis.
type Dataset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	RowCount    int64     `json:"row_count,omitempty"`
	ColumnCount int       `json:"column_count,omitempty"`
	SizeBytes   int64     `json:"size_bytes,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// DatasetPage is one page of the dataset listing.
type DatasetPage struct {
	Datasets []Dataset `json:"datasets"`
	Total    int       `json:"total"`
	Page     int       `json:"page,omitempty"`
	Limit    int       `json:"limit,omitempty"`
}

// ListDatasets retrieves a page of datasets. Page numbering starts at 1;
// limit defaults to 100 when zero.
func (c *Client) ListDatasets(ctx context.Context, page, limit int) (*DatasetPage, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 100
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	env := Get[DatasetPage](ctx, c, joinQuery("/api/v1/datasets/", q.Encode()), nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return &env.Data, nil
}

// GetDataset retrieves a single dataset by id.
func (c *Client) GetDataset(ctx context.Context, id string) (*Dataset, error) {
	env := Get[Dataset](ctx, c, "/api/v1/datasets/"+id, nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("get dataset %s: %w", id, err)
	}
	return &env.Data, nil
}

// UploadDataset uploads a dataset file with optional metadata. The request is
// multipart/form-data with the file under the "file" field.
func (c *Client) UploadDataset(ctx context.Context, filename string, file io.Reader, name, description string) (*Dataset, error) {
	fields := map[string]string{}
	if name != "" {
		fields["name"] = name
	}
	if description != "" {
		fields["description"] = description
	}

	env := Upload[Dataset](ctx, c, "/api/v1/datasets/upload", filename, file, fields, nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("upload dataset: %w", err)
	}
	return &env.Data, nil
}

// DeleteDataset removes a dataset.
func (c *Client) DeleteDataset(ctx context.Context, id string) error {
	env := Delete[struct{}](ctx, c, "/api/v1/datasets/"+id, nil)
	if err := env.Err(); err != nil {
		return fmt.Errorf("delete dataset %s: %w", id, err)
	}
	return nil
}
