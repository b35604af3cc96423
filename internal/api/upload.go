package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
)

// Upload issues a multipart/form-data POST with the given file under the
// "file" field plus optional metadata fields. The multipart writer chooses
// the boundary, so no JSON content type is forced onto the request.
func Upload[T any](ctx context.Context, c *Client, path, filename string, file io.Reader, fields map[string]string, opts *RequestOptions) Envelope[T] {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return failure[T](0, "create form file: %v", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return failure[T](0, "read upload file: %v", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return failure[T](0, "write form field %s: %v", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return failure[T](0, "finalize form: %v", err)
	}

	return call[T](ctx, c, "POST", path, buf.Bytes(), w.FormDataContentType(), opts)
}

// joinQuery appends an encoded query string to a path.
func joinQuery(path, query string) string {
	if query == "" {
		return path
	}
	return fmt.Sprintf("%s?%s", path, query)
}
