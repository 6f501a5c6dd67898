// Package gcs provides an export.Uploader backed by Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// Uploader writes snapshot files into a configured GCS bucket.
type Uploader struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed uploader.
func New(client *storage.Client, bucket string) (*Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Uploader{client: client, bucket: bucket}, nil
}

// Upload writes data to the bucket and returns a gs:// URI.
func (u *Uploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("object name is required")
	}
	writer := u.client.Bucket(u.bucket).Object(name).NewWriter(ctx)
	writer.ContentType = "application/json"
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", u.bucket, name), nil
}
