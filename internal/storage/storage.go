package storage

import (
	"context"
	"io"
)

// Uploader stores an object and returns a stable reference to it
// (gs://bucket/object for GCS).
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}
