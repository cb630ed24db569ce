// Package objectstore fetches tabular batches from object storage. A source
// names a bucket prefix; every matching object becomes its own independent
// fetch -> validate -> write -> emit sequence, so objects can be ingested
// in parallel.
package objectstore

import (
	"context"
	"io"
)

// Object identifies one stored object.
type Object struct {
	Key  string
	Size int64
}

// Client is the minimal object-store surface the fetchers need. S3, MinIO
// and Azure Blob backends implement it.
type Client interface {
	// Backend returns the backend name for logging and sidecar entries.
	Backend() string

	// List returns the objects under prefix whose keys end in suffix.
	List(ctx context.Context, prefix, suffix string) ([]Object, error)

	// Get opens one object for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
