package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the read-side interface for the bronze payload store.
// Writes belong to the upstream crawlers; this service only fetches by key.
type ObjectStorage interface {
	// Download fetches an object from storage by key
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns the URL for accessing an object
	GetURL(key string) string

	// Ping verifies the bucket is reachable
	Ping(ctx context.Context) error
}
