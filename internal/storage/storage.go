// Package storage holds the object store used for avatar images.
package storage

import (
	"context"
	"io"
)

// ObjectStore uploads objects and exposes them under a public URL.
type ObjectStore interface {
	// Upload stores size bytes from body under key.
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error

	// PublicURL returns the URL under which key is publicly readable.
	PublicURL(key string) string

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
