// Package media stores avatars and thumbnails by storage-relative path.
// Callers persist the path; public URLs are derived from it on read.
package media

import (
	"context"
	"io"
)

// Store is the blob store contract. Delete of a missing path succeeds.
type Store interface {
	Put(ctx context.Context, dir, ext string, r io.Reader) (string, error)
	Delete(ctx context.Context, path string) error
	URL(path string) string
}
