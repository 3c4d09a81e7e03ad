package shared

import (
	"context"
	"time"
)

// ObjectStorage keeps binary files: product images, shipping labels, invoices.
type ObjectStorage interface {
	// GenerateUploadURL returns a presigned PUT URL the browser uploads to directly
	GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error)
	// PublicURL is where a stored object can be read without signing
	PublicURL(key string) string
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	// Download returns ErrNotFound when the key does not exist
	Download(ctx context.Context, key string) ([]byte, error)
	ObjectExists(ctx context.Context, key string) (bool, error)
	DeleteObject(ctx context.Context, key string) error
}
