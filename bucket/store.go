package bucket

import "context"

// Store is the object storage surface the reconciliation engine depends
// on. Client implements it against S3; tests substitute in-memory fakes.
type Store interface {
	// ListKeys returns every object key in the bucket. The provider
	// paginates internally; the full listing is drained before returning.
	ListKeys(ctx context.Context) ([]string, error)

	// ListPrefix returns the keys under the given prefix.
	ListPrefix(ctx context.Context, prefix string) ([]string, error)

	// Download fetches one object into localPath, creating parent
	// directories as needed.
	Download(ctx context.Context, key, localPath string) error

	// Exists probes one key. A missing object is (false, nil); an error
	// is returned only when the probe itself failed.
	Exists(ctx context.Context, key string) (bool, error)
}
