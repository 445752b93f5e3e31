// Package upload publishes saved figures to remote storage.
package upload

import "context"

// Uploader uploads a local directory to remote storage.
type Uploader interface {
	// Preflight verifies that the remote storage is reachable and writable.
	Preflight(ctx context.Context) error

	// Upload uploads all files in localDir under the configured prefix,
	// keeping their relative paths. It returns the number of files and
	// bytes sent.
	Upload(ctx context.Context, localDir string) (int, int64, error)
}
