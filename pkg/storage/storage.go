// Package storage reads experiment trees from a storage backend (local
// filesystem or S3) and mirrors them into a local data root.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Object is one file of a storage backend. Keys are slash separated and
// relative to the backend root.
type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Reader provides read access to an experiment tree stored in a backend.
type Reader interface {
	// List returns every object whose key starts with prefix, sorted by
	// key. A missing prefix yields no objects and no error.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Open streams an object. Returns (nil, nil) when the key does not
	// exist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Prefix returns the key prefix of a category directory of task, e.g.
// "log/my_task/".
func Prefix(categoryDir, task string) string {
	return path.Join(categoryDir, task) + "/"
}

// validKey rejects keys that would escape the mirror destination.
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid object key %q", key)
	}

	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("object key %q escapes the destination", key)
		}
	}

	return nil
}
