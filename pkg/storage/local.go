package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Compile-time interface check.
var _ Reader = (*localReader)(nil)

type localReader struct {
	root string
}

// NewLocalReader creates a Reader over a local directory.
func NewLocalReader(root string) Reader {
	return &localReader{root: root}
}

// List walks the directory holding prefix and returns the files under it.
func (r *localReader) List(ctx context.Context, prefix string) ([]Object, error) {
	var dir string
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dir = prefix[:i]
	}

	start := filepath.Join(r.root, filepath.FromSlash(dir))

	var objects []Object

	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}

			return err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(r.root, p)
		if err != nil {
			return fmt.Errorf("computing relative path: %w", err)
		}

		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}

			return fmt.Errorf("stat %s: %w", p, err)
		}

		objects = append(objects, Object{
			Key:     key,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", start, err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })

	return objects, nil
}

// Open opens root/key. Returns (nil, nil) when the file does not exist.
func (r *localReader) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	p := filepath.Join(r.root, filepath.FromSlash(key))

	f, err := os.Open(p) //nolint:gosec // key validated above
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("opening file %s: %w", p, err)
	}

	return f, nil
}
