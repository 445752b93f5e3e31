package query

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Blob is an opaque, deserialized experiment state. The query layer never
// interprets it.
type Blob any

// BlobLoader decodes an archived state file into a Blob.
type BlobLoader interface {
	Load(path string) (Blob, error)
}

// BlobLoaderFunc adapts a plain function to the BlobLoader interface.
type BlobLoaderFunc func(path string) (Blob, error)

// Load calls f(path).
func (f BlobLoaderFunc) Load(path string) (Blob, error) {
	return f(path)
}

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
)

// RawBlobLoader returns the archived bytes as-is, transparently
// decompressing zstd and gzip payloads.
type RawBlobLoader struct{}

// Compile-time interface check.
var _ BlobLoader = RawBlobLoader{}

// Load reads the file at path.
func (RawBlobLoader) Load(path string) (Blob, error) {
	data, err := os.ReadFile(path) //nolint:gosec // paths come from the data root glob
	if err != nil {
		return nil, err
	}

	switch {
	case bytes.HasPrefix(data, zstdMagic):
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer dec.Close()

		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing %s: %w", path, err)
		}

		return out, nil
	case bytes.HasPrefix(data, gzipMagic):
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
		}
		defer func() { _ = zr.Close() }()

		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("decompressing %s: %w", path, err)
		}

		return out, nil
	default:
		return data, nil
	}
}
