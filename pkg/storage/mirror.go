package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/docker/go-units"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel downloads when none is configured.
const DefaultConcurrency = 8

// MirrorStats summarizes one mirror run.
type MirrorStats struct {
	Listed     int
	Downloaded int
	Skipped    int
	Missing    int
	Bytes      int64
}

// Mirror copies objects from a Reader into a local data root, keeping the
// key layout so the copy can be queried directly.
type Mirror struct {
	log         logrus.FieldLogger
	reader      Reader
	dest        string
	concurrency int

	// freeSpace reports the free bytes of the filesystem holding a path.
	freeSpace func(path string) (uint64, error)
}

// NewMirror creates a Mirror writing below dest.
func NewMirror(log logrus.FieldLogger, reader Reader, dest string, concurrency int) *Mirror {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Mirror{
		log:         log.WithField("component", "mirror"),
		reader:      reader,
		dest:        dest,
		concurrency: concurrency,
		freeSpace:   diskFree,
	}
}

// Run mirrors every object under the given prefixes. Files already present
// locally with the same size are skipped.
func (m *Mirror) Run(ctx context.Context, prefixes []string) (*MirrorStats, error) {
	stats := &MirrorStats{}
	pending := make([]Object, 0, 64)

	var need int64

	for _, prefix := range prefixes {
		objects, err := m.reader.List(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("listing %q: %w", prefix, err)
		}

		stats.Listed += len(objects)

		for _, obj := range objects {
			if err := validKey(obj.Key); err != nil {
				return nil, err
			}

			if m.upToDate(obj) {
				stats.Skipped++

				continue
			}

			pending = append(pending, obj)
			need += obj.Size
		}
	}

	if err := m.preflight(need); err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"listed":  stats.Listed,
		"pending": len(pending),
		"size":    units.HumanSize(float64(need)),
	}).Info("Starting mirror")

	var (
		downloaded atomic.Int64
		missing    atomic.Int64
		written    atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for _, obj := range pending {
		g.Go(func() error {
			n, found, err := m.download(gctx, obj)
			if err != nil {
				return fmt.Errorf("downloading %s: %w", obj.Key, err)
			}

			if !found {
				missing.Add(1)

				return nil
			}

			downloaded.Add(1)
			written.Add(n)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.Downloaded = int(downloaded.Load())
	stats.Missing = int(missing.Load())
	stats.Bytes = written.Load()

	m.log.WithFields(logrus.Fields{
		"downloaded": stats.Downloaded,
		"skipped":    stats.Skipped,
		"missing":    stats.Missing,
		"size":       units.HumanSize(float64(stats.Bytes)),
	}).Info("Mirror completed")

	return stats, nil
}

func (m *Mirror) localPath(key string) string {
	return filepath.Join(m.dest, filepath.FromSlash(key))
}

func (m *Mirror) upToDate(obj Object) bool {
	info, err := os.Stat(m.localPath(obj.Key))
	if err != nil {
		return false
	}

	return !info.IsDir() && info.Size() == obj.Size
}

// preflight fails when the destination filesystem cannot hold need bytes.
func (m *Mirror) preflight(need int64) error {
	if need == 0 || m.freeSpace == nil {
		return nil
	}

	dir := m.dest
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	free, err := m.freeSpace(dir)
	if err != nil {
		m.log.WithError(err).WithField("dir", dir).Warn("Unable to determine free disk space")

		return nil
	}

	if uint64(need) > free {
		return fmt.Errorf(
			"not enough disk space in %s: need %s, have %s",
			dir, units.HumanSize(float64(need)), units.HumanSize(float64(free)),
		)
	}

	return nil
}

// download writes obj to a temporary file and renames it into place.
func (m *Mirror) download(ctx context.Context, obj Object) (int64, bool, error) {
	body, err := m.reader.Open(ctx, obj.Key)
	if err != nil {
		return 0, false, err
	}

	if body == nil {
		m.log.WithField("key", obj.Key).Warn("Object vanished before download")

		return 0, false, nil
	}

	defer func() { _ = body.Close() }()

	target := m.localPath(obj.Key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, false, fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".mirror-*")
	if err != nil {
		return 0, false, fmt.Errorf("creating temp file: %w", err)
	}

	n, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()

	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())

		return 0, false, fmt.Errorf("writing %s: %w", target, err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())

		return 0, false, fmt.Errorf("renaming into place: %w", err)
	}

	if !obj.ModTime.IsZero() {
		_ = os.Chtimes(target, obj.ModTime, obj.ModTime)
	}

	m.log.WithFields(logrus.Fields{
		"key":  obj.Key,
		"size": units.HumanSize(float64(n)),
	}).Debug("Downloaded object")

	return n, true, nil
}

func diskFree(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("reading disk usage: %w", err)
	}

	return usage.Free, nil
}
