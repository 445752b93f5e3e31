package query

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ProgressFile is the metric log file name inside a log directory.
const ProgressFile = "progress.csv"

// isProgressFile matches the exact name loaded by the plotting layer.
func isProgressFile(name string) bool {
	return name == ProgressFile
}

// walkFiles calls fn for every regular file under root in lexical order.
// Entries that vanish during the walk are skipped.
func walkFiles(root string, fn func(path string, d fs.DirEntry) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}

			return fmt.Errorf("walking %s: %w", path, err)
		}

		if d.IsDir() {
			return nil
		}

		return fn(path, d)
	})
}

// extractLog records each directory holding a progress file. Only the first
// progress file of a directory counts; subdirectories are still visited.
func (q *querier) extractLog(set *ResultSet, path string, info os.FileInfo) error {
	if !info.IsDir() {
		if !isProgressFile(info.Name()) {
			return nil
		}

		key, ok := ExtractKey(path)
		set.put(key, ok, &LogResult{Dirname: filepath.Dir(path)})

		return nil
	}

	found := make(map[string]struct{}, 8)

	return walkFiles(path, func(loc string, d fs.DirEntry) error {
		dir := filepath.Dir(loc)
		if _, done := found[dir]; done {
			return nil
		}

		if !isProgressFile(d.Name()) {
			return nil
		}

		found[dir] = struct{}{}

		key, ok := ExtractKey(loc)
		set.put(key, ok, &LogResult{Dirname: dir})

		return nil
	})
}

// extractArchive decodes every archived state file.
func (q *querier) extractArchive(set *ResultSet, path string, info os.FileInfo) error {
	load := func(loc string) error {
		blob, err := q.blobs.Load(loc)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}

			return fmt.Errorf("loading archived state %s: %w", loc, err)
		}

		key, ok := ExtractKey(loc)
		set.put(key, ok, &ArchiveResult{
			Dirname:  q.trimArchiveSuffix(loc),
			Location: loc,
			State:    blob,
		})

		return nil
	}

	if !info.IsDir() {
		return load(path)
	}

	return walkFiles(path, func(loc string, _ fs.DirEntry) error {
		return load(loc)
	})
}

func (q *querier) trimArchiveSuffix(loc string) string {
	if idx := strings.Index(loc, q.archiveSuffix); idx >= 0 {
		return loc[:idx]
	}

	return loc
}

// extractHyperParam parses the metadata file next to a matched file.
func (q *querier) extractHyperParam(set *ResultSet, path string, info os.FileInfo) error {
	if info.IsDir() {
		return nil
	}

	dir := filepath.Dir(path)

	params, found, err := LoadHyperParams(dir, q.hyperParamFile)
	if err != nil {
		return err
	}

	if !found {
		q.log.WithField("dir", dir).Debug("No hyperparameter file, skipping")

		return nil
	}

	key, ok := ExtractKey(path)
	set.put(key, ok, &HyperParamResult{Dirname: dir, Params: params})

	return nil
}

// extractCheckpoint records the sibling listing of a matched file.
func (q *querier) extractCheckpoint(set *ResultSet, path string, info os.FileInfo) error {
	if info.IsDir() {
		return nil
	}

	dir := filepath.Dir(path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("listing checkpoints in %s: %w", dir, err)
	}

	if len(entries) == 0 {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	key, ok := ExtractKey(path)
	set.put(key, ok, &CheckpointResult{Dirname: dir, Checkpoints: names})

	return nil
}

// extractMisc merges every file with its modification time.
func (q *querier) extractMisc(set *ResultSet, path string, info os.FileInfo) error {
	if !info.IsDir() {
		key, ok := ExtractKey(path)
		set.addFile(key, ok, filepath.Dir(path), path, info.ModTime())

		return nil
	}

	return walkFiles(path, func(loc string, d fs.DirEntry) error {
		fi, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}

			return fmt.Errorf("stat %s: %w", loc, err)
		}

		key, ok := ExtractKey(loc)
		set.addFile(key, ok, filepath.Dir(loc), loc, fi.ModTime())

		return nil
	})
}
