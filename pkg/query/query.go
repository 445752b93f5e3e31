package query

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// DefaultArchiveSuffix is stripped from archived state paths to obtain the
// record directory.
const DefaultArchiveSuffix = ".pkl"

// Querier locates experiment artifacts under a data root.
type Querier interface {
	// Query resolves root/<category>/task/pattern and extracts one record
	// per matched run.
	Query(root string, cat Category, task, pattern string) (*ResultSet, error)

	// HyperParamFile returns the metadata file stem the querier reads.
	HyperParamFile() string
}

// Option configures a Querier.
type Option func(*querier)

// WithBlobLoader sets the decoder for archived state files.
func WithBlobLoader(l BlobLoader) Option {
	return func(q *querier) {
		if l != nil {
			q.blobs = l
		}
	}
}

// WithArchiveSuffix overrides DefaultArchiveSuffix.
func WithArchiveSuffix(suffix string) Option {
	return func(q *querier) {
		if suffix != "" {
			q.archiveSuffix = suffix
		}
	}
}

// WithHyperParamFile overrides DefaultHyperParamFile.
func WithHyperParamFile(stem string) Option {
	return func(q *querier) {
		if stem != "" {
			q.hyperParamFile = stem
		}
	}
}

// Compile-time interface check.
var _ Querier = (*querier)(nil)

type querier struct {
	log            logrus.FieldLogger
	blobs          BlobLoader
	archiveSuffix  string
	hyperParamFile string
}

// NewQuerier creates a Querier reading from the local filesystem.
func NewQuerier(log logrus.FieldLogger, opts ...Option) Querier {
	q := &querier{
		log:            log.WithField("component", "query"),
		blobs:          RawBlobLoader{},
		archiveSuffix:  DefaultArchiveSuffix,
		hyperParamFile: DefaultHyperParamFile,
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// HyperParamFile returns the configured metadata file stem.
func (q *querier) HyperParamFile() string {
	return q.hyperParamFile
}

// Query resolves the pattern and builds the result set.
func (q *querier) Query(
	root string, cat Category, task, pattern string,
) (*ResultSet, error) {
	paths, err := Resolve(root, cat, task, pattern)
	if err != nil {
		return nil, err
	}

	set := newResultSet(cat)

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return nil, fmt.Errorf("stat %s: %w", p, err)
		}

		if err := q.extract(set, p, info); err != nil {
			return nil, err
		}
	}

	q.log.WithFields(logrus.Fields{
		"category": cat.String(),
		"task":     task,
		"pattern":  pattern,
		"matches":  len(paths),
		"keyed":    len(set.Keyed),
		"unkeyed":  len(set.Unkeyed),
	}).Debug("Query resolved")

	if len(set.Unkeyed) > 0 {
		q.log.WithField("count", len(set.Unkeyed)).
			Warn("Some records carry no run timestamp and are kept unkeyed")
	}

	return set, nil
}

// extract dispatches to the extractor of the result set's category.
func (q *querier) extract(set *ResultSet, path string, info os.FileInfo) error {
	switch set.Category {
	case CategoryLog:
		return q.extractLog(set, path, info)
	case CategoryArchive:
		return q.extractArchive(set, path, info)
	case CategoryHyperParam:
		return q.extractHyperParam(set, path, info)
	case CategoryCheckpoint:
		return q.extractCheckpoint(set, path, info)
	case CategoryMisc:
		return q.extractMisc(set, path, info)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedCategory, set.Category)
	}
}
