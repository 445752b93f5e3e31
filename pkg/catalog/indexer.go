package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ethpandaops/rlquery/pkg/query"
)

// Patterns returns the default per-category patterns that locate every
// record of a task whose runs follow the YYYY/MM/DD/HH-MM-SS-ffffff layout.
func Patterns(hyperParamFile string) map[query.Category]string {
	return map[query.Category]string{
		query.CategoryLog:        "*",
		query.CategoryArchive:    "*",
		query.CategoryMisc:       "*",
		query.CategoryHyperParam: "*/*/*/*/" + hyperParamFile + ".*",
		query.CategoryCheckpoint: "*/*/*/*/*",
	}
}

// Indexer snapshots query results of one data root into a Store.
type Indexer interface {
	// Index runs one pass over every category of task and returns the
	// number of entries written.
	Index(ctx context.Context, task string) (int, error)
	// Start indexes tasks immediately and then every interval until ctx
	// is cancelled or Stop is called.
	Start(ctx context.Context, tasks []string, interval time.Duration) error
	Stop() error
}

// Compile-time interface check.
var _ Indexer = (*indexer)(nil)

type indexer struct {
	log      logrus.FieldLogger
	store    Store
	querier  query.Querier
	root     string
	patterns map[query.Category]string
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	dbMu     sync.Mutex // serializes DB writes to avoid SQLite contention
}

// NewIndexer creates an Indexer reading root through querier. A nil
// patterns map selects Patterns.
func NewIndexer(
	log logrus.FieldLogger,
	store Store,
	querier query.Querier,
	root string,
	patterns map[query.Category]string,
) Indexer {
	if patterns == nil {
		patterns = Patterns(querier.HyperParamFile())
	}

	return &indexer{
		log:      log.WithField("component", "catalog-indexer"),
		store:    store,
		querier:  querier,
		root:     root,
		patterns: patterns,
		done:     make(chan struct{}),
	}
}

// Index implements Indexer. Categories are queried concurrently.
func (idx *indexer) Index(ctx context.Context, task string) (int, error) {
	start := time.Now()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(len(query.Categories))

	counts := make([]int, len(query.Categories))

	for i, cat := range query.Categories {
		pattern, ok := idx.patterns[cat]
		if !ok {
			continue
		}

		g.Go(func() error {
			n, err := idx.indexCategory(gCtx, task, cat, pattern)
			if err != nil {
				return fmt.Errorf("indexing %s: %w", cat, err)
			}

			counts[i] = n

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total int
	for _, n := range counts {
		total += n
	}

	idx.log.WithFields(logrus.Fields{
		"task":     task,
		"entries":  total,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Indexing pass completed")

	return total, nil
}

func (idx *indexer) indexCategory(
	ctx context.Context, task string, cat query.Category, pattern string,
) (int, error) {
	set, err := idx.querier.Query(idx.root, cat, task, pattern)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	entries := make([]*Entry, 0, set.Len())

	for _, key := range set.Keys() {
		r, _ := set.Get(key)
		entries = append(entries, newEntry(task, key, true, r, now))
	}

	for _, r := range set.Unkeyed {
		entries = append(entries, newEntry(task, unkeyedRunKey(r), false, r, now))
	}

	idx.dbMu.Lock()
	defer idx.dbMu.Unlock()

	keep := make([]string, 0, len(entries))

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		if err := idx.store.UpsertEntry(ctx, e); err != nil {
			return 0, err
		}

		keep = append(keep, e.RunKey)
	}

	pruned, err := idx.store.PruneEntries(ctx, task, cat.String(), keep)
	if err != nil {
		return 0, err
	}

	idx.log.WithFields(logrus.Fields{
		"task":     task,
		"category": cat.String(),
		"entries":  len(entries),
		"pruned":   pruned,
	}).Debug("Indexed category")

	return len(entries), nil
}

// unkeyedRunKey identifies a record without a run timestamp. File based
// records use their file location so records sharing a directory keep
// separate rows.
func unkeyedRunKey(r query.Result) string {
	switch v := r.(type) {
	case *query.MiscResult:
		if len(v.Locations) > 0 {
			return v.Locations[0]
		}
	case *query.ArchiveResult:
		if v.Location != "" {
			return v.Location
		}
	}

	return r.Dir()
}

func newEntry(task, runKey string, keyed bool, r query.Result, now time.Time) *Entry {
	e := &Entry{
		Task:      task,
		Category:  r.Category().String(),
		RunKey:    runKey,
		Keyed:     keyed,
		Dirname:   r.Dir(),
		IndexedAt: now,
	}

	switch v := r.(type) {
	case *query.HyperParamResult:
		if b, err := json.Marshal(v.Params); err == nil {
			e.ParamsJSON = string(b)
		}
	case *query.CheckpointResult:
		e.Checkpoints = len(v.Checkpoints)
	case *query.MiscResult:
		e.Files = len(v.Locations)

		if len(v.ModTimes) > 0 {
			latest := slices.MaxFunc(v.ModTimes, func(a, b time.Time) int { return a.Compare(b) })
			latest = latest.UTC()
			e.LastModified = &latest
		}
	}

	return e
}

// Start implements Indexer.
func (idx *indexer) Start(ctx context.Context, tasks []string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("indexing interval must be positive")
	}

	idx.log.WithFields(logrus.Fields{
		"interval": interval.String(),
		"tasks":    len(tasks),
	}).Info("Starting catalog indexer")

	idx.wg.Add(1)

	go func() {
		defer idx.wg.Done()

		idx.runPass(ctx, tasks)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				idx.runPass(ctx, tasks)
			case <-idx.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (idx *indexer) runPass(ctx context.Context, tasks []string) {
	for _, task := range tasks {
		select {
		case <-ctx.Done():
			return
		case <-idx.done:
			return
		default:
		}

		if _, err := idx.Index(ctx, task); err != nil {
			idx.log.WithError(err).WithField("task", task).
				Warn("Indexing pass failed for task")
		}
	}
}

// Stop signals the background goroutine to stop and waits for it.
func (idx *indexer) Stop() error {
	idx.stopOnce.Do(func() { close(idx.done) })
	idx.wg.Wait()

	idx.log.Info("Catalog indexer stopped")

	return nil
}
