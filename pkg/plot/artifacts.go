package plot

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/rlquery/pkg/group"
	"github.com/ethpandaops/rlquery/pkg/query"
)

// ArtifactOptions selects saved run artifacts from the results category.
type ArtifactOptions struct {
	Root string
	Task string
	Regs []string
	// Names are glob patterns matched against file base names. Empty
	// selects every file.
	Names  []string
	Filter group.Filter
}

// Artifact is one saved file of a run.
type Artifact struct {
	Key      string         `json:"key,omitempty"`
	Reg      string         `json:"reg"`
	Dir      string         `json:"dir"`
	Location string         `json:"location"`
	ModTime  time.Time      `json:"mod_time"`
	Size     int64          `json:"size"`
	Params   map[string]any `json:"params,omitempty"`
}

// Artifacts implements Orchestrator.
func (o *orchestrator) Artifacts(opts ArtifactOptions) ([]Artifact, error) {
	if opts.Root == "" || opts.Task == "" || len(opts.Regs) == 0 {
		return nil, fmt.Errorf("data root, task and at least one pattern are required")
	}

	for _, n := range opts.Names {
		if _, err := filepath.Match(n, ""); err != nil {
			return nil, fmt.Errorf("invalid name pattern %q: %w", n, err)
		}
	}

	plotOpts := Options{Root: opts.Root, Task: opts.Task}
	out := make([]Artifact, 0, 16)

	for _, reg := range opts.Regs {
		set, err := o.querier.Query(opts.Root, query.CategoryMisc, opts.Task, reg)
		if err != nil {
			return nil, fmt.Errorf("querying artifacts for %q: %w", reg, err)
		}

		var params map[string]map[string]any

		if len(opts.Filter) > 0 {
			if params, err = o.hyperParams(&plotOpts, reg); err != nil {
				return nil, err
			}
		}

		for _, key := range set.Keys() {
			r, _ := set.Get(key)
			out = o.appendArtifacts(out, &opts, reg, key, r, params)
		}

		for _, r := range set.Unkeyed {
			out = o.appendArtifacts(out, &opts, reg, "", r, params)
		}
	}

	o.log.WithFields(logrus.Fields{
		"task":      opts.Task,
		"artifacts": len(out),
	}).Info("Listed artifacts")

	return out, nil
}

// appendArtifacts adds the files of one misc record stored under key. With
// a filter set, records without a key or with non-matching
// hyperparameters are skipped.
func (o *orchestrator) appendArtifacts(
	out []Artifact,
	opts *ArtifactOptions,
	reg, key string,
	r query.Result,
	params map[string]map[string]any,
) []Artifact {
	misc, ok := r.(*query.MiscResult)
	if !ok {
		return out
	}

	var hp map[string]any
	if params != nil {
		hp = params[key]
		if key == "" || !opts.Filter.Match(hp) {
			return out
		}
	}

	for i, loc := range misc.Locations {
		if !matchesAny(opts.Names, filepath.Base(loc)) {
			continue
		}

		out = append(out, Artifact{
			Key:      key,
			Reg:      reg,
			Dir:      misc.Dirname,
			Location: loc,
			ModTime:  misc.ModTimes[i],
			Size:     statSize(loc),
			Params:   hp,
		})
	}

	return out
}

func matchesAny(patterns []string, name string) bool {
	if len(patterns) == 0 {
		return true
	}

	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}

	return false
}
