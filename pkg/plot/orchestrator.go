// Package plot collects metric logs located by queries, groups them into
// legend groups and renders comparison charts.
package plot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/rlquery/pkg/group"
	"github.com/ethpandaops/rlquery/pkg/query"
	"github.com/ethpandaops/rlquery/pkg/series"
)

// Orchestrator turns query patterns into grouped figures.
type Orchestrator interface {
	// Collect queries, filters and groups runs and loads their series.
	Collect(opts Options) (*Figure, error)
	// Plot collects, averages and renders a figure to w, saving it when
	// opts.SaveName is set.
	Plot(opts Options, w io.Writer) (*Result, error)
	// Artifacts lists the saved files of runs located by opts.
	Artifacts(opts ArtifactOptions) ([]Artifact, error)
}

// Result is the outcome of Plot.
type Result struct {
	Figure  *Figure           `json:"figure"`
	Legends map[string]string `json:"legends"`
	Scores  map[string]*Stats `json:"scores"`
	SavedTo string            `json:"saved_to,omitempty"`
}

var _ Orchestrator = (*orchestrator)(nil)

type orchestrator struct {
	log      logrus.FieldLogger
	querier  query.Querier
	renderer Renderer
	cache    *series.Cache
}

// NewOrchestrator creates an Orchestrator over querier. A nil renderer
// selects the terminal renderer.
func NewOrchestrator(
	log logrus.FieldLogger,
	querier query.Querier,
	renderer Renderer,
) Orchestrator {
	if renderer == nil {
		renderer = NewTerminalRenderer(0, 0)
	}

	return &orchestrator{
		log:      log.WithField("component", "plot"),
		querier:  querier,
		renderer: renderer,
		cache:    series.NewCache(),
	}
}

// Collect implements Orchestrator.
func (o *orchestrator) Collect(opts Options) (*Figure, error) {
	opts.applyDefaults()

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	runsByReg, err := o.locate(&opts)
	if err != nil {
		return nil, err
	}

	if opts.Summarize {
		o.summarize(&opts, runsByReg)
	}

	var regexGroups []group.RegexGroup

	legends := make(map[string]string, 8)

	if opts.regexMode() {
		regexGroups = make([]group.RegexGroup, 0, len(opts.Regs))

		for i, reg := range opts.Regs {
			dirs := make([]string, 0, len(runsByReg[i]))
			for _, r := range runsByReg[i] {
				dirs = append(dirs, r.Dir)
			}

			regexGroups = append(regexGroups, group.NewRegexGroup(reg, opts.Legends[i], dirs))
		}

		if legends, err = group.Legends(regexGroups); err != nil {
			return nil, err
		}
	}

	fig := &Figure{
		Task:    opts.Task,
		XName:   opts.XName,
		Legends: make(map[string]string, 8),
	}

	panels := make(map[string]*Panel, len(opts.Metrics))
	panelFor := func(metric string) *Panel {
		title := metric
		if !opts.SplitByMetrics {
			title = "all"
		}

		p, ok := panels[title]
		if !ok {
			p = newPanel(title)
			panels[title] = p
			fig.Panels = append(fig.Panels, p)
		}

		return p
	}

	for _, run := range dedupe(runsByReg) {
		assignments, err := o.assign(&opts, run, regexGroups)
		if err != nil {
			return nil, err
		}

		table, err := o.cache.Load(run.Dir, query.ProgressFile, opts.UseCache)
		if err != nil {
			o.log.WithError(err).WithField("dir", run.Dir).Warn("Skipping run with unreadable metric log")

			continue
		}

		fig.Runs = append(fig.Runs, run)

		for _, a := range assignments {
			s, ok := series.XY(table, opts.XName, a.Metric, opts.XBound, opts.transform(a.Metric))
			if !ok {
				o.log.WithFields(logrus.Fields{
					"dir":    run.Dir,
					"metric": a.Metric,
				}).Debug("Metric log lacks column")

				continue
			}

			s = s.Finite()

			label, legend := a.Label, a.Label

			if opts.regexMode() {
				legend = legends[a.Label]
				if a.Label == group.NoGroup {
					legend = group.NoGroup
				}

				if !opts.SplitByMetrics {
					label += " eval:" + a.Metric
					legend += " eval:" + a.Metric
				}
			}

			fig.Legends[label] = legend
			panelFor(a.Metric).add(label, legend, a.Metric, Line{Dir: run.Dir, Series: s})
		}
	}

	for _, p := range fig.Panels {
		p.sortGroups()
	}

	o.log.WithFields(logrus.Fields{
		"task":   opts.Task,
		"runs":   len(fig.Runs),
		"panels": len(fig.Panels),
	}).Info("Collected figure")

	return fig, nil
}

func (o *orchestrator) assign(
	opts *Options,
	run Run,
	regexGroups []group.RegexGroup,
) ([]group.Assignment, error) {
	if opts.regexMode() {
		return group.ByRegex(run.Dir, regexGroups, opts.Metrics)
	}

	return group.SplitByKeys(
		run.Params, opts.SplitKeys, opts.Metrics, !opts.SplitByMetrics, opts.LegendFunc,
	), nil
}

// locate queries the log runs of every pattern, attaches their
// hyperparameters and applies the filter.
func (o *orchestrator) locate(opts *Options) ([][]Run, error) {
	out := make([][]Run, len(opts.Regs))

	for i, reg := range opts.Regs {
		set, err := o.querier.Query(opts.Root, query.CategoryLog, opts.Task, reg)
		if err != nil {
			return nil, fmt.Errorf("querying logs for %q: %w", reg, err)
		}

		params, err := o.hyperParams(opts, reg)
		if err != nil {
			return nil, err
		}

		runs := make([]Run, 0, set.Len())

		for _, r := range set.Results() {
			run, err := o.newRun(r.Dir(), reg, params)
			if err != nil {
				return nil, err
			}

			if !opts.Filter.Match(run.Params) {
				o.log.WithField("dir", run.Dir).Debug("Run filtered out by hyperparameters")

				continue
			}

			runs = append(runs, run)
		}

		out[i] = runs
	}

	return out, nil
}

// newRun builds a run for dir. Hyperparameters stored next to the metric
// log take precedence over the hyperparameter category.
func (o *orchestrator) newRun(dir, reg string, byKey map[string]map[string]any) (Run, error) {
	run := Run{Dir: dir, Reg: reg}

	key, keyed := query.ExtractKey(dir)
	if keyed {
		run.Key = key
	}

	params, found, err := query.LoadHyperParams(dir, o.querier.HyperParamFile())
	if err != nil {
		return Run{}, err
	}

	switch {
	case found:
		run.Params = params
	case keyed && byKey[key] != nil:
		run.Params = byKey[key]
	default:
		run.Params = map[string]any{}
	}

	return run, nil
}

// hyperParams returns the hyperparameter records of a pattern by run key.
func (o *orchestrator) hyperParams(opts *Options, reg string) (map[string]map[string]any, error) {
	out := make(map[string]map[string]any, 16)

	patterns := []string{
		reg,
		filepath.Join(reg, o.querier.HyperParamFile()+".*"),
	}

	for _, pattern := range patterns {
		set, err := o.querier.Query(opts.Root, query.CategoryHyperParam, opts.Task, pattern)
		if err != nil {
			return nil, fmt.Errorf("querying hyperparameters for %q: %w", pattern, err)
		}

		for key, r := range set.Keyed {
			if hp, ok := r.(*query.HyperParamResult); ok {
				out[key] = hp.Params
			}
		}
	}

	return out, nil
}

// dedupe flattens the runs of all patterns, keeping the first occurrence of
// every directory.
func dedupe(runsByReg [][]Run) []Run {
	seen := make(map[string]struct{}, 32)
	out := make([]Run, 0, 32)

	for _, runs := range runsByReg {
		for _, r := range runs {
			if _, ok := seen[r.Dir]; ok {
				continue
			}

			seen[r.Dir] = struct{}{}
			out = append(out, r)
		}
	}

	return out
}

func (o *orchestrator) summarize(opts *Options, runsByReg [][]Run) {
	for i, reg := range opts.Regs {
		o.log.Infof("for regex %s, we have the following logs:", reg)

		for _, r := range runsByReg[i] {
			parsed := group.ParseKeys(r.Params, opts.SplitKeys)
			o.log.WithField("parsed_key", opts.LegendFunc(parsed, opts.SplitKeys, "", false)).
				Infof("find log %s", r.Dir)
		}
	}
}

// Plot implements Orchestrator.
func (o *orchestrator) Plot(opts Options, w io.Writer) (*Result, error) {
	fig, err := o.Collect(opts)
	if err != nil {
		return nil, err
	}

	resample := opts.Resample
	if resample <= 0 {
		resample = DefaultResample
	}

	fig.Average(resample)

	res := &Result{
		Figure:  fig,
		Legends: fig.Legends,
		Scores:  fig.Scores(),
	}

	if w != nil {
		if err := o.renderer.Render(w, fig); err != nil {
			return nil, fmt.Errorf("rendering figure: %w", err)
		}
	}

	o.log.Info("Plot complete")

	if opts.SaveName == "" {
		return res, nil
	}

	path, err := Save(opts.Root, opts.SaveName, fig, o.renderer)
	if err != nil {
		return nil, err
	}

	res.SavedTo = path

	o.log.WithField("path", path).Info("Saved figure")

	return res, nil
}

// IsAmbiguous reports whether err stems from a run claimed by several
// regex groups.
func IsAmbiguous(err error) bool {
	return errors.Is(err, group.ErrAmbiguousGroup)
}

func statSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}

	return info.Size()
}
