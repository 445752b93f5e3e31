package plot

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/rlquery/pkg/group"
	"github.com/ethpandaops/rlquery/pkg/query"
	"github.com/ethpandaops/rlquery/pkg/series"
)

const (
	runA = "2022/08/10/12-00-00-000001"
	runB = "2022/08/10/12-00-00-000002"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// newFixture lays out two runs of task "exp". runA keeps its parameters next
// to the metric log, runB only in the hyperparameter category.
func newFixture(t *testing.T) string {
	t.Helper()

	root := t.TempDir()

	writeFile(t, root, "log/exp/"+runA+"/progress.csv",
		"time-step,return,loss\n0,0,1\n5,10,0.5\n10,20,\n")
	writeFile(t, root, "log/exp/"+runA+"/parameter.json", `{"lr": 0.1, "seed": 1}`)

	writeFile(t, root, "log/exp/"+runB+"/progress.csv",
		"time-step,return,loss\n0,0,2\n5,,1\n10,40,0.5\n")
	writeFile(t, root, "hyparam/exp/"+runB+"/parameter.yaml", "lr: 0.01\nseed: 2\n")

	return root
}

func newTestOrchestrator(t *testing.T) Orchestrator {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	return NewOrchestrator(log, query.NewQuerier(log), NewTerminalRenderer(20, 3))
}

func groupLabels(p *Panel) []string {
	labels := make([]string, 0, len(p.Groups))
	for _, g := range p.Groups {
		labels = append(labels, g.Label)
	}

	return labels
}

func TestCollect_SplitByKeys(t *testing.T) {
	root := newFixture(t)

	fig, err := newTestOrchestrator(t).Collect(Options{
		Root:           root,
		Task:           "exp",
		Regs:           []string{"2022/08/10/*"},
		SplitKeys:      []string{"lr"},
		Metrics:        []string{"return"},
		SplitByMetrics: true,
		Summarize:      true,
	})
	require.NoError(t, err)

	require.Len(t, fig.Runs, 2)
	assert.Equal(t, DefaultXName, fig.XName)

	p, ok := fig.Panel("return")
	require.True(t, ok)
	assert.Equal(t, []string{"lr=0.01", "lr=0.1"}, groupLabels(p))

	// runB's return column has a gap at time-step 5.
	assert.Equal(t, []float64{0, 10}, p.Groups[0].Lines[0].Series.X)
	assert.Equal(t, []float64{0, 5, 10}, p.Groups[1].Lines[0].Series.X)
}

func TestCollect_MergedMetrics(t *testing.T) {
	root := newFixture(t)

	fig, err := newTestOrchestrator(t).Collect(Options{
		Root:      root,
		Task:      "exp",
		Regs:      []string{"2022/08/10/*"},
		SplitKeys: []string{"seed"},
		Metrics:   []string{"return", "loss"},
	})
	require.NoError(t, err)

	require.Len(t, fig.Panels, 1)
	assert.Equal(t, []string{
		"seed=1 eval:loss",
		"seed=1 eval:return",
		"seed=2 eval:loss",
		"seed=2 eval:return",
	}, groupLabels(fig.Panels[0]))
}

func TestCollect_FilterAndTransform(t *testing.T) {
	root := newFixture(t)

	fig, err := newTestOrchestrator(t).Collect(Options{
		Root:           root,
		Task:           "exp",
		Regs:           []string{"2022/08/10/*"},
		SplitKeys:      []string{"lr"},
		Metrics:        []string{"return"},
		Filter:         group.Filter{"lr": {0.1}},
		Transforms:     map[string]series.Transform{"return": func(v float64) float64 { return v * 2 }},
		XBound:         series.Bound{Max: ptr(5)},
		SplitByMetrics: true,
	})
	require.NoError(t, err)

	require.Len(t, fig.Runs, 1)
	assert.Equal(t, filepath.Join(root, "log/exp", runA), fig.Runs[0].Dir)

	p, ok := fig.Panel("return")
	require.True(t, ok)
	require.Len(t, p.Groups, 1)
	assert.Equal(t, []float64{0, 20}, p.Groups[0].Lines[0].Series.Y)
}

func TestCollect_RegexGroups(t *testing.T) {
	root := newFixture(t)

	t.Run("one curve per pattern", func(t *testing.T) {
		fig, err := newTestOrchestrator(t).Collect(Options{
			Root:           root,
			Task:           "exp",
			Regs:           []string{runA, runB},
			Legends:        []string{"baseline", "ours"},
			Metrics:        []string{"return"},
			SplitByMetrics: true,
		})
		require.NoError(t, err)

		p, ok := fig.Panel("return")
		require.True(t, ok)
		assert.Equal(t, []string{"0", "1"}, groupLabels(p))
		assert.Equal(t, map[string]string{"0": "baseline", "1": "ours"}, fig.Legends)
	})

	t.Run("overlapping patterns", func(t *testing.T) {
		_, err := newTestOrchestrator(t).Collect(Options{
			Root:    root,
			Task:    "exp",
			Regs:    []string{"2022/08/10/*", runA},
			Legends: []string{"all", "first"},
			Metrics: []string{"return"},
		})
		require.ErrorIs(t, err, group.ErrAmbiguousGroup)
		assert.True(t, IsAmbiguous(err))
	})

	t.Run("legend count mismatch", func(t *testing.T) {
		_, err := newTestOrchestrator(t).Collect(Options{
			Root:    root,
			Task:    "exp",
			Regs:    []string{runA, runB},
			Legends: []string{"only one"},
			Metrics: []string{"return"},
		})
		require.Error(t, err)
	})
}

func TestCollect_NoMatches(t *testing.T) {
	fig, err := newTestOrchestrator(t).Collect(Options{
		Root:    t.TempDir(),
		Task:    "exp",
		Regs:    []string{"*"},
		Metrics: []string{"return"},
	})
	require.NoError(t, err)
	assert.Empty(t, fig.Runs)
	assert.Empty(t, fig.Panels)
}

func TestPlot_Save(t *testing.T) {
	root := newFixture(t)

	var out bytes.Buffer

	res, err := newTestOrchestrator(t).Plot(Options{
		Root:           root,
		Task:           "exp",
		Regs:           []string{"2022/08/10/*"},
		SplitKeys:      []string{"lr"},
		Metrics:        []string{"return"},
		SplitByMetrics: true,
		SaveName:       "lr_sweep.txt",
	}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "lr=0.01")
	assert.Equal(t, map[string]string{"lr=0.01": "lr=0.01", "lr=0.1": "lr=0.1"}, res.Legends)

	score := res.Scores["return/lr=0.1"]
	require.NotNil(t, score)
	assert.Equal(t, 1, score.Count)
	assert.Equal(t, 20.0, score.Mean)

	want := filepath.Join(root, "results", "easy_plot", "lr_sweep.txt")
	assert.Equal(t, want, res.SavedTo)
	assert.FileExists(t, want)
	assert.FileExists(t, want+".json")
}

func TestArtifacts(t *testing.T) {
	root := newFixture(t)
	writeFile(t, root, "results/exp/"+runA+"/return.png", "png")
	writeFile(t, root, "results/exp/"+runA+"/notes.txt", "notes")
	writeFile(t, root, "results/exp/"+runB+"/return.png", "png")
	writeFile(t, root, "hyparam/exp/"+runA+"/parameter.json", `{"lr": 0.1}`)

	o := newTestOrchestrator(t)

	t.Run("by name", func(t *testing.T) {
		arts, err := o.Artifacts(ArtifactOptions{
			Root:  root,
			Task:  "exp",
			Regs:  []string{"2022/08/10/*"},
			Names: []string{"*.png"},
		})
		require.NoError(t, err)
		require.Len(t, arts, 2)
		assert.Equal(t, runA, arts[0].Key)
		assert.Equal(t, int64(3), arts[0].Size)
	})

	t.Run("by hyperparameter", func(t *testing.T) {
		arts, err := o.Artifacts(ArtifactOptions{
			Root:   root,
			Task:   "exp",
			Regs:   []string{"2022/08/10/*"},
			Filter: group.Filter{"lr": {0.01}},
		})
		require.NoError(t, err)
		require.Len(t, arts, 1)
		assert.Equal(t, runB, arts[0].Key)
	})

	t.Run("timestamp named files", func(t *testing.T) {
		const runC = "2022/08/10/12-00-00-000003"

		root := t.TempDir()
		writeFile(t, root, "results/exp/"+runC+".png", "image")
		writeFile(t, root, "hyparam/exp/"+runC+"/parameter.json", `{"lr": 0.01}`)

		arts, err := o.Artifacts(ArtifactOptions{
			Root:   root,
			Task:   "exp",
			Regs:   []string{"2022/08/10/*"},
			Filter: group.Filter{"lr": {0.01}},
		})
		require.NoError(t, err)
		require.Len(t, arts, 1)
		assert.Equal(t, runC, arts[0].Key)
		assert.Equal(t, filepath.Join(root, "results/exp/2022/08/10"), arts[0].Dir)
		assert.Equal(t, int64(5), arts[0].Size)
	})

	t.Run("bad name pattern", func(t *testing.T) {
		_, err := o.Artifacts(ArtifactOptions{
			Root:  root,
			Task:  "exp",
			Regs:  []string{"*"},
			Names: []string{"["},
		})
		require.Error(t, err)
	})
}

func TestAverage(t *testing.T) {
	a := series.Series{X: []float64{0, 10}, Y: []float64{0, 10}}
	b := series.Series{X: []float64{0, 5, 12}, Y: []float64{0, 10, 24}}

	c := Average([]series.Series{a, b}, 3)
	require.Equal(t, 2, c.Members)
	assert.Equal(t, []float64{0, 5, 10}, c.X)
	assert.InDeltaSlice(t, []float64{0, 7.5, 15}, c.Mean, 1e-9)
	assert.InDelta(t, 2.5, c.Std[1], 1e-9)

	single := Average([]series.Series{a, {}}, 10)
	assert.Equal(t, a.X, single.X)
	assert.Equal(t, 1, single.Members)

	assert.Empty(t, Average(nil, 10).X)
}

func TestCalculateStats(t *testing.T) {
	s := CalculateStats([]float64{4, 1, 3, 2})
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 2.5, s.Mean)
	assert.Equal(t, 3.0, s.P50)
	assert.InDelta(t, math.Sqrt(1.25), s.Std, 1e-9)

	assert.Equal(t, &Stats{}, CalculateStats(nil))
}

func ptr(v float64) *float64 { return &v }
