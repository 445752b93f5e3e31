package plot

import (
	"sort"

	"github.com/ethpandaops/rlquery/pkg/series"
)

// Run is one located experiment with its hyperparameters.
type Run struct {
	Key    string         `json:"key,omitempty"`
	Dir    string         `json:"dir"`
	Reg    string         `json:"reg"`
	Params map[string]any `json:"params,omitempty"`
}

// Line is one metric series of one run.
type Line struct {
	Dir    string        `json:"dir"`
	Series series.Series `json:"series"`
}

// Group is the set of lines sharing a legend within a panel.
type Group struct {
	Label  string `json:"label"`
	Legend string `json:"legend"`
	Metric string `json:"metric"`
	Lines  []Line `json:"lines"`
	Curve  *Curve `json:"curve,omitempty"`
	Score  *Stats `json:"score,omitempty"`
}

// Panel is one chart of the figure.
type Panel struct {
	Title  string   `json:"title"`
	Groups []*Group `json:"groups"`

	index map[string]*Group
}

func newPanel(title string) *Panel {
	return &Panel{
		Title: title,
		index: make(map[string]*Group, 8),
	}
}

func (p *Panel) add(label, legend, metric string, line Line) {
	g, ok := p.index[label]
	if !ok {
		g = &Group{Label: label, Legend: legend, Metric: metric}
		p.index[label] = g
		p.Groups = append(p.Groups, g)
	}

	g.Lines = append(g.Lines, line)
}

func (p *Panel) sortGroups() {
	sort.SliceStable(p.Groups, func(i, j int) bool {
		return p.Groups[i].Label < p.Groups[j].Label
	})
}

// Figure is the collected, grouped data of one plot.
type Figure struct {
	Task    string            `json:"task"`
	XName   string            `json:"x_name"`
	Runs    []Run             `json:"runs"`
	Panels  []*Panel          `json:"panels"`
	Legends map[string]string `json:"legends"`
}

// Panel returns the panel with the given title.
func (f *Figure) Panel(title string) (*Panel, bool) {
	for _, p := range f.Panels {
		if p.Title == title {
			return p, true
		}
	}

	return nil, false
}

// Average computes the resampled mean curve and the final-value score of
// every group.
func (f *Figure) Average(points int) {
	for _, p := range f.Panels {
		for _, g := range p.Groups {
			members := make([]series.Series, 0, len(g.Lines))
			finals := make([]float64, 0, len(g.Lines))

			for _, l := range g.Lines {
				members = append(members, l.Series)

				if last, ok := l.Series.Last(); ok {
					finals = append(finals, last)
				}
			}

			g.Curve = Average(members, points)
			g.Score = CalculateStats(finals)
		}
	}
}

// Scores returns the score of every group keyed by "<panel>/<label>".
func (f *Figure) Scores() map[string]*Stats {
	out := make(map[string]*Stats, 8)

	for _, p := range f.Panels {
		for _, g := range p.Groups {
			if g.Score != nil {
				out[p.Title+"/"+g.Label] = g.Score
			}
		}
	}

	return out
}
