package plot

import (
	"errors"
	"fmt"

	"github.com/ethpandaops/rlquery/pkg/group"
	"github.com/ethpandaops/rlquery/pkg/series"
)

// DefaultXName is the x-axis column of a metric log.
const DefaultXName = "time-step"

// DefaultResample is the number of points group averages are resampled to.
const DefaultResample = 100

// ErrInvalidOptions wraps every Options validation failure.
var ErrInvalidOptions = errors.New("invalid plot options")

// Options configures one Collect or Plot call.
type Options struct {
	Root      string
	Task      string
	Regs      []string
	SplitKeys []string
	Metrics   []string

	XName  string
	XBound series.Bound

	// Transforms maps metric names to value transforms. Metrics without an
	// entry are plotted unchanged.
	Transforms map[string]series.Transform

	// Legends switches to regex-group mode: one curve per entry of Regs,
	// labelled by the legend at the same index.
	Legends []string

	Filter     group.Filter
	LegendFunc group.LegendFunc

	// SplitByMetrics draws one panel per metric. When false all metrics
	// share a panel and legends carry the metric name.
	SplitByMetrics bool

	UseCache  bool
	Summarize bool
	SaveName  string
	Resample  int
}

func (o *Options) applyDefaults() {
	if o.XName == "" {
		o.XName = DefaultXName
	}

	if o.Resample <= 0 {
		o.Resample = DefaultResample
	}

	if o.LegendFunc == nil {
		o.LegendFunc = group.DefaultLegend
	}
}

// Validate checks the options for consistency.
func (o *Options) Validate() error {
	if o.Root == "" {
		return fmt.Errorf("data root is required")
	}

	if o.Task == "" {
		return fmt.Errorf("task name is required")
	}

	if len(o.Regs) == 0 {
		return fmt.Errorf("at least one pattern is required")
	}

	if len(o.Metrics) == 0 {
		return fmt.Errorf("at least one metric is required")
	}

	if o.regexMode() && len(o.Legends) != len(o.Regs) {
		return fmt.Errorf(
			"legend mode needs one legend per pattern (got %d legends for %d patterns)",
			len(o.Legends), len(o.Regs),
		)
	}

	if o.XBound.Min != nil && o.XBound.Max != nil && *o.XBound.Min > *o.XBound.Max {
		return fmt.Errorf("x bound min %v is above max %v", *o.XBound.Min, *o.XBound.Max)
	}

	return nil
}

func (o *Options) regexMode() bool {
	return len(o.Legends) > 0
}

func (o *Options) transform(metric string) series.Transform {
	if fn, ok := o.Transforms[metric]; ok && fn != nil {
		return fn
	}

	return series.Identity
}
