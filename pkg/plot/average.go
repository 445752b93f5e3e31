package plot

import (
	"math"
	"slices"
	"sort"

	"github.com/ethpandaops/rlquery/pkg/series"
)

// Curve is the mean of a group's member series on a shared x grid.
type Curve struct {
	X       []float64 `json:"x"`
	Mean    []float64 `json:"mean"`
	Std     []float64 `json:"std"`
	Members int       `json:"members"`
}

// Average resamples every member onto `points` evenly spaced x values over
// the range all members cover and returns the pointwise mean and standard
// deviation. When the members share no x range the longest member is
// returned as is.
func Average(members []series.Series, points int) *Curve {
	nonEmpty := make([]series.Series, 0, len(members))
	for _, m := range members {
		if m.Len() > 0 {
			nonEmpty = append(nonEmpty, m)
		}
	}

	if len(nonEmpty) == 0 {
		return &Curve{}
	}

	lo, hi := math.Inf(-1), math.Inf(1)
	for _, m := range nonEmpty {
		lo = math.Max(lo, m.X[0])
		hi = math.Min(hi, m.X[len(m.X)-1])
	}

	if len(nonEmpty) == 1 || lo >= hi || points < 2 {
		longest := nonEmpty[0]
		for _, m := range nonEmpty[1:] {
			if m.Len() > longest.Len() {
				longest = m
			}
		}

		return &Curve{
			X:       slices.Clone(longest.X),
			Mean:    slices.Clone(longest.Y),
			Std:     make([]float64, longest.Len()),
			Members: len(nonEmpty),
		}
	}

	c := &Curve{
		X:       make([]float64, points),
		Mean:    make([]float64, points),
		Std:     make([]float64, points),
		Members: len(nonEmpty),
	}

	step := (hi - lo) / float64(points-1)
	n := float64(len(nonEmpty))

	for i := range points {
		x := lo + step*float64(i)
		if i == points-1 {
			x = hi
		}

		c.X[i] = x

		var sum, sumSq float64

		for _, m := range nonEmpty {
			y := interpolate(m, x)
			sum += y
			sumSq += y * y
		}

		mean := sum / n
		c.Mean[i] = mean
		c.Std[i] = math.Sqrt(math.Max(sumSq/n-mean*mean, 0))
	}

	return c
}

// interpolate evaluates the piecewise linear series s at x. s.X must be
// non-decreasing.
func interpolate(s series.Series, x float64) float64 {
	i := sort.SearchFloat64s(s.X, x)

	switch {
	case i >= len(s.X):
		return s.Y[len(s.Y)-1]
	case s.X[i] == x || i == 0:
		return s.Y[i]
	}

	x0, x1 := s.X[i-1], s.X[i]
	y0, y1 := s.Y[i-1], s.Y[i]

	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

// Stats summarizes the final values of a group's members.
type Stats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
}

// CalculateStats computes the distribution of values.
func CalculateStats(values []float64) *Stats {
	if len(values) == 0 {
		return &Stats{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	mean := sum / float64(len(sorted))

	var sq float64
	for _, v := range sorted {
		sq += (v - mean) * (v - mean)
	}

	return &Stats{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Mean:  mean,
		Std:   math.Sqrt(sq / float64(len(sorted))),
		P50:   percentile(sorted, 50),
		P95:   percentile(sorted, 95),
	}
}

// percentile returns the p-th percentile of sorted using the nearest-rank
// method.
func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}

	if len(sorted) == 1 {
		return sorted[0]
	}

	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return sorted[idx]
}
