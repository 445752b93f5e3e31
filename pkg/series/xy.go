package series

import "math"

// Bound clips a series on the x-axis. Nil ends are open.
type Bound struct {
	Min *float64
	Max *float64
}

func (b Bound) contains(x float64) bool {
	if b.Min != nil && x < *b.Min {
		return false
	}

	if b.Max != nil && x > *b.Max {
		return false
	}

	return true
}

// Series is one filtered curve of a run.
type Series struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// Len returns the number of points.
func (s Series) Len() int {
	return len(s.X)
}

// Last returns the final y value.
func (s Series) Last() (float64, bool) {
	if len(s.Y) == 0 {
		return 0, false
	}

	return s.Y[len(s.Y)-1], true
}

// Filter drops every pair where x or y is NaN, then keeps the pairs whose x
// lies inside b. xs and ys must have equal length.
func Filter(xs, ys []float64, b Bound) Series {
	out := Series{
		X: make([]float64, 0, len(xs)),
		Y: make([]float64, 0, len(ys)),
	}

	for i := range xs {
		if i >= len(ys) {
			break
		}

		x, y := xs[i], ys[i]
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}

		if !b.contains(x) {
			continue
		}

		out.X = append(out.X, x)
		out.Y = append(out.Y, y)
	}

	return out
}

// XY extracts the (xName, yName) series from t, filters it with b and
// applies fn to every y value. The second return value is false when
// either column is missing.
func XY(t *Table, xName, yName string, b Bound, fn Transform) (Series, bool) {
	xs, ok := t.Column(xName)
	if !ok {
		return Series{}, false
	}

	ys, ok := t.Column(yName)
	if !ok {
		return Series{}, false
	}

	s := Filter(xs, ys, b)

	if fn != nil {
		for i, y := range s.Y {
			s.Y[i] = fn(y)
		}
	}

	return s, true
}

// Finite returns a copy of s without the points whose y is NaN or infinite,
// as produced by transforms such as log of a non-positive value.
func (s Series) Finite() Series {
	out := Series{
		X: make([]float64, 0, len(s.X)),
		Y: make([]float64, 0, len(s.Y)),
	}

	for i, y := range s.Y {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}

		out.X = append(out.X, s.X[i])
		out.Y = append(out.Y, y)
	}

	return out
}
