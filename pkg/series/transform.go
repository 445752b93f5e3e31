package series

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Transform maps a metric value before plotting.
type Transform func(float64) float64

// Identity returns v unchanged.
func Identity(v float64) float64 {
	return v
}

// ParseTransform resolves a transform expression such as "log", "neg",
// "scale:100" or "offset:-1".
func ParseTransform(expr string) (Transform, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(expr), ":")

	switch name {
	case "", "identity":
		return Identity, nil
	case "log":
		return math.Log, nil
	case "log10":
		return math.Log10, nil
	case "neg":
		return func(v float64) float64 { return -v }, nil
	case "abs":
		return math.Abs, nil
	case "scale", "offset":
		if !hasArg {
			return nil, fmt.Errorf("transform %q needs an argument", name)
		}

		k, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("transform %q: invalid argument %q: %w", name, arg, err)
		}

		if name == "scale" {
			return func(v float64) float64 { return v * k }, nil
		}

		return func(v float64) float64 { return v + k }, nil
	default:
		return nil, fmt.Errorf("unknown transform %q", expr)
	}
}

// Transforms resolves one transform per metric. Metrics without an entry
// in exprs get Identity.
func Transforms(metrics []string, exprs map[string]string) (map[string]Transform, error) {
	out := make(map[string]Transform, len(metrics)+len(exprs))
	for _, m := range metrics {
		out[m] = Identity
	}

	for metric, expr := range exprs {
		fn, err := ParseTransform(expr)
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", metric, err)
		}

		out[metric] = fn
	}

	return out, nil
}
