package group

import (
	"strings"

	"github.com/ethpandaops/rlquery/pkg/query"
)

// NotFound stands in for a split key the record does not define.
const NotFound = "NF"

// LegendFunc renders the legend of a record from its parsed split values.
type LegendFunc func(parsed map[string]string, splitKeys []string, metric string, useMetric bool) string

// DefaultLegend joins "key=value" pairs with "." in split-key order and
// appends " eval:<metric>" when useMetric is set.
func DefaultLegend(parsed map[string]string, splitKeys []string, metric string, useMetric bool) string {
	parts := make([]string, 0, len(splitKeys))

	for _, k := range splitKeys {
		v, ok := parsed[k]
		if !ok {
			v = NotFound
		}

		parts = append(parts, k+"="+v)
	}

	legend := strings.Join(parts, ".")
	if useMetric {
		legend += " eval:" + metric
	}

	return legend
}

// ParseKeys formats the split-key values of params. Absent keys map to
// NotFound.
func ParseKeys(params map[string]any, splitKeys []string) map[string]string {
	parsed := make(map[string]string, len(splitKeys))

	for _, k := range splitKeys {
		v, ok := params[k]
		if !ok {
			parsed[k] = NotFound

			continue
		}

		parsed[k] = query.FormatParam(v)
	}

	return parsed
}

// SplitByKeys returns one assignment per metric, labelled by fn (or
// DefaultLegend when fn is nil).
func SplitByKeys(
	params map[string]any,
	splitKeys, metrics []string,
	useMetric bool,
	fn LegendFunc,
) []Assignment {
	if fn == nil {
		fn = DefaultLegend
	}

	parsed := ParseKeys(params, splitKeys)
	out := make([]Assignment, 0, len(metrics))

	for _, m := range metrics {
		out = append(out, Assignment{
			Label:  fn(parsed, splitKeys, m, useMetric),
			Metric: m,
		})
	}

	return out
}
