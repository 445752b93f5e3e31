package group

import (
	"strconv"

	"github.com/ethpandaops/rlquery/pkg/query"
)

// Filter lists the allowed values per hyperparameter key. A record passes
// when, for every key, it defines the key with one of the allowed values.
type Filter map[string][]any

// Match reports whether params pass the filter. An empty filter matches
// everything.
func (f Filter) Match(params map[string]any) bool {
	for key, allowed := range f {
		v, ok := params[key]
		if !ok {
			return false
		}

		if !containsValue(allowed, v) {
			return false
		}
	}

	return true
}

func containsValue(allowed []any, v any) bool {
	got := query.FormatParam(v)

	for _, a := range allowed {
		want := query.FormatParam(a)
		if got == want {
			return true
		}

		if sameNumber(got, want) {
			return true
		}
	}

	return false
}

// sameNumber compares two formatted values numerically so "0.001" matches
// "1e-3".
func sameNumber(a, b string) bool {
	fa, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return false
	}

	fb, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return false
	}

	return fa == fb
}
