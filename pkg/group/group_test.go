package group

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitByRegex(t *testing.T) {
	groups := []RegexGroup{
		NewRegexGroup("2022/08/*", "august", []string{"/d/a", "/d/b"}),
		NewRegexGroup("2022/09/*", "september", []string{"/d/c"}),
	}

	tests := []struct {
		name string
		dir  string
		want string
	}{
		{name: "first group", dir: "/d/b", want: "0"},
		{name: "second group", dir: "/d/c", want: "1"},
		{name: "no group", dir: "/d/z", want: NoGroup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitByRegex(tt.dir, groups)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("ambiguous", func(t *testing.T) {
		overlapping := append(groups, NewRegexGroup("2022/*", "all", []string{"/d/a"}))

		_, err := SplitByRegex("/d/a", overlapping)
		require.ErrorIs(t, err, ErrAmbiguousGroup)
	})
}

func TestByRegex(t *testing.T) {
	groups := []RegexGroup{NewRegexGroup("x", "x", []string{"/d/a"})}

	got, err := ByRegex("/d/a", groups, []string{"return", "loss"})
	require.NoError(t, err)
	assert.Equal(t, []Assignment{
		{Label: "0", Metric: "return"},
		{Label: "0", Metric: "loss"},
	}, got)
}

func TestLegends(t *testing.T) {
	groups := []RegexGroup{
		NewRegexGroup("a", "baseline", nil),
		NewRegexGroup("b", "ours", nil),
	}

	legends, err := Legends(groups)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"0": "baseline", "1": "ours"}, legends)

	_, err = Legends([]RegexGroup{NewRegexGroup("a", "", nil)})
	require.Error(t, err)
}

func TestDefaultLegend(t *testing.T) {
	parsed := map[string]string{"lr": "0.01"}

	assert.Equal(t, "lr=0.01.seed=NF",
		DefaultLegend(parsed, []string{"lr", "seed"}, "return", false))
	assert.Equal(t, "lr=0.01 eval:return",
		DefaultLegend(parsed, []string{"lr"}, "return", true))
	assert.Equal(t, "", DefaultLegend(parsed, nil, "return", false))
}

func TestSplitByKeys(t *testing.T) {
	var params map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"lr": 0.01, "env": "hopper"}`), &params))

	t.Run("one label per metric", func(t *testing.T) {
		got := SplitByKeys(params, []string{"lr", "seed"}, []string{"return", "loss"}, true, nil)
		assert.Equal(t, []Assignment{
			{Label: "lr=0.01.seed=NF eval:return", Metric: "return"},
			{Label: "lr=0.01.seed=NF eval:loss", Metric: "loss"},
		}, got)
	})

	t.Run("custom legend", func(t *testing.T) {
		upper := func(parsed map[string]string, keys []string, metric string, _ bool) string {
			return strings.ToUpper(parsed["env"]) + "/" + metric
		}

		got := SplitByKeys(params, []string{"env"}, []string{"return"}, false, upper)
		assert.Equal(t, "HOPPER/return", got[0].Label)
	})
}

func TestFilter(t *testing.T) {
	params := map[string]any{
		"lr":   json.Number("1e-3"),
		"env":  "hopper",
		"seed": 3,
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "empty", filter: Filter{}, want: true},
		{name: "allowed string", filter: Filter{"env": {"walker", "hopper"}}, want: true},
		{name: "numeric equivalence", filter: Filter{"lr": {0.001}}, want: true},
		{name: "int vs float", filter: Filter{"seed": {3.0}}, want: true},
		{name: "disallowed", filter: Filter{"env": {"walker"}}, want: false},
		{name: "missing key", filter: Filter{"gamma": {0.99}}, want: false},
		{
			name:   "all keys must pass",
			filter: Filter{"env": {"hopper"}, "seed": {1, 2}},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(params))
		})
	}
}
