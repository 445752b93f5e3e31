// Package group assigns experiment records to legend groups, either by the
// regex pattern that located them or by a set of hyperparameter keys.
package group

import (
	"errors"
	"fmt"
	"strconv"
)

// NoGroup labels a record that no regex group claims.
const NoGroup = "None"

// ErrAmbiguousGroup is returned when a record is claimed by more than one
// regex group.
var ErrAmbiguousGroup = errors.New("record belongs to more than one regex group")

// Assignment is one (label, metric) pair a record is plotted under.
type Assignment struct {
	Label  string `json:"label"`
	Metric string `json:"metric"`
}

// RegexGroup is the set of record directories located by one pattern.
type RegexGroup struct {
	Pattern string
	Legend  string
	members map[string]struct{}
}

// NewRegexGroup builds a group over the given record directories.
func NewRegexGroup(pattern, legend string, dirs []string) RegexGroup {
	members := make(map[string]struct{}, len(dirs))
	for _, d := range dirs {
		members[d] = struct{}{}
	}

	return RegexGroup{
		Pattern: pattern,
		Legend:  legend,
		members: members,
	}
}

// Contains reports whether dir is a member of the group.
func (g RegexGroup) Contains(dir string) bool {
	_, ok := g.members[dir]

	return ok
}

// Len returns the number of member directories.
func (g RegexGroup) Len() int {
	return len(g.members)
}

// SplitByRegex returns the index of the single group containing dir as a
// label, NoGroup when none does, and ErrAmbiguousGroup when several do.
func SplitByRegex(dir string, groups []RegexGroup) (string, error) {
	found := -1

	for i, g := range groups {
		if !g.Contains(dir) {
			continue
		}

		if found >= 0 {
			return "", fmt.Errorf("%w: %s matched by %q and %q",
				ErrAmbiguousGroup, dir, groups[found].Pattern, g.Pattern)
		}

		found = i
	}

	if found < 0 {
		return NoGroup, nil
	}

	return strconv.Itoa(found), nil
}

// ByRegex assigns dir to its regex group for every metric.
func ByRegex(dir string, groups []RegexGroup, metrics []string) ([]Assignment, error) {
	label, err := SplitByRegex(dir, groups)
	if err != nil {
		return nil, err
	}

	out := make([]Assignment, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, Assignment{Label: label, Metric: m})
	}

	return out, nil
}

// Legends maps regex group labels to their legend text. Every group must
// carry a legend.
func Legends(groups []RegexGroup) (map[string]string, error) {
	out := make(map[string]string, len(groups))

	for i, g := range groups {
		if g.Legend == "" {
			return nil, fmt.Errorf("regex group %d (%q) has no legend", i, g.Pattern)
		}

		out[strconv.Itoa(i)] = g.Legend
	}

	return out, nil
}
