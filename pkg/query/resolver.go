package query

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Pattern builds the glob pattern root/<category dir>/task/pattern.
func Pattern(root string, cat Category, task, pattern string) string {
	return filepath.Join(root, cat.DirName(), task, pattern)
}

// Resolve expands the category/task/pattern glob under root. Matches are
// sorted by path. A missing root or an empty match set is not an error.
func Resolve(root string, cat Category, task, pattern string) ([]string, error) {
	if !cat.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCategory, cat)
	}

	matches, err := filepath.Glob(Pattern(root, cat, task, pattern))
	if err != nil {
		return nil, fmt.Errorf("expanding pattern %q: %w", pattern, err)
	}

	sort.Strings(matches)

	return matches, nil
}
