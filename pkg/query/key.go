package query

import (
	"path/filepath"
	"regexp"
)

// keyPattern matches the run timestamp embedded in experiment paths,
// e.g. 2022/08/10/13-45-12-123456.
var keyPattern = regexp.MustCompile(`\d{4}/\d{2}/\d{2}/\d{2}-\d{2}-\d{2}-\d{6}`)

// ExtractKey returns the run timestamp embedded in path. The second return
// value is false when the path carries no timestamp.
func ExtractKey(path string) (string, bool) {
	key := keyPattern.FindString(filepath.ToSlash(path))
	if key == "" {
		return "", false
	}

	return key, true
}
