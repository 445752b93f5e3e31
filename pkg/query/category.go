package query

import (
	"fmt"
	"strings"
)

// Category identifies one of the artifact trees under a data root.
type Category int

const (
	// CategoryLog holds tabular metric logs (progress.csv).
	CategoryLog Category = iota + 1
	// CategoryArchive holds serialized experiment state blobs.
	CategoryArchive
	// CategoryHyperParam holds hyperparameter metadata files.
	CategoryHyperParam
	// CategoryCheckpoint holds model checkpoints.
	CategoryCheckpoint
	// CategoryMisc holds any other result files (figures, videos, ...).
	CategoryMisc
)

// Categories lists every known category in a stable order.
var Categories = []Category{
	CategoryLog,
	CategoryArchive,
	CategoryHyperParam,
	CategoryCheckpoint,
	CategoryMisc,
}

// DirName returns the directory name used for the category on disk.
func (c Category) DirName() string {
	switch c {
	case CategoryLog:
		return "log"
	case CategoryArchive:
		return "archive_tester"
	case CategoryHyperParam:
		return "hyparam"
	case CategoryCheckpoint:
		return "checkpoint"
	case CategoryMisc:
		return "results"
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (c Category) String() string {
	switch c {
	case CategoryLog:
		return "log"
	case CategoryArchive:
		return "archive"
	case CategoryHyperParam:
		return "hyperparam"
	case CategoryCheckpoint:
		return "checkpoint"
	case CategoryMisc:
		return "misc"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c.DirName() != ""
}

// ParseCategory accepts either the category name or its directory name.
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))

	for _, c := range Categories {
		if name == c.String() || name == c.DirName() {
			return c, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnsupportedCategory, s)
}
