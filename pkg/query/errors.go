package query

import "errors"

var (
	// ErrParse is returned when a hyperparameter metadata file cannot be
	// decoded. Grouping cannot proceed on partial data, so the whole query
	// is aborted.
	ErrParse = errors.New("malformed hyperparameter file")

	// ErrUnsupportedCategory is returned for a category outside the known set.
	ErrUnsupportedCategory = errors.New("unsupported category")
)
