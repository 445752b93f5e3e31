package api

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// decodeQuery decodes URL query parameters into out. Values are weakly
// typed so "true", "10" and "0.5" decode into bool, int and float fields;
// repeated or comma separated values decode into slices.
func decodeQuery(values url.Values, out any) error {
	input := make(map[string]any, len(values))

	for k, v := range values {
		switch len(v) {
		case 0:
			continue
		case 1:
			input[k] = v[0]
		default:
			input[k] = v
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}

	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("invalid query parameters: %w", err)
	}

	return nil
}

// safeSegment rejects path input that could escape the data root.
func safeSegment(name, value string) error {
	if strings.HasPrefix(value, "/") {
		return fmt.Errorf("%s must be relative", name)
	}

	for _, part := range strings.Split(value, "/") {
		if part == ".." {
			return fmt.Errorf("%s must not contain '..'", name)
		}
	}

	return nil
}

type queryRequest struct {
	Category string `mapstructure:"category"`
	Task     string `mapstructure:"task"`
	Pattern  string `mapstructure:"pattern"`
}

func (r *queryRequest) validate() error {
	if r.Task == "" {
		return fmt.Errorf("task is required")
	}

	if r.Category == "" {
		r.Category = "log"
	}

	if r.Pattern == "" {
		r.Pattern = "*"
	}

	if err := safeSegment("task", r.Task); err != nil {
		return err
	}

	return safeSegment("pattern", r.Pattern)
}

type figureRequest struct {
	Task           string   `mapstructure:"task"`
	Regs           []string `mapstructure:"regs"`
	Metrics        []string `mapstructure:"metrics"`
	SplitKeys      []string `mapstructure:"split_keys"`
	Legends        []string `mapstructure:"legends"`
	SplitByMetrics bool     `mapstructure:"split_by_metrics"`
	XName          string   `mapstructure:"x_name"`
	XMin           *float64 `mapstructure:"x_min"`
	XMax           *float64 `mapstructure:"x_max"`
	Resample       int      `mapstructure:"resample"`
}

func (r *figureRequest) validate() error {
	if r.Task == "" {
		return fmt.Errorf("task is required")
	}

	if err := safeSegment("task", r.Task); err != nil {
		return err
	}

	for _, reg := range r.Regs {
		if err := safeSegment("regs", reg); err != nil {
			return err
		}
	}

	return nil
}

type catalogRequest struct {
	Category string `mapstructure:"category"`
}
