package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultHyperParamFile is the stem of the hyperparameter metadata file.
const DefaultHyperParamFile = "parameter"

// LoadHyperParams reads <dir>/<stem>.json, falling back to <dir>/<stem>.yaml.
// The second return value is false when neither file exists. A file that
// exists but cannot be decoded yields an error wrapping ErrParse.
func LoadHyperParams(dir, stem string) (map[string]any, bool, error) {
	jsonPath := filepath.Join(dir, stem+".json")

	data, err := os.ReadFile(jsonPath) //nolint:gosec // derived from the data root
	if err == nil {
		params, err := decodeJSONParams(data)
		if err != nil {
			return nil, true, fmt.Errorf("%w %s: %v", ErrParse, jsonPath, err)
		}

		return params, true, nil
	}

	if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("reading %s: %w", jsonPath, err)
	}

	yamlPath := filepath.Join(dir, stem+".yaml")

	data, err = os.ReadFile(yamlPath) //nolint:gosec // derived from the data root
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("reading %s: %w", yamlPath, err)
	}

	var params map[string]any
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, true, fmt.Errorf("%w %s: %v", ErrParse, yamlPath, err)
	}

	if params == nil {
		params = make(map[string]any)
	}

	return params, true, nil
}

func decodeJSONParams(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var params map[string]any
	if err := dec.Decode(&params); err != nil {
		return nil, err
	}

	if params == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}

	return params, nil
}

// FormatParam renders a hyperparameter value the way it appears in legends.
// Numbers and booleans follow Python's str() so 1e-3 renders as 0.001 and
// true as True.
func FormatParam(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case string:
		return val
	case json.Number:
		return formatNumber(val)
	case float64:
		return formatFloat(val)
	case float32:
		return formatFloat(float64(val))
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case bool:
		if val {
			return "True"
		}

		return "False"
	default:
		return fmt.Sprint(val)
	}
}

func formatNumber(n json.Number) string {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}

	return formatFloat(f)
}

// formatFloat uses positional notation for decimal exponents in [-4, 16)
// and always keeps a fractional part, like Python's float repr.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	if exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:]); err == nil &&
		(exp < -4 || exp >= 16) {
		return sci
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s
}
