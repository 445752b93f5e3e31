package plot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethpandaops/rlquery/pkg/query"
)

// SaveDir returns the directory figures of root are saved under.
func SaveDir(root string) string {
	return filepath.Join(root, query.CategoryMisc.DirName(), "easy_plot")
}

// Save writes the rendered figure to <root>/results/easy_plot/<name> and the
// figure data next to it as <name>.json. It returns the chart path.
func Save(root, name string, fig *Figure, renderer Renderer) (string, error) {
	path := filepath.Join(SaveDir(root), name)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating save directory: %w", err)
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, fig); err != nil {
		return "", fmt.Errorf("rendering figure: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { //nolint:gosec // figures are meant to be shared
		return "", fmt.Errorf("writing figure: %w", err)
	}

	data, err := json.MarshalIndent(fig, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling figure: %w", err)
	}

	if err := os.WriteFile(path+".json", data, 0o644); err != nil { //nolint:gosec // figures are meant to be shared
		return "", fmt.Errorf("writing figure data: %w", err)
	}

	return path, nil
}
