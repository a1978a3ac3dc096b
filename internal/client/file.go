package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maruel/jsondb/internal/value"
	"gopkg.in/yaml.v3"
)

// LoadRequestFile reads a request document from path and returns its compact
// JSON. Files ending in .yaml or .yml are read as YAML, anything else as
// JSON. The document must be an object; it is not otherwise validated so the
// server can report malformed requests.
func LoadRequestFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is provided by the user on purpose
	if err != nil {
		return nil, err
	}
	var v value.Value
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if v, err = value.FromYAML(&node); err != nil {
			return nil, fmt.Errorf("failed to convert %s: %w", path, err)
		}
	default:
		if v, err = value.Parse(data); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	if !v.IsObject() {
		return nil, fmt.Errorf("%s: request must be an object, got %s", path, v.Kind())
	}
	return v.AppendJSON(nil), nil
}
