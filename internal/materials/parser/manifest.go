package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"materials-viewer/internal/materials/models"
)

// ============================================================
// Element Manifest Parser
// ============================================================

// SchemaPrefix is the accepted manifest schema family. The upstream
// extractor stamps its output with "bmm/<version>".
const SchemaPrefix = "bmm/"

// Parse decodes and validates an element manifest. This is the boundary
// to the upstream parsing collaborator: the manifest is its batch output,
// treated as ground truth from here on.
func Parse(r io.Reader) (*models.Manifest, error) {
	var m models.Manifest
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	if !strings.HasPrefix(m.Schema, SchemaPrefix) {
		return nil, fmt.Errorf("unsupported manifest schema %q", m.Schema)
	}

	seen := make(map[string]struct{}, len(m.Elements))
	for i, el := range m.Elements {
		if el.StableID == "" {
			return nil, fmt.Errorf("element %d: missing guid", i)
		}
		if _, dup := seen[el.StableID]; dup {
			return nil, fmt.Errorf("element %d: duplicate guid %s", i, el.StableID)
		}
		seen[el.StableID] = struct{}{}
	}

	return &m, nil
}
