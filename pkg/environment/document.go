package environment

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"chefops/cookbook-cleaner/pkg/registry"
)

// Extensions lists the environment file formats understood, in lookup order.
var Extensions = []string{".json", ".yaml", ".yml"}

// Document is a Chef environment as stored in a chef-repo.
// Only the fields used for cleanup are decoded.
type Document struct {
	Name             string            `json:"name" yaml:"name"`
	Description      string            `json:"description" yaml:"description"`
	CookbookVersions map[string]string `json:"cookbook_versions" yaml:"cookbook_versions"`
}

// Decode parses an environment file. The format is chosen by the file
// extension of name.
func Decode(name string, data []byte) (*Document, error) {
	var doc Document

	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse environment %q: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse environment %q: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("unsupported environment file format %q", ext)
	}

	return &doc, nil
}

// Pins returns the document's version constraints.
func (d *Document) Pins() registry.Pins {
	pins := make(registry.Pins, len(d.CookbookVersions))
	for name, constraint := range d.CookbookVersions {
		pins[name] = constraint
	}
	return pins
}
