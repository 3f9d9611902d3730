package environment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"chefops/cookbook-cleaner/pkg/registry"
)

// FileSource reads environment pins from a local chef-repo environments
// directory, one <name>.json or <name>.yaml file per environment.
type FileSource struct {
	dir string
}

var _ registry.PinLoader = (*FileSource)(nil)

// NewFileSource creates a FileSource rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Dir returns the environments directory.
func (s *FileSource) Dir() string {
	return s.dir
}

// LoadPins implements registry.PinLoader.
func (s *FileSource) LoadPins(ctx context.Context, environment string) (registry.Pins, error) {
	if err := ctx.Err(); err != nil {
		return nil, registry.NewUnavailableError("pins", s.dir, err)
	}

	doc, err := s.Load(environment)
	if err != nil {
		return nil, registry.NewUnavailableError("pins", s.dir, err)
	}
	return doc.Pins(), nil
}

// Load reads and decodes the file for environment.
func (s *FileSource) Load(environment string) (*Document, error) {
	if environment == "" || filepath.Base(environment) != environment {
		return nil, fmt.Errorf("invalid environment name %q", environment)
	}

	for _, ext := range Extensions {
		path := filepath.Join(s.dir, environment+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read environment file: %w", err)
		}
		return Decode(path, data)
	}

	return nil, fmt.Errorf("environment %q in %s: %w", environment, s.dir, registry.ErrNotFound)
}
