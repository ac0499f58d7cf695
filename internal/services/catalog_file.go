package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ticket-marketplace/internal/models"

	"gopkg.in/yaml.v3"
)

// catalogDocument is the on-disk catalog layout
type catalogDocument struct {
	Events []models.EventPayload `json:"events" yaml:"events"`
}

// FileCatalogProvider reads events from a YAML or JSON file
type FileCatalogProvider struct {
	path string
}

// NewFileCatalogProvider creates a provider reading path on every load
func NewFileCatalogProvider(path string) *FileCatalogProvider {
	return &FileCatalogProvider{path: path}
}

// LoadEvents reads and decodes the catalog file
func (p *FileCatalogProvider) LoadEvents(ctx context.Context) ([]models.EventPayload, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	return ParseCatalog(data, filepath.Ext(p.path))
}

// ParseCatalog decodes a catalog document. ext selects the format; anything
// other than .json is treated as YAML.
func ParseCatalog(data []byte, ext string) ([]models.EventPayload, error) {
	var doc catalogDocument

	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON catalog: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML catalog: %w", err)
		}
	}

	return doc.Events, nil
}
