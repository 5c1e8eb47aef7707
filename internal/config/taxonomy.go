package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/machine-analytics/backend/internal/analytics"
	"gopkg.in/yaml.v3"
)

// LoadTaxonomy reads the status taxonomy YAML file at path. A missing file
// is created with the default taxonomy so it can be edited in place.
//
// Format:
//
//	unknown_color: "#94a3b8"
//	statuses:
//	  - label: "Normal"
//	    category: "Normal"
//	    color: "#22c55e"
func LoadTaxonomy(path string) (analytics.Taxonomy, error) {
	if path == "" {
		return analytics.DefaultTaxonomy(), nil
	}
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		def := analytics.DefaultTaxonomy()
		if err := writeTaxonomy(path, def); err != nil {
			return analytics.Taxonomy{}, fmt.Errorf("failed to create default taxonomy: %w", err)
		}
		return def, nil
	}
	if err != nil {
		return analytics.Taxonomy{}, fmt.Errorf("failed to open taxonomy: %w", err)
	}
	defer file.Close()

	return ParseTaxonomy(file)
}

// ParseTaxonomy parses a taxonomy from an io.Reader and validates it.
func ParseTaxonomy(r io.Reader) (analytics.Taxonomy, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return analytics.Taxonomy{}, err
	}

	var t analytics.Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return analytics.Taxonomy{}, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	if len(t.Statuses) == 0 {
		def := analytics.DefaultTaxonomy()
		t.Statuses = def.Statuses
	}
	if err := t.Validate(); err != nil {
		return analytics.Taxonomy{}, err
	}
	return t, nil
}

// writeTaxonomy writes t as YAML to path, creating the parent directory.
func writeTaxonomy(path string, t analytics.Taxonomy) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal taxonomy: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
