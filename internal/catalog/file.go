package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mr1hm/orbitview/internal/models"
)

type fileCatalog struct {
	BaseLayers    []models.Layer         `yaml:"base_layers"`
	OverlayLayers []models.Layer         `yaml:"overlay_layers"`
	Events        []models.DisasterEvent `yaml:"events"`
}

// Load reads a YAML catalog from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("error decoding catalog: %w", err)
	}
	return New(fc.BaseLayers, fc.OverlayLayers, fc.Events)
}
