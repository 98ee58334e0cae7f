package service

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// LoadCatalog reads a catalog from a YAML file, or the built-in catalog when
// path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		data = b
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i := range c.Layers {
		if c.Layers[i].Label == "" {
			c.Layers[i].Label = c.Layers[i].ID
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the catalog is internally consistent.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Layers))
	for _, l := range c.Layers {
		if l.ID == "" {
			return fmt.Errorf("catalog: layer with empty id")
		}
		if seen[l.ID] {
			return fmt.Errorf("catalog: duplicate layer %q", l.ID)
		}
		seen[l.ID] = true
	}
	if c.MapPanel == "" {
		return fmt.Errorf("catalog: map_panel is required")
	}
	if !c.HasPanel(c.MapPanel) {
		return fmt.Errorf("catalog: map_panel %q is not a panel", c.MapPanel)
	}
	if len(c.Flow.Path) < 2 {
		return fmt.Errorf("catalog: flow path needs at least 2 points")
	}
	return nil
}

// Layer returns the catalog entry for a layer id.
func (c *Catalog) Layer(id string) (LayerInfo, bool) {
	for _, l := range c.Layers {
		if l.ID == id {
			return l, true
		}
	}
	return LayerInfo{}, false
}

// Queryable reports whether a layer is in the queryable set.
func (c *Catalog) Queryable(id string) bool {
	l, ok := c.Layer(id)
	return ok && l.Queryable
}

// HasPanel reports whether id names a panel.
func (c *Catalog) HasPanel(id string) bool {
	for _, p := range c.Panels {
		if p == id {
			return true
		}
	}
	return false
}

// YAML encodes the catalog.
func (c *Catalog) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
