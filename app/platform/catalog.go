package platform

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yml
var defaultCatalog []byte

// Catalog holds the loaded platform definitions. It is built once at
// startup and read-only afterwards.
type Catalog struct {
	platforms map[string]Platform
}

// Load builds the catalog from the embedded defaults, then applies any
// override files (*.yml, *.yaml) found in overrideDir. An empty overrideDir
// loads defaults only.
func Load(overrideDir string) (*Catalog, error) {
	catalog := &Catalog{platforms: make(map[string]Platform)}

	if err := catalog.mergeYAML(defaultCatalog); err != nil {
		return nil, fmt.Errorf("failed to load default platform catalog: %w", err)
	}

	if overrideDir == "" {
		return catalog, nil
	}
	if _, err := os.Stat(overrideDir); os.IsNotExist(err) {
		return catalog, nil
	}

	files, err := filepath.Glob(filepath.Join(overrideDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(overrideDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		if err := catalog.mergeYAML(data); err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}
	}

	return catalog, nil
}

func (c *Catalog) mergeYAML(data []byte) error {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	for _, p := range file.Platforms {
		if p.ID == "" {
			return fmt.Errorf("platform id is required")
		}
		if p.DisplayName == "" {
			p.DisplayName = p.ID
		}
		c.platforms[p.ID] = p
	}

	return nil
}

// Get returns a platform definition by id
func (c *Catalog) Get(id string) (Platform, bool) {
	p, ok := c.platforms[id]
	return p, ok
}

// Has reports whether a platform id is known
func (c *Catalog) Has(id string) bool {
	_, ok := c.platforms[id]
	return ok
}

// IDs returns all known platform ids, sorted
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.platforms))
	for id := range c.platforms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ContentTypes returns the union of content types across platforms, sorted
func (c *Catalog) ContentTypes() []string {
	seen := make(map[string]bool)
	for _, p := range c.platforms {
		for _, ct := range p.ContentTypes {
			seen[ct] = true
		}
	}

	types := make([]string, 0, len(seen))
	for ct := range seen {
		types = append(types, ct)
	}
	sort.Strings(types)
	return types
}

// Count returns the number of known platforms
func (c *Catalog) Count() int {
	return len(c.platforms)
}
