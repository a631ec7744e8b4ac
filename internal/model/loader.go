package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"OutdoorAPI/internal/logger"

	"gopkg.in/yaml.v3"
)

// LoadEntitiesFromDir reads every *.yml file in dir; the file name is the
// entity name.
func LoadEntitiesFromDir(dir string) (map[string]*Entity, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no entity definitions found in %s", dir)
	}

	entities := make(map[string]*Entity, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		entity, err := ParseEntity(name, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		entities[name] = entity
		logger.Debug("entity_loaded", map[string]any{
			"entity":    name,
			"relations": len(entity.Relations),
			"referrers": len(entity.API),
		})
	}
	return entities, nil
}

// ParseEntity validates the YAML structure against the allowed keys, then
// decodes it.
func ParseEntity(name string, data []byte) (*Entity, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	// [0] is the document, its content the root mapping
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty YAML")
	}
	if err := validateYAMLNode(root.Content[0], "entity"); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	var entity Entity
	if err := root.Decode(&entity); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	entity.Name = name
	return &entity, nil
}
