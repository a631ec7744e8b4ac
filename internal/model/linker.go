package model

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"OutdoorAPI/internal/filter"
)

// linkEntities resolves relation targets, fills relation key defaults and
// merges `extends` chains of API configurations.
func linkEntities(entities map[string]*Entity) error {
	for _, name := range sortedNames(entities) {
		entity := entities[name]
		for relName, rel := range entity.Relations {
			if err := linkRelation(entities, entity, relName, rel); err != nil {
				return err
			}
		}
		for ref, cfg := range entity.API {
			if cfg == nil {
				cfg = &APIConfig{}
				entity.API[ref] = cfg
			}
			cfg.referrer = ref
		}
		for ref := range entity.API {
			if err := resolveExtends(entity, ref, map[string]bool{}); err != nil {
				return err
			}
		}
		for _, cfg := range entity.API {
			for fname, opt := range cfg.Filters {
				if opt.Kind == filter.KindRelationExistence && opt.Relation == "" {
					opt.Relation = fname
					cfg.Filters[fname] = opt
				}
			}
		}
	}
	return nil
}

func linkRelation(entities map[string]*Entity, entity *Entity, relName string, rel *Relation) error {
	if rel == nil {
		return fmt.Errorf("relation '%s.%s' is empty", entity.Name, relName)
	}
	rel.Name = relName
	target, ok := entities[rel.Model]
	if !ok {
		return fmt.Errorf("invalid relation: model '%s' not found in '%s.%s'", rel.Model, entity.Name, relName)
	}
	rel.target = target

	// FK defaults follow the naming convention of the tables
	if rel.FK == "" {
		switch rel.Type {
		case BelongsTo:
			// FK lives on the current entity
			rel.FK = toSnakeCase(relName) + "_id"
		case HasOne, HasMany:
			// FK lives on the related entity (or the join table)
			rel.FK = toSnakeCase(entity.Name) + "_id"
		}
	}
	if rel.PK == "" {
		rel.PK = "id"
	}

	if rel.Through == "" {
		if len(rel.ThroughFields) > 0 {
			return fmt.Errorf("relation '%s.%s' has through_fields but no through", entity.Name, relName)
		}
		return nil
	}
	if rel.Type == BelongsTo {
		return fmt.Errorf("relation '%s.%s': belongs_to cannot use through", entity.Name, relName)
	}
	through, ok := entities[rel.Through]
	if !ok {
		return fmt.Errorf("invalid through: model '%s' not found in '%s.%s'", rel.Through, entity.Name, relName)
	}
	// the join table must point at the target
	var final *Relation
	var finalName string
	for _, name := range sortedRelationNames(through) {
		candidate := through.Relations[name]
		if candidate != nil && candidate.Model == rel.Model && candidate.Type == BelongsTo {
			final, finalName = candidate, name
			break
		}
	}
	if final == nil {
		return fmt.Errorf("invalid through: no belongs_to relation from '%s' to '%s' found in '%s.%s'",
			rel.Through, rel.Model, entity.Name, relName)
	}
	fk := final.FK
	if fk == "" {
		fk = toSnakeCase(finalName) + "_id"
	}
	pk := final.PK
	if pk == "" {
		pk = "id"
	}
	rel.through = through
	rel.throughTargetFK = fk
	rel.throughTargetPK = pk
	return nil
}

// resolveExtends copies unset sections from the extended configuration.
func resolveExtends(entity *Entity, ref string, seen map[string]bool) error {
	cfg := entity.API[ref]
	if cfg.Extends == "" {
		return nil
	}
	if seen[ref] {
		return fmt.Errorf("entity %s: extends cycle at referrer %q", entity.Name, ref)
	}
	seen[ref] = true
	base, ok := entity.API[cfg.Extends]
	if !ok {
		return fmt.Errorf("entity %s: referrer %q extends unknown referrer %q", entity.Name, ref, cfg.Extends)
	}
	if err := resolveExtends(entity, cfg.Extends, seen); err != nil {
		return err
	}

	if cfg.Filters == nil {
		cfg.Filters = base.Filters
	}
	if cfg.Fields == nil {
		cfg.Fields = base.Fields
	}
	if cfg.FullFields == nil {
		cfg.FullFields = base.FullFields
	}
	if cfg.DefaultFields == nil {
		cfg.DefaultFields = base.DefaultFields
	}
	if cfg.Ordering.Default == nil {
		cfg.Ordering.Default = base.Ordering.Default
	}
	if cfg.Ordering.ValidFields == nil {
		cfg.Ordering.ValidFields = base.Ordering.ValidFields
	}
	if cfg.Pagination == nil {
		cfg.Pagination = base.Pagination
	}
	if !cfg.FullTextSearch {
		cfg.FullTextSearch = base.FullTextSearch
	}
	if cfg.Languages == nil {
		cfg.Languages = base.Languages
	}
	if cfg.DefaultRelations == nil {
		cfg.DefaultRelations = base.DefaultRelations
	}
	cfg.Extends = ""
	return nil
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sortedRelationNames(e *Entity) []string {
	names := make([]string, 0, len(e.Relations))
	for n := range e.Relations {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func toSnakeCase(s string) string {
	var result []rune
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '_')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

func toCamelCase(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}
