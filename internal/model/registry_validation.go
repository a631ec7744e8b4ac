package model

import (
	"fmt"
	"strings"

	"OutdoorAPI/internal/filter"
	"OutdoorAPI/internal/logger"
)

// validateEntities checks every API configuration against its entity.
func validateEntities(entities map[string]*Entity) error {
	for _, name := range sortedNames(entities) {
		e := entities[name]
		if strings.TrimSpace(e.Table) == "" {
			return fmt.Errorf("entity %s: table is required", name)
		}
		if a, b, ok := foldCollision(sortedRelationNames(e)); ok {
			return fmt.Errorf("entity %s: relations %s and %s differ only in case", name, a, b)
		}
		if _, ok := e.API[ReferrerStandard]; !ok {
			return fmt.Errorf("entity %s: api.standard is required", name)
		}
		for ref, cfg := range e.API {
			if err := validateReferrer(entities, e, ref); err != nil {
				return err
			}
			if err := validateAPIConfig(e, cfg); err != nil {
				return fmt.Errorf("entity %s, referrer %s: %w", name, ref, err)
			}
		}
	}
	return nil
}

func validateReferrer(entities map[string]*Entity, e *Entity, ref string) error {
	switch ref {
	case ReferrerStandard, ReferrerList, ReferrerSingle:
		return nil
	}
	parentName, relName, ok := strings.Cut(ref, ".")
	if !ok {
		return fmt.Errorf("entity %s: unknown referrer %q", e.Name, ref)
	}
	parent, ok := entities[parentName]
	if !ok {
		return fmt.Errorf("entity %s: referrer %q names unknown entity %s", e.Name, ref, parentName)
	}
	rel := parent.GetRelation(relName)
	if rel == nil || rel.Model != e.Name {
		return fmt.Errorf("entity %s: referrer %q is not a relation to %s", e.Name, ref, e.Name)
	}
	return nil
}

func validateAPIConfig(e *Entity, cfg *APIConfig) error {
	if a, b, ok := foldCollision(sortedNames(cfg.Filters)); ok {
		return fmt.Errorf("filters %s and %s differ only in case", a, b)
	}
	for name, opt := range cfg.Filters {
		if err := opt.Validate(); err != nil {
			return fmt.Errorf("filter %s: %w", name, err)
		}
		if opt.Kind == filter.KindRelationExistence && e.GetRelation(opt.Relation) == nil {
			return fmt.Errorf("filter %s: relation %q is not declared", name, opt.Relation)
		}
		if strings.Contains(name, ".") {
			return fmt.Errorf("filter %s: filter names cannot contain '.'", name)
		}
	}
	for _, f := range cfg.DefaultFields {
		if !cfg.IsValidField(f) {
			return fmt.Errorf("default field %q is not listed in fields", f)
		}
	}
	for _, o := range cfg.Ordering.Default {
		if !cfg.IsValidOrderField(o.Field) {
			return fmt.Errorf("default order field %q is not listed in ordering.valid_fields", o.Field)
		}
	}
	for _, rel := range cfg.DefaultRelations {
		if e.GetRelation(rel) == nil {
			return fmt.Errorf("default relation %q is not declared", rel)
		}
	}
	switch p := cfg.Pagination; {
	case p == nil:
		// reported when a request needs it
		logger.Warn("pagination_not_configured", map[string]any{
			"entity":   e.Name,
			"referrer": cfg.referrer,
		})
	case p.Disabled:
	case p.DefaultLimit <= 0:
		return fmt.Errorf("pagination.default_limit must be positive")
	case p.MaxLimit < p.DefaultLimit:
		return fmt.Errorf("pagination.max_limit (%d) is below default_limit (%d)", p.MaxLimit, p.DefaultLimit)
	}
	return nil
}

// foldCollision reports two names that become equal once lowercased and
// trimmed, the form query keys are matched in.
func foldCollision(names []string) (string, string, bool) {
	seen := make(map[string]string, len(names))
	for _, n := range names {
		k := strings.ToLower(strings.TrimSpace(n))
		if prev, ok := seen[k]; ok {
			return prev, n, true
		}
		seen[k] = n
	}
	return "", "", false
}
