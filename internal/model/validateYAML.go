package model

import (
	"fmt"

	"OutdoorAPI/internal/filter"

	"gopkg.in/yaml.v3"
)

var allowedEntityKeys = map[string]bool{
	"table":         true,
	"entry":         true,
	"primary_keys":  true,
	"search_column": true,
	"attributes":    true,
	"relations":     true,
	"api":           true,
}

var allowedRelationKeys = map[string]bool{
	"type":           true,
	"model":          true,
	"fk":             true,
	"pk":             true,
	"through":        true,
	"through_fields": true,
}

var allowedAPIKeys = map[string]bool{
	"extends":           true,
	"filters":           true,
	"fields":            true,
	"full_fields":       true,
	"default_fields":    true,
	"ordering":          true,
	"pagination":        true,
	"full_text_search":  true,
	"languages":         true,
	"default_relations": true,
}

var allowedFilterKeys = map[string]bool{
	"kind":             true,
	"operators":        true,
	"case_insensitive": true,
	"attribute":        true,
	"relation":         true,
	"text_storage":     true,
}

var allowedOrderingKeys = map[string]bool{
	"default":      true,
	"valid_fields": true,
}

var allowedPaginationKeys = map[string]bool{
	"default_limit": true,
	"max_limit":     true,
}

var allowedRelationTypes = map[string]bool{
	BelongsTo: true,
	HasOne:    true,
	HasMany:   true,
}

func allowedKeysFor(context string) map[string]bool {
	switch context {
	case "entity":
		return allowedEntityKeys
	case "relation":
		return allowedRelationKeys
	case "api":
		return allowedAPIKeys
	case "filter":
		return allowedFilterKeys
	case "ordering":
		return allowedOrderingKeys
	case "pagination":
		return allowedPaginationKeys
	}
	return nil // free form
}

// nextContext maps (context, key) to the context of the key's value.
func nextContext(context, key string) string {
	switch {
	case context == "entity" && key == "relations":
		return "relations-map"
	case context == "relations-map":
		return "relation"
	case context == "entity" && key == "api":
		return "api-map"
	case context == "api-map":
		return "api"
	case context == "api" && key == "filters":
		return "filters-map"
	case context == "filters-map":
		return "filter"
	case context == "api" && key == "ordering":
		return "ordering"
	case context == "api" && key == "pagination":
		return "pagination"
	case context == "entity" && key == "attributes":
		return "attributes-map"
	}
	return "value"
}

func validateYAMLNode(node *yaml.Node, context string) error {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := validateYAMLNode(child, "entity"); err != nil {
				return err
			}
		}

	case yaml.MappingNode:
		allowedKeys := allowedKeysFor(context)
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			key := keyNode.Value

			if allowedKeys != nil && !allowedKeys[key] {
				return fmt.Errorf("line %d: unknown key '%s' in %s", keyNode.Line, key, context)
			}
			if context == "relation" && key == "type" && !allowedRelationTypes[valNode.Value] {
				return fmt.Errorf("line %d: unknown relation type '%s'", valNode.Line, valNode.Value)
			}
			if context == "filter" && key == "kind" && filter.OperatorsFor(filter.Kind(valNode.Value)) == nil {
				return fmt.Errorf("line %d: unknown filter kind '%s'", valNode.Line, valNode.Value)
			}

			if err := validateYAMLNode(valNode, nextContext(context, key)); err != nil {
				return err
			}
		}

	case yaml.SequenceNode:
		for _, item := range node.Content {
			if err := validateYAMLNode(item, "value"); err != nil {
				return err
			}
		}

	case yaml.ScalarNode:
		if context == "pagination" && node.Value != "false" {
			return fmt.Errorf("line %d: pagination must be a mapping or false", node.Line)
		}
	}

	return nil
}
