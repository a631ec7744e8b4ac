package model

import (
	"fmt"
	"strings"

	"OutdoorAPI/internal/filter"

	"gopkg.in/yaml.v3"
)

// Relation types.
const (
	BelongsTo = "belongs_to"
	HasOne    = "has_one"
	HasMany   = "has_many"
)

// Entity describes one table exposed by the API.
type Entity struct {
	Name         string                `yaml:"-"`
	Table        string                `yaml:"table"`
	Entry        bool                  `yaml:"entry"`         // routable as a top-level resource
	PrimaryKeys  []string              `yaml:"primary_keys"`  // default ["id"]
	SearchColumn string                `yaml:"search_column"` // tsvector column, default search_document
	Attributes   map[string]string     `yaml:"attributes"`    // API name -> column
	Relations    map[string]*Relation  `yaml:"relations"`
	API          map[string]*APIConfig `yaml:"api"` // referrer -> configuration
}

// Relation describes an association traversable by name.
type Relation struct {
	Name          string   `yaml:"-"`
	Type          string   `yaml:"type"`  // has_one, has_many, belongs_to
	Model         string   `yaml:"model"` // target entity name
	FK            string   `yaml:"fk"`
	PK            string   `yaml:"pk"`
	Through       string   `yaml:"through"`        // join table entity for many-to-many
	ThroughFields []string `yaml:"through_fields"` // join table extra fields

	target  *Entity
	through *Entity
	// FK on the join table pointing at the target (through relations only)
	throughTargetFK string
	throughTargetPK string
}

// APIConfig is the configuration of an entity for one referrer.
type APIConfig struct {
	Extends          string                   `yaml:"extends"`
	Filters          map[string]filter.Option `yaml:"filters"`
	Fields           []string                 `yaml:"fields"`
	FullFields       []string                 `yaml:"full_fields"`
	DefaultFields    []string                 `yaml:"default_fields"`
	Ordering         Ordering                 `yaml:"ordering"`
	Pagination       *Pagination              `yaml:"pagination"`
	FullTextSearch   bool                     `yaml:"full_text_search"`
	Languages        map[string]string        `yaml:"languages"` // request code -> text search config
	DefaultRelations []string                 `yaml:"default_relations"`

	referrer string
}

type Ordering struct {
	Default     []OrderBy `yaml:"default"`
	ValidFields []string  `yaml:"valid_fields"`
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts asc/desc in any case.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	}
	return "", false
}

// OrderBy is a (field, direction) pair, written as [field, dir] in YAML.
type OrderBy struct {
	Field     string
	Direction Direction
}

func (o *OrderBy) UnmarshalYAML(node *yaml.Node) error {
	var pair []string
	if err := node.Decode(&pair); err != nil {
		return err
	}
	if len(pair) == 0 || len(pair) > 2 {
		return fmt.Errorf("line %d: order entry must be [field, asc|desc]", node.Line)
	}
	o.Field, o.Direction = pair[0], Asc
	if len(pair) == 2 {
		dir, ok := ParseDirection(pair[1])
		if !ok {
			return fmt.Errorf("line %d: invalid order direction %q", node.Line, pair[1])
		}
		o.Direction = dir
	}
	return nil
}

// Pagination limits; `pagination: false` in YAML disables pagination.
type Pagination struct {
	Disabled     bool
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

func (p *Pagination) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var enabled bool
		if err := node.Decode(&enabled); err != nil {
			return fmt.Errorf("line %d: pagination must be a mapping or false", node.Line)
		}
		if enabled {
			return fmt.Errorf("line %d: pagination: true needs default_limit and max_limit", node.Line)
		}
		p.Disabled = true
		return nil
	}
	type plain Pagination
	return node.Decode((*plain)(p))
}

// GetPrimaryKeys returns the primary key columns, ["id"] by default.
func (e *Entity) GetPrimaryKeys() []string {
	if len(e.PrimaryKeys) > 0 {
		return e.PrimaryKeys
	}
	return []string{"id"}
}

// Column maps an API attribute name to its storage column.
func (e *Entity) Column(attr string) string {
	if col, ok := e.Attributes[attr]; ok {
		return col
	}
	return toSnakeCase(attr)
}

// Attribute is the inverse of Column.
func (e *Entity) Attribute(column string) string {
	for attr, col := range e.Attributes {
		if col == column {
			return attr
		}
	}
	return toCamelCase(column)
}

func (e *Entity) GetSearchColumn() string {
	if e.SearchColumn != "" {
		return e.SearchColumn
	}
	return "search_document"
}

func (e *Entity) GetRelation(name string) *Relation {
	if e == nil || e.Relations == nil {
		return nil
	}
	return e.Relations[name]
}

// Target returns the related entity; set by the linker.
func (r *Relation) Target() *Entity {
	return r.target
}

// ThroughEntity returns the join table entity, nil for direct relations.
func (r *Relation) ThroughEntity() *Entity {
	return r.through
}

// ThroughTargetKeys returns the join table column referencing the target
// and the target column it references.
func (r *Relation) ThroughTargetKeys() (fk, pk string) {
	return r.throughTargetFK, r.throughTargetPK
}

// IsThroughField reports whether attr lives on the join table.
func (r *Relation) IsThroughField(attr string) bool {
	for _, f := range r.ThroughFields {
		if f == attr {
			return true
		}
	}
	return false
}

// Referrer returns the referrer this configuration was registered under.
func (c *APIConfig) Referrer() string {
	return c.referrer
}

// Filter looks a filter up by exact name.
func (c *APIConfig) Filter(name string) (filter.Option, bool) {
	opt, ok := c.Filters[name]
	return opt, ok
}

// IsValidField reports whether name may be selected.
func (c *APIConfig) IsValidField(name string) bool {
	return contains(c.Fields, name) || contains(c.FullFields, name)
}

func (c *APIConfig) IsValidOrderField(name string) bool {
	return contains(c.Ordering.ValidFields, name)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
