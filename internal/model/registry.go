package model

import (
	"fmt"
	"sort"
	"strings"
)

// Registry holds every entity. It is built once at startup and only read
// afterwards.
type Registry struct {
	entities map[string]*Entity
}

// InitRegistry loads, links and validates the entity definitions in dir.
func InitRegistry(dir string) (*Registry, error) {
	entities, err := LoadEntitiesFromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load error: %w", err)
	}
	return NewRegistry(entities)
}

// NewRegistry links and validates entities registered explicitly.
func NewRegistry(entities map[string]*Entity) (*Registry, error) {
	for name, e := range entities {
		if e == nil {
			return nil, fmt.Errorf("entity %s is nil", name)
		}
		e.Name = name
	}
	if err := linkEntities(entities); err != nil {
		return nil, fmt.Errorf("link error: %w", err)
	}
	if err := validateEntities(entities); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	return &Registry{entities: entities}, nil
}

func (r *Registry) Get(name string) (*Entity, bool) {
	e, ok := r.entities[name]
	return e, ok
}

// Route finds an API entry model by its URL segment: the entity name or its
// table, compared case-insensitively.
func (r *Registry) Route(segment string) (*Entity, bool) {
	for _, name := range r.Names() {
		e := r.entities[name]
		if !e.Entry {
			continue
		}
		if strings.EqualFold(name, segment) || strings.EqualFold(e.Table, segment) {
			return e, true
		}
	}
	return nil, false
}

// EntryModels returns the entities exposed as top-level resources.
func (r *Registry) EntryModels() []*Entity {
	var out []*Entity
	for _, name := range r.Names() {
		if e := r.entities[name]; e.Entry {
			out = append(out, e)
		}
	}
	return out
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entities))
	for n := range r.entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
