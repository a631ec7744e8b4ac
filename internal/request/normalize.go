package request

import (
	"strings"

	"OutdoorAPI/internal/filter"
)

// Parameter is the normalized form of one raw input entry.
type Parameter struct {
	RawKey           string
	RawValue         any
	DotPath          []string
	NormalizedKey    string
	FirstPathSegment string
	Trace            string
	// Self is set when the key carried the self marker and must be read as
	// one of the relation's own attributes.
	Self bool
}

// FilterNode is a filter tree over request parameters, before compilation.
type FilterNode = filter.Tree[Parameter]

// Class is what a parameter is used for.
type Class int

const (
	ClassUnknown Class = iota
	ClassPagination
	ClassOrdering
	ClassFields
	ClassFullText
	ClassLanguage
	ClassFilters
	ClassRelation
	ClassFilter
)

func (c Class) String() string {
	switch c {
	case ClassPagination:
		return "pagination"
	case ClassOrdering:
		return "ordering"
	case ClassFields:
		return "fields"
	case ClassFullText:
		return "fullText"
	case ClassLanguage:
		return "language"
	case ClassFilters:
		return "filters"
	case ClassRelation:
		return "relation"
	case ClassFilter:
		return "filter"
	}
	return "unknown"
}

var reservedClasses = map[string]Class{
	KeyLimit:    ClassPagination,
	KeyOffset:   ClassPagination,
	KeyOrder:    ClassOrdering,
	KeyFields:   ClassFields,
	KeyQuery:    ClassFullText,
	KeyLanguage: ClassLanguage,
	KeyFilters:  ClassFilters,
}

// Normalize builds the Parameter for one raw entry. inRelation enables the
// encoding's self marker.
func Normalize(enc Encoding, rawKey string, rawValue any, inRelation bool, tracePrefix string) Parameter {
	key := rawKey
	self := false
	if marker := enc.SelfPrefix(); inRelation && marker != "" && len(key) > len(marker) &&
		strings.EqualFold(key[:len(marker)], marker) {
		key = key[len(marker):]
		self = true
	}
	normalized := enc.NormalizeKey(key)
	path := enc.Path(normalized)
	first := ""
	if len(path) > 0 {
		first = path[0]
	}
	return Parameter{
		RawKey:           rawKey,
		RawValue:         rawValue,
		DotPath:          path,
		NormalizedKey:    normalized,
		FirstPathSegment: first,
		Trace:            joinTrace(tracePrefix, rawKey),
		Self:             self,
	}
}

// classify decides the class of p in the context of r. For filters and
// relations it also returns the declared name p matched.
func (r *Request) classify(p Parameter) (Class, string) {
	if c, ok := reservedClasses[p.NormalizedKey]; ok {
		return c, p.NormalizedKey
	}
	if r.enc.Nested(p.RawValue) {
		if rel, ok := r.matchRelation(p.FirstPathSegment); ok {
			return ClassRelation, rel
		}
	}
	if !p.Self && len(p.DotPath) > 1 {
		if rel, ok := r.matchRelation(p.FirstPathSegment); ok {
			return ClassRelation, rel
		}
	}
	if name, ok := r.matchFilter(p.NormalizedKey); ok {
		return ClassFilter, name
	}
	if !p.Self && len(p.DotPath) == 1 {
		if rel, ok := r.matchRelation(p.FirstPathSegment); ok {
			return ClassRelation, rel
		}
	}
	return ClassUnknown, ""
}

// matchFilter finds the declared filter whose normalized name is key.
func (r *Request) matchFilter(key string) (string, bool) {
	if _, ok := r.api.Filters[key]; ok && r.enc.NormalizeKey(key) == key {
		return key, true
	}
	for name := range r.api.Filters {
		if r.enc.NormalizeKey(name) == key {
			return name, true
		}
	}
	return "", false
}

func (r *Request) matchRelation(segment string) (string, bool) {
	if rel := r.entity.GetRelation(segment); rel != nil && r.enc.NormalizeKey(segment) == segment {
		return segment, true
	}
	for name := range r.entity.Relations {
		if r.enc.NormalizeKey(name) == segment {
			return name, true
		}
	}
	return "", false
}
