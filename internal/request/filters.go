package request

import (
	"OutdoorAPI/internal/filter"
)

// compileFilters compiles every request filter, ANDed at the root. Leaves
// that fail are reported and dropped.
func (r *Request) compileFilters() {
	if len(r.filters) == 0 {
		return
	}
	r.compiled = filter.Map(filter.AndOf(r.filters...), r.compileLeaf)
}

func (r *Request) compileLeaf(p Parameter) *filter.Node {
	name, ok := r.matchFilter(r.enc.NormalizeKey(p.RawKey))
	if !ok {
		r.addError(p.Trace, "unknown filter %q", p.RawKey)
		return nil
	}
	opt := r.api.Filters[name]

	var values [][]string
	if expanded, ok := p.RawValue.([]string); ok {
		// already split by readFilter
		values = [][]string{expanded}
	} else {
		var err error
		if values, err = r.enc.FilterValues(p.RawValue); err != nil {
			r.fail(p.Trace, err)
			return nil
		}
	}

	var nodes []*filter.Node
	for _, vals := range values {
		res, err := filter.Compile(opt, r.filterAttribute(name, opt), vals)
		if err != nil {
			r.fail(p.Trace, err)
			continue
		}
		if res.RequireRelation != "" {
			r.joinTypes[res.RequireRelation] = JoinInner
		}
		if res.Node != nil {
			nodes = append(nodes, res.Node)
		}
	}
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	}
	return filter.AndOf(nodes...)
}

// filterAttribute is the attribute operations of filter name apply to. For
// relation existence it is the related entity's key, qualified by the
// relation name.
func (r *Request) filterAttribute(name string, opt filter.Option) string {
	if opt.Kind != filter.KindRelationExistence {
		if opt.Attribute != "" {
			return opt.Attribute
		}
		return name
	}
	attr := opt.Attribute
	if attr == "" {
		attr = "id"
		if rel := r.entity.GetRelation(opt.Relation); rel != nil && rel.Target() != nil {
			target := rel.Target()
			attr = target.Attribute(target.GetPrimaryKeys()[0])
		}
	}
	return opt.Relation + "." + attr
}
