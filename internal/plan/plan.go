// Package plan holds the compiled, storage independent description of a
// read: what to select, filter, join, order and paginate.
package plan

import (
	"errors"
	"fmt"
	"sort"

	"OutdoorAPI/internal/filter"
	"OutdoorAPI/internal/model"
	"OutdoorAPI/internal/request"
)

// ErrUnverified is returned when building from a request that was not
// verified.
var ErrUnverified = errors.New("request was not verified")

// Plan is the compiled form of one entity level of a request.
type Plan struct {
	Entity   string
	Referrer string
	// Single plans read at most one row (per parent for relations).
	Single     bool
	Limit      int
	Offset     int
	Order      []model.OrderBy
	Attributes []string
	// Filter has an And root, nil when nothing filters.
	Filter    *filter.Node
	Relations []Relation
	FullText  *FullText
}

// Relation is a join of the plan. Plan is nil when the relation only
// constrains the parent rows.
type Relation struct {
	Name     string
	JoinType request.JoinType
	Plan     *Plan
}

// FullText is the text search clause: rows must match Query and are ranked
// by it.
type FullText struct {
	Query    string
	Language string
}

// Build compiles a verified request. Requests with validation errors are
// rejected as a whole.
func Build(req *request.Request) (*Plan, error) {
	if req.Children() == nil {
		return nil, ErrUnverified
	}
	if err := req.Err(); err != nil {
		return nil, fmt.Errorf("request is invalid: %w", err)
	}
	return build(req)
}

func build(req *request.Request) (*Plan, error) {
	params := req.Params()
	p := &Plan{
		Entity:     req.Entity().Name,
		Referrer:   req.API().Referrer(),
		Single:     req.IsSingle(),
		Limit:      params.Limit,
		Offset:     params.Offset,
		Order:      append([]model.OrderBy(nil), params.Order...),
		Attributes: append([]string(nil), req.SelectedFields()...),
		Filter:     req.Compiled(),
	}
	if params.Query != "" {
		p.FullText = &FullText{Query: params.Query, Language: params.Language}
	}

	joins := req.JoinTypes()
	names := make([]string, 0, len(joins))
	for name := range joins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rel := Relation{Name: name, JoinType: joins[name]}
		if child, ok := req.Children()[name]; ok {
			sub, err := build(child)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			rel.Plan = sub
		}
		p.Relations = append(p.Relations, rel)
	}
	return p, nil
}

// Where adds op to the plan's filter, ANDed with what is there. The
// request's compiled tree is left untouched.
func (p *Plan) Where(op filter.Operation) {
	children := []*filter.Node{}
	if p.Filter != nil {
		children = append(children, p.Filter.Children...)
	}
	p.Filter = filter.AndOf(append(children, filter.LeafOf(op))...)
}

// Relation returns the relation entry for name, nil when absent.
func (p *Plan) Relation(name string) *Relation {
	for i := range p.Relations {
		if p.Relations[i].Name == name {
			return &p.Relations[i]
		}
	}
	return nil
}

// Selected lists the relations that produce output, skipping join-only
// entries.
func (p *Plan) Selected() []Relation {
	var out []Relation
	for _, r := range p.Relations {
		if r.Plan != nil {
			out = append(out, r)
		}
	}
	return out
}
