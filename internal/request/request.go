package request

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"OutdoorAPI/internal/apperror"
	"OutdoorAPI/internal/filter"
	"OutdoorAPI/internal/model"

	"github.com/hashicorp/go-multierror"
)

// DefaultLanguage is the text search configuration used when q is given
// without a language.
const DefaultLanguage = "simple"

// Request is one entity level of a parsed client request. Requests for
// relations are children of the request that addressed them.
type Request struct {
	entity   *model.Entity
	api      *model.APIConfig
	enc      Encoding
	body     any
	single   bool
	depth    int
	parent   *model.Entity
	relation *model.Relation

	verified  bool
	errors    []ValidationError
	params    Params
	filters   []*FilterNode
	compiled  *filter.Node
	selected  []string
	children  map[string]*Request
	joinTypes map[string]JoinType

	// collected while reading the body
	raw     rawParams
	relBody map[string]any
}

type rawParams struct {
	limit, offset   *Parameter
	order           *Parameter
	fields          *Parameter
	query, language *Parameter
	// relations addressed by keys, and selected by fields or defaults
	addressed []string
	selected  []string
}

// RequestOption configures a top level request.
type RequestOption func(*Request)

// Single marks a request for one instance: no pagination, referrer single.
func Single() RequestOption {
	return func(r *Request) { r.single = true }
}

// New creates a request for entity configured by api. body is what the
// encoding reads: map[string][]string for Query, map[string]any for JSON.
func New(entity *model.Entity, api *model.APIConfig, enc Encoding, body any, opts ...RequestOption) *Request {
	r := &Request{entity: entity, api: api, enc: enc, body: body}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ForEntity resolves the configuration for a top level request and creates
// it. Single requests resolve "single" before "standard", lists "list".
func ForEntity(entity *model.Entity, enc Encoding, body any, opts ...RequestOption) *Request {
	r := New(entity, nil, enc, body, opts...)
	referrer := model.ReferrerList
	if r.single {
		referrer = model.ReferrerSingle
	}
	r.api = entity.ResolveAPI(referrer)
	return r
}

func (r *Request) newChild(name string, rel *model.Relation, body any) *Request {
	target := rel.Target()
	return &Request{
		entity:   target,
		api:      target.ResolveAPI(model.RelationReferrer(r.entity.Name, name)),
		enc:      r.enc,
		body:     body,
		single:   rel.Type != model.HasMany,
		depth:    r.depth + 1,
		parent:   r.entity,
		relation: rel,
	}
}

// Verify reads the whole body and records every problem found in Errors.
// The returned error is reserved for configuration faults; client mistakes
// never abort verification.
func (r *Request) Verify(ctx context.Context) error {
	if r.verified {
		return nil
	}
	r.verified = true
	if r.api == nil {
		return apperror.NewConfiguration(fmt.Errorf("entity %s has no standard api configuration", r.entity.Name))
	}
	r.joinTypes = map[string]JoinType{}
	r.children = map[string]*Request{}
	r.relBody = map[string]any{}

	entries, err := r.enc.Entries(r.body)
	if err != nil {
		r.fail("", err)
	}
	for _, e := range entries {
		r.read(Normalize(r.enc, e.Key, e.Value, r.relation != nil, ""))
	}

	if err := r.verifyPagination(); err != nil {
		return err
	}
	r.verifyOrdering()
	r.verifyFields()
	r.verifyFullText()
	r.compileFilters()

	return r.verifyChildren(ctx)
}

func (r *Request) read(p Parameter) {
	class, name := r.classify(p)
	switch class {
	case ClassPagination:
		if name == KeyLimit {
			r.raw.limit = &p
		} else {
			r.raw.offset = &p
		}
	case ClassOrdering:
		r.raw.order = &p
	case ClassFields:
		r.raw.fields = &p
	case ClassFullText:
		r.raw.query = &p
	case ClassLanguage:
		r.raw.language = &p
	case ClassFilters:
		nodes, errs := r.enc.Filters(p.RawValue, p.Trace)
		r.filters = append(r.filters, nodes...)
		r.errors = append(r.errors, errs...)
	case ClassRelation:
		r.addressRelation(name, p)
	case ClassFilter:
		r.readFilter(name, p)
	default:
		r.addError(p.Trace, "unknown parameter")
	}
}

// readFilter expands a top level filter key into one leaf per value.
func (r *Request) readFilter(name string, p Parameter) {
	values, err := r.enc.FilterValues(p.RawValue)
	if err != nil {
		r.fail(p.Trace, err)
		return
	}
	for _, v := range values {
		leaf := p
		leaf.RawKey = name
		leaf.NormalizedKey = name
		leaf.RawValue = v
		r.filters = append(r.filters, filter.LeafOf(leaf))
	}
}

func (r *Request) addressRelation(name string, p Parameter) {
	body, ok := r.relBody[name]
	if !ok {
		body = r.enc.EmptyBody()
		r.raw.addressed = append(r.raw.addressed, name)
	}
	sub, err := r.enc.Sub(body, p)
	if err != nil {
		r.fail(p.Trace, err)
	}
	r.relBody[name] = sub
}

func (r *Request) verifyPagination() error {
	paginated := !r.single
	if paginated && r.api.Pagination == nil {
		return apperror.NewConfiguration(fmt.Errorf("%s (%s): pagination is not configured", r.entity.Name, r.api.Referrer()))
	}
	if !paginated || r.api.Pagination.Disabled {
		for _, p := range []*Parameter{r.raw.limit, r.raw.offset} {
			if p != nil {
				r.addError(p.Trace, "pagination is not supported here")
			}
		}
		return nil
	}

	pg := r.api.Pagination
	if pg.DefaultLimit <= 0 {
		return apperror.NewConfiguration(fmt.Errorf("%s (%s): default pagination limit is missing", r.entity.Name, r.api.Referrer()))
	}
	r.params.Limit = pg.DefaultLimit
	if p := r.raw.limit; p != nil {
		n, err := r.enc.Integer(p.RawValue)
		switch {
		case err != nil:
			r.fail(p.Trace, err)
		case n < 1 || n > pg.MaxLimit:
			r.addError(p.Trace, "limit must be between 1 and %d", pg.MaxLimit)
		default:
			r.params.Limit = n
		}
	}
	if p := r.raw.offset; p != nil {
		n, err := r.enc.Integer(p.RawValue)
		switch {
		case err != nil:
			r.fail(p.Trace, err)
		case n < 0:
			r.addError(p.Trace, "offset must not be negative")
		default:
			r.params.Offset = n
		}
	}
	return nil
}

func (r *Request) verifyOrdering() {
	p := r.raw.order
	if p == nil {
		r.params.Order = append([]model.OrderBy(nil), r.api.Ordering.Default...)
		return
	}
	order, err := r.enc.Ordering(p.RawValue)
	if err != nil {
		r.fail(p.Trace, err)
		return
	}
	seen := map[string]bool{}
	for _, o := range order {
		switch {
		case !r.api.IsValidOrderField(o.Field):
			r.addError(p.Trace, "invalid order field %q", o.Field)
		case seen[o.Field]:
			r.addError(p.Trace, "duplicate order field %q", o.Field)
		default:
			seen[o.Field] = true
			r.params.Order = append(r.params.Order, o)
		}
	}
}

func (r *Request) verifyFields() {
	p := r.raw.fields
	if p == nil {
		fields := r.api.DefaultFields
		if len(fields) == 0 {
			fields = r.api.Fields
		}
		r.params.Fields = append([]string(nil), fields...)
		r.raw.selected = append(r.raw.selected, r.api.DefaultRelations...)
		r.selected = uniqueStrings(r.params.Fields)
		return
	}
	fields, err := r.enc.Fields(p.RawValue)
	if err != nil {
		r.fail(p.Trace, err)
		return
	}
	var selected []string
	for _, f := range fields {
		switch {
		case f == AllFields:
			all := r.api.FullFields
			if len(all) == 0 {
				all = r.api.Fields
			}
			selected = append(selected, all...)
		case r.api.IsValidField(f):
			selected = append(selected, f)
		case r.entity.GetRelation(f) != nil:
			r.raw.selected = append(r.raw.selected, f)
		default:
			r.addError(p.Trace, "invalid field %q", f)
			continue
		}
		r.params.Fields = append(r.params.Fields, f)
	}
	r.selected = uniqueStrings(selected)
}

func (r *Request) verifyFullText() {
	q, lang := r.raw.query, r.raw.language
	if (q != nil || lang != nil) && !r.api.FullTextSearch {
		for _, p := range []*Parameter{q, lang} {
			if p != nil {
				r.addError(p.Trace, "full-text search is not supported here")
			}
		}
		return
	}
	if q != nil {
		s, err := r.enc.Scalar(q.RawValue)
		switch {
		case err != nil:
			r.fail(q.Trace, err)
		case strings.TrimSpace(s) == "":
			r.addError(q.Trace, "full-text query must not be empty")
		default:
			r.params.Query = strings.TrimSpace(s)
			r.params.Language = DefaultLanguage
		}
	}
	if lang != nil {
		s, err := r.enc.Scalar(lang.RawValue)
		if err != nil {
			r.fail(lang.Trace, err)
			return
		}
		config, ok := r.api.Languages[strings.ToLower(s)]
		if !ok {
			r.addError(lang.Trace, "unsupported language %q, expected one of %s", s, strings.Join(sortedKeys(r.api.Languages), ", "))
			return
		}
		if r.params.Query != "" {
			r.params.Language = config
		}
	}
}

func (r *Request) addError(trace, format string, args ...any) {
	r.errors = append(r.errors, newError(trace, format, args...))
}

func (r *Request) fail(trace string, err error) {
	r.errors = append(r.errors, ValidationError{Trace: trace, Message: err.Error()})
}

// Entity is the entity this request reads.
func (r *Request) Entity() *model.Entity { return r.entity }

// API is the configuration the request was verified against.
func (r *Request) API() *model.APIConfig { return r.api }

// Encoding is the encoding the body is read with.
func (r *Request) Encoding() Encoding { return r.enc }

// Relation is the relation a child request was created for, nil at the top.
func (r *Request) Relation() *model.Relation { return r.relation }

// IsSingle reports whether the request reads at most one row per parent.
func (r *Request) IsSingle() bool { return r.single }

// Errors returns every validation error of this request and its children.
func (r *Request) Errors() []ValidationError { return r.errors }

// Err combines Errors into one error, nil when there are none.
func (r *Request) Err() error {
	var result *multierror.Error
	for _, e := range r.errors {
		result = multierror.Append(result, e)
	}
	return result.ErrorOrNil()
}

// SelectedFields are the attributes to read, sorted and without duplicates.
func (r *Request) SelectedFields() []string { return r.selected }

// Filters returns the request filters before compilation.
func (r *Request) Filters() []*FilterNode { return r.filters }

// Compiled returns the compiled filter tree, nil when nothing filters.
func (r *Request) Compiled() *filter.Node { return r.compiled }

func (r *Request) Params() Params { return r.params }

// Children returns the relation requests keyed by relation name.
func (r *Request) Children() map[string]*Request { return r.children }

// JoinTypes returns the join type of every relation the request uses.
func (r *Request) JoinTypes() map[string]JoinType { return r.joinTypes }

// ValidationErrors extracts validation errors from an error built by Err.
func ValidationErrors(err error) []ValidationError {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return nil
	}
	out := make([]ValidationError, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		var ve ValidationError
		if errors.As(e, &ve) {
			out = append(out, ve)
		}
	}
	return out
}
