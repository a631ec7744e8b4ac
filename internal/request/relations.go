package request

import (
	"context"
	"fmt"
	"sort"

	"OutdoorAPI/internal/apperror"

	"golang.org/x/sync/errgroup"
)

// verifyChildren creates a request for every relation the client addressed
// or selected and verifies them concurrently. Child errors are merged with
// the relation name prepended to their trace.
func (r *Request) verifyChildren(ctx context.Context) error {
	explicit := map[string]bool{}
	for _, name := range r.raw.addressed {
		explicit[name] = true
	}
	if r.raw.fields != nil {
		for _, name := range r.raw.selected {
			explicit[name] = true
		}
	}
	names := uniqueStrings(append(append([]string(nil), r.raw.addressed...), r.raw.selected...))

	if r.depth >= MaxDepth {
		for _, name := range names {
			if explicit[name] {
				r.addError(name, "relations nested deeper than %d levels are not supported", MaxDepth)
			}
		}
		return nil
	}

	for _, name := range names {
		rel := r.entity.GetRelation(name)
		if rel == nil || rel.Target() == nil {
			return apperror.NewConfiguration(fmt.Errorf("%s: relation %s is not linked", r.entity.Name, name))
		}
		body, ok := r.relBody[name]
		if !ok {
			body = r.enc.EmptyBody()
		}
		r.children[name] = r.newChild(name, rel, body)
		if _, ok := r.joinTypes[name]; !ok {
			r.joinTypes[name] = JoinLeft
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, child := range r.children {
		g.Go(func() error {
			if err := child.Verify(gctx); err != nil {
				return fmt.Errorf("%s.%s: %w", r.entity.Name, name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, name := range names {
		for _, e := range r.children[name].errors {
			e.Trace = joinTrace(name, e.Trace)
			r.errors = append(r.errors, e)
		}
	}
	return nil
}

// uniqueStrings returns the sorted distinct values of list.
func uniqueStrings(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
