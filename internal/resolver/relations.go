package resolver

import (
	"context"
	"fmt"

	"OutdoorAPI/internal/model"
	"OutdoorAPI/internal/plan"

	"golang.org/x/sync/errgroup"
)

// attach fetches the selected relations of rows, one query per relation,
// and stores them under the relation name: a list for has_many, an object
// or nil otherwise.
func (r *Resolver) attach(ctx context.Context, e *model.Entity, p *plan.Plan, rows []map[string]any) error {
	selected := p.Selected()
	if len(selected) == 0 || len(rows) == 0 {
		return nil
	}

	grouped := make([]map[any][]map[string]any, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, sel := range selected {
		rel := e.GetRelation(sel.Name)
		if rel == nil || rel.Target() == nil {
			return fmt.Errorf("resolver: relation %s.%s not found", e.Name, sel.Name)
		}
		ids := collectKeys(rows, hiddenPrefix+linkColumn(rel))
		if len(ids) == 0 {
			continue
		}
		g.Go(func() error {
			children, err := r.fetch(gctx, rel.Target(), sel.Plan, rel, ids)
			if err != nil {
				return fmt.Errorf("%s: %w", sel.Name, err)
			}
			grouped[i] = groupByParent(children)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, sel := range selected {
		key := hiddenPrefix + linkColumn(e.GetRelation(sel.Name))
		for _, row := range rows {
			children := grouped[i][mapKey(row[key])]
			if sel.Plan.Single {
				if len(children) > 0 {
					row[sel.Name] = children[0]
				} else {
					row[sel.Name] = nil
				}
				continue
			}
			if children == nil {
				children = []map[string]any{}
			}
			row[sel.Name] = children
		}
	}
	return nil
}

// collectKeys returns the distinct non-null values of column key.
func collectKeys(rows []map[string]any, key string) []any {
	seen := make(map[any]struct{}, len(rows))
	ids := make([]any, 0, len(rows))
	for _, row := range rows {
		v := row[key]
		if v == nil {
			continue
		}
		k := mapKey(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		ids = append(ids, v)
	}
	return ids
}

func groupByParent(rows []map[string]any) map[any][]map[string]any {
	out := make(map[any][]map[string]any)
	for _, row := range rows {
		k := mapKey(row[parentKey])
		delete(row, parentKey)
		out[k] = append(out[k], row)
	}
	return out
}

// mapKey makes scanned key values usable as map keys.
func mapKey(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
