package resolver

import (
	"fmt"
	"strings"

	"OutdoorAPI/internal/filter"
	"OutdoorAPI/internal/model"

	"github.com/Masterminds/squirrel"
)

// whereBuilder compiles filter trees into squirrel conditions. Sub-selects
// get their own aliases, numbered per query.
type whereBuilder struct {
	aliases int
}

func (w *whereBuilder) nextAlias() string {
	w.aliases++
	return fmt.Sprintf("r%d", w.aliases)
}

// node compiles t for rows of e aliased as alias.
func (w *whereBuilder) node(e *model.Entity, alias string, t *filter.Node) (squirrel.Sqlizer, error) {
	if t == nil {
		return nil, nil
	}
	if t.IsLeaf() {
		return w.leaf(e, alias, t.Leaf)
	}
	parts := make([]squirrel.Sqlizer, 0, len(t.Children))
	for _, c := range t.Children {
		cond, err := w.node(e, alias, c)
		if err != nil {
			return nil, err
		}
		if cond != nil {
			parts = append(parts, cond)
		}
	}
	switch {
	case len(parts) == 0:
		return nil, nil
	case t.Combinator == filter.Or:
		return squirrel.Or(parts), nil
	}
	return squirrel.And(parts), nil
}

func (w *whereBuilder) leaf(e *model.Entity, alias string, op filter.Operation) (squirrel.Sqlizer, error) {
	if relName, attr, ok := strings.Cut(op.Attribute, "."); ok {
		rel := e.GetRelation(relName)
		if rel == nil || rel.Target() == nil {
			return nil, fmt.Errorf("filter on unknown relation %s.%s", e.Name, relName)
		}
		if op.Op == filter.OpIsNull {
			return w.exists(e, alias, rel, true, nil)
		}
		sub := op
		sub.Attribute = attr
		return w.exists(e, alias, rel, false, &sub)
	}

	col := alias + "." + e.Column(op.Attribute)
	if op.CaseInsensitive {
		col = "LOWER(" + col + ")"
	}
	switch op.Op {
	case filter.OpEquals:
		return squirrel.Eq{col: op.Value}, nil
	case filter.OpNotEquals:
		return squirrel.NotEq{col: op.Value}, nil
	case filter.OpLike:
		return squirrel.Like{col: op.Value}, nil
	case filter.OpBetween:
		if len(op.Values) != 2 {
			return nil, fmt.Errorf("between on %s needs two values", op.Attribute)
		}
		return squirrel.Expr(col+" BETWEEN ? AND ?", op.Values[0], op.Values[1]), nil
	case filter.OpIn:
		return squirrel.Eq{col: op.Values}, nil
	case filter.OpNotIn:
		return squirrel.NotEq{col: op.Values}, nil
	case filter.OpIsNull:
		return squirrel.Eq{col: nil}, nil
	case filter.OpIsNotNull:
		return squirrel.NotEq{col: nil}, nil
	case filter.OpGreaterThan:
		return squirrel.Gt{col: op.Value}, nil
	case filter.OpGreaterThanOrEqual:
		return squirrel.GtOrEq{col: op.Value}, nil
	case filter.OpLessThan:
		return squirrel.Lt{col: op.Value}, nil
	case filter.OpLessThanOrEqual:
		return squirrel.LtOrEq{col: op.Value}, nil
	case filter.OpRaw:
		return squirrel.Expr(op.Expr, op.Values...), nil
	}
	return nil, fmt.Errorf("unsupported filter operation %q", op.Op)
}

// exists renders [NOT] EXISTS over the rows of rel linked to the parent row
// alias, optionally narrowed by op on the related entity.
func (w *whereBuilder) exists(e *model.Entity, alias string, rel *model.Relation, negate bool, op *filter.Operation) (squirrel.Sqlizer, error) {
	target := rel.Target()
	sub := w.nextAlias()

	sb := squirrel.Select("1")
	switch {
	case rel.ThroughEntity() != nil:
		tfk, tpk := rel.ThroughTargetKeys()
		link := sub + "_" + linkAlias
		sb = sb.From(fmt.Sprintf("%s AS %s", rel.ThroughEntity().Table, link)).
			Join(fmt.Sprintf("%s AS %s ON %s.%s = %s.%s", target.Table, sub, sub, tpk, link, tfk)).
			Where(fmt.Sprintf("%s.%s = %s.%s", link, rel.FK, alias, rel.PK))
	case rel.Type == model.BelongsTo:
		sb = sb.From(fmt.Sprintf("%s AS %s", target.Table, sub)).
			Where(fmt.Sprintf("%s.%s = %s.%s", sub, rel.PK, alias, rel.FK))
	default:
		sb = sb.From(fmt.Sprintf("%s AS %s", target.Table, sub)).
			Where(fmt.Sprintf("%s.%s = %s.%s", sub, rel.FK, alias, rel.PK))
	}
	if op != nil {
		cond, err := w.leaf(target, sub, *op)
		if err != nil {
			return nil, err
		}
		sb = sb.Where(cond)
	}

	sql, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	keyword := "EXISTS"
	if negate {
		keyword = "NOT EXISTS"
	}
	return squirrel.Expr(keyword+" ("+sql+")", args...), nil
}
