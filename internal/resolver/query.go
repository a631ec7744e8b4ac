package resolver

import (
	"fmt"
	"strings"

	"OutdoorAPI/internal/model"
	"OutdoorAPI/internal/plan"
	"OutdoorAPI/internal/request"

	"github.com/Masterminds/squirrel"
)

// selectQuery reads the rows of one plan level. For relation levels rel is
// the relation the rows are reached through and parents holds the parent
// side key values.
type selectQuery struct {
	entity  *model.Entity
	plan    *plan.Plan
	rel     *model.Relation
	parents []any
	where   whereBuilder
}

// parentColumn is the column of the fetched rows that points at the parent.
func (q *selectQuery) parentColumn() string {
	switch {
	case q.rel.ThroughEntity() != nil:
		return linkAlias + "." + q.rel.FK
	case q.rel.Type == model.BelongsTo:
		return mainAlias + "." + q.rel.PK
	}
	return mainAlias + "." + q.rel.FK
}

// linkColumn is the parent side column a relation is joined on.
func linkColumn(rel *model.Relation) string {
	if rel.Type == model.BelongsTo {
		return rel.FK
	}
	return rel.PK
}

func (q *selectQuery) from() string {
	if q.rel != nil && q.rel.ThroughEntity() != nil {
		tfk, tpk := q.rel.ThroughTargetKeys()
		return fmt.Sprintf("%s AS %s JOIN %s AS %s ON %s.%s = %s.%s",
			q.rel.ThroughEntity().Table, linkAlias, q.entity.Table, mainAlias, mainAlias, tpk, linkAlias, tfk)
	}
	return q.entity.Table + " AS " + mainAlias
}

func (q *selectQuery) columns() []string {
	cols := make([]string, 0, len(q.plan.Attributes)+2)
	for _, attr := range q.plan.Attributes {
		if q.rel != nil && q.rel.ThroughEntity() != nil && q.rel.IsThroughField(attr) {
			cols = append(cols, fmt.Sprintf(`%s.%s AS "%s"`, linkAlias, q.rel.ThroughEntity().Column(attr), attr))
			continue
		}
		cols = append(cols, fmt.Sprintf(`%s.%s AS "%s"`, mainAlias, q.entity.Column(attr), attr))
	}
	seen := map[string]bool{}
	for _, sel := range q.plan.Selected() {
		col := linkColumn(q.entity.GetRelation(sel.Name))
		if seen[col] {
			continue
		}
		seen[col] = true
		cols = append(cols, fmt.Sprintf(`%s.%s AS "%s%s"`, mainAlias, col, hiddenPrefix, col))
	}
	if q.rel != nil {
		cols = append(cols, fmt.Sprintf(`%s AS "%s"`, q.parentColumn(), parentKey))
	}
	return cols
}

// conditions are shared by the row and the count query.
func (q *selectQuery) conditions() ([]squirrel.Sqlizer, error) {
	var conds []squirrel.Sqlizer
	if q.rel != nil {
		conds = append(conds, squirrel.Eq{q.parentColumn(): q.parents})
	}
	cond, err := q.where.node(q.entity, mainAlias, q.plan.Filter)
	if err != nil {
		return nil, err
	}
	if cond != nil {
		conds = append(conds, cond)
	}
	for _, r := range q.plan.Relations {
		if r.JoinType != request.JoinInner {
			continue
		}
		rel := q.entity.GetRelation(r.Name)
		if rel == nil || rel.Target() == nil {
			return nil, fmt.Errorf("join on unknown relation %s.%s", q.entity.Name, r.Name)
		}
		exists, err := q.where.exists(q.entity, mainAlias, rel, false, nil)
		if err != nil {
			return nil, err
		}
		conds = append(conds, exists)
	}
	if ft := q.plan.FullText; ft != nil {
		conds = append(conds, squirrel.Expr(
			fmt.Sprintf("%s.%s @@ websearch_to_tsquery(?::regconfig, ?)", mainAlias, q.entity.GetSearchColumn()),
			ft.Language, ft.Query))
	}
	return conds, nil
}

// orderBy ranks full-text matches first, then applies the plan ordering and
// the primary key as tie breaker.
func (q *selectQuery) orderBy() (string, []any) {
	var (
		parts []string
		args  []any
		seen  = map[string]bool{}
	)
	if ft := q.plan.FullText; ft != nil {
		parts = append(parts, fmt.Sprintf("ts_rank(%s.%s, websearch_to_tsquery(?::regconfig, ?)) DESC",
			mainAlias, q.entity.GetSearchColumn()))
		args = append(args, ft.Language, ft.Query)
	}
	for _, o := range q.plan.Order {
		col := q.entity.Column(o.Field)
		seen[col] = true
		parts = append(parts, fmt.Sprintf("%s.%s %s", mainAlias, col, strings.ToUpper(string(o.Direction))))
	}
	for _, pk := range q.entity.GetPrimaryKeys() {
		if !seen[pk] {
			parts = append(parts, fmt.Sprintf("%s.%s ASC", mainAlias, pk))
		}
	}
	return strings.Join(parts, ", "), args
}

func (q *selectQuery) rows() (squirrel.Sqlizer, error) {
	conds, err := q.conditions()
	if err != nil {
		return nil, err
	}
	sb := squirrel.Select(q.columns()...).From(q.from())
	if len(conds) > 0 {
		sb = sb.Where(squirrel.And(conds))
	}
	order, orderArgs := q.orderBy()
	limit, offset := uint64(q.plan.Limit), uint64(q.plan.Offset)

	switch {
	case q.rel != nil && limit > 0:
		// paginate per parent
		sb = sb.Column(squirrel.Expr(
			fmt.Sprintf(`row_number() OVER (PARTITION BY %s ORDER BY %s) AS "%s"`, q.parentColumn(), order, rowNumber),
			orderArgs...))
		return squirrel.Select("*").
			FromSelect(sb, "paged").
			Where(squirrel.Gt{`"` + rowNumber + `"`: offset}).
			Where(squirrel.LtOrEq{`"` + rowNumber + `"`: offset + limit}).
			OrderBy(`"`+parentKey+`"`, `"`+rowNumber+`"`).
			PlaceholderFormat(squirrel.Dollar), nil
	case q.rel != nil:
		sb = sb.OrderByClause(order, orderArgs...)
	case limit > 0:
		sb = sb.OrderByClause(order, orderArgs...).Limit(limit).Offset(offset)
	case q.plan.Single:
		sb = sb.OrderByClause(order, orderArgs...).Limit(1)
	default:
		sb = sb.OrderByClause(order, orderArgs...)
	}
	return sb.PlaceholderFormat(squirrel.Dollar), nil
}

func (q *selectQuery) count() (squirrel.Sqlizer, error) {
	conds, err := q.conditions()
	if err != nil {
		return nil, err
	}
	sb := squirrel.Select("COUNT(*)").From(q.from()).PlaceholderFormat(squirrel.Dollar)
	if len(conds) > 0 {
		sb = sb.Where(squirrel.And(conds))
	}
	return sb, nil
}
