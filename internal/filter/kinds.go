package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func compileUUID(c *compiler, v string) (*Node, error) {
	if node, ok, err := c.nullity(v); ok {
		return node, err
	}
	if op, items, ok, err := c.inList(v); ok {
		if err != nil {
			return nil, err
		}
		for i, item := range items {
			id, err := uuid.Parse(item)
			if err != nil {
				return nil, errors.New("invalid uuid list")
			}
			items[i] = id.String()
		}
		return c.list(op, items), nil
	}
	if err := c.require(OperatorEquals); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("invalid uuid %q", v)
	}
	return c.leaf(OpEquals, id.String()), nil
}

// textPrefixes is checked in order; $in:/$nin: are handled before these so
// that "$" (ends with) never shadows them.
var textPrefixes = []struct {
	prefix   string
	operator Operator
}{
	{"~", OperatorContains},
	{"^", OperatorStartsWith},
	{"$", OperatorEndsWith},
	{bang, OperatorNotEquals},
}

func compileText(c *compiler, v string) (*Node, error) {
	if v == "" {
		if err := c.require(OperatorNull); err != nil {
			return nil, err
		}
		return c.leaf(OpIsNull, nil), nil
	}
	if op, items, ok, err := c.inList(v); ok {
		if err != nil {
			return nil, err
		}
		for i := range items {
			items[i] = c.fold(items[i])
		}
		node := c.list(op, items)
		node.Leaf.CaseInsensitive = c.opt.CaseInsensitive
		return node, nil
	}

	operator, rest := OperatorEquals, v
	for _, p := range textPrefixes {
		if strings.HasPrefix(v, p.prefix) {
			operator, rest = p.operator, v[len(p.prefix):]
			break
		}
	}
	if err := c.require(operator); err != nil {
		return nil, err
	}
	rest = c.fold(rest)

	var node *Node
	switch operator {
	case OperatorContains:
		node = c.leaf(OpLike, "%"+escapeLike(rest)+"%")
	case OperatorStartsWith:
		node = c.leaf(OpLike, escapeLike(rest)+"%")
	case OperatorEndsWith:
		node = c.leaf(OpLike, "%"+escapeLike(rest))
	case OperatorNotEquals:
		node = c.leaf(OpNotEquals, rest)
	default:
		node = c.leaf(OpEquals, rest)
	}
	node.Leaf.CaseInsensitive = c.opt.CaseInsensitive
	return node, nil
}

func (c *compiler) fold(s string) string {
	if !c.opt.CaseInsensitive {
		return s
	}
	// simple lowercasing matches LOWER() on the column side; full folding
	// would turn ß into ss and never match
	return cases.Lower(language.Und).String(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Longest prefixes first.
var numberPrefixes = []struct {
	prefix   string
	operator Operator
	op       Op
}{
	{"$gte:", OperatorGte, OpGreaterThanOrEqual},
	{"$lte:", OperatorLte, OpLessThanOrEqual},
	{"$gt:", OperatorGt, OpGreaterThan},
	{"$lt:", OperatorLt, OpLessThan},
}

func compileNumber(c *compiler, v string) (*Node, error) {
	if node, ok, err := c.nullity(v); ok {
		return node, err
	}
	operator, op, rest := OperatorEquals, OpEquals, v
	for _, p := range numberPrefixes {
		if strings.HasPrefix(v, p.prefix) {
			operator, op, rest = p.operator, p.op, v[len(p.prefix):]
			break
		}
	}
	if err := c.require(operator); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(strings.TrimSpace(rest))
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", rest)
	}
	return c.leaf(op, d), nil
}

func compileBoolean(c *compiler, v string) (*Node, error) {
	if node, ok, err := c.nullity(v); ok {
		return node, err
	}
	switch v {
	case "true", "false":
	default:
		return nil, fmt.Errorf(`expected "true" or "false", got %q`, v)
	}
	if err := c.require(OperatorEquals); err != nil {
		return nil, err
	}
	if v == "true" {
		return c.leaf(OpEquals, true), nil
	}
	// unset counts as false
	return OrOf(c.leaf(OpEquals, false), c.leaf(OpIsNull, nil)), nil
}

// DateFormat is the normalized form compiled date values are rendered in.
const DateFormat = "2006-01-02T15:04:05.000Z"

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate parses an ISO-8601 date or date-time. Values without a zone are
// taken as UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO-8601 date %q", s)
}

func formatDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(DateFormat), nil
}

var datePrefixes = []struct {
	prefix   string
	operator Operator
	op       Op
}{
	{"$between:", OperatorBetween, OpBetween},
	{"$before:", OperatorBefore, OpLessThan},
	{"$after:", OperatorAfter, OpGreaterThan},
}

func compileDate(c *compiler, v string) (*Node, error) {
	switch v {
	case "":
		if err := c.require(OperatorNull); err != nil {
			return nil, err
		}
		if c.opt.TextStorage {
			return OrOf(c.leaf(OpIsNull, nil), c.leaf(OpEquals, "")), nil
		}
		return c.leaf(OpIsNull, nil), nil
	case bang:
		if err := c.require(OperatorNotNull); err != nil {
			return nil, err
		}
		if c.opt.TextStorage {
			return AndOf(c.leaf(OpIsNotNull, nil), c.leaf(OpNotEquals, "")), nil
		}
		return c.leaf(OpIsNotNull, nil), nil
	}

	operator, op, rest := OperatorEquals, OpEquals, v
	for _, p := range datePrefixes {
		if strings.HasPrefix(v, p.prefix) {
			operator, op, rest = p.operator, p.op, v[len(p.prefix):]
			break
		}
	}
	if err := c.require(operator); err != nil {
		return nil, err
	}

	if op == OpBetween {
		parts := strings.Split(rest, "|")
		if len(parts) != 2 {
			return nil, errors.New(`$between expects two dates separated by "|"`)
		}
		from, err := formatDate(parts[0])
		if err != nil {
			return nil, err
		}
		to, err := formatDate(parts[1])
		if err != nil {
			return nil, err
		}
		// bounds are kept in the order given
		return LeafOf(Operation{Op: OpBetween, Attribute: c.attribute, Values: []any{from, to}}), nil
	}

	d, err := formatDate(rest)
	if err != nil {
		return nil, err
	}
	return c.leaf(op, d), nil
}

func compileGeoJSON(c *compiler, v string) (*Node, error) {
	if node, ok, err := c.nullity(v); ok {
		return node, err
	}
	return nil, errors.New(`only "" (null) and "!" (not null) are supported for geojson filters`)
}
