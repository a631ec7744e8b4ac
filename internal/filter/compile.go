package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MaxListValues caps the number of literals in a $in / $nin list.
const MaxListValues = 20

const (
	prefixIn  = "$in:"
	prefixNin = "$nin:"
	bang      = "!"
)

// Result is the outcome of compiling one filter value.
type Result struct {
	// Node is nil when the value only constrains joins.
	Node *Node
	// RequireRelation is set by a relationExistence filter asking for rows
	// where the relation exists.
	RequireRelation string
}

type compileFunc func(c *compiler, v string) (*Node, error)

// Each kind owns its grammar. Completeness is checked by the tests.
var compilers = map[Kind]compileFunc{
	KindUUID:    compileUUID,
	KindText:    compileText,
	KindNumber:  compileNumber,
	KindBoolean: compileBoolean,
	KindDate:    compileDate,
	KindGeoJSON: compileGeoJSON,
}

type compiler struct {
	opt       Option
	attribute string
}

// Compile turns the raw values supplied for one filter key into operations.
// values holds a single scalar unless the client sent a list. Compile either
// returns a result or an error, never both.
func Compile(opt Option, attribute string, values []string) (Result, error) {
	if len(values) != 1 {
		if len(values) == 0 {
			return Result{}, errors.New("missing value")
		}
		return Result{}, fmt.Errorf("expected a single value, got %d", len(values))
	}
	v := values[0]
	c := &compiler{opt: opt, attribute: attribute}

	if opt.Kind == KindRelationExistence {
		return c.compileExistence(v)
	}

	fn, ok := compilers[opt.Kind]
	if !ok {
		return Result{}, fmt.Errorf("unsupported filter kind %q", opt.Kind)
	}
	node, err := fn(c, v)
	if err != nil {
		return Result{}, err
	}
	return Result{Node: node}, nil
}

func (c *compiler) require(op Operator) error {
	if !c.opt.Allows(op) {
		return fmt.Errorf("operator %q is not allowed for this filter", op)
	}
	return nil
}

func (c *compiler) leaf(op Op, value any) *Node {
	return LeafOf(Operation{Op: op, Attribute: c.attribute, Value: value})
}

func (c *compiler) list(op Op, values []string) *Node {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return LeafOf(Operation{Op: op, Attribute: c.attribute, Values: vals})
}

// nullity handles the shared "" and "!" conventions. ok is false when v is
// neither.
func (c *compiler) nullity(v string) (node *Node, ok bool, err error) {
	switch v {
	case "":
		if err := c.require(OperatorNull); err != nil {
			return nil, true, err
		}
		return c.leaf(OpIsNull, nil), true, nil
	case bang:
		if err := c.require(OperatorNotNull); err != nil {
			return nil, true, err
		}
		return c.leaf(OpIsNotNull, nil), true, nil
	}
	return nil, false, nil
}

// inList parses $in:/$nin: values. ok is false when v carries neither prefix.
func (c *compiler) inList(v string) (op Op, items []string, ok bool, err error) {
	var rest string
	switch {
	case strings.HasPrefix(v, prefixNin):
		op, rest = OpNotIn, v[len(prefixNin):]
		if err := c.require(OperatorNotIn); err != nil {
			return "", nil, true, err
		}
	case strings.HasPrefix(v, prefixIn):
		op, rest = OpIn, v[len(prefixIn):]
		if err := c.require(OperatorIn); err != nil {
			return "", nil, true, err
		}
	default:
		return "", nil, false, nil
	}
	items, err = parseList(rest)
	if err != nil {
		return "", nil, true, err
	}
	return op, items, true, nil
}

// parseList reads `"a","b"` as a JSON array of strings.
func parseList(rest string) ([]string, error) {
	var items []string
	if err := json.Unmarshal([]byte("["+rest+"]"), &items); err != nil {
		return nil, errors.New(`invalid list, expected "value1","value2",...`)
	}
	if len(items) == 0 {
		return nil, errors.New("empty list")
	}
	if len(items) > MaxListValues {
		return nil, fmt.Errorf("too many values in list (max %d)", MaxListValues)
	}
	return items, nil
}

func (c *compiler) compileExistence(v string) (Result, error) {
	switch v {
	case "":
		if err := c.require(OperatorExists); err != nil {
			return Result{}, err
		}
		return Result{RequireRelation: c.opt.Relation}, nil
	case bang:
		if err := c.require(OperatorNotExists); err != nil {
			return Result{}, err
		}
		return Result{Node: c.leaf(OpIsNull, nil)}, nil
	}
	return Result{}, errors.New(`expected "" (relation exists) or "!" (relation missing)`)
}
