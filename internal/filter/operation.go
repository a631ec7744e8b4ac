package filter

// Op is a primitive filter operation understood by the executor.
type Op string

const (
	OpEquals             Op = "equals"
	OpNotEquals          Op = "notEquals"
	OpLike               Op = "like"
	OpBetween            Op = "between"
	OpIn                 Op = "in"
	OpNotIn              Op = "notIn"
	OpIsNull             Op = "isNull"
	OpIsNotNull          Op = "isNotNull"
	OpGreaterThan        Op = "greaterThan"
	OpGreaterThanOrEqual Op = "greaterThanOrEqual"
	OpLessThan           Op = "lessThan"
	OpLessThanOrEqual    Op = "lessThanOrEqual"
	// OpRaw renders Expr with "?" placeholders bound to Values. Expr always
	// comes from a constant inside this module, never from client input.
	OpRaw Op = "raw"
)

// Operation is one injection-safe filter unit. Attribute is an API level
// attribute name; a "relation.attribute" form refers to a relation.
type Operation struct {
	Op              Op
	Attribute       string
	Value           any
	Values          []any
	CaseInsensitive bool
	Expr            string
}

// Combinator joins the children of a filter tree node.
type Combinator string

const (
	And Combinator = "and"
	Or  Combinator = "or"
)

// Tree is either a leaf holding a value or a combinator over children.
type Tree[T any] struct {
	Combinator Combinator
	Leaf       T
	Children   []*Tree[T]
}

// Node is a compiled filter tree.
type Node = Tree[Operation]

// IsLeaf reports whether t holds a value instead of children.
func (t *Tree[T]) IsLeaf() bool {
	return t.Combinator == ""
}

// Walk visits every leaf in depth-first order.
func (t *Tree[T]) Walk(fn func(T)) {
	if t == nil {
		return
	}
	if t.IsLeaf() {
		fn(t.Leaf)
		return
	}
	for _, c := range t.Children {
		c.Walk(fn)
	}
}

func LeafOf[T any](v T) *Tree[T] {
	return &Tree[T]{Leaf: v}
}

func AndOf[T any](children ...*Tree[T]) *Tree[T] {
	return &Tree[T]{Combinator: And, Children: children}
}

func OrOf[T any](children ...*Tree[T]) *Tree[T] {
	return &Tree[T]{Combinator: Or, Children: children}
}

// Map converts every leaf of t, keeping its shape. A leaf for which fn
// returns nil is dropped; combinators left without children are dropped too.
func Map[T, U any](t *Tree[T], fn func(T) *Tree[U]) *Tree[U] {
	if t == nil {
		return nil
	}
	if t.IsLeaf() {
		return fn(t.Leaf)
	}
	out := &Tree[U]{Combinator: t.Combinator}
	for _, c := range t.Children {
		if m := Map(c, fn); m != nil {
			out.Children = append(out.Children, m)
		}
	}
	if len(out.Children) == 0 {
		return nil
	}
	return out
}
