package request

import "OutdoorAPI/internal/model"

// Entry is one raw key/value pair of a request body.
type Entry struct {
	Key   string
	Value any
}

// Encoding is the client-facing input format. The driver in request.go is
// shared; encodings only decide how raw values are read.
type Encoding interface {
	Name() string
	// NormalizeKey maps a raw key to the form used for classification.
	NormalizeKey(key string) string
	// Path splits a normalized key into its relation path.
	Path(normalizedKey string) []string
	// SelfPrefix is the marker addressing a relation's own attributes, or
	// "" when the encoding has none.
	SelfPrefix() string

	// Entries lists the body entries in a stable order.
	Entries(body any) ([]Entry, error)
	Scalar(v any) (string, error)
	Integer(v any) (int, error)
	// FilterValues returns one value list per filter leaf to compile.
	FilterValues(v any) ([][]string, error)
	Fields(v any) ([]string, error)
	Ordering(v any) ([]model.OrderBy, error)
	// Filters reads the structured filter list. Leaves carry the filter
	// name in RawKey and the raw value in RawValue.
	Filters(v any, trace string) ([]*FilterNode, []ValidationError)

	// Nested reports whether v is a sub-body addressed to a relation.
	Nested(v any) bool
	// EmptyBody is the body of a relation addressed without sub-keys.
	EmptyBody() any
	// Sub adds p, addressed to relation, to the relation's body.
	Sub(body any, p Parameter) (any, error)
}
