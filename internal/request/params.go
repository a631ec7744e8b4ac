package request

import "OutdoorAPI/internal/model"

// Reserved keys.
const (
	KeyLimit    = "limit"
	KeyOffset   = "offset"
	KeyOrder    = "order"
	KeyFields   = "fields"
	KeyQuery    = "q"
	KeyLanguage = "language"
	KeyFilters  = "filters"
)

// AllFields selects the full field set.
const AllFields = "*"

// MaxDepth bounds relation nesting.
const MaxDepth = 4

// JoinType of a relation in the compiled plan.
type JoinType string

const (
	JoinLeft  JoinType = "left"
	JoinInner JoinType = "inner"
)

// Params are the non-filter parameters of a request after verification.
type Params struct {
	// Limit is 0 when the request is not paginated.
	Limit  int
	Offset int
	Order  []model.OrderBy
	Fields []string
	// Query is the full-text query, empty when absent.
	Query string
	// Language is the text search configuration resolved from the
	// language parameter.
	Language string
}
