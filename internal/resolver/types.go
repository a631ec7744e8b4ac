package resolver

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Querier runs a query; *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Page is the response of a list request.
type Page struct {
	Count     int64            `json:"count"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
	Documents []map[string]any `json:"documents"`
}

// Hidden result columns, removed before rows are returned.
const (
	mainAlias    = "main"
	linkAlias    = "link"
	parentKey    = "__parent"
	rowNumber    = "__rn"
	hiddenPrefix = "__"
)
