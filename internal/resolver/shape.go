package resolver

import (
	"encoding/json"
	"strings"
	"time"

	"OutdoorAPI/internal/filter"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// shapeRows removes hidden columns, except the parent key needed to group
// relation rows, and converts driver values to their API form.
func shapeRows(rows []map[string]any) {
	for _, row := range rows {
		for k, v := range row {
			if strings.HasPrefix(k, hiddenPrefix) {
				if k != parentKey {
					delete(row, k)
				}
				continue
			}
			row[k] = apiValue(v)
		}
	}
}

func apiValue(v any) any {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val).String()
	case time.Time:
		return val.UTC().Format(filter.DateFormat)
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		raw, err := val.Value()
		if s, ok := raw.(string); ok && err == nil {
			return json.Number(s)
		}
		return nil
	}
	return v
}
