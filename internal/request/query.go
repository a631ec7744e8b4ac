package request

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"OutdoorAPI/internal/model"
)

// Query is the flat, query-string style encoding. Bodies are
// map[string][]string (url.Values), keys are matched case-insensitively and
// relations are addressed with dot paths.
type Query struct{}

// QueryBody converts url.Values into a flat request body.
func QueryBody(values url.Values) map[string][]string {
	return map[string][]string(values)
}

func (Query) Name() string { return "query" }

func (Query) NormalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.TrimSuffix(key, "[]")
}

func (Query) Path(normalizedKey string) []string {
	return strings.Split(normalizedKey, ".")
}

func (Query) SelfPrefix() string { return "df." }

func (Query) Entries(body any) ([]Entry, error) {
	values, ok := body.(map[string][]string)
	if !ok {
		if body == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("unexpected body type %T", body)
	}
	keys := sortedKeys(values)
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, Entry{Key: k, Value: values[k]})
	}
	return out, nil
}

func (Query) values(v any) ([]string, error) {
	switch vals := v.(type) {
	case []string:
		return vals, nil
	case string:
		return []string{vals}, nil
	}
	return nil, errors.New("invalid value: expected a string")
}

func (q Query) Scalar(v any) (string, error) {
	vals, err := q.values(v)
	if err != nil {
		return "", err
	}
	if len(vals) != 1 {
		return "", fmt.Errorf("invalid value: expected a single value, got %d", len(vals))
	}
	return vals[0], nil
}

func (q Query) Integer(v any) (int, error) {
	s, err := q.Scalar(v)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid value: %q is not an integer", s)
	}
	return n, nil
}

// FilterValues expands a repeated key into independent filter leaves.
func (q Query) FilterValues(v any) ([][]string, error) {
	vals, err := q.values(v)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return [][]string{{""}}, nil
	}
	out := make([][]string, len(vals))
	for i, s := range vals {
		out[i] = []string{s}
	}
	return out, nil
}

// Fields reads comma separated field names; repeated keys concatenate.
func (q Query) Fields(v any) ([]string, error) {
	vals, err := q.values(v)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, s := range vals {
		for _, f := range strings.Split(s, ",") {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

// Ordering reads comma separated entries: "field", "-field" or
// "field asc|desc".
func (q Query) Ordering(v any) ([]model.OrderBy, error) {
	vals, err := q.values(v)
	if err != nil {
		return nil, err
	}
	var out []model.OrderBy
	for _, s := range vals {
		for _, entry := range strings.Split(s, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			parts := strings.Fields(entry)
			o := model.OrderBy{Field: parts[0], Direction: model.Asc}
			switch {
			case len(parts) == 2:
				dir, ok := model.ParseDirection(parts[1])
				if !ok {
					return nil, fmt.Errorf("invalid order direction %q", parts[1])
				}
				o.Direction = dir
			case len(parts) > 2:
				return nil, fmt.Errorf("invalid order entry %q", entry)
			case strings.HasPrefix(o.Field, "-"):
				o.Field, o.Direction = o.Field[1:], model.Desc
			}
			out = append(out, o)
		}
	}
	return out, nil
}

func (Query) Filters(v any, trace string) ([]*FilterNode, []ValidationError) {
	return nil, []ValidationError{newError(trace, "structured filters require a JSON body")}
}

func (Query) EmptyBody() any {
	return map[string][]string{}
}

func (Query) Nested(any) bool { return false }

// Sub moves "relation.rest" to "rest" in the relation's body, keeping the
// raw spelling of the remaining path.
func (q Query) Sub(body any, p Parameter) (any, error) {
	sub, _ := body.(map[string][]string)
	if sub == nil {
		sub = map[string][]string{}
	}
	i := strings.IndexByte(p.RawKey, '.')
	if i < 0 {
		return sub, fmt.Errorf("invalid value: use %s.<key> to address the relation", p.RawKey)
	}
	vals, err := q.values(p.RawValue)
	if err != nil {
		return sub, err
	}
	rest := p.RawKey[i+1:]
	sub[rest] = append(sub[rest], vals...)
	return sub, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
