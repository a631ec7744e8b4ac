package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"OutdoorAPI/internal/filter"
	"OutdoorAPI/internal/model"
)

// JSON is the structured encoding. Bodies are decoded JSON objects
// (map[string]any), keys are case-sensitive and relations are addressed by
// nesting objects.
type JSON struct{}

// DecodeJSON reads a structured request body. Numbers are kept as
// json.Number so integers survive unchanged.
func DecodeJSON(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if body == nil {
		return nil, errors.New("invalid JSON body: expected an object")
	}
	return body, nil
}

func (JSON) Name() string { return "json" }

func (JSON) NormalizeKey(key string) string { return key }

func (JSON) Path(normalizedKey string) []string { return []string{normalizedKey} }

func (JSON) SelfPrefix() string { return "" }

func (JSON) Entries(body any) ([]Entry, error) {
	obj, ok := body.(map[string]any)
	if !ok {
		if body == nil {
			return nil, nil
		}
		return nil, errors.New("invalid value: expected an object")
	}
	keys := sortedKeys(obj)
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, Entry{Key: k, Value: obj[k]})
	}
	return out, nil
}

func (j JSON) Scalar(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	case []any:
		if len(val) == 1 {
			return j.Scalar(val[0])
		}
		return "", fmt.Errorf("invalid value: expected a single value, got %d", len(val))
	case nil:
		return "", errors.New("invalid value: null")
	}
	return "", errors.New("invalid value: expected a string, number or boolean")
}

func (j JSON) Integer(v any) (int, error) {
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("invalid value: %v is not an integer", val)
		}
		return int(val), nil
	case bool:
		return 0, errors.New("invalid value: expected an integer")
	}
	s, err := j.Scalar(v)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid value: %q is not an integer", s)
	}
	return n, nil
}

// FilterValues returns a single leaf; an array longer than one is passed on
// for the compiler to reject.
func (j JSON) FilterValues(v any) ([][]string, error) {
	list, ok := v.([]any)
	if !ok {
		s, err := j.Scalar(v)
		if err != nil {
			return nil, err
		}
		return [][]string{{s}}, nil
	}
	vals := make([]string, 0, len(list))
	for _, item := range list {
		s, err := j.Scalar(item)
		if err != nil {
			return nil, err
		}
		vals = append(vals, s)
	}
	return [][]string{vals}, nil
}

func (j JSON) Fields(v any) ([]string, error) {
	switch val := v.(type) {
	case string:
		return []string{val}, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, errors.New("invalid value: fields must be an array of strings")
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, errors.New("invalid value: fields must be an array of strings")
}

// Ordering reads an array of [field, dir] pairs. A bare string entry is an
// ascending field, "-field" a descending one.
func (j JSON) Ordering(v any) ([]model.OrderBy, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, errors.New(`invalid value: order must be an array of [field, "asc"|"desc"]`)
	}
	out := make([]model.OrderBy, 0, len(list))
	for i, item := range list {
		switch entry := item.(type) {
		case string:
			o := model.OrderBy{Field: entry, Direction: model.Asc}
			if strings.HasPrefix(entry, "-") {
				o.Field, o.Direction = entry[1:], model.Desc
			}
			out = append(out, o)
		case []any:
			if len(entry) == 0 || len(entry) > 2 {
				return nil, fmt.Errorf("invalid order entry at [%d]: expected [field, direction]", i)
			}
			field, ok := entry[0].(string)
			if !ok {
				return nil, fmt.Errorf("invalid order entry at [%d]: field must be a string", i)
			}
			o := model.OrderBy{Field: field, Direction: model.Asc}
			if len(entry) == 2 {
				s, _ := entry[1].(string)
				dir, ok := model.ParseDirection(s)
				if !ok {
					return nil, fmt.Errorf("invalid order direction at [%d]: %v", i, entry[1])
				}
				o.Direction = dir
			}
			out = append(out, o)
		default:
			return nil, fmt.Errorf("invalid order entry at [%d]", i)
		}
	}
	return out, nil
}

// Filters reads [[name, value] | [$and|$or, [...]], ...].
func (JSON) Filters(v any, trace string) ([]*FilterNode, []ValidationError) {
	list, ok := v.([]any)
	if !ok {
		return nil, []ValidationError{newError(trace, "invalid value: filters must be an array")}
	}
	var (
		nodes []*FilterNode
		errs  []ValidationError
	)
	for i, item := range list {
		itemTrace := fmt.Sprintf("%s[%d]", trace, i)
		spec, ok := item.([]any)
		if !ok || len(spec) != 2 {
			errs = append(errs, newError(itemTrace, "invalid filter: expected a [name, value] pair"))
			continue
		}
		name, ok := spec[0].(string)
		if !ok || name == "" {
			errs = append(errs, newError(itemTrace+"[0]", "invalid filter: name must be a non-empty string"))
			continue
		}
		if !strings.HasPrefix(name, "$") {
			nodes = append(nodes, filter.LeafOf(Parameter{
				RawKey:           name,
				RawValue:         spec[1],
				DotPath:          []string{name},
				NormalizedKey:    name,
				FirstPathSegment: name,
				Trace:            itemTrace,
			}))
			continue
		}

		var comb filter.Combinator
		switch strings.ToLower(name) {
		case "$and":
			comb = filter.And
		case "$or":
			comb = filter.Or
		default:
			errs = append(errs, newError(itemTrace+"[0]", "unsupported combinator %q, expected $and or $or", name))
			continue
		}
		nested, ok := spec[1].([]any)
		if !ok || len(nested) == 0 {
			errs = append(errs, newError(itemTrace+"[1]", "invalid filter: %s expects a non-empty array of filters", name))
			continue
		}
		children, childErrs := JSON{}.Filters(nested, itemTrace+"[1]")
		errs = append(errs, childErrs...)
		if len(children) > 0 {
			nodes = append(nodes, &FilterNode{Combinator: comb, Children: children})
		}
	}
	return nodes, errs
}

func (JSON) Nested(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

func (JSON) EmptyBody() any {
	return map[string]any{}
}

// Sub merges the nested object of p into the relation's body.
func (JSON) Sub(body any, p Parameter) (any, error) {
	sub, _ := body.(map[string]any)
	if sub == nil {
		sub = map[string]any{}
	}
	obj, ok := p.RawValue.(map[string]any)
	if !ok {
		return sub, errors.New("invalid value: expected an object")
	}
	for k, v := range obj {
		sub[k] = v
	}
	return sub, nil
}
