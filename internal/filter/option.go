// Package filter compiles a single client supplied filter value into
// injection-safe operations, according to the attribute's filter option.
package filter

import (
	"fmt"
	"strings"
)

// Kind is the semantic type of a filterable attribute.
type Kind string

const (
	KindUUID              Kind = "uuid"
	KindText              Kind = "text"
	KindNumber            Kind = "number"
	KindBoolean           Kind = "boolean"
	KindDate              Kind = "date"
	KindGeoJSON           Kind = "geojson"
	KindRelationExistence Kind = "relationExistence"
)

// Operator names one entry of a filter's configurable operator set.
type Operator string

const (
	OperatorEquals     Operator = "eq"
	OperatorNotEquals  Operator = "ne"
	OperatorContains   Operator = "contains"
	OperatorStartsWith Operator = "startswith"
	OperatorEndsWith   Operator = "endswith"
	OperatorIn         Operator = "in"
	OperatorNotIn      Operator = "nin"
	OperatorNull       Operator = "null"
	OperatorNotNull    Operator = "notnull"
	OperatorGt         Operator = "gt"
	OperatorGte        Operator = "gte"
	OperatorLt         Operator = "lt"
	OperatorLte        Operator = "lte"
	OperatorBefore     Operator = "before"
	OperatorAfter      Operator = "after"
	OperatorBetween    Operator = "between"
	OperatorExists     Operator = "exists"
	OperatorNotExists  Operator = "notexists"
)

// Operators valid per kind. An Option without an explicit operator list
// allows all of them.
var kindOperators = map[Kind][]Operator{
	KindUUID: {
		OperatorEquals, OperatorIn, OperatorNotIn, OperatorNull, OperatorNotNull,
	},
	KindText: {
		OperatorEquals, OperatorNotEquals, OperatorContains, OperatorStartsWith,
		OperatorEndsWith, OperatorIn, OperatorNotIn, OperatorNull, OperatorNotNull,
	},
	KindNumber: {
		OperatorEquals, OperatorGt, OperatorGte, OperatorLt, OperatorLte,
		OperatorNull, OperatorNotNull,
	},
	KindBoolean: {
		OperatorEquals, OperatorNull, OperatorNotNull,
	},
	KindDate: {
		OperatorEquals, OperatorBefore, OperatorAfter, OperatorBetween,
		OperatorNull, OperatorNotNull,
	},
	KindGeoJSON: {
		OperatorNull, OperatorNotNull,
	},
	KindRelationExistence: {
		OperatorExists, OperatorNotExists,
	},
}

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{
		KindUUID, KindText, KindNumber, KindBoolean, KindDate, KindGeoJSON, KindRelationExistence,
	}
}

// OperatorsFor returns the operators the kind understands.
func OperatorsFor(kind Kind) []Operator {
	return kindOperators[kind]
}

// Option is the per-attribute filter configuration.
type Option struct {
	Kind            Kind       `yaml:"kind"`
	Operators       []Operator `yaml:"operators"`
	CaseInsensitive bool       `yaml:"case_insensitive"`
	// Attribute overrides the storage attribute the filter applies to.
	Attribute string `yaml:"attribute"`
	// Relation names the relation a relationExistence filter checks.
	Relation string `yaml:"relation"`
	// TextStorage marks date values kept as text, where '' also means unset.
	TextStorage bool `yaml:"text_storage"`
}

// Allows reports whether op is enabled for this option.
func (o Option) Allows(op Operator) bool {
	ops := o.Operators
	if len(ops) == 0 {
		ops = kindOperators[o.Kind]
	}
	for _, candidate := range ops {
		if candidate == op {
			return true
		}
	}
	return false
}

// Validate checks the option against its kind's operator grammar.
func (o Option) Validate() error {
	valid, ok := kindOperators[o.Kind]
	if !ok {
		return fmt.Errorf("unknown filter kind %q", o.Kind)
	}
	for _, op := range o.Operators {
		found := false
		for _, v := range valid {
			if v == op {
				found = true
				break
			}
		}
		if !found {
			names := make([]string, len(valid))
			for i, v := range valid {
				names[i] = string(v)
			}
			return fmt.Errorf("operator %q is not valid for kind %s (valid: %s)", op, o.Kind, strings.Join(names, ", "))
		}
	}
	if o.CaseInsensitive && o.Kind != KindText {
		return fmt.Errorf("case_insensitive is only supported for text filters")
	}
	if o.TextStorage && o.Kind != KindDate {
		return fmt.Errorf("text_storage is only supported for date filters")
	}
	if o.Relation != "" && o.Kind != KindRelationExistence {
		return fmt.Errorf("relation is only supported for relationExistence filters")
	}
	return nil
}
