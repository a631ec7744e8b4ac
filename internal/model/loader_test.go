package model

import (
	"strings"
	"testing"
)

func TestParseEntityRejectsUnknownKeys(t *testing.T) {
	cases := map[string]string{
		"entity":     "table: cabins\ncolour: red\n",
		"relation":   "table: cabins\nrelations:\n  area:\n    type: belongs_to\n    model: Area\n    via: x\n",
		"rel type":   "table: cabins\nrelations:\n  area:\n    type: has_few\n    model: Area\n",
		"api":        "table: cabins\napi:\n  standard:\n    sorting: []\n",
		"filter":     "table: cabins\napi:\n  standard:\n    filters:\n      name: { kind: text, fuzzy: true }\n",
		"kind":       "table: cabins\napi:\n  standard:\n    filters:\n      name: { kind: polygon }\n",
		"pagination": "table: cabins\napi:\n  standard:\n    pagination: 10\n",
	}
	for name, src := range cases {
		if _, err := ParseEntity("Cabin", []byte(src)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestParseEntityPaginationAndOrdering(t *testing.T) {
	src := `
table: cabins
api:
  standard:
    ordering:
      default: [[name], [altitude, DESC]]
      valid_fields: [name, altitude]
    pagination: false
  list:
    pagination: { default_limit: 10, max_limit: 20 }
`
	e, err := ParseEntity("Cabin", []byte(src))
	if err != nil {
		t.Fatalf("ParseEntity: %v", err)
	}
	std := e.API[ReferrerStandard]
	if !std.Pagination.Disabled {
		t.Fatalf("pagination: false must disable pagination")
	}
	if got := std.Ordering.Default; len(got) != 2 || got[0].Direction != Asc || got[1].Direction != Desc {
		t.Fatalf("unexpected ordering: %+v", got)
	}
	if p := e.API[ReferrerList].Pagination; p.Disabled || p.DefaultLimit != 10 || p.MaxLimit != 20 {
		t.Fatalf("unexpected pagination: %+v", p)
	}
}

func TestParseEntityBadOrderDirection(t *testing.T) {
	src := "table: cabins\napi:\n  standard:\n    ordering:\n      default: [[name, sideways]]\n"
	_, err := ParseEntity("Cabin", []byte(src))
	if err == nil || !strings.Contains(err.Error(), "invalid order direction") {
		t.Fatalf("expected direction error, got %v", err)
	}
}

func TestLoadEntitiesFromEmptyDir(t *testing.T) {
	if _, err := LoadEntitiesFromDir(t.TempDir()); err == nil {
		t.Fatalf("expected error for empty directory")
	}
}
