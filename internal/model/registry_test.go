package model

import (
	"strings"
	"testing"

	"OutdoorAPI/internal/filter"
)

func loadFixtures(t *testing.T) *Registry {
	t.Helper()
	reg, err := InitRegistry("../../models")
	if err != nil {
		t.Fatalf("InitRegistry: %v", err)
	}
	return reg
}

func TestInitRegistryFixtures(t *testing.T) {
	reg := loadFixtures(t)

	var entries []string
	for _, e := range reg.EntryModels() {
		entries = append(entries, e.Name)
	}
	if got := strings.Join(entries, ","); got != "Area,Cabin,Trip" {
		t.Fatalf("entry models = %s", got)
	}

	if e, ok := reg.Route("cabins"); !ok || e.Name != "Cabin" {
		t.Fatalf("Route(cabins) = %v, %v", e, ok)
	}
	if _, ok := reg.Route("Facility"); ok {
		t.Fatalf("Facility is not an entry model")
	}
}

func TestLinkDefaults(t *testing.T) {
	reg := loadFixtures(t)
	cabin, _ := reg.Get("Cabin")

	area := cabin.GetRelation("area")
	if area.FK != "area_id" || area.PK != "id" || area.Target().Name != "Area" {
		t.Fatalf("unexpected belongs_to defaults: %+v", area)
	}

	facilities := cabin.GetRelation("facilities")
	if facilities.FK != "cabin_id" || facilities.ThroughEntity().Table != "cabin_facilities" {
		t.Fatalf("unexpected through defaults: %+v", facilities)
	}
	if fk, pk := facilities.ThroughTargetKeys(); fk != "facility_id" || pk != "id" {
		t.Fatalf("ThroughTargetKeys = %s, %s", fk, pk)
	}
	if !facilities.IsThroughField("description") {
		t.Fatalf("description must be a join table field")
	}

	opt, ok := cabin.API[ReferrerStandard].Filter("area")
	if !ok || opt.Kind != filter.KindRelationExistence || opt.Relation != "area" {
		t.Fatalf("relationExistence filter must default its relation: %+v", opt)
	}
}

func TestColumnMapping(t *testing.T) {
	reg := loadFixtures(t)
	trip, _ := reg.Get("Trip")
	if got := trip.Column("durationDays"); got != "duration_days" {
		t.Fatalf("Column(durationDays) = %s", got)
	}
	if got := trip.Column("grading"); got != "grading" {
		t.Fatalf("Column(grading) = %s", got)
	}
	if got := trip.Column("someThingElse"); got != "some_thing_else" {
		t.Fatalf("Column fallback = %s", got)
	}
	if got := trip.Attribute("starts_at"); got != "startsAt" {
		t.Fatalf("Attribute(starts_at) = %s", got)
	}
	if got := trip.Attribute("max_people"); got != "maxPeople" {
		t.Fatalf("Attribute fallback = %s", got)
	}
}

func TestRegistryRejectsUnknownRelationTarget(t *testing.T) {
	_, err := NewRegistry(map[string]*Entity{
		"Cabin": {
			Table:     "cabins",
			Relations: map[string]*Relation{"area": {Type: BelongsTo, Model: "Nope"}},
			API:       map[string]*APIConfig{ReferrerStandard: {}},
		},
	})
	if err == nil || !strings.Contains(err.Error(), "model 'Nope' not found") {
		t.Fatalf("expected link error, got %v", err)
	}
}

func TestRegistryRequiresStandard(t *testing.T) {
	_, err := NewRegistry(map[string]*Entity{
		"Cabin": {Table: "cabins", API: map[string]*APIConfig{ReferrerList: {}}},
	})
	if err == nil || !strings.Contains(err.Error(), "api.standard is required") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegistryValidatesConfigs(t *testing.T) {
	cases := map[string]*APIConfig{
		"bad filter operator": {
			Filters: map[string]filter.Option{"id": {Kind: filter.KindUUID, Operators: []filter.Operator{filter.OperatorGt}}},
		},
		"undeclared relation filter": {
			Filters: map[string]filter.Option{"ghost": {Kind: filter.KindRelationExistence}},
		},
		"default field not listed": {
			Fields:        []string{"id"},
			DefaultFields: []string{"name"},
		},
		"default order not valid": {
			Ordering: Ordering{Default: []OrderBy{{Field: "name", Direction: Asc}}},
		},
		"max below default": {
			Pagination: &Pagination{DefaultLimit: 10, MaxLimit: 5},
		},
	}
	for name, cfg := range cases {
		_, err := NewRegistry(map[string]*Entity{
			"Cabin": {Table: "cabins", API: map[string]*APIConfig{ReferrerStandard: cfg}},
		})
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestRegistryRejectsUnknownReferrer(t *testing.T) {
	_, err := NewRegistry(map[string]*Entity{
		"Cabin": {Table: "cabins", API: map[string]*APIConfig{
			ReferrerStandard: {},
			"Area.cabins":    {},
		}},
	})
	if err == nil || !strings.Contains(err.Error(), "unknown entity Area") {
		t.Fatalf("expected referrer error, got %v", err)
	}
}

func TestRegistryRejectsFilterNamesDifferingInCase(t *testing.T) {
	_, err := NewRegistry(map[string]*Entity{
		"Cabin": {Table: "cabins", API: map[string]*APIConfig{ReferrerStandard: {
			Filters: map[string]filter.Option{
				"Name": {Kind: filter.KindText},
				"name": {Kind: filter.KindText},
			},
		}}},
	})
	if err == nil || !strings.Contains(err.Error(), "filters Name and name differ only in case") {
		t.Fatalf("expected case collision error, got %v", err)
	}
}

func TestRegistryRejectsRelationNamesDifferingInCase(t *testing.T) {
	_, err := NewRegistry(map[string]*Entity{
		"Area": {Table: "areas", API: map[string]*APIConfig{ReferrerStandard: {}}},
		"Cabin": {
			Table: "cabins",
			Relations: map[string]*Relation{
				"area": {Type: BelongsTo, Model: "Area"},
				"Area": {Type: BelongsTo, Model: "Area"},
			},
			API: map[string]*APIConfig{ReferrerStandard: {}},
		},
	})
	if err == nil || !strings.Contains(err.Error(), "relations Area and area differ only in case") {
		t.Fatalf("expected case collision error, got %v", err)
	}
}
