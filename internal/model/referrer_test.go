package model

import "testing"

func TestResolveAPIWalksCandidates(t *testing.T) {
	reg := loadFixtures(t)
	facility, _ := reg.Get("Facility")

	cfg := facility.ResolveAPI(RelationReferrer("Cabin", "facilities"), ReferrerList)
	if cfg.Referrer() != "Cabin.facilities" {
		t.Fatalf("expected relation referrer, got %s", cfg.Referrer())
	}
	if !cfg.IsValidField("description") {
		t.Fatalf("join table field must be selectable through the relation")
	}

	cfg = facility.ResolveAPI(RelationReferrer("Nope", "facilities"), ReferrerList)
	if cfg.Referrer() != ReferrerStandard {
		t.Fatalf("expected fallback to standard, got %s", cfg.Referrer())
	}
	if cfg.IsValidField("description") {
		t.Fatalf("join table field must not be selectable at top level")
	}

	if got := facility.ResolveAPI().Referrer(); got != ReferrerStandard {
		t.Fatalf("ResolveAPI() = %s", got)
	}
}

func TestExtendsInheritsUnsetSections(t *testing.T) {
	reg := loadFixtures(t)
	cabin, _ := reg.Get("Cabin")

	single := cabin.ResolveAPI(ReferrerSingle)
	standard := cabin.ResolveAPI(ReferrerStandard)
	if single.Referrer() != ReferrerSingle {
		t.Fatalf("got %s", single.Referrer())
	}
	if len(single.Filters) != len(standard.Filters) || single.Pagination != standard.Pagination {
		t.Fatalf("single must inherit filters and pagination from standard")
	}
	if len(single.DefaultFields) == len(standard.DefaultFields) {
		t.Fatalf("single overrides default_fields")
	}

	embedded := cabin.ResolveAPI(RelationReferrer("Area", "cabins"))
	if embedded.Pagination.DefaultLimit != 5 || len(embedded.DefaultRelations) != 0 {
		t.Fatalf("Area.cabins overrides: %+v", embedded)
	}

	area, _ := reg.Get("Area")
	viaCabin := area.ResolveAPI(RelationReferrer("Cabin", "area"))
	if !viaCabin.Pagination.Disabled || len(viaCabin.Filters) != 0 {
		t.Fatalf("Cabin.area overrides: %+v", viaCabin)
	}
}
