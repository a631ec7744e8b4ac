package request

import (
	"context"
	"net/url"
	"testing"

	"OutdoorAPI/internal/apperror"
	"OutdoorAPI/internal/filter"
	"OutdoorAPI/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtures(t *testing.T) *model.Registry {
	t.Helper()
	reg, err := model.InitRegistry("../../models")
	require.NoError(t, err)
	return reg
}

func entity(t *testing.T, name string) *model.Entity {
	t.Helper()
	e, ok := fixtures(t).Get(name)
	require.True(t, ok, "entity %s", name)
	return e
}

func verifyQuery(t *testing.T, name, rawQuery string, opts ...RequestOption) *Request {
	t.Helper()
	values, err := url.ParseQuery(rawQuery)
	require.NoError(t, err)
	req := ForEntity(entity(t, name), Query{}, QueryBody(values), opts...)
	require.NoError(t, req.Verify(context.Background()))
	return req
}

func verifyJSON(t *testing.T, name, body string) *Request {
	t.Helper()
	data, err := DecodeJSON([]byte(body))
	require.NoError(t, err)
	req := ForEntity(entity(t, name), JSON{}, data)
	require.NoError(t, req.Verify(context.Background()))
	return req
}

func eq(attr string, value any, ci bool) *filter.Node {
	return filter.LeafOf(filter.Operation{Op: filter.OpEquals, Attribute: attr, Value: value, CaseInsensitive: ci})
}

func TestUnknownParameter(t *testing.T) {
	req := verifyQuery(t, "Cabin", "foo=bar&name=Oslo")

	assert.Equal(t, []ValidationError{{Trace: "foo", Message: "unknown parameter"}}, req.Errors())
	assert.Equal(t, filter.AndOf(eq("name", "oslo", true)), req.Compiled())
}

func TestJSONCombinatorFilters(t *testing.T) {
	req := verifyJSON(t, "Cabin", `{"filters": [["$or", [["name", "foo"], ["name", "bar"]]]]}`)

	require.Empty(t, req.Errors())
	want := filter.AndOf(filter.OrOf(eq("name", "foo", true), eq("name", "bar", true)))
	assert.Equal(t, want, req.Compiled())
}

func TestJSONCombinatorIsCaseInsensitive(t *testing.T) {
	req := verifyJSON(t, "Cabin", `{"filters": [["$AND", [["open", "true"], ["name", "!x"]]]]}`)

	require.Empty(t, req.Errors())
	root := req.Compiled()
	require.Len(t, root.Children, 1)
	assert.Equal(t, filter.And, root.Children[0].Combinator)
	assert.Len(t, root.Children[0].Children, 2)
}

func TestJSONMalformedFilters(t *testing.T) {
	req := verifyJSON(t, "Cabin", `{"filters": [
		["name"],
		["$xor", [["name", "a"]]],
		["$or", []],
		["bogus", "1"],
		["altitude", "$gt:high"]
	]}`)

	traces := map[string]string{}
	for _, e := range req.Errors() {
		traces[e.Trace] = e.Message
	}
	assert.Len(t, req.Errors(), 5)
	assert.Contains(t, traces["filters[0]"], "[name, value] pair")
	assert.Contains(t, traces["filters[1][0]"], "unsupported combinator")
	assert.Contains(t, traces["filters[2][1]"], "non-empty array")
	assert.Contains(t, traces["filters[3]"], "unknown filter")
	assert.Contains(t, traces, "filters[4]")
	assert.Nil(t, req.Compiled())
}

func TestQueryRepeatedKeyExpands(t *testing.T) {
	req := verifyQuery(t, "Cabin", "altitude=$gt:100&altitude=$lt:500")

	require.Empty(t, req.Errors())
	root := req.Compiled()
	require.Len(t, root.Children, 2)
	var ops []filter.Op
	root.Walk(func(op filter.Operation) { ops = append(ops, op.Op) })
	assert.ElementsMatch(t, []filter.Op{filter.OpGreaterThan, filter.OpLessThan}, ops)
}

func TestQueryKeysAreCaseInsensitive(t *testing.T) {
	req := verifyQuery(t, "Cabin", "UpdatedAt=$after:2020-01-01&LIMIT=5")

	require.Empty(t, req.Errors())
	want := filter.AndOf(filter.LeafOf(filter.Operation{
		Op: filter.OpGreaterThan, Attribute: "updatedAt", Value: "2020-01-01T00:00:00.000Z",
	}))
	assert.Equal(t, want, req.Compiled())
	assert.Equal(t, 5, req.Params().Limit)
}

func TestJSONKeysAreCaseSensitive(t *testing.T) {
	req := verifyJSON(t, "Cabin", `{"Name": "x"}`)

	assert.Equal(t, []ValidationError{{Trace: "Name", Message: "unknown parameter"}}, req.Errors())
}

func TestRelationExistence(t *testing.T) {
	t.Run("exists forces an inner join", func(t *testing.T) {
		req := verifyQuery(t, "Cabin", "facilities=")

		require.Empty(t, req.Errors())
		assert.Nil(t, req.Compiled())
		assert.Equal(t, JoinInner, req.JoinTypes()["facilities"])
		assert.NotContains(t, req.Children(), "facilities")
	})

	t.Run("missing compiles to isNull", func(t *testing.T) {
		req := verifyQuery(t, "Cabin", "facilities=!")

		require.Empty(t, req.Errors())
		want := filter.AndOf(filter.LeafOf(filter.Operation{Op: filter.OpIsNull, Attribute: "facilities.id"}))
		assert.Equal(t, want, req.Compiled())
		assert.NotContains(t, req.JoinTypes(), "facilities")
	})

	t.Run("other values are rejected", func(t *testing.T) {
		req := verifyQuery(t, "Cabin", "facilities=yes")

		require.Len(t, req.Errors(), 1)
		assert.Equal(t, "facilities", req.Errors()[0].Trace)
		assert.Nil(t, req.Compiled())
	})

	t.Run("addressed relation keeps the inner join", func(t *testing.T) {
		req := verifyQuery(t, "Cabin", "facilities=&facilities.name=wifi")

		require.Empty(t, req.Errors())
		assert.Equal(t, JoinInner, req.JoinTypes()["facilities"])
		require.Contains(t, req.Children(), "facilities")
		assert.Equal(t, filter.AndOf(eq("name", "wifi", false)), req.Children()["facilities"].Compiled())
	})
}

func TestRelationTree(t *testing.T) {
	req := verifyQuery(t, "Area", "cabins.name=Fjell&cabins.limit=3&cabins.area.fields=name,description")

	require.Empty(t, req.Errors())
	cabins := req.Children()["cabins"]
	require.NotNil(t, cabins)
	assert.Equal(t, "Area.cabins", cabins.API().Referrer())
	assert.Equal(t, 3, cabins.Params().Limit)
	assert.Equal(t, []string{"id", "name"}, cabins.SelectedFields())
	assert.Equal(t, filter.AndOf(eq("name", "fjell", true)), cabins.Compiled())
	assert.Equal(t, JoinLeft, req.JoinTypes()["cabins"])

	area := cabins.Children()["area"]
	require.NotNil(t, area)
	assert.True(t, area.IsSingle())
	assert.Equal(t, "Cabin.area", area.API().Referrer())
	assert.Equal(t, []string{"description", "name"}, area.SelectedFields())
	assert.Equal(t, 0, area.Params().Limit)
}

func TestChildErrorsArePrefixed(t *testing.T) {
	req := verifyQuery(t, "Area", "cabins.foo=1&cabins.limit=100&trips.durationDays=$gt:3&bar=1")

	assert.ElementsMatch(t, []string{
		"bar: unknown parameter",
		"cabins.foo: unknown parameter",
		"cabins.limit: limit must be between 1 and 20",
		`trips.durationDays: operator "gt" is not allowed for this filter`,
	}, Messages(req.Errors()))
}

func TestNestedFilterOnRelationConfig(t *testing.T) {
	// Cabin.area exposes no filters.
	req := verifyQuery(t, "Cabin", "area.name=x")

	assert.Equal(t, []string{"area.name: unknown parameter"}, Messages(req.Errors()))
}

func TestSelfMarker(t *testing.T) {
	t.Run("addresses the relation's own filter", func(t *testing.T) {
		req := verifyQuery(t, "Area", "cabins.df.name=x")

		require.Empty(t, req.Errors())
		assert.Equal(t, filter.AndOf(eq("name", "x", true)), req.Children()["cabins"].Compiled())
	})

	t.Run("disables relation routing", func(t *testing.T) {
		req := verifyQuery(t, "Area", "cabins.df.area.name=x")

		assert.Equal(t, []string{"cabins.df.area.name: unknown parameter"}, Messages(req.Errors()))
	})

	t.Run("is unknown at the top level", func(t *testing.T) {
		req := verifyQuery(t, "Cabin", "df.name=x")

		assert.Equal(t, []string{"df.name: unknown parameter"}, Messages(req.Errors()))
	})
}

func TestPagination(t *testing.T) {
	cases := []struct {
		query  string
		limit  int
		offset int
		errs   []string
	}{
		{query: "", limit: 10},
		{query: "limit=50&offset=100", limit: 50, offset: 100},
		{query: "limit=0", limit: 10, errs: []string{"limit: limit must be between 1 and 50"}},
		{query: "limit=51", limit: 10, errs: []string{"limit: limit must be between 1 and 50"}},
		{query: "limit=ten", limit: 10, errs: []string{`limit: invalid value: "ten" is not an integer`}},
		{query: "offset=-1", limit: 10, errs: []string{"offset: offset must not be negative"}},
		{query: "limit=1&limit=2", limit: 10, errs: []string{"limit: invalid value: expected a single value, got 2"}},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			req := verifyQuery(t, "Cabin", tc.query)
			assert.Equal(t, tc.errs, nilIfEmpty(Messages(req.Errors())))
			assert.Equal(t, tc.limit, req.Params().Limit)
			assert.Equal(t, tc.offset, req.Params().Offset)
		})
	}
}

func TestSingleRejectsPagination(t *testing.T) {
	req := verifyQuery(t, "Cabin", "limit=5", Single())

	assert.Equal(t, []string{"limit: pagination is not supported here"}, Messages(req.Errors()))
	assert.Equal(t, 0, req.Params().Limit)
	assert.Equal(t, "single", req.API().Referrer())
}

func TestDisabledPaginationRejectsLimit(t *testing.T) {
	req := verifyQuery(t, "Cabin", "facilities.limit=5")

	assert.Equal(t, []string{"facilities.limit: pagination is not supported here"}, Messages(req.Errors()))
}

func TestMissingPaginationIsConfigurationError(t *testing.T) {
	e := &model.Entity{Name: "Hut", Table: "huts"}
	req := New(e, &model.APIConfig{Fields: []string{"id"}}, Query{}, QueryBody(url.Values{}))

	err := req.Verify(context.Background())
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConfiguration, appErr.Code)
	assert.Empty(t, req.Errors())
}

func TestOrdering(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		req := verifyQuery(t, "Cabin", "")
		assert.Equal(t, []model.OrderBy{{Field: "name", Direction: model.Asc}}, req.Params().Order)
	})

	t.Run("flat", func(t *testing.T) {
		req := verifyQuery(t, "Cabin", "order=-altitude,name+asc")
		require.Empty(t, req.Errors())
		assert.Equal(t, []model.OrderBy{
			{Field: "altitude", Direction: model.Desc},
			{Field: "name", Direction: model.Asc},
		}, req.Params().Order)
	})

	t.Run("structured", func(t *testing.T) {
		req := verifyJSON(t, "Cabin", `{"order": [["updatedAt", "DESC"], ["name"]]}`)
		require.Empty(t, req.Errors())
		assert.Equal(t, []model.OrderBy{
			{Field: "updatedAt", Direction: model.Desc},
			{Field: "name", Direction: model.Asc},
		}, req.Params().Order)
	})

	t.Run("invalid", func(t *testing.T) {
		req := verifyQuery(t, "Cabin", "order=name,altitude+sideways")
		assert.Equal(t, []string{`order: invalid order direction "sideways"`}, Messages(req.Errors()))

		req = verifyQuery(t, "Cabin", "order=geometry")
		assert.Equal(t, []string{`order: invalid order field "geometry"`}, Messages(req.Errors()))
	})
}

func TestFields(t *testing.T) {
	t.Run("defaults include default relations", func(t *testing.T) {
		req := verifyQuery(t, "Cabin", "")
		require.Empty(t, req.Errors())
		assert.Equal(t, []string{"altitude", "id", "name"}, req.SelectedFields())
		assert.Contains(t, req.Children(), "area")
		assert.Equal(t, JoinLeft, req.JoinTypes()["area"])
	})

	t.Run("explicit fields replace defaults", func(t *testing.T) {
		req := verifyQuery(t, "Cabin", "fields=name,facilities")
		require.Empty(t, req.Errors())
		assert.Equal(t, []string{"name"}, req.SelectedFields())
		assert.Contains(t, req.Children(), "facilities")
		assert.NotContains(t, req.Children(), "area")
		assert.Equal(t, []string{"description", "id", "name"}, req.Children()["facilities"].SelectedFields())
	})

	t.Run("all fields", func(t *testing.T) {
		req := verifyJSON(t, "Cabin", `{"fields": ["*"]}`)
		require.Empty(t, req.Errors())
		assert.Equal(t, []string{"altitude", "areaId", "description", "geometry", "id", "name", "open", "updatedAt"}, req.SelectedFields())
	})

	t.Run("unknown field", func(t *testing.T) {
		req := verifyQuery(t, "Cabin", "fields=name,secret")
		assert.Equal(t, []string{`fields: invalid field "secret"`}, Messages(req.Errors()))
	})

	t.Run("wrong shape", func(t *testing.T) {
		req := verifyJSON(t, "Cabin", `{"fields": {"name": true}}`)
		assert.Equal(t, []string{"fields: invalid value: fields must be an array of strings"}, Messages(req.Errors()))
	})
}

func TestFullText(t *testing.T) {
	req := verifyQuery(t, "Cabin", "q=++hytte+ved+sj%C3%B8en+&language=NB")
	require.Empty(t, req.Errors())
	assert.Equal(t, "hytte ved sjøen", req.Params().Query)
	assert.Equal(t, "norwegian", req.Params().Language)

	req = verifyQuery(t, "Cabin", "q=hytte")
	assert.Equal(t, DefaultLanguage, req.Params().Language)

	req = verifyQuery(t, "Cabin", "q=hytte&language=de")
	assert.Equal(t, []string{`language: unsupported language "de", expected one of en, nb`}, Messages(req.Errors()))

	req = verifyQuery(t, "Cabin", "facilities.q=wifi")
	assert.Equal(t, []string{"facilities.q: full-text search is not supported here"}, Messages(req.Errors()))
}

func TestQueryRejectsStructuredFilters(t *testing.T) {
	req := verifyQuery(t, "Cabin", "filters=x")
	assert.Equal(t, []string{"filters: structured filters require a JSON body"}, Messages(req.Errors()))
}

func TestJSONRelations(t *testing.T) {
	req := verifyJSON(t, "Cabin", `{"facilities": {"name": "wifi", "fields": ["name"]}, "area": "", "limit": 5}`)

	require.Empty(t, req.Errors())
	assert.Equal(t, 5, req.Params().Limit)
	assert.Equal(t, JoinInner, req.JoinTypes()["area"])
	facilities := req.Children()["facilities"]
	require.NotNil(t, facilities)
	assert.Equal(t, []string{"name"}, facilities.SelectedFields())
	assert.Equal(t, filter.AndOf(eq("name", "wifi", false)), facilities.Compiled())

	req = verifyJSON(t, "Area", `{"trips": "x"}`)
	assert.Equal(t, []string{"trips: invalid value: expected an object"}, Messages(req.Errors()))
}

func TestMaxDepth(t *testing.T) {
	req := verifyQuery(t, "Area", "cabins.area.cabins.area.cabins.name=x")

	assert.Equal(t, []string{
		"cabins.area.cabins.area.cabins: relations nested deeper than 4 levels are not supported",
	}, Messages(req.Errors()))
}

func TestErrorsAreASet(t *testing.T) {
	const query = "cabins.foo=1&trips.bar=2&cabins.area.baz=3&qux=4&trips.limit=0"
	first := verifyQuery(t, "Area", query)
	for i := 0; i < 10; i++ {
		again := verifyQuery(t, "Area", query)
		assert.ElementsMatch(t, first.Errors(), again.Errors())
	}
	assert.Len(t, first.Errors(), 5)
	assert.ElementsMatch(t, first.Errors(), ValidationErrors(first.Err()))
}

func TestErrNilWithoutErrors(t *testing.T) {
	req := verifyQuery(t, "Cabin", "name=x")
	assert.NoError(t, req.Err())
}

func TestNormalize(t *testing.T) {
	p := Normalize(Query{}, "DF.Area.Name[]", []string{"x"}, true, "cabins")
	assert.True(t, p.Self)
	assert.Equal(t, "area.name", p.NormalizedKey)
	assert.Equal(t, []string{"area", "name"}, p.DotPath)
	assert.Equal(t, "area", p.FirstPathSegment)
	assert.Equal(t, "cabins.DF.Area.Name[]", p.Trace)

	p = Normalize(JSON{}, "area.name", "x", true, "")
	assert.False(t, p.Self)
	assert.Equal(t, []string{"area.name"}, p.DotPath)
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
