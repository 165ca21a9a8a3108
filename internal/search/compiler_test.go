package search

import (
	"testing"

	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// filterFields returns the field of every filter clause, for asserting
// which constraints were compiled in.
func filterFields(c *CompiledQuery) []string {
	fields := make([]string, 0, len(c.Filter))
	for _, q := range c.Filter {
		switch fq := q.(type) {
		case *query.NumericRangeQuery:
			fields = append(fields, fq.FieldVal)
		case *query.TermQuery:
			fields = append(fields, fq.FieldVal)
		case *query.TermRangeQuery:
			fields = append(fields, fq.FieldVal)
		case *query.BoolFieldQuery:
			fields = append(fields, fq.FieldVal)
		case *query.DisjunctionQuery:
			fields = append(fields, "disjunction")
		}
	}
	return fields
}

func TestCompile_EmptyParamsKeepsVisibilityClause(t *testing.T) {
	// When: compiling an empty parameter set
	c := Compile(Params{})

	// Then: the query degenerates to match-all plus the mandatory
	// visibility clause, never a literally unconstrained query
	require.Len(t, c.Must, 1)
	assert.IsType(t, &query.MatchAllQuery{}, c.Must[0])

	require.Len(t, c.Filter, 1)
	visible, ok := c.Filter[0].(*query.BoolFieldQuery)
	require.True(t, ok)
	assert.Equal(t, "visible", visible.FieldVal)
	assert.True(t, visible.Bool)
}

func TestCompile_FreeTextSearch(t *testing.T) {
	// When: compiling a free-text term
	c := Compile(Params{Search: "Hospital"})

	// Then: one should wildcard per text field, minimum one must match
	require.Len(t, c.Should, 4)
	assert.Equal(t, 1, c.MinimumShouldMatch)

	fields := make([]string, 0, 4)
	for _, q := range c.Should {
		wq, ok := q.(*query.WildcardQuery)
		require.True(t, ok)
		assert.Equal(t, "*hospital*", wq.Wildcard)
		fields = append(fields, wq.FieldVal)
	}
	assert.ElementsMatch(t, []string{"objeto", "agencia", "oficina", "referencia"}, fields)
}

func TestCompile_ScopedTextFilters(t *testing.T) {
	c := Compile(Params{Objeto: "puente", Agencia: "MOP"})

	require.Len(t, c.Must, 2)
	objeto, ok := c.Must[0].(*query.WildcardQuery)
	require.True(t, ok)
	assert.Equal(t, "objeto", objeto.FieldVal)
	assert.Equal(t, "*puente*", objeto.Wildcard)

	agencia, ok := c.Must[1].(*query.WildcardQuery)
	require.True(t, ok)
	assert.Equal(t, "agencia", agencia.FieldVal)
	assert.Equal(t, "*mop*", agencia.Wildcard)
}

func TestCompile_CountryFilter(t *testing.T) {
	tests := []struct {
		name      string
		pais      string
		wantField string
	}{
		{name: "sentinel imposes no constraint", pais: "all", wantField: ""},
		{name: "empty imposes no constraint", pais: "", wantField: ""},
		{name: "numeric matches id", pais: "7", wantField: "pais_id"},
		{name: "name matches display name", pais: "Chile", wantField: "pais_nombre"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Compile(Params{Pais: tt.pais})

			fields := filterFields(c)
			if tt.wantField == "" {
				assert.Equal(t, []string{"visible"}, fields)
				return
			}
			assert.Equal(t, []string{tt.wantField, "visible"}, fields)
		})
	}
}

func TestCompile_CountryByIDIsExactEquality(t *testing.T) {
	c := Compile(Params{Pais: "7"})

	nr, ok := c.Filter[0].(*query.NumericRangeQuery)
	require.True(t, ok)
	require.NotNil(t, nr.Min)
	require.NotNil(t, nr.Max)
	assert.Equal(t, float64(7), *nr.Min)
	assert.Equal(t, float64(7), *nr.Max)
	assert.True(t, *nr.InclusiveMin)
	assert.True(t, *nr.InclusiveMax)
}

func TestCompile_CountryByNameIsExactTerm(t *testing.T) {
	c := Compile(Params{Pais: "Chile"})

	tq, ok := c.Filter[0].(*query.TermQuery)
	require.True(t, ok)
	assert.Equal(t, "Chile", tq.Term)
}

func TestCompile_RubroNonNumericIgnored(t *testing.T) {
	// Non-numeric rubro is dropped, not an error: legacy behavior.
	c := Compile(Params{Rubro: "construcción"})
	assert.Equal(t, []string{"visible"}, filterFields(c))

	c = Compile(Params{Rubro: "9"})
	assert.Equal(t, []string{"tag_ids", "visible"}, filterFields(c))
}

func TestCompile_UserTagMembership(t *testing.T) {
	// Given: a tag set without the mode flag
	c := Compile(Params{UserTagIDs: []int64{3, 9}})

	// Then: no membership clause
	assert.Equal(t, []string{"visible"}, filterFields(c))

	// When: the mode flag requests it
	c = Compile(Params{UserTagIDs: []int64{3, 9}, FilterMode: FilterModeUserTags})

	// Then: a multi-value exact match on tag_ids
	require.Len(t, c.Filter, 2)
	disj, ok := c.Filter[0].(*query.DisjunctionQuery)
	require.True(t, ok)
	assert.Len(t, disj.Disjuncts, 2)

	// And: an empty set with the flag imposes nothing
	c = Compile(Params{FilterMode: FilterModeUserTags})
	assert.Equal(t, []string{"visible"}, filterFields(c))
}

func TestCompile_AperturaRange(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantMin string
		wantMax string
	}{
		{
			name:    "both bounds canonical",
			from:    "02/01/2026",
			to:      "15/01/2026",
			wantMin: "2026-01-02 00:00:00",
			wantMax: "2026-01-15 23:59:59",
		},
		{
			name:    "lower bound only",
			from:    "02/01/2026",
			wantMin: "2026-01-02 00:00:00",
		},
		{
			name:    "upper bound only",
			to:      "15/01/2026",
			wantMax: "2026-01-15 23:59:59",
		},
		{
			name:    "legacy Y-m-d lower bound keeps the day start",
			from:    "2026-01-02",
			wantMin: "2026-01-02 00:00:00",
		},
		{
			name:    "legacy Y-m-d upper bound keeps the day end",
			to:      "2026-01-02",
			wantMax: "2026-01-02 23:59:59",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Compile(Params{AperturaFr: tt.from, AperturaTo: tt.to})

			require.Len(t, c.Filter, 2)
			tr, ok := c.Filter[0].(*query.TermRangeQuery)
			require.True(t, ok)
			assert.Equal(t, "apertura", tr.FieldVal)
			assert.Equal(t, tt.wantMin, tr.Min)
			assert.Equal(t, tt.wantMax, tr.Max)
		})
	}
}

func TestCompile_VisibilityToggles(t *testing.T) {
	tests := []struct {
		name        string
		incluir     string
		solo        string
		wantVigente bool
	}{
		{name: "both unset imposes nothing", wantVigente: false},
		{name: "exclude expired", incluir: "0", wantVigente: true},
		{name: "include expired", incluir: "1", wantVigente: false},
		{name: "only current", solo: "1", wantVigente: true},
		{name: "either flag restricts", incluir: "1", solo: "1", wantVigente: true},
		{name: "excluding expired overrides an explicit zero", incluir: "0", solo: "0", wantVigente: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Compile(Params{IncluirVencidos: tt.incluir, SoloVigentes: tt.solo})

			fields := filterFields(c)
			if tt.wantVigente {
				assert.Equal(t, []string{"vigente", "visible"}, fields)
			} else {
				assert.Equal(t, []string{"visible"}, fields)
			}
		})
	}
}

func TestCompiledQuery_BleveQueryRendersBoolean(t *testing.T) {
	c := Compile(Params{Search: "hospital", Pais: "7"})

	boolean, ok := c.BleveQuery().(*query.BooleanQuery)
	require.True(t, ok)
	assert.NotNil(t, boolean.Must)
	assert.NotNil(t, boolean.Should)
}
