package search

import (
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2/search/query"
)

// Free-text terms are matched by containment across these fields.
var freeTextFields = []string{"objeto", "agencia", "oficina", "referencia"}

// CompiledQuery is the structured boolean form of a parameter set:
// explicit must/filter/should clause lists plus the minimum number of
// should clauses a hit needs. The visibility constraint is always
// present in the filter list; there is no way to compile a query that
// reaches hidden records.
type CompiledQuery struct {
	Must               []query.Query
	Filter             []query.Query
	Should             []query.Query
	MinimumShouldMatch int
}

// BleveQuery renders the tree into one executable boolean query.
// Filters join the must side; Bleve scores them anyway, which is fine
// because results are sorted by edit recency, not relevance.
func (c *CompiledQuery) BleveQuery() query.Query {
	musts := make([]query.Query, 0, len(c.Must)+len(c.Filter))
	musts = append(musts, c.Must...)
	musts = append(musts, c.Filter...)

	boolean := query.NewBooleanQuery(musts, c.Should, nil)
	if len(c.Should) > 0 {
		boolean.SetMinShould(float64(c.MinimumShouldMatch))
	}
	return boolean
}

// Compile translates the filter parameters into the boolean tree. An
// empty parameter set degenerates to match-everything plus the
// mandatory visibility clause, never a literally unconstrained query.
func Compile(p Params) *CompiledQuery {
	p = p.normalized()
	c := &CompiledQuery{}

	if p.Search != "" {
		for _, field := range freeTextFields {
			c.Should = append(c.Should, containsQuery(field, p.Search))
		}
		c.MinimumShouldMatch = 1
	}

	if p.Objeto != "" {
		c.Must = append(c.Must, containsQuery("objeto", p.Objeto))
	}
	if p.Agencia != "" {
		c.Must = append(c.Must, containsQuery("agencia", p.Agencia))
	}

	if country := categorical(p.Pais); country != "" {
		if id, err := strconv.ParseInt(country, 10, 64); err == nil {
			c.Filter = append(c.Filter, numericEquals("pais_id", id))
		} else {
			c.Filter = append(c.Filter, exactTerm("pais_nombre", country))
		}
	}

	if rubro := categorical(p.Rubro); rubro != "" {
		// Non-numeric rubro values are silently ignored, matching the
		// legacy callers.
		if id, err := strconv.ParseInt(rubro, 10, 64); err == nil {
			c.Filter = append(c.Filter, numericEquals("tag_ids", id))
		}
	}

	if p.FilterMode == FilterModeUserTags && len(p.UserTagIDs) > 0 {
		c.Filter = append(c.Filter, termsQuery("tag_ids", p.UserTagIDs))
	}

	if p.AperturaFr != "" || p.AperturaTo != "" {
		c.Filter = append(c.Filter, aperturaRange(p.AperturaFr, p.AperturaTo))
	}

	// Either flag alone restricts to current publications; excluding
	// expired ones and asking for current ones are the same constraint.
	if p.IncluirVencidos == "0" || p.SoloVigentes == "1" {
		c.Filter = append(c.Filter, boolField("vigente"))
	}

	// Mandatory visibility clause, regardless of everything above.
	c.Filter = append(c.Filter, boolField("visible"))

	if len(c.Must) == 0 && len(c.Should) == 0 {
		c.Must = append(c.Must, query.NewMatchAllQuery())
	}

	return c
}

// categorical resolves a categorical parameter: empty or the "all"
// sentinel means no constraint.
func categorical(v string) string {
	if strings.EqualFold(v, AllSentinel) {
		return ""
	}
	return v
}

// containsQuery matches field values containing term. The text fields
// are indexed lowercased, and wildcard queries bypass analysis, so the
// term is lowered here.
func containsQuery(field, term string) query.Query {
	q := query.NewWildcardQuery("*" + strings.ToLower(term) + "*")
	q.SetField(field)
	return q
}

// exactTerm matches a keyword field exactly.
func exactTerm(field, term string) query.Query {
	q := query.NewTermQuery(term)
	q.SetField(field)
	return q
}

// numericEquals matches a numeric field by exact id equality.
func numericEquals(field string, id int64) query.Query {
	v := float64(id)
	inclusive := true
	q := query.NewNumericRangeInclusiveQuery(&v, &v, &inclusive, &inclusive)
	q.SetField(field)
	return q
}

// termsQuery is the multi-value exact match: any of ids.
func termsQuery(field string, ids []int64) query.Query {
	clauses := make([]query.Query, 0, len(ids))
	for _, id := range ids {
		clauses = append(clauses, numericEquals(field, id))
	}
	return query.NewDisjunctionQuery(clauses)
}

// boolField matches field = true.
func boolField(field string) query.Query {
	q := query.NewBoolFieldQuery(true)
	q.SetField(field)
	return q
}

// aperturaRange bounds the opening date. Each bound is independently
// optional. A dd/mm/yyyy value becomes the canonical start-of-day or
// end-of-day boundary; any other value is treated as an already
// canonical date and gets the same boundary suffix, a lenient fallback
// legacy callers sending Y-m-d rely on. Canonical date strings compare
// lexicographically in chronological order, so a term range suffices.
func aperturaRange(from, to string) query.Query {
	minBound := dayBoundary(from, "00:00:00")
	maxBound := dayBoundary(to, "23:59:59")

	inclusive := true
	q := query.NewTermRangeInclusiveQuery(minBound, maxBound, &inclusive, &inclusive)
	q.SetField("apertura")
	return q
}

// dayBoundary converts dd/mm/yyyy input to "2006-01-02 HH:MM:SS".
func dayBoundary(v, boundary string) string {
	if v == "" {
		return ""
	}
	t, err := time.Parse("02/01/2006", v)
	if err != nil {
		return v + " " + boundary
	}
	return t.Format("2006-01-02") + " " + boundary
}
