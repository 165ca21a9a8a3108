package store

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
)

// TextAnalyzerName is the analyzer for wildcard-searched text fields:
// unicode tokens lowered, no stemming, so `*term*` containment matches
// the indexed terms literally.
const TextAnalyzerName = "lowercase_text"

// Wildcard-searched free text.
var textFields = []string{
	"objeto", "agencia", "oficina", "referencia", "observaciones", "contacto",
}

// Exact-match single terms. Dates are canonical "2006-01-02 15:04:05"
// strings, so term ranges compare lexicographically = chronologically.
var keywordFields = []string{
	"publicado", "actualizado", "apertura", "cierre", "cargado", "editado",
	"pais_nombre", "divisaSimboloISO",
}

var numericFields = []string{
	"id", "monto", "tasaCambioUSD", "tipo_id", "tipo_cliente_id",
	"pais_id", "tag_ids", "mercado_ids", "attachs",
}

var booleanFields = []string{"visible", "vigente"}

// buildIndexMapping creates the Bleve index mapping for publication
// documents. Documents are sparse; unmapped keys fall back to the default
// analyzer.
func buildIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(TextAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = TextAnalyzerName

	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = TextAnalyzerName
	for _, f := range textFields {
		doc.AddFieldMappingsAt(f, text)
	}

	kw := bleve.NewTextFieldMapping()
	kw.Analyzer = keyword.Name
	for _, f := range keywordFields {
		doc.AddFieldMappingsAt(f, kw)
	}

	num := bleve.NewNumericFieldMapping()
	for _, f := range numericFields {
		doc.AddFieldMappingsAt(f, num)
	}

	boolean := bleve.NewBooleanFieldMapping()
	for _, f := range booleanFields {
		doc.AddFieldMappingsAt(f, boolean)
	}

	indexMapping.DefaultMapping = doc

	return indexMapping, nil
}
