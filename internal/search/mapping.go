package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Field names shared by toMap and the queries.
const (
	fieldKind   = "kind"
	fieldID     = "id"
	fieldName   = "name"
	fieldAuthor = "author"
	fieldGroup  = "group"
	fieldFolded = "folded"
	fieldOrder  = "order"
)

// indexMapping analyzes names and authors as CJK bigrams, since most titles
// are Chinese. The filter fields are indexed as single keywords.
func indexMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	for _, field := range []string{fieldName, fieldAuthor} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = cjk.AnalyzerName
		fm.Store = false
		doc.AddFieldMappingsAt(field, fm)
	}
	for _, field := range []string{fieldKind, fieldID, fieldGroup, fieldFolded} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = field == fieldID
		fm.IncludeInAll = false
		doc.AddFieldMappingsAt(field, fm)
	}
	doc.AddFieldMappingsAt(fieldOrder, bleve.NewNumericFieldMapping())

	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = cjk.AnalyzerName
	m.DefaultMapping = doc
	return m
}
