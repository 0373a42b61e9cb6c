// Package search implements the lookup search gateway on top of bleve indexes.
// A knowledge graph is a set of category indexes searched together through an alias.
package search

import (
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/linkserve/pkg/lookup"
	"github.com/bastiangx/linkserve/pkg/similarity"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Stored document fields besides the ones the query builders target.
const (
	fieldDescription = "description"
	fieldTypes       = "types"
	fieldLength      = "length"
	fieldKind        = "kind"
	fieldNERType     = "NERtype"
)

// EntityDocument is the stored form of one knowledge graph entity.
// Types is the space separated list of type ids.
type EntityDocument struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Types       string  `json:"types"`
	Popularity  float64 `json:"popularity"`
	NToken      int     `json:"ntoken"`
	Length      int     `json:"length"`
	Kind        string  `json:"kind,omitempty"`
	NERType     string  `json:"NERtype,omitempty"`
}

// NewEntityDocument fills the derived token count and length from name.
func NewEntityDocument(id, name, description string, types []string, popularity float64) EntityDocument {
	return EntityDocument{
		ID:          id,
		Name:        name,
		Description: description,
		Types:       strings.Join(types, " "),
		Popularity:  popularity,
		NToken:      len(similarity.Tokens(similarity.Clean(name))),
		Length:      utf8.RuneCountInString(name),
	}
}

// EntityMapping is the index mapping every category index is built with.
// Only the fields queries filter or sort on are indexed, the rest are stored.
func EntityMapping() mapping.IndexMapping {
	id := bleve.NewKeywordFieldMapping()
	id.Analyzer = keyword.Name

	name := bleve.NewTextFieldMapping()

	numeric := bleve.NewNumericFieldMapping()

	storedOnly := bleve.NewTextFieldMapping()
	storedOnly.Index = false
	storedOnly.IncludeInAll = false

	storedNumeric := bleve.NewNumericFieldMapping()
	storedNumeric.Index = false

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(lookup.FieldID, id)
	doc.AddFieldMappingsAt(lookup.FieldName, name)
	doc.AddFieldMappingsAt(lookup.FieldTokens, numeric)
	doc.AddFieldMappingsAt(lookup.FieldPopularity, numeric)
	doc.AddFieldMappingsAt(fieldLength, storedNumeric)
	doc.AddFieldMappingsAt(fieldDescription, storedOnly)
	doc.AddFieldMappingsAt(fieldTypes, storedOnly)
	doc.AddFieldMappingsAt(fieldKind, storedOnly)
	doc.AddFieldMappingsAt(fieldNERType, storedOnly)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}
