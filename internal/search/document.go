// Package search keeps an in-memory Bleve index of the bookshelf and the
// book sources so the pages can filter them by keyword and group.
package search

import (
	"strconv"
	"strings"

	"github.com/legado-reader/legado-client/internal/content"
	"github.com/legado-reader/legado-client/internal/domain"
)

// Kind discriminates documents in the shared index.
type Kind string

// Document kinds.
const (
	KindBook   Kind = "book"
	KindSource Kind = "source"
)

// Document is one indexed entity.
type Document struct {
	ID     string
	Kind   Kind
	Name   string
	Author string
	Group  string
	URL    string
	// Order keeps the position the entity had in its list.
	Order int
}

func (d *Document) docID() string {
	return string(d.Kind) + ":" + d.ID
}

// toMap converts the document to the field names of the index mapping.
func (d *Document) toMap() map[string]any {
	return map[string]any{
		fieldKind:   string(d.Kind),
		fieldID:     d.ID,
		fieldName:   d.Name,
		fieldAuthor: d.Author,
		fieldGroup:  d.Group,
		fieldFolded: d.folded(),
		fieldOrder:  float64(d.Order),
	}
}

// folded is the text substring matching runs against.
func (d *Document) folded() string {
	parts := []string{d.Name, d.Author, d.Group, d.URL}
	return content.FoldKeyword(strings.Join(parts, "\x1f"))
}

// BookDocuments builds documents for a bookshelf.
func BookDocuments(books []domain.Book) []Document {
	docs := make([]Document, 0, len(books))
	for i, b := range books {
		docs = append(docs, Document{
			ID:     strconv.FormatInt(b.ID, 10),
			Kind:   KindBook,
			Name:   b.Name,
			Author: b.Author,
			Group:  b.OriginName,
			Order:  i,
		})
	}
	return docs
}

// SourceDocuments builds documents for a source list.
func SourceDocuments(sources []domain.BookSource) []Document {
	docs := make([]Document, 0, len(sources))
	for i, s := range sources {
		docs = append(docs, Document{
			ID:    strconv.FormatInt(s.ID, 10),
			Kind:  KindSource,
			Name:  s.SourceName,
			Group: s.SourceGroup,
			Order: i,
		})
	}
	return docs
}
