package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/legado-reader/legado-client/internal/content"
)

// Params filters one kind of document.
type Params struct {
	Kind    Kind
	Keyword string
	// Group must match exactly. Empty means any group.
	Group string
}

// Filter returns the ids of documents matching p in their original list
// order. A keyword matches when it occurs, case- and width-insensitively,
// in the name, author, group or url, or when every word of it appears in
// the name.
func (ix *Index) Filter(ctx context.Context, p Params) ([]string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	total := len(ix.ids[p.Kind])
	if total == 0 {
		return []string{}, nil
	}

	req := bleve.NewSearchRequestOptions(buildQuery(p), total, 0, false)
	req.Fields = []string{fieldID}
	req.SortBy([]string{fieldOrder})

	res, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", p.Kind, err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if id, ok := hit.Fields[fieldID].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func buildQuery(p Params) query.Query {
	kindQuery := bleve.NewTermQuery(string(p.Kind))
	kindQuery.SetField(fieldKind)
	queries := []query.Query{kindQuery}

	if p.Group != "" {
		groupQuery := bleve.NewTermQuery(p.Group)
		groupQuery.SetField(fieldGroup)
		queries = append(queries, groupQuery)
	}

	if kw := strings.TrimSpace(p.Keyword); kw != "" {
		queries = append(queries, keywordQuery(kw))
	}

	return bleve.NewConjunctionQuery(queries...)
}

func keywordQuery(kw string) query.Query {
	// Wildcard metacharacters cannot be escaped, so they are dropped.
	folded := strings.NewReplacer("*", "", "?", "").Replace(content.FoldKeyword(kw))
	substring := bleve.NewWildcardQuery("*" + folded + "*")
	substring.SetField(fieldFolded)

	words := bleve.NewMatchQuery(kw)
	words.SetField(fieldName)
	words.SetOperator(query.MatchQueryOperatorAnd)

	return bleve.NewDisjunctionQuery(substring, words)
}
