package search

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// Index wraps an in-memory Bleve index.
//
// All methods are safe for concurrent use.
type Index struct {
	index  bleve.Index
	logger *slog.Logger
	mu     sync.RWMutex

	// ids per kind, so Replace can drop stale documents.
	ids map[Kind][]string
}

// NewIndex creates an empty memory-only index.
func NewIndex(logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	index, err := bleve.NewMemOnly(indexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: index, logger: logger, ids: make(map[Kind][]string)}, nil
}

// Close releases the index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Close()
}

// Replace swaps every document of kind for docs in one batch.
func (ix *Index) Replace(kind Kind, docs []Document) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	batch := ix.index.NewBatch()
	for _, id := range ix.ids[kind] {
		batch.Delete(id)
	}

	ids := make([]string, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		doc.Kind = kind
		if err := batch.Index(doc.docID(), doc.toMap()); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.docID(), err)
		}
		ids = append(ids, doc.docID())
	}

	if err := ix.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	ix.ids[kind] = ids
	ix.logger.Debug("search index updated", "kind", kind, "documents", len(ids))
	return nil
}

// DocumentCount returns the total number of indexed documents.
func (ix *Index) DocumentCount() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.DocCount()
}
