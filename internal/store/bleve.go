package store

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// BleveIndex implements LexicalIndex over Bleve v2. Bleve scores are
// positive-is-better, so they are negated to fit the pipeline convention.
// BoltDB holds an exclusive file lock, so this backend is single-process.
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ LexicalIndex = (*BleveIndex)(nil)

// previewMaxChars bounds the preview attached to each hit.
const previewMaxChars = 200

// NewBleveIndex opens or creates a Bleve index at path.
// An empty path creates an in-memory index for testing.
func NewBleveIndex(path string) (*BleveIndex, error) {
	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(buildBleveMapping())
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, buildBleveMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}
	return &BleveIndex{index: idx, path: path}, nil
}

func buildBleveMapping() mapping.IndexMapping {
	contentField := bleve.NewTextFieldMapping()
	contentField.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", contentField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// bleveDocument is the indexed document shape.
type bleveDocument struct {
	Content string `json:"content"`
}

// Index adds entries in one batch.
func (b *BleveIndex) Index(ctx context.Context, entries []*EchoEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, e := range entries {
		if e == nil || e.ID == "" {
			continue
		}
		if err := batch.Index(e.ID, bleveDocument{Content: e.Content}); err != nil {
			return fmt.Errorf("batch entry %s: %w", e.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("index batch: %w", err)
	}
	return nil
}

// Search runs one facet against the index and negates Bleve's scores so
// more negative means more relevant.
func (b *BleveIndex) Search(ctx context.Context, facet string, limit int) ([]*LexicalHit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if limit <= 0 {
		limit = 20
	}

	query := bleve.NewMatchQuery(facet)
	query.SetField("content")
	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	req.Fields = []string{"content"}

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	hits := make([]*LexicalHit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		preview := ""
		if content, ok := hit.Fields["content"].(string); ok {
			preview = truncatePreview(content, previewMaxChars)
		}
		hits = append(hits, &LexicalHit{
			ID:      hit.ID,
			Score:   -hit.Score,
			Preview: preview,
		})
	}
	return hits, nil
}

// Reset removes every indexed document.
func (b *BleveIndex) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("index is closed")
	}

	count, err := b.index.DocCount()
	if err != nil {
		return fmt.Errorf("doc count: %w", err)
	}
	if count == 0 {
		return nil
	}

	match := bleve.NewMatchAllQuery()
	req := bleve.NewSearchRequestOptions(match, int(count), 0, false)
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return fmt.Errorf("enumerate documents: %w", err)
	}

	batch := b.index.NewBatch()
	for _, hit := range res.Hits {
		batch.Delete(hit.ID)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return nil
}

// Close releases the index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

func truncatePreview(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars]) + "…"
}
