// Package index is the full-text search backend. Documents are keyed by
// content hash, so indexing the same hash twice replaces the document.
package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	id "blurifier/pkg/domain"
)

const (
	fieldContentHash   = "content_hash"
	fieldOriginalText  = "original_text"
	fieldProcessedText = "processed_text"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("search index is closed")

// Document is one indexed submission.
type Document struct {
	ContentHash   id.ContentHash `json:"content_hash"`
	OriginalText  string         `json:"original_text"`
	ProcessedText *string        `json:"processed_text"`
}

// BleveIndex stores documents in a bleve index on disk, or in memory when
// no path is configured. The index is opened lazily by EnsureIndex.
type BleveIndex struct {
	path string

	mu      sync.RWMutex
	idx     bleve.Index
	closed  bool
	created bool
}

func NewBleve(path string) *BleveIndex {
	return &BleveIndex{path: path}
}

// EnsureIndex opens the index, creating it with the document mapping if
// absent. Safe to call repeatedly and concurrently.
func (b *BleveIndex) EnsureIndex(_ context.Context) error {
	b.mu.RLock()
	ready, closed := b.idx != nil, b.closed
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if ready {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.idx != nil {
		return nil
	}
	idx, created, err := b.open()
	if err != nil {
		return err
	}
	b.idx = idx
	b.created = created
	return nil
}

// TakeCreated reports whether EnsureIndex built an empty index rather than
// opening an existing one. It returns true at most once per handle.
func (b *BleveIndex) TakeCreated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	created := b.created
	b.created = false
	return created
}

func (b *BleveIndex) open() (bleve.Index, bool, error) {
	if b.path == "" {
		idx, err := bleve.NewMemOnly(documentMapping())
		if err != nil {
			return nil, false, fmt.Errorf("create in-memory index: %w", err)
		}
		return idx, true, nil
	}
	if _, err := os.Stat(b.path); err == nil {
		idx, err := bleve.Open(b.path)
		if err != nil {
			return nil, false, fmt.Errorf("open index %s: %w", b.path, err)
		}
		return idx, false, nil
	}
	idx, err := bleve.New(b.path, documentMapping())
	if err != nil {
		return nil, false, fmt.Errorf("create index %s: %w", b.path, err)
	}
	return idx, true, nil
}

func documentMapping() mapping.IndexMapping {
	keyword := bleve.NewKeywordFieldMapping()
	text := bleve.NewTextFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(fieldContentHash, keyword)
	doc.AddFieldMappingsAt(fieldOriginalText, text)
	doc.AddFieldMappingsAt(fieldProcessedText, text)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Upsert writes doc under its content hash.
func (b *BleveIndex) Upsert(ctx context.Context, doc Document) error {
	if err := b.EnsureIndex(ctx); err != nil {
		return err
	}
	fields := map[string]any{
		fieldContentHash:  doc.ContentHash.String(),
		fieldOriginalText: doc.OriginalText,
	}
	if doc.ProcessedText != nil {
		fields[fieldProcessedText] = *doc.ProcessedText
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	if err := b.idx.Index(doc.ContentHash.String(), fields); err != nil {
		return fmt.Errorf("index %s: %w", doc.ContentHash, err)
	}
	return nil
}

// Search runs a fuzzy OR match on the original text and returns at most
// size documents in relevance order.
func (b *BleveIndex) Search(ctx context.Context, text string, size, fuzziness int) ([]Document, error) {
	if err := b.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	q := bleve.NewMatchQuery(text)
	q.SetField(fieldOriginalText)
	q.SetFuzziness(fuzziness)
	q.SetOperator(query.MatchQueryOperatorOr)

	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	req.Fields = []string{fieldContentHash, fieldOriginalText, fieldProcessedText}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	res, err := b.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	docs := make([]Document, 0, len(res.Hits))
	for _, hit := range res.Hits {
		doc := Document{ContentHash: id.ContentHash(hit.ID)}
		if v, ok := hit.Fields[fieldOriginalText].(string); ok {
			doc.OriginalText = v
		}
		if v, ok := hit.Fields[fieldProcessedText].(string); ok {
			doc.ProcessedText = &v
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Count returns the number of indexed documents.
func (b *BleveIndex) Count(ctx context.Context) (uint64, error) {
	if err := b.EnsureIndex(ctx); err != nil {
		return 0, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, ErrClosed
	}
	return b.idx.DocCount()
}

func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.idx == nil {
		return nil
	}
	err := b.idx.Close()
	b.idx = nil
	return err
}
