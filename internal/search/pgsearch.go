package search

import (
	"context"
	"strings"

	"github.com/EducacionBuga/educacion-buga-sub003/internal/store"
)

// DocumentSource is the relational side of document search.
type DocumentSource interface {
	SearchDocuments(ctx context.Context, text string, filter store.DocumentFilter, limit int) ([]store.Document, error)
	ListAllDocuments(ctx context.Context) ([]store.Document, error)
}

// Postgres implements Searcher with ILIKE matching in the database. It is
// always available and serves as the fallback when Meilisearch is down.
type Postgres struct {
	source DocumentSource
}

func NewPostgres(source DocumentSource) *Postgres {
	return &Postgres{source: source}
}

func (p *Postgres) Healthy() bool { return true }

func (p *Postgres) Search(ctx context.Context, q Query) ([]Hit, int, error) {
	docs, err := p.source.SearchDocuments(ctx, q.Text, store.DocumentFilter{
		AreaID:     q.AreaID,
		ModuleType: q.ModuleType,
	}, q.Limit)
	if err != nil {
		return nil, 0, err
	}
	hits := make([]Hit, 0, len(docs))
	for _, doc := range docs {
		rec := RecordFromDocument(doc)
		hits = append(hits, Hit{
			ID:          rec.ID,
			Name:        rec.Name,
			Description: rec.Description,
			Snippet:     snippet(rec.Description, q.Text),
			FileType:    rec.FileType,
			FolderID:    rec.FolderID,
			AreaID:      rec.AreaID,
			ModuleType:  rec.ModuleType,
		})
	}
	return hits, len(hits), nil
}

// LoadAllRecords returns every stored document as an index record.
func (p *Postgres) LoadAllRecords(ctx context.Context) ([]DocumentRecord, error) {
	docs, err := p.source.ListAllDocuments(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]DocumentRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, RecordFromDocument(doc))
	}
	return records, nil
}

// RecordFromDocument maps a stored document onto its index record.
func RecordFromDocument(doc store.Document) DocumentRecord {
	rec := DocumentRecord{
		ID:         doc.ID,
		Name:       doc.Name,
		FileType:   doc.FileType,
		FolderID:   doc.FolderID,
		AreaID:     doc.AreaID,
		ModuleType: doc.ModuleType,
	}
	if doc.Description != nil {
		rec.Description = *doc.Description
	}
	return rec
}

// snippet returns up to 80 characters of text around the first match.
func snippet(text, term string) string {
	text = strings.TrimSpace(text)
	term = strings.TrimSpace(term)
	if text == "" {
		return ""
	}
	runes := []rune(text)
	if term == "" {
		return clip(runes, 0, 80)
	}
	idx := strings.Index(strings.ToLower(text), strings.ToLower(term))
	if idx < 0 {
		return clip(runes, 0, 80)
	}
	start := len([]rune(text[:idx])) - 30
	if start < 0 {
		start = 0
	}
	return clip(runes, start, start+80)
}

func clip(runes []rune, start, end int) string {
	if end > len(runes) {
		end = len(runes)
	}
	out := string(runes[start:end])
	if start > 0 {
		out = "…" + out
	}
	if end < len(runes) {
		out += "…"
	}
	return out
}
