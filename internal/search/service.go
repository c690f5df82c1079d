package search

import (
	"context"

	"go.uber.org/zap"
)

const (
	EngineMeili    = "meilisearch"
	EnginePostgres = "postgres"
)

// Service is the facade that tries Meilisearch first and falls back to
// Postgres.
type Service struct {
	index    Index
	fallback *Postgres
	logger   *zap.Logger
}

// NewService creates a search service. index may be nil if Meilisearch is
// not configured.
func NewService(index Index, fallback *Postgres, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{index: index, fallback: fallback, logger: logger}
}

func (s *Service) indexReady() bool {
	return s.index != nil && s.index.Healthy()
}

// Search tries the index if healthy, otherwise falls back to Postgres.
func (s *Service) Search(ctx context.Context, q Query) (Response, error) {
	if s.indexReady() {
		results, total, err := s.index.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Engine: EngineMeili}, nil
		}
		s.logger.Warn("meilisearch error, falling back to postgres", zap.Error(err))
	}

	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		return Response{}, err
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Engine: EnginePostgres}, nil
}

// IndexDocument indexes a document (fire-and-forget).
func (s *Service) IndexDocument(doc DocumentRecord) {
	if !s.indexReady() {
		return
	}
	go func() {
		if err := s.index.IndexDocument(doc); err != nil {
			s.logger.Warn("index document", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}()
}

// DeleteDocument removes a document from the index (fire-and-forget).
func (s *Service) DeleteDocument(id string) {
	if !s.indexReady() {
		return
	}
	go func() {
		if err := s.index.DeleteDocument(id); err != nil {
			s.logger.Warn("delete indexed document", zap.String("document_id", id), zap.Error(err))
		}
	}()
}

// ReindexAll pushes every stored document into the index. It runs at
// startup so documents written while the index was down become findable.
func (s *Service) ReindexAll(ctx context.Context) {
	if !s.indexReady() || s.fallback == nil {
		return
	}
	records, err := s.fallback.LoadAllRecords(ctx)
	if err != nil {
		s.logger.Warn("reindex load failed", zap.Error(err))
		return
	}
	if err := s.index.IndexDocuments(records); err != nil {
		s.logger.Warn("reindex documents", zap.Error(err))
		return
	}
	s.logger.Info("reindexed documents", zap.Int("count", len(records)))
}

func nonNil(r []Hit) []Hit {
	if r == nil {
		return []Hit{}
	}
	return r
}
