package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EducacionBuga/educacion-buga-sub003/internal/store"
)

type fakeSource struct {
	docs     []store.Document
	lastText string
	filter   store.DocumentFilter
	err      error
}

func (f *fakeSource) SearchDocuments(_ context.Context, text string, filter store.DocumentFilter, _ int) ([]store.Document, error) {
	f.lastText = text
	f.filter = filter
	return f.docs, f.err
}

func (f *fakeSource) ListAllDocuments(context.Context) ([]store.Document, error) {
	return f.docs, f.err
}

type fakeIndex struct {
	healthy bool
	hits    []Hit
	err     error
	indexed []DocumentRecord
}

func (f *fakeIndex) Healthy() bool { return f.healthy }

func (f *fakeIndex) Search(context.Context, Query) ([]Hit, int, error) {
	return f.hits, len(f.hits), f.err
}

func (f *fakeIndex) IndexDocument(doc DocumentRecord) error {
	f.indexed = append(f.indexed, doc)
	return nil
}

func (f *fakeIndex) IndexDocuments(docs []DocumentRecord) error {
	f.indexed = append(f.indexed, docs...)
	return nil
}

func (f *fakeIndex) DeleteDocument(string) error { return nil }

func TestSearchUsesPostgresWithoutIndex(t *testing.T) {
	desc := "Contrato de suministro de papelería"
	source := &fakeSource{docs: []store.Document{{ID: "d1", Name: "contrato.pdf", Description: &desc, AreaID: "a1", ModuleType: "proveedores"}}}
	svc := NewService(nil, NewPostgres(source), nil)

	resp, err := svc.Search(context.Background(), Query{Text: "suministro", AreaID: "a1", ModuleType: "proveedores"})
	require.NoError(t, err)
	assert.Equal(t, EnginePostgres, resp.Engine)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "d1", resp.Results[0].ID)
	assert.Contains(t, resp.Results[0].Snippet, "suministro")
	assert.Equal(t, "a1", source.filter.AreaID)
	assert.Equal(t, "proveedores", source.filter.ModuleType)
}

func TestSearchPrefersHealthyIndex(t *testing.T) {
	index := &fakeIndex{healthy: true, hits: []Hit{{ID: "m1"}}}
	svc := NewService(index, NewPostgres(&fakeSource{}), nil)

	resp, err := svc.Search(context.Background(), Query{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, EngineMeili, resp.Engine)
	assert.Equal(t, "m1", resp.Results[0].ID)
}

func TestSearchFallsBackWhenIndexFails(t *testing.T) {
	index := &fakeIndex{healthy: true, err: errors.New("boom")}
	source := &fakeSource{docs: []store.Document{{ID: "p1"}}}
	svc := NewService(index, NewPostgres(source), nil)

	resp, err := svc.Search(context.Background(), Query{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, EnginePostgres, resp.Engine)
	assert.Equal(t, "p1", resp.Results[0].ID)
}

func TestSearchReturnsEmptySliceNotNil(t *testing.T) {
	svc := NewService(nil, NewPostgres(&fakeSource{}), nil)
	resp, err := svc.Search(context.Background(), Query{Text: "nada"})
	require.NoError(t, err)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestSearchPropagatesFallbackError(t *testing.T) {
	svc := NewService(nil, NewPostgres(&fakeSource{err: errors.New("db down")}), nil)
	_, err := svc.Search(context.Background(), Query{Text: "x"})
	assert.Error(t, err)
}

func TestReindexAllPushesStoredDocuments(t *testing.T) {
	index := &fakeIndex{healthy: true}
	source := &fakeSource{docs: []store.Document{{ID: "d1"}, {ID: "d2"}}}
	NewService(index, NewPostgres(source), nil).ReindexAll(context.Background())
	require.Len(t, index.indexed, 2)
	assert.Equal(t, "d2", index.indexed[1].ID)
}

func TestSnippetClipsAroundMatch(t *testing.T) {
	text := "Este documento describe en detalle el proceso de contratación directa para la vigencia fiscal actual del municipio"
	got := snippet(text, "vigencia")
	assert.Contains(t, got, "vigencia")
	assert.True(t, len([]rune(got)) <= 82)
	assert.Equal(t, "", snippet("", "x"))
}

func TestBuildFilters(t *testing.T) {
	assert.Empty(t, buildFilters(Query{}))
	assert.Equal(t, []string{`areaId = "a1"`, `moduleType = "proveedores"`}, buildFilters(Query{AreaID: "a1", ModuleType: "proveedores"}))
}
