package planaccion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EducacionBuga/educacion-buga-sub003/internal/localstore"
)

func TestListEmptyArea(t *testing.T) {
	svc := NewService(localstore.NewMemoryStore())
	items, err := svc.List(context.Background(), "area-1")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestAddAssignsIDAndNumero(t *testing.T) {
	ctx := context.Background()
	svc := NewService(localstore.NewMemoryStore())

	first, err := svc.Add(ctx, "area-1", Item{Meta: "Cobertura", Avance: 150})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "1", first.Numero)
	assert.Equal(t, 100, first.Avance)
	assert.Equal(t, "Pendiente", first.Estado)

	second, err := svc.Add(ctx, "area-1", Item{Meta: "Calidad", Estado: "En progreso", Avance: -5})
	require.NoError(t, err)
	assert.Equal(t, "2", second.Numero)
	assert.Equal(t, 0, second.Avance)
	assert.Equal(t, "En progreso", second.Estado)

	items, err := svc.List(ctx, "area-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, second.ID, items[1].ID)
}

func TestAddIgnoresClientID(t *testing.T) {
	svc := NewService(localstore.NewMemoryStore())
	item, err := svc.Add(context.Background(), "area-1", Item{ID: "client-id"})
	require.NoError(t, err)
	assert.NotEqual(t, "client-id", item.ID)
}

func TestUpdateKeepsIDAndNumero(t *testing.T) {
	ctx := context.Background()
	svc := NewService(localstore.NewMemoryStore())
	created, err := svc.Add(ctx, "area-1", Item{Meta: "Cobertura"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "area-1", created.ID, Item{ID: "other", Meta: "Cobertura total", Avance: 40})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.Numero, updated.Numero)
	assert.Equal(t, "Cobertura total", updated.Meta)
	assert.Equal(t, 40, updated.Avance)

	_, err = svc.Update(ctx, "area-1", "missing", Item{})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	svc := NewService(localstore.NewMemoryStore())
	a, _ := svc.Add(ctx, "area-1", Item{Meta: "a"})
	b, _ := svc.Add(ctx, "area-1", Item{Meta: "b"})

	require.NoError(t, svc.Remove(ctx, "area-1", a.ID))
	items, err := svc.List(ctx, "area-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)

	assert.ErrorIs(t, svc.Remove(ctx, "area-1", a.ID), ErrItemNotFound)
}

func TestReplaceOverwritesWholeList(t *testing.T) {
	ctx := context.Background()
	svc := NewService(localstore.NewMemoryStore())
	_, _ = svc.Add(ctx, "area-1", Item{Meta: "old"})

	replaced, err := svc.Replace(ctx, "area-1", []Item{{Numero: "7", Meta: "x"}, {Meta: "y"}})
	require.NoError(t, err)
	require.Len(t, replaced, 2)
	assert.Equal(t, "7", replaced[0].Numero)
	assert.Equal(t, "8", replaced[1].Numero)

	items, _ := svc.List(ctx, "area-1")
	assert.Equal(t, replaced, items)
}

func TestAreasAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc := NewService(localstore.NewMemoryStore())
	_, _ = svc.Add(ctx, "area-1", Item{Meta: "a"})

	items, err := svc.List(ctx, "area-2")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMalformedStoredValueFallsBackToEmpty(t *testing.T) {
	ctx := context.Background()
	backend := localstore.NewMemoryStore()
	require.NoError(t, backend.Save(ctx, Namespace+":area-1", []byte("not json")))

	items, err := NewService(backend).List(ctx, "area-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}
