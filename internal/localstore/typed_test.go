package localstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestTypedFallsBackWhenAbsent(t *testing.T) {
	typed := NewTyped[[]sample](NewMemoryStore(), "ns")
	got, err := typed.Get(context.Background(), "k", []sample{{Name: "default"}})
	require.NoError(t, err)
	assert.Equal(t, []sample{{Name: "default"}}, got)
}

func TestTypedFallsBackWhenMalformed(t *testing.T) {
	backend := NewMemoryStore()
	require.NoError(t, backend.Save(context.Background(), "ns:k", []byte("{not json")))

	typed := NewTyped[[]sample](backend, "ns")
	got, err := typed.Get(context.Background(), "k", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTypedRoundTripsFullValue(t *testing.T) {
	ctx := context.Background()
	typed := NewTyped[[]sample](NewMemoryStore(), "ns")

	require.NoError(t, typed.Set(ctx, "k", []sample{{Name: "a", Count: 1}, {Name: "b", Count: 2}}))
	require.NoError(t, typed.Set(ctx, "k", []sample{{Name: "c", Count: 3}}))

	got, err := typed.Get(ctx, "k", nil)
	require.NoError(t, err)
	assert.Equal(t, []sample{{Name: "c", Count: 3}}, got)
}

func TestTypedNamespacesKeys(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryStore()
	a := NewTyped[int](backend, "a")
	b := NewTyped[int](backend, "b")

	require.NoError(t, a.Set(ctx, "k", 1))
	require.NoError(t, b.Set(ctx, "k", 2))

	gotA, _ := a.Get(ctx, "k", 0)
	gotB, _ := b.Get(ctx, "k", 0)
	assert.Equal(t, 1, gotA)
	assert.Equal(t, 2, gotB)
	assert.Equal(t, "a:k", a.Key("k"))
}

type failingBackend struct{}

func (failingBackend) Load(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}
func (failingBackend) Save(context.Context, string, []byte) error { return errors.New("backend down") }
func (failingBackend) Delete(context.Context, string) error       { return errors.New("backend down") }

func TestTypedReturnsBackendErrors(t *testing.T) {
	typed := NewTyped[int](failingBackend{}, "ns")
	got, err := typed.Get(context.Background(), "k", 7)
	assert.Error(t, err)
	assert.Equal(t, 7, got)
	assert.Error(t, typed.Set(context.Background(), "k", 1))
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	value := []byte("abc")
	require.NoError(t, s.Save(ctx, "k", value))
	value[0] = 'z'

	got, ok, err := s.Load(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", string(got))
}
