package localstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Typed reads and writes values of type T under a namespace.
type Typed[T any] struct {
	backend   Backend
	namespace string
}

func NewTyped[T any](backend Backend, namespace string) *Typed[T] {
	return &Typed[T]{backend: backend, namespace: namespace}
}

func (t *Typed[T]) Key(key string) string {
	return t.namespace + ":" + key
}

// Get returns the stored value, or fallback when the key is absent or the
// stored bytes do not decode as T. Backend failures are returned.
func (t *Typed[T]) Get(ctx context.Context, key string, fallback T) (T, error) {
	raw, ok, err := t.backend.Load(ctx, t.Key(key))
	if err != nil {
		return fallback, err
	}
	if !ok {
		return fallback, nil
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return fallback, nil
	}
	return value, nil
}

// Set serializes the full value, replacing whatever was stored.
func (t *Typed[T]) Set(ctx context.Context, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t.Key(key), err)
	}
	return t.backend.Save(ctx, t.Key(key), raw)
}

func (t *Typed[T]) Clear(ctx context.Context, key string) error {
	return t.backend.Delete(ctx, t.Key(key))
}
