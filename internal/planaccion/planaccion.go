// Package planaccion keeps an area's action-plan items in the local store.
//
// The list for an area is read whole, mutated in memory and written back
// whole on every change.
package planaccion

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/EducacionBuga/educacion-buga-sub003/internal/localstore"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/util"
)

const Namespace = "plan-accion"

var ErrItemNotFound = errors.New("plan de acción item not found")

var allowedEstados = map[string]struct{}{
	"Pendiente":   {},
	"En progreso": {},
	"Completado":  {},
	"Retrasado":   {},
}

const defaultEstado = "Pendiente"

type Item struct {
	ID                    string  `json:"id"`
	Numero                string  `json:"numero"`
	Meta                  string  `json:"meta"`
	Actividad             string  `json:"actividad"`
	Proceso               string  `json:"proceso"`
	PresupuestoDisponible float64 `json:"presupuestoDisponible"`
	PresupuestoEjecutado  float64 `json:"presupuestoEjecutado"`
	Indicador             string  `json:"indicador"`
	FechaInicio           string  `json:"fechaInicio"`
	FechaFin              string  `json:"fechaFin"`
	Responsable           string  `json:"responsable"`
	Estado                string  `json:"estado"`
	Avance                int     `json:"avance"`
}

type Service struct {
	items *localstore.Typed[[]Item]
}

func NewService(backend localstore.Backend) *Service {
	return &Service{items: localstore.NewTyped[[]Item](backend, Namespace)}
}

// List returns the area's items; an area with nothing stored has none.
func (s *Service) List(ctx context.Context, areaID string) ([]Item, error) {
	items, err := s.items.Get(ctx, areaID, []Item{})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// Replace overwrites the area's whole list.
func (s *Service) Replace(ctx context.Context, areaID string, items []Item) ([]Item, error) {
	normalized := make([]Item, 0, len(items))
	for _, item := range items {
		normalized = append(normalized, normalize(item, normalized))
	}
	if err := s.items.Set(ctx, areaID, normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

func (s *Service) Add(ctx context.Context, areaID string, item Item) (Item, error) {
	items, err := s.List(ctx, areaID)
	if err != nil {
		return Item{}, err
	}
	item.ID = ""
	item = normalize(item, items)
	items = append(items, item)
	if err := s.items.Set(ctx, areaID, items); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Update replaces the item with the same id, keeping the id.
func (s *Service) Update(ctx context.Context, areaID, itemID string, item Item) (Item, error) {
	items, err := s.List(ctx, areaID)
	if err != nil {
		return Item{}, err
	}
	for i := range items {
		if items[i].ID != itemID {
			continue
		}
		item.ID = itemID
		if strings.TrimSpace(item.Numero) == "" {
			item.Numero = items[i].Numero
		}
		items[i] = normalize(item, nil)
		if err := s.items.Set(ctx, areaID, items); err != nil {
			return Item{}, err
		}
		return items[i], nil
	}
	return Item{}, ErrItemNotFound
}

func (s *Service) Remove(ctx context.Context, areaID, itemID string) error {
	items, err := s.List(ctx, areaID)
	if err != nil {
		return err
	}
	kept := items[:0]
	found := false
	for _, item := range items {
		if item.ID == itemID {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		return ErrItemNotFound
	}
	return s.items.Set(ctx, areaID, kept)
}

// normalize fills the id, numero and estado, and clamps avance to 0..100.
// existing is used to pick the next numero.
func normalize(item Item, existing []Item) Item {
	if strings.TrimSpace(item.ID) == "" {
		item.ID = util.NewID()
	}
	if strings.TrimSpace(item.Numero) == "" {
		item.Numero = strconv.Itoa(nextNumero(existing))
	}
	if _, ok := allowedEstados[item.Estado]; !ok {
		item.Estado = defaultEstado
	}
	if item.Avance < 0 {
		item.Avance = 0
	}
	if item.Avance > 100 {
		item.Avance = 100
	}
	return item
}

func nextNumero(items []Item) int {
	highest := 0
	for _, item := range items {
		if n, err := strconv.Atoi(strings.TrimSpace(item.Numero)); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1
}
