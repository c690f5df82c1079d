package app

import (
	"context"
	"errors"

	"github.com/EducacionBuga/educacion-buga-sub003/internal/planaccion"
)

func (s *Service) planService() (*planaccion.Service, error) {
	if s.plan == nil {
		return nil, upstreamError(errors.New("plan de acción store is not configured"))
	}
	return s.plan, nil
}

// ListPlanItems returns an area's plan de acción. An unknown area has none.
func (s *Service) ListPlanItems(ctx context.Context, areaRef string) ([]planaccion.Item, error) {
	plan, err := s.planService()
	if err != nil {
		return nil, err
	}
	a, ok := s.resolveArea(areaRef)
	if !ok {
		return []planaccion.Item{}, nil
	}
	items, err := plan.List(ctx, a.ID)
	if err != nil {
		return nil, s.upstream("list plan items", err)
	}
	return items, nil
}

func (s *Service) ReplacePlanItems(ctx context.Context, areaRef string, items []planaccion.Item) ([]planaccion.Item, error) {
	plan, err := s.planService()
	if err != nil {
		return nil, err
	}
	a, err := s.requireArea(areaRef)
	if err != nil {
		return nil, err
	}
	saved, err := plan.Replace(ctx, a.ID, items)
	if err != nil {
		return nil, s.upstream("replace plan items", err)
	}
	return saved, nil
}

func (s *Service) AddPlanItem(ctx context.Context, areaRef string, item planaccion.Item) (planaccion.Item, error) {
	plan, err := s.planService()
	if err != nil {
		return planaccion.Item{}, err
	}
	a, err := s.requireArea(areaRef)
	if err != nil {
		return planaccion.Item{}, err
	}
	saved, err := plan.Add(ctx, a.ID, item)
	if err != nil {
		return planaccion.Item{}, s.upstream("add plan item", err)
	}
	return saved, nil
}

func (s *Service) UpdatePlanItem(ctx context.Context, areaRef, itemID string, item planaccion.Item) (planaccion.Item, error) {
	plan, err := s.planService()
	if err != nil {
		return planaccion.Item{}, err
	}
	a, err := s.requireArea(areaRef)
	if err != nil {
		return planaccion.Item{}, err
	}
	saved, err := plan.Update(ctx, a.ID, itemID, item)
	if errors.Is(err, planaccion.ErrItemNotFound) {
		return planaccion.Item{}, notFoundError("plan de acción item not found")
	}
	if err != nil {
		return planaccion.Item{}, s.upstream("update plan item", err)
	}
	return saved, nil
}

func (s *Service) RemovePlanItem(ctx context.Context, areaRef, itemID string) error {
	plan, err := s.planService()
	if err != nil {
		return err
	}
	a, err := s.requireArea(areaRef)
	if err != nil {
		return err
	}
	err = plan.Remove(ctx, a.ID, itemID)
	if errors.Is(err, planaccion.ErrItemNotFound) {
		return notFoundError("plan de acción item not found")
	}
	if err != nil {
		return s.upstream("remove plan item", err)
	}
	return nil
}
