package app

import (
	"context"
	"strings"
	"time"

	"github.com/EducacionBuga/educacion-buga-sub003/internal/store"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/util"
)

var allowedAnswers = map[string]struct{}{
	"":          {},
	"CUMPLE":    {},
	"NO_CUMPLE": {},
	"NO_APLICA": {},
}

type ChecklistCategoryView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

type ChecklistStageView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

type ChecklistItemView struct {
	ID          int64  `json:"id"`
	CategoryID  int64  `json:"categoryId"`
	StageID     int64  `json:"stageId"`
	StageName   string `json:"stageName"`
	Description string `json:"description"`
	SortOrder   int    `json:"sortOrder"`
}

type ChecklistAnswerView struct {
	ID           string    `json:"id"`
	ContractID   string    `json:"contractId"`
	ItemID       int64     `json:"itemId"`
	Answer       string    `json:"answer"`
	Observations string    `json:"observations"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type ChecklistAnswerInput struct {
	ItemID       int64  `json:"itemId"`
	Answer       string `json:"answer"`
	Observations string `json:"observations"`
}

type SaveChecklistAnswersInput struct {
	ContractID string                 `json:"contractId"`
	Respuestas []ChecklistAnswerInput `json:"respuestas"`
}

func (s *Service) ListChecklistCategories(ctx context.Context) ([]ChecklistCategoryView, error) {
	items, err := s.store.ListChecklistCategories(ctx)
	if err != nil {
		return nil, s.upstream("list checklist categories", err)
	}
	views := make([]ChecklistCategoryView, 0, len(items))
	for _, c := range items {
		views = append(views, ChecklistCategoryView{ID: c.ID, Name: c.Name, SortOrder: c.SortOrder})
	}
	return views, nil
}

func (s *Service) ListChecklistStages(ctx context.Context) ([]ChecklistStageView, error) {
	items, err := s.store.ListChecklistStages(ctx)
	if err != nil {
		return nil, s.upstream("list checklist stages", err)
	}
	views := make([]ChecklistStageView, 0, len(items))
	for _, e := range items {
		views = append(views, ChecklistStageView{ID: e.ID, Name: e.Name, SortOrder: e.SortOrder})
	}
	return views, nil
}

// ListChecklistItems lists one category's items, or all items when
// categoryID is zero.
func (s *Service) ListChecklistItems(ctx context.Context, categoryID int64) ([]ChecklistItemView, error) {
	if categoryID < 0 {
		return nil, validationError("categoriaId must be positive")
	}
	items, err := s.store.ListChecklistItems(ctx, categoryID)
	if err != nil {
		return nil, s.upstream("list checklist items", err)
	}
	views := make([]ChecklistItemView, 0, len(items))
	for _, i := range items {
		views = append(views, ChecklistItemView{
			ID:          i.ID,
			CategoryID:  i.CategoryID,
			StageID:     i.StageID,
			StageName:   i.StageName,
			Description: i.Description,
			SortOrder:   i.SortOrder,
		})
	}
	return views, nil
}

func (s *Service) ListChecklistAnswers(ctx context.Context, contractID string) ([]ChecklistAnswerView, error) {
	contractID = strings.TrimSpace(contractID)
	if contractID == "" {
		return nil, validationError("contractId is required")
	}
	answers, err := s.store.ListChecklistAnswers(ctx, contractID)
	if err != nil {
		return nil, s.upstream("list checklist answers", err)
	}
	views := make([]ChecklistAnswerView, 0, len(answers))
	for _, a := range answers {
		views = append(views, answerView(a))
	}
	return views, nil
}

// SaveChecklistAnswers upserts each answer on (contract, item). Every answer
// is validated before the first write.
func (s *Service) SaveChecklistAnswers(ctx context.Context, input SaveChecklistAnswersInput) ([]ChecklistAnswerView, error) {
	contractID := strings.TrimSpace(input.ContractID)
	if contractID == "" {
		return nil, validationError("contractId is required")
	}
	if len(input.Respuestas) == 0 {
		return nil, validationError("respuestas must not be empty")
	}
	for _, r := range input.Respuestas {
		if r.ItemID <= 0 {
			return nil, validationError("itemId must be positive")
		}
		if _, ok := allowedAnswers[strings.ToUpper(strings.TrimSpace(r.Answer))]; !ok {
			return nil, validationError("answer must be CUMPLE, NO_CUMPLE or NO_APLICA")
		}
	}

	saved := make([]ChecklistAnswerView, 0, len(input.Respuestas))
	for _, r := range input.Respuestas {
		answer, err := s.store.UpsertChecklistAnswer(ctx, store.ChecklistAnswer{
			ID:           util.NewID(),
			ContractID:   contractID,
			ItemID:       r.ItemID,
			Answer:       strings.ToUpper(strings.TrimSpace(r.Answer)),
			Observations: strings.TrimSpace(r.Observations),
		})
		if err != nil {
			return nil, s.upstream("save checklist answer", err)
		}
		saved = append(saved, answerView(answer))
	}
	return saved, nil
}

func answerView(a store.ChecklistAnswer) ChecklistAnswerView {
	return ChecklistAnswerView{
		ID:           a.ID,
		ContractID:   a.ContractID,
		ItemID:       a.ItemID,
		Answer:       a.Answer,
		Observations: a.Observations,
		UpdatedAt:    a.UpdatedAt,
	}
}
