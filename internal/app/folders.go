package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EducacionBuga/educacion-buga-sub003/internal/store"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/util"
)

type FolderView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Category    string    `json:"category"`
	Description *string   `json:"description"`
	Date        *string   `json:"date"`
	AreaID      string    `json:"areaId"`
	ModuleType  string    `json:"moduleType"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateFolderInput struct {
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Category    string  `json:"category"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	AreaID      string  `json:"areaId"`
	ModuleType  string  `json:"moduleType"`
}

// UpdateFolderInput always replaces name and color. The pointer fields are
// only applied when present in the request body; a blank date clears it.
type UpdateFolderInput struct {
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
}

func folderView(f store.Folder) FolderView {
	view := FolderView{
		ID:          f.ID,
		Name:        f.Name,
		Color:       f.Color,
		Category:    f.Category,
		Description: f.Description,
		AreaID:      f.AreaID,
		ModuleType:  f.ModuleType,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
	if f.Date != nil {
		date := f.Date.Format(store.DateLayout)
		view.Date = &date
	}
	return view
}

// ListFolders returns the folders of an area and module in creation order. An
// unknown area has no folders.
func (s *Service) ListFolders(ctx context.Context, areaRef, moduleType string) ([]FolderView, error) {
	a, ok := s.resolveArea(areaRef)
	if !ok || strings.TrimSpace(moduleType) == "" {
		return []FolderView{}, nil
	}
	folders, err := s.store.ListFolders(ctx, a.ID, strings.TrimSpace(moduleType))
	if err != nil {
		return nil, s.upstream("list folders", err)
	}
	views := make([]FolderView, 0, len(folders))
	for _, f := range folders {
		views = append(views, folderView(f))
	}
	return views, nil
}

func (s *Service) CreateFolder(ctx context.Context, input CreateFolderInput) (FolderView, error) {
	name := strings.TrimSpace(input.Name)
	color := strings.TrimSpace(input.Color)
	if name == "" || color == "" {
		return FolderView{}, validationError("name and color are required")
	}
	moduleType := strings.TrimSpace(input.ModuleType)
	if moduleType == "" {
		return FolderView{}, validationError("moduleType is required")
	}
	a, err := s.requireArea(strings.TrimSpace(input.AreaID))
	if err != nil {
		return FolderView{}, err
	}
	date, err := parseDate(input.Date)
	if err != nil {
		return FolderView{}, err
	}

	folder, err := s.store.InsertFolder(ctx, store.Folder{
		ID:          util.NewID(),
		Name:        name,
		Color:       color,
		Category:    strings.TrimSpace(input.Category),
		Description: input.Description,
		Date:        date,
		AreaID:      a.ID,
		ModuleType:  moduleType,
	})
	if err != nil {
		return FolderView{}, s.upstream("create folder", err)
	}
	return folderView(folder), nil
}

func (s *Service) UpdateFolder(ctx context.Context, folderID string, input UpdateFolderInput) (FolderView, error) {
	if !util.IsID(folderID) {
		return FolderView{}, notFoundError("folder not found")
	}
	name := strings.TrimSpace(input.Name)
	color := strings.TrimSpace(input.Color)
	if name == "" || color == "" {
		return FolderView{}, validationError("name and color are required")
	}
	date, err := parseDate(input.Date)
	if err != nil {
		return FolderView{}, err
	}

	patch := store.FolderPatch{
		Name:        name,
		Color:       color,
		Description: input.Description,
		Date:        date,
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		patch.Category = &category
	}
	if input.Date != nil && date == nil {
		patch.ClearDate = true
	}
	folder, err := s.store.UpdateFolder(ctx, folderID, patch)
	if err != nil {
		return FolderView{}, s.notFoundOr("folder not found", "update folder", err)
	}
	return folderView(folder), nil
}

// DeleteFolder removes every contained document's object, then the document
// rows and the folder row in one transaction. If an object removal fails no
// rows are touched, so a retry picks up where it left off.
func (s *Service) DeleteFolder(ctx context.Context, folderID string) error {
	if !util.IsID(folderID) {
		return notFoundError("folder not found")
	}
	if _, err := s.store.GetFolder(ctx, folderID); err != nil {
		return s.notFoundOr("folder not found", "get folder", err)
	}
	docs, err := s.store.ListFolderDocuments(ctx, folderID)
	if err != nil {
		return s.upstream("list folder documents", err)
	}
	if len(docs) > 0 {
		if err := s.requireObjects(); err != nil {
			return err
		}
	}
	for _, doc := range docs {
		if err := s.objects.Remove(ctx, doc.FilePath); err != nil {
			return s.upstream("remove document object", err)
		}
	}
	if err := s.store.DeleteFolderCascade(ctx, folderID); err != nil {
		return s.notFoundOr("folder not found", "delete folder", err)
	}
	for _, doc := range docs {
		s.unindexDocument(doc.ID)
	}
	s.logger.Info("folder deleted", zap.String("folder_id", folderID), zap.Int("documents", len(docs)))
	return nil
}

// parseDate accepts YYYY-MM-DD. Nil and blank mean no date.
func parseDate(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(store.DateLayout, strings.TrimSpace(*value))
	if err != nil {
		return nil, validationError("date must be YYYY-MM-DD")
	}
	return &parsed, nil
}

// notFoundOr maps store.ErrNotFound to a 404 with message and anything else
// to an upstream error.
func (s *Service) notFoundOr(message, op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFoundError(message)
	}
	return s.upstream(op, err)
}
