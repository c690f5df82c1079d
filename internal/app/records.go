package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/EducacionBuga/educacion-buga-sub003/internal/store"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/util"
)

type RegistroView struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   *string   `json:"description"`
	FilePath      string    `json:"filePath"`
	ThumbnailPath *string   `json:"thumbnailPath"`
	FileType      string    `json:"fileType"`
	FileSize      int64     `json:"fileSize"`
	AreaID        string    `json:"areaId"`
	CreatedAt     time.Time `json:"createdAt"`
}

type InformeView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Period      *string   `json:"period"`
	FilePath    string    `json:"filePath"`
	FileType    string    `json:"fileType"`
	FileSize    int64     `json:"fileSize"`
	AreaID      string    `json:"areaId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Service) ListRegistros(ctx context.Context, areaRef string) ([]RegistroView, error) {
	a, ok := s.resolveArea(areaRef)
	if !ok {
		return []RegistroView{}, nil
	}
	items, err := s.store.ListRegistros(ctx, a.ID)
	if err != nil {
		return nil, s.upstream("list registros", err)
	}
	views := make([]RegistroView, 0, len(items))
	for _, r := range items {
		views = append(views, RegistroView{
			ID:            r.ID,
			Title:         r.Title,
			Description:   r.Description,
			FilePath:      r.FilePath,
			ThumbnailPath: r.ThumbnailPath,
			FileType:      r.FileType,
			FileSize:      r.FileSize,
			AreaID:        r.AreaID,
			CreatedAt:     r.CreatedAt,
		})
	}
	return views, nil
}

// DeleteRegistro removes the photo object, its thumbnail when there is one,
// and then the row.
func (s *Service) DeleteRegistro(ctx context.Context, registroID string) error {
	if !util.IsID(registroID) {
		return notFoundError("registro not found")
	}
	registro, err := s.store.GetRegistro(ctx, registroID)
	if err != nil {
		return s.notFoundOr("registro not found", "get registro", err)
	}
	if err := s.requireObjects(); err != nil {
		return err
	}
	keys := []string{registro.FilePath}
	if registro.ThumbnailPath != nil && *registro.ThumbnailPath != "" {
		keys = append(keys, *registro.ThumbnailPath)
	}
	for _, key := range keys {
		if err := s.objects.Remove(ctx, key); err != nil {
			return s.upstream("remove registro object", err)
		}
	}
	if err := s.store.DeleteRegistro(ctx, registroID); err != nil {
		return s.notFoundOr("registro not found", "delete registro", err)
	}
	s.logger.Info("registro deleted", zap.String("registro_id", registroID), zap.Int("objects", len(keys)))
	return nil
}

func (s *Service) RegistroDownloadURL(ctx context.Context, registroID string) (DownloadLink, error) {
	if !util.IsID(registroID) {
		return DownloadLink{}, notFoundError("registro not found")
	}
	registro, err := s.store.GetRegistro(ctx, registroID)
	if err != nil {
		return DownloadLink{}, s.notFoundOr("registro not found", "get registro", err)
	}
	return s.presign(ctx, registro.FilePath, registro.Title)
}

func (s *Service) ListInformes(ctx context.Context, areaRef string) ([]InformeView, error) {
	a, ok := s.resolveArea(areaRef)
	if !ok {
		return []InformeView{}, nil
	}
	items, err := s.store.ListInformes(ctx, a.ID)
	if err != nil {
		return nil, s.upstream("list informes", err)
	}
	views := make([]InformeView, 0, len(items))
	for _, i := range items {
		views = append(views, informeView(i))
	}
	return views, nil
}

func informeView(i store.Informe) InformeView {
	return InformeView{
		ID:          i.ID,
		Title:       i.Title,
		Description: i.Description,
		Period:      i.Period,
		FilePath:    i.FilePath,
		FileType:    i.FileType,
		FileSize:    i.FileSize,
		AreaID:      i.AreaID,
		CreatedAt:   i.CreatedAt,
	}
}

func (s *Service) DeleteInforme(ctx context.Context, informeID string) error {
	if informeID == "" {
		return validationError("id is required")
	}
	if !util.IsID(informeID) {
		return notFoundError("informe not found")
	}
	informe, err := s.store.GetInforme(ctx, informeID)
	if err != nil {
		return s.notFoundOr("informe not found", "get informe", err)
	}
	if err := s.requireObjects(); err != nil {
		return err
	}
	if err := s.objects.Remove(ctx, informe.FilePath); err != nil {
		return s.upstream("remove informe object", err)
	}
	if err := s.store.DeleteInforme(ctx, informeID); err != nil {
		return s.notFoundOr("informe not found", "delete informe", err)
	}
	return nil
}
