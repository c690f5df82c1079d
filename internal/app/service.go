package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/EducacionBuga/educacion-buga-sub003/internal/area"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/planaccion"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/search"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/store"
)

type dataStore interface {
	Ping(context.Context) error

	ListFolders(context.Context, string, string) ([]store.Folder, error)
	GetFolder(context.Context, string) (store.Folder, error)
	InsertFolder(context.Context, store.Folder) (store.Folder, error)
	UpdateFolder(context.Context, string, store.FolderPatch) (store.Folder, error)
	DeleteFolderCascade(context.Context, string) error

	ListDocuments(context.Context, store.DocumentFilter) ([]store.Document, error)
	ListFolderDocuments(context.Context, string) ([]store.Document, error)
	GetDocument(context.Context, string) (store.Document, error)
	InsertDocument(context.Context, store.Document) (store.Document, error)
	DeleteDocument(context.Context, string) error

	ListRegistros(context.Context, string) ([]store.Registro, error)
	GetRegistro(context.Context, string) (store.Registro, error)
	DeleteRegistro(context.Context, string) error
	ListInformes(context.Context, string) ([]store.Informe, error)
	GetInforme(context.Context, string) (store.Informe, error)
	DeleteInforme(context.Context, string) error

	ListChecklistCategories(context.Context) ([]store.ChecklistCategory, error)
	ListChecklistStages(context.Context) ([]store.ChecklistStage, error)
	ListChecklistItems(context.Context, int64) ([]store.ChecklistItem, error)
	ListChecklistAnswers(context.Context, string) ([]store.ChecklistAnswer, error)
	UpsertChecklistAnswer(context.Context, store.ChecklistAnswer) (store.ChecklistAnswer, error)
}

type objectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration, downloadName string) (string, error)
	Ping(context.Context) error
}

type documentSearch interface {
	Search(context.Context, search.Query) (search.Response, error)
	IndexDocument(search.DocumentRecord)
	DeleteDocument(string)
}

type Options struct {
	Store   dataStore
	Objects objectStore
	Search  documentSearch
	Plan    *planaccion.Service
	Areas   *area.Catalog
	Logger  *zap.Logger

	MaxUploadBytes int64
	DownloadURLTTL time.Duration
	Now            func() time.Time
}

type Service struct {
	store   dataStore
	objects objectStore
	search  documentSearch
	plan    *planaccion.Service
	areas   *area.Catalog
	logger  *zap.Logger

	maxUploadBytes int64
	downloadURLTTL time.Duration
	now            func() time.Time
}

const (
	defaultMaxUploadBytes = 50 * 1024 * 1024
	defaultDownloadURLTTL = time.Hour
)

// NewService wires the domain services. Objects and Search may be nil; routes
// that need object storage then fail with an upstream error.
func NewService(opts Options) *Service {
	s := &Service{
		store:          opts.Store,
		objects:        opts.Objects,
		search:         opts.Search,
		plan:           opts.Plan,
		areas:          opts.Areas,
		logger:         opts.Logger,
		maxUploadBytes: opts.MaxUploadBytes,
		downloadURLTTL: opts.DownloadURLTTL,
		now:            opts.Now,
	}
	if s.areas == nil {
		s.areas = area.Default()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = defaultMaxUploadBytes
	}
	if s.downloadURLTTL <= 0 {
		s.downloadURLTTL = defaultDownloadURLTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Ping checks the database, and object storage when it is configured.
func (s *Service) Ping(ctx context.Context) map[string]error {
	checks := map[string]error{"database": s.store.Ping(ctx)}
	if s.objects != nil {
		checks["storage"] = s.objects.Ping(ctx)
	}
	return checks
}

func (s *Service) Areas() []area.Area {
	return s.areas.All()
}

// resolveArea looks up a slug or area id. ok is false for unknown input.
func (s *Service) resolveArea(value string) (area.Area, bool) {
	return s.areas.Lookup(value)
}

// requireArea is resolveArea for write paths: unknown input is a 400.
func (s *Service) requireArea(value string) (area.Area, error) {
	if value == "" {
		return area.Area{}, validationError("areaId is required")
	}
	a, ok := s.areas.Lookup(value)
	if !ok {
		return area.Area{}, validationError("unknown area: " + value)
	}
	return a, nil
}

func (s *Service) requireObjects() error {
	if s.objects == nil {
		return upstreamError(errStorageNotConfigured)
	}
	return nil
}

func (s *Service) indexDocument(doc store.Document) {
	if s.search == nil {
		return
	}
	s.search.IndexDocument(search.RecordFromDocument(doc))
}

func (s *Service) unindexDocument(id string) {
	if s.search == nil {
		return
	}
	s.search.DeleteDocument(id)
}

// upstream logs err and converts it to a 500 carrying its message. Domain
// errors and store errors with a client status pass through unchanged.
func (s *Service) upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if status, _, _, _ := mapError(err); status != http.StatusInternalServerError {
		return err
	}
	s.logger.Error(op, zap.Error(err))
	return upstreamError(err)
}
