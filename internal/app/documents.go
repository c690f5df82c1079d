package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EducacionBuga/educacion-buga-sub003/internal/objectstore"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/search"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/store"
	"github.com/EducacionBuga/educacion-buga-sub003/internal/util"
)

// Browsers often send octet-stream for office files; the extension decides
// then.
var typesByExtension = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".zip":  "application/zip",
}

// allowedFileTypes is every type in typesByExtension plus the zip alias
// Windows browsers send.
var allowedFileTypes = func() map[string]struct{} {
	allowed := map[string]struct{}{"application/x-zip-compressed": {}}
	for _, mediaType := range typesByExtension {
		allowed[mediaType] = struct{}{}
	}
	return allowed
}()

type DocumentView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	FileURL     string    `json:"fileUrl"`
	FilePath    string    `json:"filePath"`
	FileType    string    `json:"fileType"`
	FileSize    int64     `json:"fileSize"`
	FolderID    string    `json:"folderId"`
	AreaID      string    `json:"areaId"`
	ModuleType  string    `json:"moduleType"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type UploadInput struct {
	File        io.Reader
	FileName    string
	ContentType string
	Size        int64
	AreaID      string
	ModuleType  string
	FolderID    string
	Name        string
	Description *string
}

// CreateDocumentInput registers an object that is already in the bucket.
type CreateDocumentInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	FileURL     string  `json:"fileUrl"`
	FilePath    string  `json:"filePath"`
	FileType    string  `json:"fileType"`
	FileSize    int64   `json:"fileSize"`
	FolderID    string  `json:"folderId"`
	AreaID      string  `json:"areaId"`
	ModuleType  string  `json:"moduleType"`
}

type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func documentView(d store.Document) DocumentView {
	return DocumentView{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		FileURL:     d.FileURL,
		FilePath:    d.FilePath,
		FileType:    d.FileType,
		FileSize:    d.FileSize,
		FolderID:    d.FolderID,
		AreaID:      d.AreaID,
		ModuleType:  d.ModuleType,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func documentViews(docs []store.Document) []DocumentView {
	views := make([]DocumentView, 0, len(docs))
	for _, d := range docs {
		views = append(views, documentView(d))
	}
	return views
}

// downloadPath is the API route that signs a fresh link for a document.
func downloadPath(documentID string) string {
	return "/api/documents/" + documentID + "/download"
}

// fileType picks the media type of an upload: the declared type when it is
// specific, otherwise the one implied by the file extension.
func fileType(fileName, declared string) string {
	mediaType := strings.ToLower(strings.TrimSpace(declared))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = typesByExtension[strings.ToLower(path.Ext(fileName))]
	}
	return mediaType
}

func (s *Service) checkFile(mediaType string, size int64) error {
	if _, ok := allowedFileTypes[mediaType]; !ok {
		return validationError("file type not allowed")
	}
	if size <= 0 {
		return validationError("file is empty")
	}
	if size > s.maxUploadBytes {
		return validationError(fmt.Sprintf("file exceeds the %d MB limit", s.maxUploadBytes/(1024*1024)))
	}
	return nil
}

// folderFor loads the target folder and checks it belongs to the area.
func (s *Service) folderFor(ctx context.Context, folderID, areaID string) (store.Folder, error) {
	if !util.IsID(folderID) {
		return store.Folder{}, notFoundError("folder not found")
	}
	folder, err := s.store.GetFolder(ctx, folderID)
	if err != nil {
		return store.Folder{}, s.notFoundOr("folder not found", "get folder", err)
	}
	if folder.AreaID != areaID {
		return store.Folder{}, validationError("folder belongs to another area")
	}
	return folder, nil
}

// moduleFor returns the folder's module. A requested module that differs is
// a validation error.
func moduleFor(folder store.Folder, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested != "" && requested != folder.ModuleType {
		return "", validationError("folder belongs to another module")
	}
	return folder.ModuleType, nil
}

// UploadDocument validates the file before any I/O, writes the object and
// then the metadata row. If the row cannot be written the object is removed
// again.
func (s *Service) UploadDocument(ctx context.Context, input UploadInput) (DocumentView, error) {
	if input.File == nil || strings.TrimSpace(input.FileName) == "" {
		return DocumentView{}, validationError("file is required")
	}
	contentType := fileType(input.FileName, input.ContentType)
	if err := s.checkFile(contentType, input.Size); err != nil {
		return DocumentView{}, err
	}
	a, err := s.requireArea(strings.TrimSpace(input.AreaID))
	if err != nil {
		return DocumentView{}, err
	}
	folder, err := s.folderFor(ctx, strings.TrimSpace(input.FolderID), a.ID)
	if err != nil {
		return DocumentView{}, err
	}
	moduleType, err := moduleFor(folder, input.ModuleType)
	if err != nil {
		return DocumentView{}, err
	}
	if err := s.requireObjects(); err != nil {
		return DocumentView{}, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = strings.TrimSpace(input.FileName)
	}
	id := util.NewID()
	key := objectstore.DocumentKey(a.Code, moduleType, folder.ID, input.FileName, s.now())

	if err := s.objects.Put(ctx, key, input.File, input.Size, contentType); err != nil {
		return DocumentView{}, s.upstream("put document object", err)
	}

	doc, err := s.store.InsertDocument(ctx, store.Document{
		ID:          id,
		Name:        name,
		Description: input.Description,
		FileURL:     downloadPath(id),
		FilePath:    key,
		FileType:    contentType,
		FileSize:    input.Size,
		FolderID:    folder.ID,
		AreaID:      a.ID,
		ModuleType:  moduleType,
	})
	if err != nil {
		s.removeOrphan(ctx, key)
		return DocumentView{}, s.upstream("insert document", err)
	}
	s.indexDocument(doc)
	return documentView(doc), nil
}

// removeOrphan deletes an object whose metadata row was never written. It
// runs even if the request was cancelled.
func (s *Service) removeOrphan(ctx context.Context, key string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.objects.Remove(cleanupCtx, key); err != nil {
		s.logger.Warn("orphaned object left in bucket", zap.String("key", key), zap.Error(err))
		return
	}
	s.logger.Warn("removed object after failed metadata insert", zap.String("key", key))
}

func (s *Service) CreateDocument(ctx context.Context, input CreateDocumentInput) (DocumentView, error) {
	name := strings.TrimSpace(input.Name)
	filePath := strings.TrimSpace(input.FilePath)
	if name == "" || filePath == "" {
		return DocumentView{}, validationError("name and filePath are required")
	}
	contentType := fileType(filePath, input.FileType)
	if _, ok := allowedFileTypes[contentType]; !ok {
		return DocumentView{}, validationError("file type not allowed")
	}
	if input.FileSize < 0 || input.FileSize > s.maxUploadBytes {
		return DocumentView{}, validationError("fileSize is out of range")
	}
	a, err := s.requireArea(strings.TrimSpace(input.AreaID))
	if err != nil {
		return DocumentView{}, err
	}
	folder, err := s.folderFor(ctx, strings.TrimSpace(input.FolderID), a.ID)
	if err != nil {
		return DocumentView{}, err
	}
	moduleType, err := moduleFor(folder, input.ModuleType)
	if err != nil {
		return DocumentView{}, err
	}

	id := util.NewID()
	fileURL := strings.TrimSpace(input.FileURL)
	if fileURL == "" {
		fileURL = downloadPath(id)
	}
	doc, err := s.store.InsertDocument(ctx, store.Document{
		ID:          id,
		Name:        name,
		Description: input.Description,
		FileURL:     fileURL,
		FilePath:    filePath,
		FileType:    contentType,
		FileSize:    input.FileSize,
		FolderID:    folder.ID,
		AreaID:      a.ID,
		ModuleType:  moduleType,
	})
	if err != nil {
		return DocumentView{}, s.upstream("insert document", err)
	}
	s.indexDocument(doc)
	return documentView(doc), nil
}

// ListDocuments filters by area and module and, when given, folder. An
// unknown area has no documents.
func (s *Service) ListDocuments(ctx context.Context, areaRef, moduleType, folderID string) ([]DocumentView, error) {
	a, ok := s.resolveArea(areaRef)
	if !ok || strings.TrimSpace(moduleType) == "" {
		return []DocumentView{}, nil
	}
	folderID = strings.TrimSpace(folderID)
	if folderID != "" && !util.IsID(folderID) {
		return []DocumentView{}, nil
	}
	docs, err := s.store.ListDocuments(ctx, store.DocumentFilter{
		AreaID:     a.ID,
		ModuleType: strings.TrimSpace(moduleType),
		FolderID:   folderID,
	})
	if err != nil {
		return nil, s.upstream("list documents", err)
	}
	return documentViews(docs), nil
}

// DeleteDocument removes the object and then the row. Object removal is
// idempotent, so a retry after a failed row delete converges.
func (s *Service) DeleteDocument(ctx context.Context, documentID string) error {
	if !util.IsID(documentID) {
		return notFoundError("document not found")
	}
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return s.notFoundOr("document not found", "get document", err)
	}
	if err := s.requireObjects(); err != nil {
		return err
	}
	if err := s.objects.Remove(ctx, doc.FilePath); err != nil {
		return s.upstream("remove document object", err)
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return s.notFoundOr("document not found", "delete document", err)
	}
	s.unindexDocument(documentID)
	return nil
}

// DocumentDownloadURL signs a new link on every call.
func (s *Service) DocumentDownloadURL(ctx context.Context, documentID string) (DownloadLink, error) {
	if !util.IsID(documentID) {
		return DownloadLink{}, notFoundError("document not found")
	}
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return DownloadLink{}, s.notFoundOr("document not found", "get document", err)
	}
	return s.presign(ctx, doc.FilePath, doc.Name)
}

func (s *Service) presign(ctx context.Context, key, downloadName string) (DownloadLink, error) {
	if err := s.requireObjects(); err != nil {
		return DownloadLink{}, err
	}
	issued := s.now()
	url, err := s.objects.PresignGet(ctx, key, s.downloadURLTTL, downloadName)
	if err != nil {
		return DownloadLink{}, s.upstream("presign download", err)
	}
	return DownloadLink{URL: url, ExpiresAt: issued.Add(s.downloadURLTTL).UTC()}, nil
}

var errSearchNotConfigured = errors.New("search is not configured")

// SearchDocuments matches names and descriptions. An unknown area matches
// nothing.
func (s *Service) SearchDocuments(ctx context.Context, text, areaRef, moduleType string, limit int) (search.Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return search.Response{}, validationError("q is required")
	}
	if s.search == nil {
		return search.Response{}, upstreamError(errSearchNotConfigured)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := search.Query{Text: text, ModuleType: strings.TrimSpace(moduleType), Limit: limit}
	if areaRef = strings.TrimSpace(areaRef); areaRef != "" {
		a, ok := s.resolveArea(areaRef)
		if !ok {
			return search.Response{Results: []search.Hit{}, Query: text}, nil
		}
		q.AreaID = a.ID
	}
	resp, err := s.search.Search(ctx, q)
	if err != nil {
		return search.Response{}, s.upstream("search documents", err)
	}
	return resp, nil
}
