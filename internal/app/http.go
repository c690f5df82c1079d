package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/EducacionBuga/educacion-buga-sub003/internal/planaccion"
)

// multipartOverhead is the room left above the upload limit for the other
// form fields and part headers.
const multipartOverhead = 1 << 20

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *zap.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{service: service, corsOrigin: corsOrigin, logger: logger}
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.withMiddleware)
	r.Use(s.recoverPanics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)
		r.Get("/areas", s.handleAreas)

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", s.handleListFolders)
			r.Post("/", s.handleCreateFolder)
			r.Put("/{id}", s.handleUpdateFolder)
			r.Delete("/{id}", s.handleDeleteFolder)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Post("/", s.handleCreateDocument)
			r.Post("/upload", s.handleUploadDocument)
			r.Get("/search", s.handleSearchDocuments)
			r.Get("/{id}/download", s.handleDocumentDownload)
			r.Delete("/{id}", s.handleDeleteDocument)
		})

		r.Route("/registros", func(r chi.Router) {
			r.Get("/", s.handleListRegistros)
			r.Get("/download", s.handleRegistroDownload)
			r.Delete("/{id}", s.handleDeleteRegistro)
		})

		r.Get("/informes", s.handleListInformes)
		r.Delete("/informes", s.handleDeleteInforme)

		r.Route("/lista-chequeo", func(r chi.Router) {
			r.Get("/categorias", s.handleChecklistCategories)
			r.Get("/etapas", s.handleChecklistStages)
			r.Get("/items", s.handleChecklistItems)
			r.Get("/respuestas", s.handleListChecklistAnswers)
			r.Put("/respuestas", s.handleSaveChecklistAnswers)
		})

		r.Route("/plan-accion", func(r chi.Router) {
			r.Get("/", s.handleListPlan)
			r.Put("/", s.handleReplacePlan)
			r.Post("/items", s.handleAddPlanItem)
			r.Put("/items/{id}", s.handleUpdatePlanItem)
			r.Delete("/items/{id}", s.handleRemovePlanItem)
		})
	})
	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ready := true
	checks := map[string]any{}
	for name, err := range s.service.Ping(ctx) {
		if err != nil {
			ready = false
			checks[name] = map[string]any{"status": "error", "error": err.Error()}
			continue
		}
		checks[name] = map[string]any{"status": "ok"}
	}

	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, map[string]any{
		"success": ready,
		"data": map[string]any{
			"status": status,
			"checks": checks,
		},
	})
}

func (s *HTTPServer) handleAreas(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, s.service.Areas())
}

// Folders

func (s *HTTPServer) handleListFolders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folders, err := s.service.ListFolders(r.Context(), query.Get("areaId"), query.Get("moduleType"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, folders)
}

func (s *HTTPServer) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var input CreateFolderInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	folder, err := s.service.CreateFolder(r.Context(), input)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, folder)
}

func (s *HTTPServer) handleUpdateFolder(w http.ResponseWriter, r *http.Request) {
	var input UpdateFolderInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	folder, err := s.service.UpdateFolder(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, folder)
}

func (s *HTTPServer) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteFolder(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w)
}

// Documents

func (s *HTTPServer) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	docs, err := s.service.ListDocuments(r.Context(), query.Get("areaId"), query.Get("moduleType"), query.Get("folderId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, docs)
}

func (s *HTTPServer) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var input CreateDocumentInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	doc, err := s.service.CreateDocument(r.Context(), input)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, doc)
}

func (s *HTTPServer) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.service.MaxUploadBytes()+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR",
				fmt.Sprintf("file exceeds the %d MB limit", s.service.MaxUploadBytes()/(1024*1024)), nil)
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid multipart form", nil)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "file is required", nil)
		return
	}
	defer file.Close()

	input := UploadInput{
		File:        file,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		AreaID:      r.FormValue("areaId"),
		ModuleType:  r.FormValue("moduleType"),
		FolderID:    r.FormValue("folderId"),
		Name:        r.FormValue("name"),
	}
	if description := strings.TrimSpace(r.FormValue("description")); description != "" {
		input.Description = &description
	}

	doc, err := s.service.UploadDocument(r.Context(), input)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, doc)
}

func (s *HTTPServer) handleSearchDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	resp, err := s.service.SearchDocuments(r.Context(), query.Get("q"), query.Get("areaId"), query.Get("moduleType"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleDocumentDownload(w http.ResponseWriter, r *http.Request) {
	link, err := s.service.DocumentDownloadURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, link)
}

func (s *HTTPServer) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteDocument(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w)
}

// Registros e informes

func (s *HTTPServer) handleListRegistros(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListRegistros(r.Context(), r.URL.Query().Get("areaId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (s *HTTPServer) handleRegistroDownload(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "id is required", nil)
		return
	}
	link, err := s.service.RegistroDownloadURL(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, link)
}

func (s *HTTPServer) handleDeleteRegistro(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteRegistro(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w)
}

func (s *HTTPServer) handleListInformes(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListInformes(r.Context(), r.URL.Query().Get("areaId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (s *HTTPServer) handleDeleteInforme(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteInforme(r.Context(), strings.TrimSpace(r.URL.Query().Get("id"))); err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w)
}

// Lista de chequeo

func (s *HTTPServer) handleChecklistCategories(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListChecklistCategories(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (s *HTTPServer) handleChecklistStages(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListChecklistStages(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (s *HTTPServer) handleChecklistItems(w http.ResponseWriter, r *http.Request) {
	var categoryID int64
	if raw := strings.TrimSpace(r.URL.Query().Get("categoriaId")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "categoriaId must be a number", nil)
			return
		}
		categoryID = parsed
	}
	items, err := s.service.ListChecklistItems(r.Context(), categoryID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (s *HTTPServer) handleListChecklistAnswers(w http.ResponseWriter, r *http.Request) {
	answers, err := s.service.ListChecklistAnswers(r.Context(), r.URL.Query().Get("contractId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, answers)
}

func (s *HTTPServer) handleSaveChecklistAnswers(w http.ResponseWriter, r *http.Request) {
	var input SaveChecklistAnswersInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	saved, err := s.service.SaveChecklistAnswers(r.Context(), input)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, saved)
}

// Plan de acción

func (s *HTTPServer) handleListPlan(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListPlanItems(r.Context(), r.URL.Query().Get("areaId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (s *HTTPServer) handleReplacePlan(w http.ResponseWriter, r *http.Request) {
	var items []planaccion.Item
	if err := decodeBody(r, &items); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	saved, err := s.service.ReplacePlanItems(r.Context(), r.URL.Query().Get("areaId"), items)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, saved)
}

func (s *HTTPServer) handleAddPlanItem(w http.ResponseWriter, r *http.Request) {
	var item planaccion.Item
	if err := decodeBody(r, &item); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	saved, err := s.service.AddPlanItem(r.Context(), r.URL.Query().Get("areaId"), item)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, saved)
}

func (s *HTTPServer) handleUpdatePlanItem(w http.ResponseWriter, r *http.Request) {
	var item planaccion.Item
	if err := decodeBody(r, &item); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	saved, err := s.service.UpdatePlanItem(r.Context(), r.URL.Query().Get("areaId"), chi.URLParam(r, "id"), item)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, saved)
}

func (s *HTTPServer) handleRemovePlanItem(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemovePlanItem(r.Context(), r.URL.Query().Get("areaId"), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w)
}

// fail writes err as an error envelope. Server errors are logged with the
// request id.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		requestID := middleware.GetReqID(r.Context())

		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		if r.Method == http.MethodOptions {
			writer.WriteHeader(http.StatusNoContent)
		} else {
			next.ServeHTTP(writer, r)
		}

		s.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", time.Since(started).Milliseconds()),
		)
	})
}

// recoverPanics turns a handler panic into a JSON 500 and logs it.
func (s *HTTPServer) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.Error("panic",
				zap.Any("panic", rec),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Stack("stack"),
			)
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Internal server error", nil)
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"success": true, "data": data})
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"success": false,
		"code":    code,
		"error":   message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}
