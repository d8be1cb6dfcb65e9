package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/auth"
)

// FileService is the file orchestration surface the handlers depend on.
type FileService interface {
	Upload(ctx context.Context, userID uuid.UUID, files []filevault.IncomingFile, source filevault.UploadSource) (filevault.UploadResult, error)
	List(ctx context.Context, userID uuid.UUID, q filevault.ListQuery) (filevault.ListResult, error)
	Delete(ctx context.Context, userID uuid.UUID, fileIDs []uuid.UUID) (filevault.DeleteResult, error)
	Download(ctx context.Context, userID uuid.UUID, fileIDs []uuid.UUID) (filevault.DownloadResult, error)
	FileURL(ctx context.Context, fileID uuid.UUID) (string, error)
	OpenFile(ctx context.Context, fileID uuid.UUID) (filevault.FileRecord, io.ReadCloser, error)
}

// AuthService handles account registration and login.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (filevault.User, error)
	Login(ctx context.Context, email, password string) (filevault.User, string, error)
	VerifyToken(token string) (uuid.UUID, error)
}

// APIKeyService manages programmatic access keys.
type APIKeyService interface {
	Create(ctx context.Context, userID uuid.UUID, name string) (auth.CreatedKey, error)
	List(ctx context.Context, userID uuid.UUID, pageSize, pageNumber int) ([]filevault.APIKey, filevault.Pagination, error)
	Delete(ctx context.Context, userID, keyID uuid.UUID) error
	Authenticate(ctx context.Context, rawKey string) (uuid.UUID, error)
}

// QuotaService gates uploads against the per-user storage cap.
type QuotaService interface {
	ValidateAndReserve(ctx context.Context, userID uuid.UUID, bytes int64) error
	Summary(ctx context.Context, userID uuid.UUID) (filevault.StorageSummary, error)
}

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type HandlerConfig struct {
	// MaxUploadBytes caps the size of one multipart upload request.
	MaxUploadBytes int64
	CORS           CORSConfig
}

// Deps bundles the services the handler routes to.
type Deps struct {
	Files FileService
	Auth  AuthService
	Keys  APIKeyService
	Quota QuotaService
}

// Handler provides HTTP handlers for the filevault API.
type Handler struct {
	config HandlerConfig
	deps   Deps
}

// NewHandler creates a new Handler with the given configuration and services.
func NewHandler(config *HandlerConfig, deps Deps) *Handler {
	return &Handler{
		config: *config,
		deps:   deps,
	}
}

// Router returns the configured http.Handler. The /api/v1 group carries JWT
// auth, the authenticated part of /public/v1 carries API-key auth, and the
// view and url routes under /public/v1 are open.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(JWTAuth(h.deps.Auth))

		h.fileRoutes(r)
		r.Get("/files/{id}/url", h.handleFileURL)

		r.Get("/storage/summary", h.handleStorageSummary)

		r.Route("/apikeys", func(r chi.Router) {
			r.Post("/", h.handleAPIKeyCreate)
			r.Get("/", h.handleAPIKeyList)
			r.Delete("/{id}", h.handleAPIKeyDelete)
		})
	})

	r.Route("/public/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(h.deps.Keys))
			h.fileRoutes(r)
		})

		// Capability routes: the file id is the secret.
		r.Get("/files/{id}/view", h.handleView)
		r.Get("/files/{id}/url", h.handleFileURL)
	})

	return r
}

func (h *Handler) fileRoutes(r chi.Router) {
	r.Route("/files", func(r chi.Router) {
		r.Post("/", h.handleUpload)
		r.Get("/", h.handleList)
		r.Delete("/", h.handleDelete)
		r.Post("/download", h.handleDownload)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid JSON body")
		return
	}

	user, err := h.deps.Auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid JSON body")
		return
	}

	user, token, err := h.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid multipart request")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		WriteError(w, http.StatusBadRequest, "invalid_input", "No files in request")
		return
	}

	files := make([]filevault.IncomingFile, 0, len(headers))
	var totalBytes int64
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_input", "Unreadable file part")
			return
		}
		defer func() { _ = f.Close() }()

		files = append(files, filevault.IncomingFile{
			Name:     fh.Filename,
			Size:     fh.Size,
			MimeType: fh.Header.Get("Content-Type"),
			Content:  f,
		})
		totalBytes += fh.Size
	}

	// Reserve the whole batch up front. The service releases the share of
	// any file that subsequently fails.
	if err := h.deps.Quota.ValidateAndReserve(r.Context(), userID, totalBytes); err != nil {
		HandleError(w, err)
		return
	}

	result, err := h.deps.Files.Upload(r.Context(), userID, files, Source(r.Context()))
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, uploadResponse{
		Message:      result.Message(),
		UploadResult: result,
	})
}

type uploadResponse struct {
	Message string `json:"message"`
	filevault.UploadResult
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	q := filevault.ListQuery{
		Keyword:    r.URL.Query().Get("keyword"),
		PageSize:   queryInt(r, "pageSize"),
		PageNumber: queryInt(r, "pageNumber"),
	}

	result, err := h.deps.Files.List(r.Context(), userID, q)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	ids, ok := decodeFileIDs(w, r)
	if !ok {
		return
	}

	result, err := h.deps.Files.Delete(r.Context(), userID, ids)
	if err != nil && !errors.Is(err, filevault.ErrUpstream) {
		HandleError(w, err)
		return
	}

	// Partial blob failures still report counts; completed deletions stand.
	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	ids, ok := decodeFileIDs(w, r)
	if !ok {
		return
	}

	result, err := h.deps.Files.Download(r.Context(), userID, ids)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleFileURL(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid file id")
		return
	}

	url, err := h.deps.Files.FileURL(r.Context(), fileID)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid file id")
		return
	}

	rec, content, err := h.deps.Files.OpenFile(r.Context(), fileID)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	w.Header().Set("Content-Type", rec.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(rec.SizeBytes, 10))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	// Stream straight from the store, never buffer the object.
	if _, err := io.Copy(w, content); err != nil {
		slog.Debug("view stream interrupted", "file_id", fileID, "error", err)
	}
}

func (h *Handler) handleStorageSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	summary, err := h.deps.Quota.Summary(r.Context(), userID)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleAPIKeyCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid JSON body")
		return
	}

	created, err := h.deps.Keys.Create(r.Context(), userID, req.Name)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleAPIKeyList(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	keys, pagination, err := h.deps.Keys.List(r.Context(), userID,
		queryInt(r, "pageSize"), queryInt(r, "pageNumber"))
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"keys":       keys,
		"pagination": pagination,
	})
}

func (h *Handler) handleAPIKeyDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	keyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid key id")
		return
	}

	if err := h.deps.Keys.Delete(r.Context(), userID, keyID); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decodeFileIDs(w http.ResponseWriter, r *http.Request) ([]uuid.UUID, bool) {
	var req struct {
		FileIDs []string `json:"fileIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid JSON body")
		return nil, false
	}
	if len(req.FileIDs) == 0 {
		WriteError(w, http.StatusBadRequest, "invalid_input", "No file ids in request")
		return nil, false
	}

	ids := make([]uuid.UUID, 0, len(req.FileIDs))
	for _, raw := range req.FileIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid file id: "+raw)
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}
