package sessions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"analysis-backend/internal/analyses"
	"analysis-backend/internal/chunking"
	"analysis-backend/internal/documents"
	"analysis-backend/internal/exports"
	"analysis-backend/internal/extract"
	"analysis-backend/internal/llm"
	"analysis-backend/internal/shared/server/middleware"
	"analysis-backend/internal/shared/server/respond"
	"analysis-backend/internal/shared/telemetry"
)

// maxUploadBody leaves room for multipart headers and form fields around the file.
const maxUploadBody = extract.MaxBytes + 1<<20

// Handler wires HTTP handlers to the session registry.
type Handler struct {
	Registry  *Registry
	Documents *documents.Service
	Exports   *exports.Service
	polls     *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(reg *Registry, docs *documents.Service, exps *exports.Service) *Handler {
	return &Handler{
		Registry:  reg,
		Documents: docs,
		Exports:   exps,
		polls:     newPollLimiter(pollLimitWindow, nil),
	}
}

type createRequest struct {
	Text         string `json:"text"`
	AnalysisType string `json:"analysisType"`
	Provider     string `json:"provider"`
}

type configRequest struct {
	AnalysisType string `json:"analysisType"`
	Provider     string `json:"provider"`
}

// RegisterRoutes attaches session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.create)
	rg.POST("/sessions/upload", h.upload)
	rg.GET("/sessions/:id", h.get)
	rg.DELETE("/sessions/:id", h.delete)
	rg.GET("/sessions/:id/chunks", h.chunks)
	rg.POST("/sessions/:id/chunks/select-all", h.selectAll)
	rg.POST("/sessions/:id/chunks/select-none", h.selectNone)
	rg.POST("/sessions/:id/chunks/:chunkId/toggle", h.toggle)
	rg.PUT("/sessions/:id/config", h.configure)
	rg.POST("/sessions/:id/analysis/start", h.start)
	rg.POST("/sessions/:id/analysis/pause", h.pause)
	rg.POST("/sessions/:id/analysis/resume", h.resume)
	rg.POST("/sessions/:id/analysis/stop", h.stop)
	rg.GET("/sessions/:id/analysis", h.snapshot)
	rg.GET("/sessions/:id/analysis/ws", h.progressStream)
	rg.GET("/sessions/:id/result", h.result)
	rg.GET("/sessions/:id/exports", h.listExports)
	rg.GET("/exports/:exportId", h.downloadExport)
	rg.GET("/providers", h.providers)
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, analyses.ErrorCodeValidation, "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respond.Error(c, http.StatusBadRequest, analyses.ErrorCodeValidation, "text is required", []map[string]string{
			{"field": "text", "issue": "required"},
		})
		return
	}

	s := h.Registry.Create()
	if err := h.prepare(s, req.Text, req.AnalysisType, req.Provider); err != nil {
		_ = h.Registry.Delete(s.ID())
		h.writeError(c, err)
		return
	}
	c.Set("sessionId", s.ID())
	respond.Created(c, s.View())
}

func (h *Handler) upload(c *gin.Context) {
	if h.Documents == nil {
		respond.Error(c, http.StatusNotImplemented, "not_configured", "uploads are not configured", nil)
		return
	}
	if c.Request.ContentLength > maxUploadBody {
		respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the upload limit", nil)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)
	fileHeader, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the upload limit", nil)
		return
	}
	if err != nil {
		respond.Error(c, http.StatusBadRequest, analyses.ErrorCodeValidation, "file is required", []map[string]string{
			{"field": "file", "issue": "required"},
		})
		return
	}
	if fileHeader.Size > extract.MaxBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the upload limit", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, analyses.ErrorCodeValidation, "unable to read file", nil)
		return
	}
	defer file.Close()

	s := h.Registry.Create()
	doc, text, err := h.Documents.Upload(c.Request.Context(), s.ID(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err == nil {
		s.AttachDocument(doc.ID)
		err = h.prepare(s, text, c.PostForm("analysisType"), c.PostForm("provider"))
	}
	if err != nil {
		_ = h.Registry.Delete(s.ID())
		h.writeError(c, err)
		return
	}
	c.Set("sessionId", s.ID())
	c.Set("documentId", doc.ID)
	respond.Created(c, s.View())
}

func (h *Handler) prepare(s *Session, text, analysisType, provider string) error {
	if err := s.Configure(analysisType, provider); err != nil {
		return err
	}
	return s.LoadText(text)
}

func (h *Handler) get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	respond.OK(c, s.View())
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.Registry.Delete(id); err != nil {
		h.writeError(c, err)
		return
	}
	h.polls.Forget(id)
	if h.Documents != nil {
		if _, err := h.Documents.DeleteSession(c.Request.Context(), id); err != nil {
			telemetry.Warn("session.documents_delete_failed", map[string]any{
				"session_id": id,
				"request_id": middleware.RequestIDFromContext(c),
				"error":      err.Error(),
			})
		}
	}
	respond.NoContent(c)
}

func (h *Handler) chunks(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	chunks := s.Chunks()
	if chunks == nil {
		chunks = []chunking.TextChunk{}
	}
	respond.OK(c, gin.H{
		"chunkingRequired": s.ChunkingRequired(),
		"chunks":           chunks,
	})
}

func (h *Handler) toggle(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	selected, err := s.Toggle(c.Param("chunkId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"id": c.Param("chunkId"), "selected": selected})
}

func (h *Handler) selectAll(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.SelectAll()
	respond.OK(c, s.View())
}

func (h *Handler) selectNone(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.SelectNone()
	respond.OK(c, s.View())
}

func (h *Handler) configure(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req configRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, analyses.ErrorCodeValidation, "invalid request body", nil)
		return
	}
	if err := s.Configure(req.AnalysisType, req.Provider); err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, s.View())
}

func (h *Handler) start(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	if err := s.StartAnalysis(ctx); err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("statusTransition", "idle->running")
	respond.Accepted(c, s.Snapshot())
}

func (h *Handler) pause(c *gin.Context) {
	h.control(c, (*Session).PauseAnalysis)
}

func (h *Handler) resume(c *gin.Context) {
	h.control(c, (*Session).ResumeAnalysis)
}

func (h *Handler) stop(c *gin.Context) {
	h.control(c, (*Session).StopAnalysis)
}

func (h *Handler) control(c *gin.Context, op func(*Session) error) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	prev := s.Snapshot().Status
	if err := op(s); err != nil {
		h.writeError(c, err)
		return
	}
	snap := s.Snapshot()
	c.Set("statusTransition", string(prev)+"->"+string(snap.Status))
	respond.OK(c, snap)
}

func (h *Handler) snapshot(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if !h.polls.Allow(s.ID(), c.ClientIP()) {
		c.Header("Retry-After", strconv.Itoa(h.polls.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "polling too frequently", nil)
		return
	}
	respond.OK(c, s.Snapshot())
}

func (h *Handler) result(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	document, err := s.DownloadResult()
	if err != nil {
		h.writeError(c, err)
		return
	}

	snap := s.Snapshot()
	base := fmt.Sprintf("analysis-%s-%s", snap.AnalysisType, s.ID())
	switch strings.ToLower(c.DefaultQuery("format", "txt")) {
	case "txt", "text", "md":
		respond.Attachment(c, base+".txt", "text/plain; charset=utf-8", document)
	case "html":
		html, err := analyses.RenderHTML(document)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, analyses.ErrorCodeInternal, "failed to render result", nil)
			return
		}
		respond.Attachment(c, base+".html", "text/html; charset=utf-8", html)
	default:
		respond.Error(c, http.StatusBadRequest, analyses.ErrorCodeValidation, "format must be txt or html", []map[string]string{
			{"field": "format", "issue": "unsupported"},
		})
	}
}

func (h *Handler) listExports(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if h.Exports == nil {
		respond.OK(c, []exports.Export{})
		return
	}
	list, err := h.Exports.List(c.Request.Context(), s.ID())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, analyses.ErrorCodeInternal, "failed to list exports", nil)
		return
	}
	if list == nil {
		list = []exports.Export{}
	}
	respond.OK(c, list)
}

func (h *Handler) downloadExport(c *gin.Context) {
	if h.Exports == nil {
		respond.Error(c, http.StatusNotFound, "not_found", "export not found", nil)
		return
	}
	exp, content, err := h.Exports.Open(c.Request.Context(), c.Param("exportId"))
	if err != nil {
		if errors.Is(err, exports.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "export not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, analyses.ErrorCodeInternal, "failed to read export", nil)
		return
	}
	respond.Attachment(c, "analysis-"+exp.ID+".txt", "text/plain; charset=utf-8", content)
}

func (h *Handler) providers(c *gin.Context) {
	opts := h.Registry.Options()
	respond.OK(c, gin.H{
		"providers":       opts.Providers.Names(),
		"analysisTypes":   analyses.Types(),
		"defaultProvider": opts.Provider,
		"defaultType":     opts.AnalysisType,
	})
}

func (h *Handler) session(c *gin.Context) (*Session, bool) {
	id := c.Param("id")
	c.Set("sessionId", id)
	s, err := h.Registry.Get(id)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		return nil, false
	}
	return s, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
	case errors.Is(err, chunking.ErrChunkNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "chunk not found", nil)
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, analyses.ErrNoSelection):
		respond.Error(c, http.StatusUnprocessableEntity, analyses.ErrorCodeNoSelection, "select at least one chunk", nil)
	case errors.Is(err, ErrNoResult):
		respond.Error(c, http.StatusNotFound, "no_result", "no analysis result yet", nil)
	case errors.Is(err, ErrJobActive), errors.Is(err, analyses.ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, analyses.ErrorCodeInvalidTransition, err.Error(), nil)
	case errors.Is(err, ErrNoInput),
		errors.Is(err, analyses.ErrInvalidArgument),
		errors.Is(err, chunking.ErrInvalidArgument),
		errors.Is(err, documents.ErrInvalidInput),
		errors.Is(err, llm.ErrUnknownProvider):
		respond.Error(c, http.StatusBadRequest, analyses.ErrorCodeValidation, err.Error(), nil)
	case errors.Is(err, extract.ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the upload limit", nil)
	case errors.Is(err, extract.ErrUnsupportedFormat):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_format", err.Error(), nil)
	case errors.Is(err, extract.ErrExtraction):
		respond.Error(c, http.StatusUnprocessableEntity, "extraction_error", err.Error(), nil)
	case errors.Is(err, context.Canceled):
		respond.Error(c, 499, "canceled", "request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, analyses.ErrorCodeInternal, "internal error", nil)
	}
}
