package httpapi

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"clipscribe/application/export"
	"clipscribe/application/process"
	"clipscribe/domain/pipeline"
	"clipscribe/domain/source"
	"clipscribe/domain/transcript"

	"github.com/gin-gonic/gin"
)

// Transcriber runs one transcription Job
type Transcriber interface {
	Run(ctx context.Context, input process.Input) (*process.Result, error)
}

// Renderer renders a transcript into a downloadable file
type Renderer interface {
	Render(r *transcript.Result, format transcript.Format, search string) (*export.Rendered, error)
}

// TranscribeRequest is the body of POST /api/transcribe
type TranscribeRequest struct {
	URL       string `json:"url"`
	Translate bool   `json:"translate"`
}

// TranscribeResponse is the success body of POST /api/transcribe
type TranscribeResponse struct {
	Success    bool                 `json:"success"`
	JobID      string               `json:"jobId"`
	Platform   source.Platform      `json:"platform"`
	Text       string               `json:"text"`
	Language   string               `json:"language"`
	Duration   float64              `json:"duration"`
	Translated bool                 `json:"translated"`
	Segments   []transcript.Segment `json:"segments"`
}

// ErrorResponse is the failure body of every endpoint
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind"`
}

// ExportRequest is the body of POST /api/export
type ExportRequest struct {
	Format     string             `json:"format"`
	Search     string             `json:"search"`
	Transcript *transcript.Result `json:"transcript"`
}

// Handler serves the HTTP API
type Handler struct {
	transcriber Transcriber
	renderer    Renderer
	jobTimeout  time.Duration
	logger      *log.Logger
}

// HandlerOption is a functional option for configuring Handler
type HandlerOption func(*Handler)

// WithJobTimeout bounds each Job; zero means no limit
func WithJobTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.jobTimeout = d
	}
}

// WithLogger sets the request logger
func WithLogger(logger *log.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a new API handler
func NewHandler(transcriber Transcriber, renderer Renderer, opts ...HandlerOption) *Handler {
	h := &Handler{
		transcriber: transcriber,
		renderer:    renderer,
		logger:      log.New(io.Discard, "", 0),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// NewRouter builds the gin engine with CORS restricted to allowedOrigins
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger), CORS(allowedOrigins))

	api := r.Group("/api")
	api.GET("/health", h.health)
	api.POST("/transcribe", h.transcribe)
	api.POST("/export", h.export)

	return r
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Video Transcript API is running"})
}

func (h *Handler) transcribe(c *gin.Context) {
	var req TranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body", pipeline.KindInvalidInput)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(c, http.StatusBadRequest, "Video URL is required", pipeline.KindInvalidInput)
		return
	}

	// A started Job runs to completion even if the client goes away, so its
	// cleanup is never cut short by a disconnect
	ctx := context.WithoutCancel(c.Request.Context())
	if h.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.jobTimeout)
		defer cancel()
	}

	result, err := h.transcriber.Run(ctx, process.Input{URL: strings.TrimSpace(req.URL), Translate: req.Translate})
	if err != nil {
		kind := pipeline.KindOf(err)
		writeError(c, StatusFor(kind), err.Error(), kind)
		return
	}

	tr := result.Transcript
	c.JSON(http.StatusOK, TranscribeResponse{
		Success:    true,
		JobID:      result.JobID,
		Platform:   result.Platform,
		Text:       tr.Text,
		Language:   tr.Language,
		Duration:   tr.Duration,
		Translated: tr.Translated,
		Segments:   tr.Segments,
	})
}

func (h *Handler) export(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body", pipeline.KindInvalidInput)
		return
	}
	if req.Transcript == nil {
		writeError(c, http.StatusBadRequest, "transcript is required", pipeline.KindInvalidInput)
		return
	}

	format, err := transcript.ParseFormat(req.Format)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error(), pipeline.KindInvalidInput)
		return
	}

	req.Transcript.Normalize()
	rendered, err := h.renderer.Render(req.Transcript, format, req.Search)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error(), pipeline.KindInternalFailure)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(rendered.FileName))
	c.Data(http.StatusOK, rendered.MimeType+"; charset=utf-8", rendered.Data)
}

// StatusFor maps a failure kind to its HTTP status
func StatusFor(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindInvalidInput:
		return http.StatusBadRequest
	case pipeline.KindToolMissing, pipeline.KindEngineMissing, pipeline.KindEngineDependencyMissing:
		return http.StatusServiceUnavailable
	case pipeline.KindDownloadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, status int, message string, kind pipeline.Kind) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Success: false,
		Error:   message,
		Kind:    string(kind),
	})
}
