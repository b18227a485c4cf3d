package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/ports"
)

// Handler holds the HTTP handlers for the transfer API.
type Handler struct {
	service ports.TransferService
	logger  *log.Logger
}

// NewHandler creates a new HTTP handler with the given transfer service.
func NewHandler(service ports.TransferService, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, logger: logger.WithPrefix("http")}
}

// RegisterRoutes sets up all API routes on the given Gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		api.GET("/playlists", h.ListPlaylists)
		api.POST("/transfers", h.StartTransfer)
		api.GET("/transfers/:id", h.GetTransfer)
		api.POST("/transfers/:id/cancel", h.CancelTransfer)
		api.GET("/transfers/:id/events", h.TransferEvents)
		api.GET("/history", h.History)
	}
}

// RequestLogger logs one line per request through logger.
func RequestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// Health returns a simple health check response.
//
//	@Summary		Health check
//	@Description	Returns the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ListPlaylists returns playlists for the given provider and user.
//
//	@Summary		List user playlists
//	@Description	Returns the playlists of a user on the specified streaming provider.
//	@Description	Without user_id the token owner's playlists are listed. Supported providers: spotify, youtube.
//	@Tags			playlists
//	@Produce		json
//	@Param			provider		query	string	true	"Streaming provider"	Enums(spotify, youtube)
//	@Param			user_id			query	string	false	"Platform user or channel ID"
//	@Param			Authorization	header	string	true	"Bearer token for the streaming provider"
//	@Success		200	{array}		domain.PlaylistRef
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/v1/playlists [get]
func (h *Handler) ListPlaylists(c *gin.Context) {
	provider := c.Query("provider")
	if provider == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "query parameter 'provider' is required",
		})
		return
	}

	token := extractToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Authorization header with Bearer token is required",
		})
		return
	}

	playlists, err := h.service.ListPlaylists(c.Request.Context(), domain.Platform(provider), token, c.Query("user_id"))
	if err != nil {
		h.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, playlists)
}

// StartTransfer begins a playlist transfer between two streaming providers.
//
//	@Summary		Start transfer
//	@Description	Starts a background transfer: fetches the source playlist, matches each track on the
//	@Description	destination platform with a bounded worker pool and writes the matches in batches.
//	@Description	Poll GET /api/v1/transfers/{id} or stream /events for progress.
//	@Tags			transfers
//	@Accept			json
//	@Produce		json
//	@Param			request	body		domain.StartRequest	true	"Source and destination providers, tokens and playlist"
//	@Success		202		{object}	domain.TransferJob
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/v1/transfers [post]
func (h *Handler) StartTransfer(c *gin.Context) {
	var req domain.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid request body: " + err.Error(),
		})
		return
	}

	job, err := h.service.Start(c.Request.Context(), req)
	if err != nil {
		h.abort(c, err)
		return
	}

	c.Header("Location", "/api/v1/transfers/"+job.ID)
	c.JSON(http.StatusAccepted, job)
}

// GetTransfer returns the current snapshot of a transfer.
//
//	@Summary		Get transfer
//	@Tags			transfers
//	@Produce		json
//	@Param			id	path		string	true	"Transfer job ID"
//	@Success		200	{object}	domain.TransferJob
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/v1/transfers/{id} [get]
func (h *Handler) GetTransfer(c *gin.Context) {
	job, err := h.service.Snapshot(c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// CancelTransfer requests cancellation of a running transfer.
//
//	@Summary		Cancel transfer
//	@Description	Requests cooperative cancellation. Tracks already written stay in the destination playlist.
//	@Description	Cancelling a finished transfer has no effect.
//	@Tags			transfers
//	@Produce		json
//	@Param			id	path		string	true	"Transfer job ID"
//	@Success		202	{object}	domain.TransferJob
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/v1/transfers/{id}/cancel [post]
func (h *Handler) CancelTransfer(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Cancel(id); err != nil {
		h.abort(c, err)
		return
	}

	job, err := h.service.Snapshot(id)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// TransferEvents streams progress snapshots as Server-Sent Events.
//
//	@Summary		Stream transfer progress
//	@Description	Emits a "progress" event per snapshot and a final "done" event carrying the finished job.
//	@Tags			transfers
//	@Produce		text/event-stream
//	@Param			id	path	string	true	"Transfer job ID"
//	@Success		200	{object}	domain.Progress
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/v1/transfers/{id}/events [get]
func (h *Handler) TransferEvents(c *gin.Context) {
	id := c.Param("id")
	events, unsubscribe, err := h.service.Subscribe(id)
	if err != nil {
		h.abort(c, err)
		return
	}
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	for {
		select {
		case p, ok := <-events:
			if !ok {
				if job, err := h.service.Snapshot(id); err == nil {
					c.SSEvent("done", job)
					c.Writer.Flush()
				}
				return
			}
			c.SSEvent("progress", p)
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}

// History returns a user's past transfers, newest first.
//
//	@Summary		Transfer history
//	@Tags			history
//	@Produce		json
//	@Param			user_id	query		string	true	"User ID"
//	@Success		200		{array}		domain.HistoryRecord
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/v1/history [get]
func (h *Handler) History(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "query parameter 'user_id' is required",
		})
		return
	}

	records, err := h.service.History(c.Request.Context(), userID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *Handler) abort(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(status, ErrorResponse{Error: code, Message: err.Error()})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrSamePlatform),
		errors.Is(err, domain.ErrUnknownPlatform),
		errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrJobNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrTargetBusy):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, domain.ErrServiceClosed):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// extractToken retrieves the Bearer token from the Authorization header.
func extractToken(c *gin.Context) string {
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return auth
}
