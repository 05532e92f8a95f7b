package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"stillwatch/internal/config"
	"stillwatch/internal/service"
)

type Handler struct {
	statusService *service.StatusService
	config        *config.Config
	log           zerolog.Logger
}

func NewHandler(
	statusService *service.StatusService,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		statusService: statusService,
		config:        cfg,
		log:           log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	// Public read-only endpoints
	public := r.Group("/api/v1")
	{
		public.GET("/status", h.getStatus)
		public.GET("/result", h.getLastResult)
		public.GET("/events", h.streamEvents)
	}

	// Protected control endpoints
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.POST("/reset", h.resetRun)
	}
}

func (h *Handler) getStatus(c *gin.Context) {
	info := h.statusService.Status()
	c.JSON(http.StatusOK, gin.H{
		"data":         info,
		"camera_model": h.config.Camera.Model,
	})
}

func (h *Handler) getLastResult(c *gin.Context) {
	outcome, err := h.statusService.LastOutcome()
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(outcome))
}

// streamEvents serves the live workflow event stream over SSE. The
// subscription is released when the client disconnects.
func (h *Handler) streamEvents(c *gin.Context) {
	events, cancel := h.statusService.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev.Payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handler) resetRun(c *gin.Context) {
	h.statusService.Reset()
	c.JSON(http.StatusAccepted, gin.H{
		"status": "reset requested",
	})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse("no completed run yet"))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
