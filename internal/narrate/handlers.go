package narrate

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"cicerone/internal/aggregate"
	"cicerone/pkg/logging"
	"cicerone/pkg/middleware"

	"github.com/gin-gonic/gin"
)

const maxQueryRunes = 500

// Handler exposes the narration pipeline over HTTP. Handlers decode,
// invoke the service, and map errors to status codes; nothing else.
type Handler struct {
	Service *Service
	Logger  logging.Logger
}

type NarrateRequest struct {
	Query           string            `json:"query"`
	DurationMinutes int               `json:"duration_minutes,omitempty"`
	Preferences     map[string]string `json:"preferences,omitempty"`
}

type ResearchRequest struct {
	Question string `json:"question"`
	Depth    int    `json:"depth,omitempty"`
}

type ClassifyRequest struct {
	Query string `json:"query"`
}

func NewHandler(service *Service, logger logging.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

func RegisterRoutes(router gin.IRoutes, handler *Handler) {
	router.POST("/api/narrate", handler.HandleNarrate)
	router.POST("/api/research", handler.HandleResearch)
	router.POST("/api/classify", handler.HandleClassify)
	router.GET("/api/content/:query", handler.HandleContent)
}

func (h *Handler) HandleNarrate(c *gin.Context) {
	if h == nil || h.Service == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "narration service unavailable"})
		return
	}

	var req NarrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	if len([]rune(req.Query)) > maxQueryRunes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query too long"})
		return
	}
	if req.DurationMinutes < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration_minutes must not be negative"})
		return
	}

	narration, err := h.Service.Narrate(c.Request.Context(), req.Query, req.DurationMinutes, req.Preferences)
	if err != nil {
		h.fail(c, err, "narration failed")
		return
	}
	c.JSON(http.StatusOK, narration)
}

func (h *Handler) HandleResearch(c *gin.Context) {
	if h == nil || h.Service == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "narration service unavailable"})
		return
	}

	var req ResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}
	if len([]rune(req.Question)) > maxQueryRunes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question too long"})
		return
	}

	result, err := h.Service.Research(c.Request.Context(), req.Question, req.Depth)
	if err != nil {
		h.fail(c, err, "research failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) HandleClassify(c *gin.Context) {
	if h == nil || h.Service == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "narration service unavailable"})
		return
	}

	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	c.JSON(http.StatusOK, h.Service.Classify(req.Query))
}

func (h *Handler) HandleContent(c *gin.Context) {
	if h == nil || h.Service == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "narration service unavailable"})
		return
	}

	query := strings.TrimSpace(c.Param("query"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	content, err := h.Service.Content(c.Request.Context(), query)
	if err != nil {
		h.fail(c, err, "content gathering failed")
		return
	}
	c.JSON(http.StatusOK, content)
}

// fail maps pipeline errors onto status codes. Everything that reaches
// here is an upstream failure; bad input never leaves the handlers.
func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	if h.Logger != nil {
		middleware.GetContextLogger(c, h.Logger).WithError(err).Warn("Pipeline request failed")
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	case errors.Is(err, aggregate.ErrAllSourcesFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "all content sources failed"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": fallback})
	}
}
