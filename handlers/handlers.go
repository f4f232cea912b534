package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ecopoints/middleware"
	"ecopoints/service"
	"ecopoints/session"
	"ecopoints/version"
	ws "ecopoints/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

const serviceName = "ecopoints"

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers contains all HTTP handlers
type Handlers struct {
	svc      *service.Service
	sessions *session.Manager
	hub      *ws.Hub
	db       Pinger
}

// NewHandlers creates a new handlers instance
func NewHandlers(svc *service.Service, sessions *session.Manager, hub *ws.Hub, db Pinger) *Handlers {
	return &Handlers{
		svc:      svc,
		sessions: sessions,
		hub:      hub,
		db:       db,
	}
}

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			log.Warnf("Health check: database unreachable: %v", err)
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{
		"status":  status,
		"service": serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Version handles GET /version
func (h *Handlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get(serviceName))
}

// respondError maps service errors to status codes. Unexpected errors are
// logged and answered with a generic message.
func respondError(c *gin.Context, err error, action string) {
	var status int
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrMissingVerificationInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrInsufficientPoints),
		errors.Is(err, service.ErrInvalidReward):
		status = http.StatusConflict
	case errors.Is(err, service.ErrVerificationFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrClassifierUnavailable):
		status = http.StatusServiceUnavailable
	default:
		log.Errorf("Failed to %s: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// currentSession returns the caller's session, answering 401 when missing.
func currentSession(c *gin.Context) (*session.Session, bool) {
	s, ok := middleware.GetSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	return s, true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// limitQuery reads ?limit=, returning 0 when absent.
func limitQuery(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		badRequest(c, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}
