package handlers

import (
	"errors"
	"net/http"
	"strings"

	"ecopoints/models"
	"ecopoints/service"

	"github.com/gin-gonic/gin"
)

// ListTasks handles GET /api/v1/tasks?limit=&q=
func (h *Handlers) ListTasks(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	tasks, err := h.svc.SearchTasks(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondError(c, err, "list tasks")
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// ClaimTask handles POST /api/v1/tasks/:id/claim
func (h *Handlers) ClaimTask(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	report, err := h.svc.ClaimTask(c.Request.Context(), id, s.UserID)
	if err != nil {
		respondError(c, err, "claim task")
		return
	}
	c.JSON(http.StatusOK, report.Task())
}

// UpdateTaskStatus handles PUT /api/v1/tasks/:id/status
func (h *Handlers) UpdateTaskStatus(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req models.UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status must be one of pending, in_progress, completed, verified")
		return
	}
	// Collectors only act for themselves.
	if req.CollectorID != nil && *req.CollectorID != s.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot act for another collector"})
		return
	}
	if req.Status == models.StatusInProgress {
		req.CollectorID = &s.UserID
	}
	report, err := h.svc.UpdateTaskStatus(c.Request.Context(), id, req.Status, req.CollectorID)
	if err != nil {
		respondError(c, err, "update task status")
		return
	}
	c.JSON(http.StatusOK, report.Task())
}

// VerifyTask handles POST /api/v1/tasks/:id/verify. The body carries either
// an image to classify or a classification the client already has.
func (h *Handlers) VerifyTask(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req models.VerifyTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	var (
		out *service.CollectionResult
		err error
	)
	switch {
	case len(req.Result) > 0 && string(req.Result) != "null":
		out, err = h.svc.VerifyCollectionResult(c.Request.Context(), id, s.UserID, req.Result)
	case strings.TrimSpace(req.Image) != "":
		out, err = h.svc.VerifyCollectionImage(c.Request.Context(), id, s.UserID, req.Image)
	default:
		err = service.ErrMissingVerificationInput
	}

	var verr *service.VerificationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, models.VerifyTaskResponse{
			Success:        false,
			WasteTypeMatch: verr.Outcome.WasteTypeMatch,
			QuantityMatch:  verr.Outcome.QuantityMatch,
			Confidence:     verr.Outcome.Confidence,
			Message:        verr.Error(),
		})
		return
	}
	if err != nil {
		respondError(c, err, "verify collection")
		return
	}

	c.JSON(http.StatusOK, models.VerifyTaskResponse{
		Success:        true,
		WasteTypeMatch: out.Outcome.WasteTypeMatch,
		QuantityMatch:  out.Outcome.QuantityMatch,
		Confidence:     out.Outcome.Confidence,
		Reward:         out.Reward,
		Message:        "Collection verified",
	})
}

// ListMyCollections handles GET /api/v1/me/collections
func (h *Handlers) ListMyCollections(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	collected, err := h.svc.ListCollectedByCollector(c.Request.Context(), s.UserID)
	if err != nil {
		respondError(c, err, "list collections")
		return
	}
	c.JSON(http.StatusOK, collected)
}

// ListCollections handles GET /api/v1/collections
func (h *Handlers) ListCollections(c *gin.Context) {
	collected, err := h.svc.ListCollectedWastes(c.Request.Context())
	if err != nil {
		respondError(c, err, "list collections")
		return
	}
	c.JSON(http.StatusOK, collected)
}
