package handlers

import (
	"net/http"

	"ecopoints/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// CreateSession handles POST /api/v1/session. The identity provider in
// front of the API has already vouched for the email.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req models.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email is required")
		return
	}

	user, err := h.svc.ResolveUser(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		respondError(c, err, "resolve user")
		return
	}
	token, err := h.sessions.Issue(user.ID, user.Email)
	if err != nil {
		respondError(c, err, "issue session")
		return
	}
	c.JSON(http.StatusOK, models.SessionResponse{Token: token, User: user})
}

// GetMe handles GET /api/v1/me
func (h *Handlers) GetMe(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	user, err := h.svc.GetUser(c.Request.Context(), s.UserID)
	if err != nil {
		respondError(c, err, "get user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe handles PUT /api/v1/me
func (h *Handlers) UpdateMe(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}
	user, err := h.svc.UpdateUserByEmail(c.Request.Context(), s.Email, req.Name, req.Phone, req.Avatar)
	if err != nil {
		respondError(c, err, "update user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteMe handles DELETE /api/v1/me
func (h *Handlers) DeleteMe(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	deleted, err := h.svc.DeleteUser(c.Request.Context(), s.Email)
	if err != nil {
		respondError(c, err, "delete user")
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	log.Infof("User %d deleted their account", s.UserID)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ListNotifications handles GET /api/v1/me/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	notifications, err := h.svc.ListUnreadNotifications(c.Request.Context(), s.UserID)
	if err != nil {
		respondError(c, err, "list notifications")
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// MarkNotificationRead handles POST /api/v1/me/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkNotificationRead(c.Request.Context(), id, s.UserID); err != nil {
		respondError(c, err, "mark notification read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "isRead": true})
}
