package handlers

import (
	"net/http"

	"ecopoints/models"
	"ecopoints/service"

	"github.com/gin-gonic/gin"
)

// CreateReport handles POST /api/v1/reports
func (h *Handlers) CreateReport(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	var req models.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "location, wasteType and amount are required")
		return
	}

	out, err := h.svc.SubmitReport(c.Request.Context(), service.NewReport{
		UserID:             s.UserID,
		Location:           req.Location,
		WasteType:          req.WasteType,
		Amount:             req.Amount,
		ImageURL:           req.ImageURL,
		VerificationResult: req.VerificationResult,
	})
	if err != nil {
		respondError(c, err, "submit report")
		return
	}
	c.JSON(http.StatusCreated, out)
}

// AnalyzeImage handles POST /api/v1/analyze
func (h *Handlers) AnalyzeImage(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "image is required")
		return
	}
	result, err := h.svc.AnalyzeImage(c.Request.Context(), req.Image)
	if err != nil {
		respondError(c, err, "analyze image")
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListMyReports handles GET /api/v1/me/reports
func (h *Handlers) ListMyReports(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	reports, err := h.svc.ListReportsByUser(c.Request.Context(), s.UserID)
	if err != nil {
		respondError(c, err, "list reports")
		return
	}
	c.JSON(http.StatusOK, reports)
}

// ListRecentReports handles GET /api/v1/reports/recent
func (h *Handlers) ListRecentReports(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	reports, err := h.svc.ListRecentReports(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "list recent reports")
		return
	}
	c.JSON(http.StatusOK, reports)
}

// ListPendingReports handles GET /api/v1/reports/pending
func (h *Handlers) ListPendingReports(c *gin.Context) {
	reports, err := h.svc.ListPendingReports(c.Request.Context())
	if err != nil {
		respondError(c, err, "list pending reports")
		return
	}
	c.JSON(http.StatusOK, reports)
}

// Impact handles GET /api/v1/impact
func (h *Handlers) Impact(c *gin.Context) {
	stats, err := h.svc.ImpactStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "compute impact")
		return
	}
	c.JSON(http.StatusOK, stats)
}
