package handlers

import (
	"net/http"

	"ecopoints/models"

	"github.com/gin-gonic/gin"
)

// ListStations handles GET /api/v1/stations?location=&type=
func (h *Handlers) ListStations(c *gin.Context) {
	stations, err := h.svc.SearchStations(c.Request.Context(), c.Query("location"), c.Query("type"))
	if err != nil {
		respondError(c, err, "list stations")
		return
	}
	c.JSON(http.StatusOK, stations)
}

// CreateStation handles POST /api/v1/stations
func (h *Handlers) CreateStation(c *gin.Context) {
	if _, ok := currentSession(c); !ok {
		return
	}
	var req models.CreateStationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name, location and recycleTypes are required")
		return
	}
	station, err := h.svc.AddStation(c.Request.Context(), req.Name, req.Location, req.RecycleTypes, req.ActiveStatus)
	if err != nil {
		respondError(c, err, "add station")
		return
	}
	c.JSON(http.StatusCreated, station)
}
