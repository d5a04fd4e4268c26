package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/strideatlas/streets-backend-go/internal/service"
	"github.com/strideatlas/streets-backend-go/pkg/response"
)

// CoverageHandler exposes the area coverage read path.
type CoverageHandler struct {
	coverage *service.CoverageService
}

// NewCoverageHandler creates a new coverage handler
func NewCoverageHandler(coverage *service.CoverageService) *CoverageHandler {
	return &CoverageHandler{coverage: coverage}
}

// GetAreaCoverage handles GET /coverage?userId=...&lat=...&lng=...&radius=...
func (h *CoverageHandler) GetAreaCoverage(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		response.BadRequest(c, "userId is required")
		return
	}

	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		response.BadRequest(c, "invalid lat")
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		response.BadRequest(c, "invalid lng")
		return
	}
	radius, err := strconv.ParseFloat(c.DefaultQuery("radius", "1000"), 64)
	if err != nil || radius <= 0 {
		response.BadRequest(c, "invalid radius")
		return
	}

	streets, err := h.coverage.GetAreaCoverage(c.Request.Context(), userID, lat, lng, radius)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, streets)
}
