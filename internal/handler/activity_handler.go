package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/strideatlas/streets-backend-go/internal/models"
	"github.com/strideatlas/streets-backend-go/internal/service"
	"github.com/strideatlas/streets-backend-go/pkg/response"
)

// ActivityHandler exposes activity processing over HTTP. The surrounding
// system treats this as best effort: a usable result always carries a unit
// count, hard failures are storage-level only.
type ActivityHandler struct {
	activities *service.ActivityService
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activities *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

type processActivityRequest struct {
	UserID            string              `json:"userId" binding:"required"`
	Trace             []models.TrackPoint `json:"trace"`
	ActivityTimestamp *int64              `json:"activityTimestamp,omitempty"` // Unix seconds
}

// ProcessActivity handles POST /activities/process
func (h *ActivityHandler) ProcessActivity(c *gin.Context) {
	var req processActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	var activityTime *time.Time
	if req.ActivityTimestamp != nil {
		t := time.Unix(*req.ActivityTimestamp, 0).UTC()
		activityTime = &t
	}

	result, err := h.activities.ProcessActivity(c.Request.Context(), req.UserID, req.Trace, activityTime)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, result)
}
