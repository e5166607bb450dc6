package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hokuto/run-telemetry-go/internal/controller"
	"github.com/hokuto/run-telemetry-go/internal/middleware"
	"github.com/hokuto/run-telemetry-go/internal/models"
	"github.com/hokuto/run-telemetry-go/internal/repository"
	"github.com/hokuto/run-telemetry-go/internal/syncer"
	"github.com/hokuto/run-telemetry-go/pkg/response"
)

// TrackingHandler handles HTTP requests for the tracking lifecycle
type TrackingHandler struct {
	controller *controller.SamplingController
	source     *controller.PushSource
	sync       *syncer.Synchronizer
	pending    *repository.PendingSampleRepository
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(
	ctrl *controller.SamplingController,
	source *controller.PushSource,
	sync *syncer.Synchronizer,
	pending *repository.PendingSampleRepository,
) *TrackingHandler {
	return &TrackingHandler{
		controller: ctrl,
		source:     source,
		sync:       sync,
		pending:    pending,
	}
}

// StartRequest is the body of POST /api/v1/activities/start
type StartRequest struct {
	EventID string `json:"eventId" binding:"required"`
}

// StartTracking handles POST /api/v1/activities/start
func (h *TrackingHandler) StartTracking(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	activityID, err := h.controller.Start(c.Request.Context(), req.EventID, middleware.UserID(c))
	switch {
	case errors.Is(err, controller.ErrMissingIdentifiers):
		response.BadRequest(c, err.Error())
	case errors.Is(err, controller.ErrAlreadyTracking):
		response.Conflict(c, err.Error())
	case errors.Is(err, controller.ErrPermissionDenied):
		response.Error(c, 403, err.Error())
	case err != nil:
		// The remote create is a hard precondition for tracking.
		response.BadGateway(c, err.Error())
	default:
		response.Success(c, gin.H{"activityId": activityID})
	}
}

// StopTracking handles POST /api/v1/activities/stop
func (h *TrackingHandler) StopTracking(c *gin.Context) {
	status := h.controller.Status()
	if err := h.controller.Stop(c.Request.Context()); err != nil {
		if errors.Is(err, controller.ErrNotTracking) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"activityId":          status.ActivityID,
		"totalDistanceMeters": status.TotalDistanceMeters,
		"sampleCount":         status.SampleCount,
	})
}

// AbandonTracking handles POST /api/v1/activities/abandon
func (h *TrackingHandler) AbandonTracking(c *gin.Context) {
	if err := h.controller.Abandon(c.Request.Context()); err != nil {
		if errors.Is(err, controller.ErrNotTracking) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, nil)
}

// GetStatus handles GET /api/v1/tracking/status
func (h *TrackingHandler) GetStatus(c *gin.Context) {
	response.Success(c, h.controller.Status())
}

// PushFix handles POST /api/v1/fixes
func (h *TrackingHandler) PushFix(c *gin.Context) {
	var fix models.Fix
	if err := c.ShouldBindJSON(&fix); err != nil {
		response.BadRequest(c, "Invalid fix payload")
		return
	}
	if fix.Latitude < -90 || fix.Latitude > 90 || fix.Longitude < -180 || fix.Longitude > 180 {
		response.BadRequest(c, "Coordinates out of range")
		return
	}
	if fix.TimestampMs == 0 {
		fix.TimestampMs = time.Now().UnixMilli()
	}

	accepted, err := h.source.Push(fix)
	if err != nil {
		if errors.Is(err, controller.ErrNotSampling) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c, err.Error())
		return
	}

	// intervalMs is the cadence the producer should target between pushes.
	response.Success(c, gin.H{
		"accepted":   accepted,
		"intervalMs": h.source.Cadence(),
	})
}

// GetPending handles GET /api/v1/pending. Subscribers of the pending stream
// re-query this snapshot after a change notification; an optional activityId
// query scopes the read.
func (h *TrackingHandler) GetPending(c *gin.Context) {
	var (
		samples []models.PendingSample
		err     error
	)
	if activityID := c.Query("activityId"); activityID != "" {
		samples, err = h.pending.GetByActivity(activityID)
	} else {
		samples, err = h.pending.GetAll()
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"data":  samples,
		"count": len(samples),
	})
}

// GetPendingCount handles GET /api/v1/pending/count
func (h *TrackingHandler) GetPendingCount(c *gin.Context) {
	count, err := h.pending.Count()
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"pendingCount": count})
}

// TriggerSync handles POST /api/v1/sync
func (h *TrackingHandler) TriggerSync(c *gin.Context) {
	synced, err := h.sync.Drain(c.Request.Context(), "")
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"syncedCount": synced})
}
