package attribution

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/backend/internal/middleware"
	"github.com/creatorhub/backend/pkg/response"
)

// TrackRequest is the body for POST /events.
type TrackRequest struct {
	EventName string            `json:"event_name"`
	Values    map[string]string `json:"values"`
}

// Handler accepts attribution events from clients.
type Handler struct {
	tracker *Tracker
	logger  *zap.Logger
}

// NewHandler creates an attribution handler.
func NewHandler(tracker *Tracker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{tracker: tracker, logger: logger}
}

// Track handles POST /events. Delivery is fire-and-forget: once the event
// is valid the caller gets 202 whether or not it was queued.
func (h *Handler) Track(c *gin.Context) {
	var req TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if errs := ValidateEvent(req.EventName, req.Values); len(errs) > 0 {
		response.Unprocessable(c, "validation failed", errs)
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	queued, err := h.tracker.Track(c.Request.Context(), userID, req.EventName, req.Values)
	if err != nil {
		h.logger.Warn("attribution event dropped", zap.String("user_id", userID.String()), zap.String("event", req.EventName), zap.Error(err))
	}
	response.Accepted(c, gin.H{"queued": queued})
}
