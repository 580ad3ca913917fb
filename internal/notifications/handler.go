package notifications

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/backend/internal/campaigns"
	"github.com/creatorhub/backend/pkg/response"
)

// SendRequest is the body for admin notification endpoints.
type SendRequest struct {
	Title string `json:"title" binding:"required,max=120"`
	Body  string `json:"body" binding:"required,max=1000"`
}

// Handler exposes admin push endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// SendToUser handles POST /notifications/users/:id.
func (h *Handler) SendToUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	err = h.svc.NotifyOne(c.Request.Context(), userID, req.Title, req.Body, TagAdminMessage)
	switch {
	case err == nil:
		response.OK(c, gin.H{"sent": true})
	case errors.Is(err, ErrNoDeliveryAddress):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrRelay):
		response.ServiceUnavailable(c, "push relay unavailable")
	default:
		h.logger.Error("notify user", zap.Error(err))
		response.Internal(c, "failed to send notification")
	}
}

// SendToApproved handles POST /notifications/campaigns/:id/approved.
func (h *Handler) SendToApproved(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid campaign id")
		return
	}
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.NotifyApprovedBatch(c.Request.Context(), campaignID, req.Title, req.Body, TagAdminMessage)
	if errors.Is(err, campaigns.ErrCampaignNotFound) {
		response.NotFound(c, "campaign not found")
		return
	}
	if err != nil {
		h.logger.Error("notify approved batch", zap.Error(err), zap.String("campaign_id", campaignID.String()))
		response.Internal(c, "failed to resolve recipients")
		return
	}
	response.OK(c, res)
}
