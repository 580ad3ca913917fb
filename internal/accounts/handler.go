package accounts

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/backend/internal/auth"
	"github.com/creatorhub/backend/internal/middleware"
	"github.com/creatorhub/backend/pkg/response"
)

// TokenIssuer mints the full-access token handed out after a restore.
type TokenIssuer interface {
	Generate(userID uuid.UUID, email, role string) (string, error)
}

// Handler exposes account deletion and restore.
type Handler struct {
	svc    *Service
	tokens TokenIssuer
	logger *zap.Logger
}

// NewHandler creates an accounts handler.
func NewHandler(svc *Service, tokens TokenIssuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, tokens: tokens, logger: logger}
}

// Delete handles DELETE /users/me.
func (h *Handler) Delete(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.svc.SoftDelete(c.Request.Context(), userID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		h.logger.Error("soft delete", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to delete account")
		return
	}
	response.NoContent(c)
}

// Status handles GET /account/deleted.
func (h *Handler) Status(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	rec, err := h.svc.CheckDeleted(c.Request.Context(), userID)
	if errors.Is(err, ErrNotDeleted) {
		response.OK(c, gin.H{"deleted": false})
		return
	}
	if err != nil {
		h.logger.Error("check deleted", zap.Error(err))
		response.Internal(c, "failed to check account")
		return
	}
	response.OK(c, gin.H{"deleted": true, "deleted_at": rec.DeletedAt})
}

// Restore handles POST /account/restore. The restore-scoped login token is
// replaced by a regular one carrying the account's role.
func (h *Handler) Restore(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	u, err := h.svc.Restore(c.Request.Context(), userID)
	switch {
	case errors.Is(err, ErrNotDeleted):
		response.NotFound(c, "no deleted account to restore")
		return
	case errors.Is(err, auth.ErrEmailTaken):
		response.Conflict(c, "email is now used by another account")
		return
	case err != nil:
		h.logger.Error("restore", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to restore account")
		return
	}

	token, err := h.tokens.Generate(u.ID, u.Email, string(u.Role()))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, auth.TokenResponse{Token: token, User: u.ToPublic()})
}
