package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/backend/internal/models"
	"github.com/creatorhub/backend/pkg/response"
)

// ContextUserID is the gin context key holding the authenticated user's ID.
// It mirrors middleware.ContextUserID so handlers here need not import middleware.
const ContextUserID = "user_id"

// DeletedLookup finds soft-deleted accounts so login can offer a restore.
type DeletedLookup interface {
	FindDeletedByEmail(ctx context.Context, email string) (*models.DeletedUser, bool, error)
}

// UserStore is the user persistence the handler needs. *Repository satisfies it.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	UpdateProfile(ctx context.Context, id uuid.UUID, p ProfileUpdate) error
	SetPushToken(ctx context.Context, id uuid.UUID, token string) error
	List(ctx context.Context) ([]models.UserPublic, error)
	SetRoles(ctx context.Context, id uuid.UUID, isAdmin, isAmbassador bool) error
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name" binding:"required"`
	Institution string `json:"institution"`
	Instagram   string `json:"instagram"`
	TikTok      string `json:"tiktok"`
	YouTube     string `json:"youtube"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT. Deleted is set when the
// account is in the holding area; its token is then restore-scoped.
type TokenResponse struct {
	Token   string            `json:"token"`
	User    models.UserPublic `json:"user"`
	Deleted bool              `json:"deleted,omitempty"`
}

// UpdateProfileRequest is the body for PATCH /users/me.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Institution *string `json:"institution"`
	Instagram   *string `json:"instagram"`
	TikTok      *string `json:"tiktok"`
	YouTube     *string `json:"youtube"`
}

// PushTokenRequest is the body for PUT /users/me/push-token. An empty token unregisters.
type PushTokenRequest struct {
	Token string `json:"token"`
}

// SetRolesRequest is the body for PUT /users/:id/roles.
type SetRolesRequest struct {
	IsAdmin      bool `json:"is_admin"`
	IsAmbassador bool `json:"is_ambassador"`
}

// Handler handles auth and user HTTP endpoints.
type Handler struct {
	repo    UserStore
	jwt     *JWTService
	deleted DeletedLookup
	logger  *zap.Logger
}

// NewHandler creates an auth handler. deleted may be nil, in which case
// soft-deleted accounts simply fail to log in.
func NewHandler(repo UserStore, jwt *JWTService, deleted DeletedLookup, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, deleted: deleted, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	hash, err := HashPassword(req.Password)
	if errors.Is(err, ErrPasswordTooShort) || errors.Is(err, ErrPasswordTooLong) {
		response.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user := &models.User{
		Email:       strings.TrimSpace(req.Email),
		Password:    hash,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Institution: strings.TrimSpace(req.Institution),
		Socials: models.SocialHandles{
			Instagram: req.Instagram,
			TikTok:    req.TikTok,
			YouTube:   req.YouTube,
		},
	}
	if err := h.repo.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			response.Conflict(c, "email already registered")
			return
		}
		h.logger.Error("create user", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role()))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	deleted := false
	if errors.Is(err, ErrUserNotFound) && h.deleted != nil {
		rec, found, lookupErr := h.deleted.FindDeletedByEmail(c.Request.Context(), req.Email)
		if lookupErr != nil {
			h.logger.Error("deleted account lookup", zap.Error(lookupErr))
			response.Internal(c, "failed to look up account")
			return
		}
		if found {
			payload := rec.Payload
			user, err, deleted = &payload, nil, true
		}
	}
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	if !CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	role := user.Role()
	if deleted {
		role = models.RoleDeleted
	}
	token, err := h.jwt.Generate(user.ID, user.Email, string(role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic(), Deleted: deleted})
}

// Me handles GET /users/me.
func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet(ContextUserID).(uuid.UUID)
	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.userError(c, err)
		return
	}
	response.OK(c, user.ToPublic())
}

// UpdateMe handles PATCH /users/me.
func (h *Handler) UpdateMe(c *gin.Context) {
	userID := c.MustGet(ContextUserID).(uuid.UUID)
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.DisplayName != nil && strings.TrimSpace(*req.DisplayName) == "" {
		response.BadRequest(c, "display_name cannot be empty")
		return
	}

	ctx := c.Request.Context()
	err := h.repo.UpdateProfile(ctx, userID, ProfileUpdate{
		DisplayName: req.DisplayName,
		Institution: req.Institution,
		Instagram:   req.Instagram,
		TikTok:      req.TikTok,
		YouTube:     req.YouTube,
	})
	if err != nil {
		h.userError(c, err)
		return
	}
	user, err := h.repo.GetByID(ctx, userID)
	if err != nil {
		h.userError(c, err)
		return
	}
	response.OK(c, user.ToPublic())
}

// SetPushToken handles PUT /users/me/push-token.
func (h *Handler) SetPushToken(c *gin.Context) {
	userID := c.MustGet(ContextUserID).(uuid.UUID)
	var req PushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.SetPushToken(c.Request.Context(), userID, strings.TrimSpace(req.Token)); err != nil {
		h.userError(c, err)
		return
	}
	response.NoContent(c)
}

// List handles GET /users (admin only).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list users", zap.Error(err))
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}

// SetRoles handles PUT /users/:id/roles (admin only).
func (h *Handler) SetRoles(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req SetRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.SetRoles(c.Request.Context(), id, req.IsAdmin, req.IsAmbassador); err != nil {
		h.userError(c, err)
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.userError(c, err)
		return
	}
	response.OK(c, user.ToPublic())
}

func (h *Handler) userError(c *gin.Context, err error) {
	if errors.Is(err, ErrUserNotFound) {
		response.NotFound(c, "user not found")
		return
	}
	h.logger.Error("user request failed", zap.Error(err))
	response.Internal(c, "request failed")
}
