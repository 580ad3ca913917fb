package webinars

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/backend/internal/middleware"
	"github.com/creatorhub/backend/internal/models"
	"github.com/creatorhub/backend/internal/realtime"
	"github.com/creatorhub/backend/pkg/response"
)

// Publisher pushes live updates to topic subscribers.
type Publisher interface {
	Publish(topic, event string, payload any)
}

// WriteRequest is the body for POST /webinars and PUT /webinars/:id.
type WriteRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	EndsAt      time.Time `json:"ends_at" binding:"required"`
	JoinURL     string    `json:"join_url"`
	Platform    string    `json:"platform"`
}

func (r *WriteRequest) apply(w *models.Webinar) {
	w.Title = strings.TrimSpace(r.Title)
	w.Description = r.Description
	w.StartsAt = r.StartsAt
	w.EndsAt = r.EndsAt
	w.JoinURL = strings.TrimSpace(r.JoinURL)
	w.Platform = strings.TrimSpace(r.Platform)
}

// Handler handles webinar HTTP endpoints.
type Handler struct {
	store  Store
	pub    Publisher
	now    func() time.Time
	logger *zap.Logger
}

// NewHandler creates a webinar handler. pub may be nil.
func NewHandler(store Store, pub Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, pub: pub, now: time.Now, logger: logger}
}

// Create handles POST /webinars (admin).
func (h *Handler) Create(c *gin.Context) {
	var req WriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.EndsAt.Before(req.StartsAt) {
		response.BadRequest(c, "ends_at must not be before starts_at")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	w := &models.Webinar{CreatedBy: userID, Joined: []uuid.UUID{}}
	req.apply(w)
	if err := h.store.Create(c.Request.Context(), w); err != nil {
		h.logger.Error("create webinar", zap.Error(err))
		response.Internal(c, "failed to create webinar")
		return
	}
	response.Created(c, w.View(userID, h.now()))
}

// List handles GET /webinars?phase=.
func (h *Handler) List(c *gin.Context) {
	phase := models.WebinarPhase(c.Query("phase"))
	switch phase {
	case "", models.PhaseUpcoming, models.PhaseLive, models.PhaseEnded:
	default:
		response.BadRequest(c, "phase must be upcoming, live or ended")
		return
	}
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list webinars", zap.Error(err))
		response.Internal(c, "failed to list webinars")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	now := h.now()
	out := make([]models.WebinarView, 0, len(list))
	for i := range list {
		v := list[i].View(userID, now)
		if phase == "" || v.Phase == phase {
			out = append(out, v)
		}
	}
	response.OK(c, out)
}

// GetByID handles GET /webinars/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	w, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, w.View(c.MustGet(middleware.ContextUserID).(uuid.UUID), h.now()))
}

// Update handles PUT /webinars/:id (admin).
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req WriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.EndsAt.Before(req.StartsAt) {
		response.BadRequest(c, "ends_at must not be before starts_at")
		return
	}
	ctx := c.Request.Context()
	w, err := h.store.GetByID(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	req.apply(w)
	if err := h.store.Update(ctx, w); err != nil {
		h.fail(c, err)
		return
	}
	h.publish(ctx, id)
	response.OK(c, w.View(c.MustGet(middleware.ContextUserID).(uuid.UUID), h.now()))
}

// Delete handles DELETE /webinars/:id (admin).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

// Join handles POST /webinars/:id/rsvp.
func (h *Handler) Join(c *gin.Context) {
	h.rsvp(c, h.store.Join)
}

// Leave handles DELETE /webinars/:id/rsvp.
func (h *Handler) Leave(c *gin.Context) {
	h.rsvp(c, h.store.Leave)
}

func (h *Handler) rsvp(c *gin.Context, fn func(ctx context.Context, webinarID, userID uuid.UUID) error) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := fn(ctx, id, userID); err != nil {
		h.fail(c, err)
		return
	}
	w, err := h.store.GetByID(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.broadcast(w)
	response.OK(c, w.View(userID, h.now()))
}

// Snapshot returns the current state of a webinar for live subscribers.
func (h *Handler) Snapshot(ctx context.Context, id uuid.UUID) (models.WebinarView, error) {
	w, err := h.store.GetByID(ctx, id)
	if err != nil {
		return models.WebinarView{}, err
	}
	return w.View(uuid.Nil, h.now()), nil
}

func (h *Handler) publish(ctx context.Context, id uuid.UUID) {
	w, err := h.store.GetByID(ctx, id)
	if err != nil {
		h.logger.Warn("webinar snapshot for publish", zap.String("webinar_id", id.String()), zap.Error(err))
		return
	}
	h.broadcast(w)
}

func (h *Handler) broadcast(w *models.Webinar) {
	if h.pub == nil {
		return
	}
	h.pub.Publish(realtime.WebinarTopic(w.ID), realtime.EventWebinarUpdated, w.View(uuid.Nil, h.now()))
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, ErrWebinarNotFound) {
		response.NotFound(c, "webinar not found")
		return
	}
	h.logger.Error("webinar request failed", zap.Error(err))
	response.Internal(c, "request failed")
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return uuid.Nil, false
	}
	return id, true
}
