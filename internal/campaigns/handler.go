package campaigns

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/creatorhub/backend/internal/middleware"
	"github.com/creatorhub/backend/internal/models"
	"github.com/creatorhub/backend/pkg/response"
	"github.com/creatorhub/backend/pkg/storage"
)

// BriefStore uploads campaign briefs, signs downloads and removes objects.
type BriefStore interface {
	UploadBrief(ctx context.Context, campaignID, filename, contentType string, body io.Reader, size int64) (string, error)
	BriefDownloadURL(ctx context.Context, key string) (string, error)
	DeleteBrief(ctx context.Context, key string) error
}

// CreateRequest is the body for POST /campaigns.
type CreateRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	ScheduledAt   *time.Time `json:"scheduled_at"`
	PaymentKind   string     `json:"payment_kind"`
	PaymentAmount string     `json:"payment_amount"`
	ApplicantCap  *int       `json:"applicant_cap"`
	BriefURL      string     `json:"brief_url"`
	SubmissionURL string     `json:"submission_url"`
}

// Validate checks the request and builds the campaign it describes.
func (r *CreateRequest) Validate() (*models.Campaign, []models.FieldError) {
	var errs []models.FieldError
	c := &models.Campaign{
		Title:       strings.TrimSpace(r.Title),
		Description: strings.TrimSpace(r.Description),
		ScheduledAt: r.ScheduledAt,
		Status:      models.CampaignActive,
	}
	if c.Title == "" {
		errs = append(errs, models.FieldError{Field: "title", Msg: "required"})
	} else if len(c.Title) > 200 {
		errs = append(errs, models.FieldError{Field: "title", Msg: "max length 200"})
	}

	c.Payment.Kind = models.PaymentKind(r.PaymentKind)
	if c.Payment.Kind == "" {
		c.Payment.Kind = models.PaymentFlat
	}
	if c.Payment.Kind != models.PaymentFlat && c.Payment.Kind != models.PaymentPerView {
		errs = append(errs, models.FieldError{Field: "payment_kind", Msg: "must be flat or per_view"})
	}
	if r.PaymentAmount != "" {
		amount, err := decimal.NewFromString(r.PaymentAmount)
		switch {
		case err != nil:
			errs = append(errs, models.FieldError{Field: "payment_amount", Msg: "must be a decimal number"})
		case amount.IsNegative():
			errs = append(errs, models.FieldError{Field: "payment_amount", Msg: "must not be negative"})
		default:
			c.Payment.Amount = amount
		}
	}

	if r.ApplicantCap != nil {
		if *r.ApplicantCap < 0 {
			errs = append(errs, models.FieldError{Field: "applicant_cap", Msg: "must not be negative"})
		}
		c.ApplicantCap = r.ApplicantCap
	}
	if u := strings.TrimSpace(r.BriefURL); u != "" {
		c.BriefURL = &u
	}
	if u := strings.TrimSpace(r.SubmissionURL); u != "" {
		c.SubmissionURL = &u
	}
	return c, errs
}

// UpdateStatusRequest is the body for PATCH /campaigns/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SubmissionURLRequest is the body for PUT /campaigns/:id/submission-url.
type SubmissionURLRequest struct {
	URL string `json:"url"`
}

// DetailResponse is a campaign with its counts and the caller's status.
type DetailResponse struct {
	models.Campaign
	Counts   models.Counts       `json:"counts"`
	MyStatus models.MemberStatus `json:"my_status"`
}

// Handler handles campaign HTTP endpoints.
type Handler struct {
	store  Store
	ctrl   *Controller
	briefs BriefStore
	logger *zap.Logger
}

// NewHandler creates a campaigns handler. briefs may be nil when uploads are not configured.
func NewHandler(store Store, ctrl *Controller, briefs BriefStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, ctrl: ctrl, briefs: briefs, logger: logger}
}

// Create handles POST /campaigns (admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	camp, errs := req.Validate()
	if len(errs) > 0 {
		response.Unprocessable(c, "validation failed", errs)
		return
	}
	camp.CreatedBy = c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.store.CreateCampaign(c.Request.Context(), camp); err != nil {
		h.logger.Error("create campaign", zap.Error(err))
		response.Internal(c, "failed to create campaign")
		return
	}
	response.Created(c, camp)
}

// List handles GET /campaigns?status=&q=.
func (h *Handler) List(c *gin.Context) {
	f := Filter{Status: models.CampaignStatus(c.Query("status")), Query: c.Query("q")}
	if f.Status != "" && !f.Status.Valid() {
		response.BadRequest(c, "invalid status")
		return
	}
	list, err := h.store.ListCampaigns(c.Request.Context())
	if err != nil {
		h.logger.Error("list campaigns", zap.Error(err))
		response.Internal(c, "failed to list campaigns")
		return
	}
	response.OK(c, f.Apply(list))
}

// Mine handles GET /campaigns/mine.
func (h *Handler) Mine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.store.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list user campaigns", zap.Error(err))
		response.Internal(c, "failed to list campaigns")
		return
	}
	if list == nil {
		list = []models.UserCampaign{}
	}
	response.OK(c, list)
}

// Get handles GET /campaigns/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	camp, err := h.store.GetCampaign(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	m, err := h.ctrl.Membership(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	response.OK(c, DetailResponse{Campaign: *camp, Counts: m.Counts, MyStatus: StatusOf(m, userID)})
}

// UpdateStatus handles PATCH /campaigns/:id/status (admin).
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	status := models.CampaignStatus(req.Status)
	if !status.Valid() {
		response.BadRequest(c, "status must be active, in_progress or completed")
		return
	}
	if err := h.store.UpdateStatus(c.Request.Context(), id, status); err != nil {
		h.fail(c, err)
		return
	}
	h.respondCampaign(c, id)
}

// SetSubmissionURL handles PUT /campaigns/:id/submission-url (admin).
func (h *Handler) SetSubmissionURL(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req SubmissionURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.store.SetSubmissionURL(c.Request.Context(), id, strings.TrimSpace(req.URL)); err != nil {
		h.fail(c, err)
		return
	}
	h.respondCampaign(c, id)
}

// UploadBrief handles POST /campaigns/:id/brief (admin, multipart field "file").
func (h *Handler) UploadBrief(c *gin.Context) {
	if h.briefs == nil {
		response.ServiceUnavailable(c, "brief storage is not configured")
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: file)")
		return
	}
	if file.Size > storage.MaxBriefFileSize {
		response.BadRequest(c, "file size exceeds 20MB limit")
		return
	}
	headerType := file.Header.Get("Content-Type")
	if !storage.ValidateBriefFileType(headerType, file.Filename) {
		response.BadRequest(c, "invalid file type: only pdf, docx, pptx, jpg and png allowed")
		return
	}
	contentType := storage.ContentTypeForFilename(file.Filename)
	if _, ok := storage.AllowedBriefTypes[headerType]; ok {
		contentType = headerType
	}

	ctx := c.Request.Context()
	camp, err := h.store.GetCampaign(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	rc, err := file.Open()
	if err != nil {
		response.Internal(c, "failed to read upload")
		return
	}
	defer rc.Close()

	key, err := h.briefs.UploadBrief(ctx, id.String(), file.Filename, contentType, rc, file.Size)
	if err != nil {
		h.logger.Error("brief upload failed", zap.Error(err), zap.String("campaign_id", id.String()))
		response.Internal(c, "failed to upload file to storage")
		return
	}
	if err := h.store.SetBriefURL(ctx, id, key); err != nil {
		h.removeBrief(ctx, id, key)
		h.fail(c, err)
		return
	}
	if camp.BriefURL != nil {
		h.removeBrief(ctx, id, *camp.BriefURL)
	}
	h.respondCampaign(c, id)
}

// Brief handles GET /campaigns/:id/brief. Uploaded briefs get a pre-signed
// link; external links are returned as stored.
func (h *Handler) Brief(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	camp, err := h.store.GetCampaign(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if camp.BriefURL == nil {
		response.NotFound(c, "campaign has no brief")
		return
	}
	ref := *camp.BriefURL
	if !storage.IsBriefKey(ref) {
		response.OK(c, gin.H{"url": ref})
		return
	}
	if h.briefs == nil {
		response.ServiceUnavailable(c, "brief storage is not configured")
		return
	}
	url, err := h.briefs.BriefDownloadURL(ctx, ref)
	if err != nil {
		h.logger.Error("presign brief", zap.Error(err), zap.String("campaign_id", id.String()))
		response.Internal(c, "failed to sign brief link")
		return
	}
	response.OK(c, gin.H{"url": url})
}

// Delete handles DELETE /campaigns/:id (admin).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	camp, err := h.store.GetCampaign(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.store.DeleteCampaign(ctx, id); err != nil {
		h.fail(c, err)
		return
	}
	if camp.BriefURL != nil {
		h.removeBrief(ctx, id, *camp.BriefURL)
	}
	response.NoContent(c)
}

// removeBrief deletes an uploaded brief object. External links are left
// alone and failures only leave an orphaned object behind.
func (h *Handler) removeBrief(ctx context.Context, campaignID uuid.UUID, ref string) {
	if h.briefs == nil || !storage.IsBriefKey(ref) {
		return
	}
	if err := h.briefs.DeleteBrief(ctx, ref); err != nil {
		h.logger.Warn("delete brief object", zap.String("campaign_id", campaignID.String()), zap.String("key", ref), zap.Error(err))
	}
}

// Apply handles POST /campaigns/:id/apply.
func (h *Handler) Apply(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.ctrl.Apply(c.Request.Context(), id, userID); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"status": models.MemberPending})
}

// MyStatus handles GET /campaigns/:id/status.
func (h *Handler) MyStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	status, err := h.ctrl.Status(c.Request.Context(), id, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"status": status})
}

// Members handles GET /campaigns/:id/members (admin).
func (h *Handler) Members(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	m, err := h.ctrl.Membership(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, m)
}

// Approve handles POST /campaigns/:id/members/:userId/approve (admin).
func (h *Handler) Approve(c *gin.Context) {
	h.transition(c, h.ctrl.Approve, models.MemberApproved)
}

// Reject handles POST /campaigns/:id/members/:userId/reject (admin).
func (h *Handler) Reject(c *gin.Context) {
	h.transition(c, h.ctrl.Reject, models.MemberRejected)
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, campaignID, userID uuid.UUID) error, to models.MemberStatus) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, ok := parseID(c, "userId")
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), id, userID); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"user_id": userID, "status": to})
}

func (h *Handler) respondCampaign(c *gin.Context, id uuid.UUID) {
	camp, err := h.store.GetCampaign(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, camp)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrCampaignNotFound):
		response.NotFound(c, "campaign not found")
	case errors.Is(err, ErrCampaignFull):
		response.Conflict(c, "campaign full")
	case errors.Is(err, ErrCampaignClosed):
		response.Conflict(c, "campaign is not accepting applications")
	case errors.Is(err, ErrInvalidTransition):
		response.Conflict(c, "application already decided")
	default:
		h.logger.Error("campaign request failed", zap.Error(err))
		response.Internal(c, "request failed")
	}
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.BadRequest(c, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}
