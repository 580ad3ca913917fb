package campaigns

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/creatorhub/backend/internal/models"
)

var (
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrCampaignFull      = errors.New("campaign full")
	ErrCampaignClosed    = errors.New("campaign is not accepting applications")
	ErrInvalidTransition = errors.New("invalid membership transition")
)

// Store is the typed persistence surface for campaigns and their members.
// Calls made with the ctx handed to Transact's fn run in that transaction.
type Store interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error

	GetCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	// LockCampaign reads the campaign and holds a row lock until the
	// enclosing transaction ends.
	LockCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	ListCampaigns(ctx context.Context) ([]models.Campaign, error)
	CreateCampaign(ctx context.Context, c *models.Campaign) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.CampaignStatus) error
	SetBriefURL(ctx context.Context, id uuid.UUID, url string) error
	SetSubmissionURL(ctx context.Context, id uuid.UUID, url string) error
	DeleteCampaign(ctx context.Context, id uuid.UUID) error

	ListMembers(ctx context.Context, campaignID uuid.UUID) ([]models.Member, error)
	GetMemberStatus(ctx context.Context, campaignID, userID uuid.UUID) (models.MemberStatus, error)
	CountMembers(ctx context.Context, campaignID uuid.UUID, status models.MemberStatus) (int, error)
	// PutMember sets the pair's status in one statement, creating the row if needed.
	PutMember(ctx context.Context, campaignID, userID uuid.UUID, status models.MemberStatus) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserCampaign, error)
}
