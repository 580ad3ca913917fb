package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CampaignStatus is the lifecycle status of a campaign.
type CampaignStatus string

const (
	CampaignActive     CampaignStatus = "active"
	CampaignInProgress CampaignStatus = "in_progress"
	CampaignCompleted  CampaignStatus = "completed"
)

// Valid reports whether s is a known campaign status.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignActive, CampaignInProgress, CampaignCompleted:
		return true
	}
	return false
}

// PaymentKind distinguishes a flat fee from a per-view reward rate.
type PaymentKind string

const (
	PaymentFlat    PaymentKind = "flat"
	PaymentPerView PaymentKind = "per_view"
)

// PaymentTerms describes what a creator earns for a campaign.
type PaymentTerms struct {
	Kind   PaymentKind     `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
}

// Campaign is a brand campaign creators apply to.
type Campaign struct {
	ID            uuid.UUID      `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	ScheduledAt   *time.Time     `json:"scheduled_at,omitempty"`
	Payment       PaymentTerms   `json:"payment"`
	ApplicantCap  *int           `json:"applicant_cap,omitempty"`
	BriefURL      *string        `json:"brief_url,omitempty"`
	SubmissionURL *string        `json:"submission_url,omitempty"`
	Status        CampaignStatus `json:"status"`
	CreatedBy     uuid.UUID      `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// MemberStatus is a user's standing in one campaign. A (campaign, user)
// pair has exactly one status, so a user can never sit in two lists.
type MemberStatus string

const (
	MemberNone     MemberStatus = "none"
	MemberPending  MemberStatus = "pending"
	MemberApproved MemberStatus = "approved"
	MemberRejected MemberStatus = "rejected"
)

// Member is one row of campaign_members.
type Member struct {
	CampaignID uuid.UUID    `json:"campaign_id"`
	UserID     uuid.UUID    `json:"user_id"`
	Status     MemberStatus `json:"status"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Membership is the applied/approved/rejected view of a campaign.
type Membership struct {
	CampaignID uuid.UUID   `json:"campaign_id"`
	Applied    []uuid.UUID `json:"applied"`
	Approved   []uuid.UUID `json:"approved"`
	Rejected   []uuid.UUID `json:"rejected"`
	Counts     Counts      `json:"counts"`
}

// Counts aggregates a Membership.
type Counts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

// CampaignLive is what campaign topic subscribers receive. Member lists
// stay behind the admin API; MyStatus is only set in the subscribe-time
// snapshot, for the subscribing user.
type CampaignLive struct {
	CampaignID uuid.UUID    `json:"campaign_id"`
	Counts     Counts       `json:"counts"`
	MyStatus   MemberStatus `json:"my_status,omitempty"`
}

// UserCampaign pairs a campaign with the viewing user's status.
type UserCampaign struct {
	Campaign
	MyStatus MemberStatus `json:"my_status"`
}
