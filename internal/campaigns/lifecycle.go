package campaigns

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/backend/internal/models"
	"github.com/creatorhub/backend/internal/realtime"
	"github.com/creatorhub/backend/pkg/queue"
)

// TagCampaignApproved is the push payload tag for approval notices.
const TagCampaignApproved = "campaign_approved"

// Publisher pushes live updates to topic subscribers.
type Publisher interface {
	Publish(topic, event string, payload any)
}

// Outbox queues push notifications for the dispatcher.
type Outbox interface {
	EnqueuePush(ctx context.Context, payload queue.PushPayload) error
}

// Controller moves users between pending, approved and rejected.
// Side effects (live snapshot, approval push) run after the write and
// never fail it.
type Controller struct {
	store  Store
	pub    Publisher
	outbox Outbox
	logger *zap.Logger
}

// NewController creates a lifecycle controller. pub and outbox may be nil.
func NewController(store Store, pub Publisher, outbox Outbox, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{store: store, pub: pub, outbox: outbox, logger: logger}
}

// Apply adds userID to the campaign's applicants. The cap is checked
// against the pending count while the campaign row is locked, so
// concurrent applicants cannot overshoot it.
func (c *Controller) Apply(ctx context.Context, campaignID, userID uuid.UUID) error {
	changed := false
	err := c.store.Transact(ctx, func(ctx context.Context) error {
		camp, err := c.store.LockCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		if camp.Status != models.CampaignActive {
			return ErrCampaignClosed
		}
		current, err := c.store.GetMemberStatus(ctx, campaignID, userID)
		if err != nil {
			return fmt.Errorf("member status: %w", err)
		}
		switch current {
		case models.MemberPending:
			return nil
		case models.MemberApproved, models.MemberRejected:
			return ErrInvalidTransition
		}
		if camp.ApplicantCap != nil {
			n, err := c.store.CountMembers(ctx, campaignID, models.MemberPending)
			if err != nil {
				return fmt.Errorf("count applicants: %w", err)
			}
			if n >= *camp.ApplicantCap {
				return ErrCampaignFull
			}
		}
		if err := c.store.PutMember(ctx, campaignID, userID, models.MemberPending); err != nil {
			return fmt.Errorf("put member: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return err
	}
	if changed {
		c.publish(ctx, campaignID)
	}
	return nil
}

// Approve moves userID to approved and queues an approval notification.
func (c *Controller) Approve(ctx context.Context, campaignID, userID uuid.UUID) error {
	camp, err := c.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if err := c.store.PutMember(ctx, campaignID, userID, models.MemberApproved); err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	c.publish(ctx, campaignID)
	c.notifyApproved(ctx, camp, userID)
	return nil
}

// Reject moves userID to rejected.
func (c *Controller) Reject(ctx context.Context, campaignID, userID uuid.UUID) error {
	if _, err := c.store.GetCampaign(ctx, campaignID); err != nil {
		return err
	}
	if err := c.store.PutMember(ctx, campaignID, userID, models.MemberRejected); err != nil {
		return fmt.Errorf("reject: %w", err)
	}
	c.publish(ctx, campaignID)
	return nil
}

// Status returns userID's standing in the campaign.
func (c *Controller) Status(ctx context.Context, campaignID, userID uuid.UUID) (models.MemberStatus, error) {
	return c.store.GetMemberStatus(ctx, campaignID, userID)
}

// Membership returns the applied/approved/rejected lists with counts.
func (c *Controller) Membership(ctx context.Context, campaignID uuid.UUID) (models.Membership, error) {
	if _, err := c.store.GetCampaign(ctx, campaignID); err != nil {
		return models.Membership{}, err
	}
	members, err := c.store.ListMembers(ctx, campaignID)
	if err != nil {
		return models.Membership{}, fmt.Errorf("list members: %w", err)
	}
	return Project(campaignID, members), nil
}

// LiveSnapshot is the first message a campaign topic subscriber gets:
// aggregate counts plus viewer's own status.
func (c *Controller) LiveSnapshot(ctx context.Context, campaignID, viewer uuid.UUID) (models.CampaignLive, error) {
	m, err := c.Membership(ctx, campaignID)
	if err != nil {
		return models.CampaignLive{}, err
	}
	live := Live(m)
	live.MyStatus = StatusOf(m, viewer)
	return live, nil
}

func (c *Controller) publish(ctx context.Context, campaignID uuid.UUID) {
	if c.pub == nil {
		return
	}
	m, err := c.Membership(ctx, campaignID)
	if err != nil {
		c.logger.Warn("membership snapshot for publish", zap.String("campaign_id", campaignID.String()), zap.Error(err))
		return
	}
	c.pub.Publish(realtime.CampaignTopic(campaignID), realtime.EventCampaignUpdated, Live(m))
}

func (c *Controller) notifyApproved(ctx context.Context, camp *models.Campaign, userID uuid.UUID) {
	if c.outbox == nil {
		return
	}
	err := c.outbox.EnqueuePush(ctx, queue.PushPayload{
		UserID: userID,
		Title:  "You're in!",
		Body:   fmt.Sprintf("Your application to %s was approved.", camp.Title),
		Tag:    TagCampaignApproved,
	})
	if err != nil {
		c.logger.Warn("enqueue approval push",
			zap.String("campaign_id", camp.ID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}
