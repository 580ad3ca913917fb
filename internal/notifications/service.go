package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/creatorhub/backend/internal/models"
)

// ErrNoDeliveryAddress means the recipient never registered a push token.
var ErrNoDeliveryAddress = errors.New("recipient has no delivery address")

// TagAdminMessage tags notifications sent by hand from the admin panel.
const TagAdminMessage = "admin_message"

// AddressBook resolves a user's push delivery address; "" means none.
type AddressBook interface {
	PushToken(ctx context.Context, userID uuid.UUID) (string, error)
}

// MembershipReader lists a campaign's members.
type MembershipReader interface {
	Membership(ctx context.Context, campaignID uuid.UUID) (models.Membership, error)
}

// Sender delivers one message to the relay.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// BatchResult is the only outcome of a fan-out: counts, not recipients.
type BatchResult struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

// Service resolves addresses and sends best-effort push notifications.
type Service struct {
	addresses   AddressBook
	members     MembershipReader
	sender      Sender
	concurrency int
	logger      *zap.Logger
}

// NewService creates a notification service. concurrency bounds in-flight
// lookups and sends during a batch; <= 0 means unbounded.
func NewService(addresses AddressBook, members MembershipReader, sender Sender, concurrency int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		addresses:   addresses,
		members:     members,
		sender:      sender,
		concurrency: concurrency,
		logger:      logger,
	}
}

// NotifyOne sends one notification to userID.
func (s *Service) NotifyOne(ctx context.Context, userID uuid.UUID, title, body, tag string) error {
	addr, err := s.addresses.PushToken(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve address: %w", err)
	}
	if addr == "" {
		return ErrNoDeliveryAddress
	}
	if err := s.sender.Send(ctx, Message{To: addr, Title: title, Body: body, Tag: tag}); err != nil {
		s.logger.Warn("push send failed", zap.String("user_id", userID.String()), zap.Error(err))
		return err
	}
	return nil
}

// NotifyApprovedBatch notifies every approved member of a campaign. Lookups
// all complete before any send starts. A recipient without an address or
// whose lookup or send fails counts as failed. No retries.
func (s *Service) NotifyApprovedBatch(ctx context.Context, campaignID uuid.UUID, title, body, tag string) (BatchResult, error) {
	m, err := s.members.Membership(ctx, campaignID)
	if err != nil {
		return BatchResult{}, err
	}
	recipients := m.Approved
	result := BatchResult{Recipients: len(recipients)}

	addrs := make([]string, len(recipients))
	lookups := s.newPool(ctx)
	for i, userID := range recipients {
		lookups.Go(func(ctx context.Context) error {
			addr, err := s.addresses.PushToken(ctx, userID)
			if err != nil {
				s.logger.Warn("push address lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
				return nil
			}
			addrs[i] = addr
			return nil
		})
	}
	_ = lookups.Wait()

	var sent, failed atomic.Int64
	sends := s.newPool(ctx)
	for i, addr := range addrs {
		if addr == "" {
			failed.Add(1)
			continue
		}
		userID := recipients[i]
		sends.Go(func(ctx context.Context) error {
			if err := s.sender.Send(ctx, Message{To: addr, Title: title, Body: body, Tag: tag}); err != nil {
				s.logger.Warn("push send failed", zap.String("user_id", userID.String()), zap.Error(err))
				failed.Add(1)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = sends.Wait()

	result.Sent = int(sent.Load())
	result.Failed = int(failed.Load())
	s.logger.Info("batch notification done",
		zap.String("campaign_id", campaignID.String()),
		zap.Int("recipients", result.Recipients),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *Service) newPool(ctx context.Context) *pool.ContextPool {
	p := pool.New()
	if s.concurrency > 0 {
		p = p.WithMaxGoroutines(s.concurrency)
	}
	return p.WithContext(ctx)
}
