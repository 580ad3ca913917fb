package attribution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/backend/internal/models"
	"github.com/creatorhub/backend/pkg/queue"
)

// RoleLookup resolves a user's role server-side.
type RoleLookup interface {
	RoleOf(ctx context.Context, userID uuid.UUID) (models.Role, error)
}

// Outbox queues attribution events for the dispatcher.
type Outbox interface {
	EnqueueAttribution(ctx context.Context, payload queue.AttributionPayload) error
}

// Tracker gates attribution events by role and hands them to the outbox.
// Staff accounts (admins and ambassadors) never emit events.
type Tracker struct {
	roles  RoleLookup
	outbox Outbox
	now    func() time.Time
	logger *zap.Logger
}

// NewTracker creates a tracker.
func NewTracker(roles RoleLookup, outbox Outbox, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{roles: roles, outbox: outbox, now: time.Now, logger: logger}
}

// Track queues the event unless the user is staff. It reports whether the
// event was queued.
func (t *Tracker) Track(ctx context.Context, userID uuid.UUID, name string, values map[string]string) (bool, error) {
	role, err := t.roles.RoleOf(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("role lookup: %w", err)
	}
	if role == models.RoleAdmin || role == models.RoleAmbassador {
		t.logger.Debug("attribution suppressed for staff", zap.String("user_id", userID.String()), zap.String("event", name))
		return false, nil
	}
	err = t.outbox.EnqueueAttribution(ctx, queue.AttributionPayload{
		UserID:    userID,
		EventName: name,
		Values:    values,
		At:        t.now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("enqueue attribution: %w", err)
	}
	return true, nil
}
