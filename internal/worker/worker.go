package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/backend/internal/notifications"
	"github.com/creatorhub/backend/pkg/queue"
)

// DefaultPollTimeout bounds each blocking dequeue so shutdown is noticed promptly.
const DefaultPollTimeout = 2 * time.Second

// JobSource is the outbox the dispatcher drains.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	DeadLetter(ctx context.Context, job *queue.Job, cause error) error
}

// Pusher delivers one push notification.
type Pusher interface {
	NotifyOne(ctx context.Context, userID uuid.UUID, title, body, tag string) error
}

// EventSender delivers one attribution event.
type EventSender interface {
	Send(ctx context.Context, ev queue.AttributionPayload) error
}

// Dispatcher delivers outbox jobs. Each job gets exactly one attempt;
// failures are dead-lettered, never re-enqueued.
type Dispatcher struct {
	source      JobSource
	pusher      Pusher
	events      EventSender
	logger      *zap.Logger
	pollTimeout time.Duration
	maxBackoff  time.Duration
}

// NewDispatcher creates a dispatcher. events may be nil when no
// attribution relay is configured; such jobs are dead-lettered.
func NewDispatcher(source JobSource, pusher Pusher, events EventSender, maxBackoff time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}
	return &Dispatcher{
		source:      source,
		pusher:      pusher,
		events:      events,
		logger:      logger,
		pollTimeout: DefaultPollTimeout,
		maxBackoff:  maxBackoff,
	}
}

var errNoEventRelay = errors.New("attribution relay not configured")

// Process delivers one job.
func (d *Dispatcher) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypePush:
		var p queue.PushPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		err := d.pusher.NotifyOne(ctx, p.UserID, p.Title, p.Body, p.Tag)
		if errors.Is(err, notifications.ErrNoDeliveryAddress) {
			d.logger.Info("push skipped, no delivery address", zap.String("user_id", p.UserID.String()), zap.String("tag", p.Tag))
			return nil
		}
		return err
	case queue.JobTypeAttribution:
		var p queue.AttributionPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		if d.events == nil {
			return errNoEventRelay
		}
		return d.events.Send(ctx, p)
	}
	return fmt.Errorf("unknown job type: %s", job.Type)
}

// Run drains the outbox until ctx is cancelled. Dequeue errors (Redis
// unavailable) are paced with exponential backoff.
func (d *Dispatcher) Run(ctx context.Context) {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(200*time.Millisecond),
		backoff.WithMaxInterval(d.maxBackoff),
		backoff.WithMaxElapsedTime(0),
	)
	d.logger.Info("outbox dispatcher started")
	for {
		if ctx.Err() != nil {
			d.logger.Info("outbox dispatcher stopping")
			return
		}

		job, err := d.source.Dequeue(ctx, d.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			wait := b.NextBackOff()
			d.logger.Warn("dequeue error", zap.Error(err), zap.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
			continue
		}
		b.Reset()
		if job == nil {
			continue
		}

		d.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := d.Process(ctx, job); err != nil {
			d.logger.Warn("job failed", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Error(err))
			// the job was already popped; record it even when shutting down
			if dlErr := d.source.DeadLetter(context.WithoutCancel(ctx), job, err); dlErr != nil {
				d.logger.Error("dead-letter failed", zap.String("job_id", job.ID), zap.Error(dlErr))
			}
		}
	}
}
