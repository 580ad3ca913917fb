package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueOutbox is the Redis list key for side-effect jobs.
	QueueOutbox = "outbox:jobs"
	// QueueDLQ is the dead-letter list for jobs whose delivery failed.
	QueueDLQ = "outbox:dlq"
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypePush        JobType = "push_notification"
	JobTypeAttribution JobType = "attribution_event"
)

// PushPayload is the payload for push notification jobs.
type PushPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Tag    string    `json:"tag"`
}

// AttributionPayload is the payload for attribution event jobs.
type AttributionPayload struct {
	UserID    uuid.UUID         `json:"user_id"`
	EventName string            `json:"event_name"`
	Values    map[string]string `json:"values,omitempty"`
	At        time.Time         `json:"at"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueuePush enqueues a push notification job.
func (q *Queue) EnqueuePush(ctx context.Context, payload PushPayload) error {
	job, err := q.enqueue(ctx, JobTypePush, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued push job", zap.String("job_id", job.ID), zap.String("user_id", payload.UserID.String()))
	return nil
}

// EnqueueAttribution enqueues an attribution event job.
func (q *Queue) EnqueueAttribution(ctx context.Context, payload AttributionPayload) error {
	job, err := q.enqueue(ctx, JobTypeAttribution, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued attribution job", zap.String("job_id", job.ID), zap.String("event", payload.EventName))
	return nil
}

func (q *Queue) enqueue(ctx context.Context, typ JobType, payload any) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{
		ID:        uuid.New().String(),
		Type:      typ,
		Payload:   body,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueOutbox, raw).Err(); err != nil {
		return nil, fmt.Errorf("rpush: %w", err)
	}
	return job, nil
}

// Dequeue waits up to timeout for a job. It returns nil, nil when the wait
// times out or the entry is not a valid job.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueOutbox).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// DeadLetter records a failed job. Jobs are never re-enqueued.
func (q *Queue) DeadLetter(ctx context.Context, job *Job, cause error) error {
	if cause != nil {
		job.Error = cause.Error()
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
		q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
		return err
	}
	q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	return nil
}

// Len returns the number of pending jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, QueueOutbox).Result()
}
