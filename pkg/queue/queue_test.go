package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/creatorhub/backend/pkg/queue"
)

func setupTest(t *testing.T) (*queue.Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return queue.NewQueue(client, zap.NewNop()), mr
}

func TestEnqueuePush_Dequeue(t *testing.T) {
	q, _ := setupTest(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, q.EnqueuePush(ctx, queue.PushPayload{UserID: userID, Title: "t", Body: "b", Tag: "campaign_approved"}))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, queue.JobTypePush, job.Type)

	var p queue.PushPayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, userID, p.UserID)
	assert.Equal(t, "campaign_approved", p.Tag)
}

func TestDequeue_PreservesOrder(t *testing.T) {
	q, _ := setupTest(t)
	ctx := context.Background()

	require.NoError(t, q.EnqueueAttribution(ctx, queue.AttributionPayload{EventName: "first"}))
	require.NoError(t, q.EnqueuePush(ctx, queue.PushPayload{Title: "second"}))

	first, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	second, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	assert.Equal(t, queue.JobTypeAttribution, first.Type)
	assert.Equal(t, queue.JobTypePush, second.Type)
}

func TestDequeue_SkipsGarbage(t *testing.T) {
	q, mr := setupTest(t)
	_, err := mr.Lpush(queue.QueueOutbox, "not json")
	require.NoError(t, err)

	job, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestDeadLetter(t *testing.T) {
	q, mr := setupTest(t)
	ctx := context.Background()

	require.NoError(t, q.EnqueuePush(ctx, queue.PushPayload{Title: "x"}))
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	require.NoError(t, q.DeadLetter(ctx, job, errors.New("relay down")))

	items, err := mr.List(queue.QueueDLQ)
	require.NoError(t, err)
	require.Len(t, items, 1)

	var dead queue.Job
	require.NoError(t, json.Unmarshal([]byte(items[0]), &dead))
	assert.Equal(t, job.ID, dead.ID)
	assert.Equal(t, "relay down", dead.Error)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
