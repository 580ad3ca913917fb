package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/backend/internal/models"
)

type fakeAddressBook map[uuid.UUID]string

func (b fakeAddressBook) PushToken(_ context.Context, id uuid.UUID) (string, error) {
	return b[id], nil
}

type fakeMembers struct {
	approved []uuid.UUID
	err      error
}

func (m fakeMembers) Membership(_ context.Context, id uuid.UUID) (models.Membership, error) {
	return models.Membership{CampaignID: id, Approved: m.approved}, m.err
}

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	fail map[string]bool
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	if s.fail[msg.To] {
		return ErrRelay
	}
	return nil
}

func TestNotifyOne(t *testing.T) {
	withAddr, without := uuid.New(), uuid.New()
	book := fakeAddressBook{withAddr: "tok-1"}
	sender := &recordingSender{}
	svc := NewService(book, fakeMembers{}, sender, 0, nil)
	ctx := context.Background()

	require.NoError(t, svc.NotifyOne(ctx, withAddr, "t", "b", "tag"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, Message{To: "tok-1", Title: "t", Body: "b", Tag: "tag"}, sender.sent[0])

	assert.ErrorIs(t, svc.NotifyOne(ctx, without, "t", "b", "tag"), ErrNoDeliveryAddress)
	assert.Len(t, sender.sent, 1, "nothing is sent without an address")
}

func TestNotifyOne_RelayFailure(t *testing.T) {
	u := uuid.New()
	sender := &recordingSender{fail: map[string]bool{"tok": true}}
	svc := NewService(fakeAddressBook{u: "tok"}, fakeMembers{}, sender, 0, nil)

	assert.ErrorIs(t, svc.NotifyOne(context.Background(), u, "t", "b", "tag"), ErrRelay)
}

func TestNotifyApprovedBatch_CountsMissingAddresses(t *testing.T) {
	const n, m = 20, 7
	book := fakeAddressBook{}
	var approved []uuid.UUID
	for i := 0; i < n; i++ {
		id := uuid.New()
		approved = append(approved, id)
		if i >= m {
			book[id] = "tok-" + id.String()
		}
	}
	sender := &recordingSender{}
	svc := NewService(book, fakeMembers{approved: approved}, sender, 4, nil)

	res, err := svc.NotifyApprovedBatch(context.Background(), uuid.New(), "t", "b", "tag")
	require.NoError(t, err)

	assert.Equal(t, BatchResult{Recipients: n, Sent: n - m, Failed: m}, res)
	assert.Len(t, sender.sent, n-m)
}

func TestNotifyApprovedBatch_SendFailuresTallied(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	book := fakeAddressBook{a: "tok-a", b: "tok-b", c: "tok-c"}
	sender := &recordingSender{fail: map[string]bool{"tok-b": true}}
	svc := NewService(book, fakeMembers{approved: []uuid.UUID{a, b, c}}, sender, 0, nil)

	res, err := svc.NotifyApprovedBatch(context.Background(), uuid.New(), "t", "b", "tag")
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Recipients: 3, Sent: 2, Failed: 1}, res)
}

func TestNotifyApprovedBatch_Empty(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(fakeAddressBook{}, fakeMembers{}, sender, 0, nil)

	res, err := svc.NotifyApprovedBatch(context.Background(), uuid.New(), "t", "b", "tag")
	require.NoError(t, err)
	assert.Zero(t, res)
	assert.Empty(t, sender.sent)
}

func TestNotifyApprovedBatch_MembershipError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(fakeAddressBook{}, fakeMembers{err: boom}, &recordingSender{}, 0, nil)

	_, err := svc.NotifyApprovedBatch(context.Background(), uuid.New(), "t", "b", "tag")
	assert.ErrorIs(t, err, boom)
}
