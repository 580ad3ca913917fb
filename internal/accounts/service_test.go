package accounts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/backend/internal/auth"
	"github.com/creatorhub/backend/internal/models"
)

type memUsers struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]models.User
	deleteErr error
	upsertErr error
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

func (m *memUsers) Upsert(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.rows[u.ID] = *u
	return nil
}

func (m *memUsers) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.rows, id)
	return nil
}

type memHolding struct {
	mu   sync.Mutex
	rows map[uuid.UUID]models.DeletedUser
}

func (m *memHolding) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *memHolding) Put(_ context.Context, d *models.DeletedUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[d.ID] = *d
	return nil
}

func (m *memHolding) Get(_ context.Context, id uuid.UUID) (*models.DeletedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok {
		return nil, ErrNotDeleted
	}
	return &d, nil
}

func (m *memHolding) GetByEmail(_ context.Context, email string) (*models.DeletedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.rows {
		if strings.EqualFold(d.Email, email) {
			return &d, nil
		}
	}
	return nil, ErrNotDeleted
}

func (m *memHolding) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func setup(t *testing.T) (*Service, *memUsers, *memHolding, models.User) {
	t.Helper()
	token := "ExponentPushToken[x]"
	u := models.User{
		ID:           uuid.New(),
		Email:        "Creator@Example.com",
		Password:     "$2a$10$hash",
		DisplayName:  "Creator",
		Institution:  "State U",
		Socials:      models.SocialHandles{Instagram: "@creator", TikTok: "@ct"},
		PushToken:    &token,
		IsAmbassador: true,
		CreatedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt:    time.Date(2025, 6, 7, 8, 9, 10, 0, time.UTC),
	}
	users := &memUsers{rows: map[uuid.UUID]models.User{u.ID: u}}
	holding := &memHolding{rows: map[uuid.UUID]models.DeletedUser{}}
	svc := NewService(users, holding, nil)
	svc.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return svc, users, holding, u
}

func TestSoftDeleteRestore_RoundTrip(t *testing.T) {
	svc, users, holding, original := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.SoftDelete(ctx, original.ID))
	_, err := users.GetByID(ctx, original.ID)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	rec, err := svc.CheckDeleted(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, original, rec.Payload)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), rec.DeletedAt)

	restored, err := svc.Restore(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, original, *restored)

	live, err := users.GetByID(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, original, *live)

	_, err = svc.CheckDeleted(ctx, original.ID)
	assert.ErrorIs(t, err, ErrNotDeleted)
	assert.Empty(t, holding.rows)
}

func TestSoftDelete_Repeat(t *testing.T) {
	svc, _, _, u := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.SoftDelete(ctx, u.ID))
	assert.NoError(t, svc.SoftDelete(ctx, u.ID))
}

func TestSoftDelete_UnknownUser(t *testing.T) {
	svc, _, _, _ := setup(t)
	assert.ErrorIs(t, svc.SoftDelete(context.Background(), uuid.New()), auth.ErrUserNotFound)
}

func TestSoftDelete_PartialFailureLeavesBoth(t *testing.T) {
	svc, users, holding, u := setup(t)
	ctx := context.Background()
	users.deleteErr = errors.New("connection reset")

	require.Error(t, svc.SoftDelete(ctx, u.ID))

	// memHolding.Transact has no rollback, matching a crash between steps.
	_, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Contains(t, holding.rows, u.ID)

	restored, err := svc.Restore(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, *restored)
	assert.Empty(t, holding.rows)
}

func TestRestore_NotDeleted(t *testing.T) {
	svc, _, _, u := setup(t)
	_, err := svc.Restore(context.Background(), u.ID)
	assert.ErrorIs(t, err, ErrNotDeleted)
}

func TestFindDeletedByEmail(t *testing.T) {
	svc, _, _, u := setup(t)
	ctx := context.Background()

	_, found, err := svc.FindDeletedByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, svc.SoftDelete(ctx, u.ID))
	rec, found, err := svc.FindDeletedByEmail(ctx, "creator@example.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, u.ID, rec.ID)
}
