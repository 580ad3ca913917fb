package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/backend/internal/auth"
	"github.com/creatorhub/backend/internal/models"
)

// ErrNotDeleted means there is no holding record for the account.
var ErrNotDeleted = errors.New("account is not deleted")

// Users is the live user table.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Upsert(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Holding is the deleted_users table.
type Holding interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
	Put(ctx context.Context, d *models.DeletedUser) error
	Get(ctx context.Context, id uuid.UUID) (*models.DeletedUser, error)
	GetByEmail(ctx context.Context, email string) (*models.DeletedUser, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service soft-deletes and restores accounts. The holding copy is always
// written before the live row goes away, and the live row is always back
// before the holding copy is dropped, so both steps are safe to repeat.
type Service struct {
	users   Users
	holding Holding
	now     func() time.Time
	logger  *zap.Logger
}

var _ auth.DeletedLookup = (*Service)(nil)

// NewService creates an accounts service.
func NewService(users Users, holding Holding, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, holding: holding, now: time.Now, logger: logger}
}

// SoftDelete moves the live user record into the holding area.
func (s *Service) SoftDelete(ctx context.Context, userID uuid.UUID) error {
	return s.holding.Transact(ctx, func(ctx context.Context) error {
		u, err := s.users.GetByID(ctx, userID)
		if errors.Is(err, auth.ErrUserNotFound) {
			if _, herr := s.holding.Get(ctx, userID); herr == nil {
				return nil
			}
			return err
		}
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		rec := &models.DeletedUser{ID: u.ID, Email: u.Email, Payload: *u, DeletedAt: s.now().UTC()}
		if err := s.holding.Put(ctx, rec); err != nil {
			return fmt.Errorf("write holding record: %w", err)
		}
		if err := s.users.Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete live user: %w", err)
		}
		s.logger.Info("account soft-deleted", zap.String("user_id", userID.String()))
		return nil
	})
}

// CheckDeleted returns the holding record for userID, or ErrNotDeleted.
func (s *Service) CheckDeleted(ctx context.Context, userID uuid.UUID) (*models.DeletedUser, error) {
	return s.holding.Get(ctx, userID)
}

// CheckDeletedByEmail returns the holding record for email, or ErrNotDeleted.
func (s *Service) CheckDeletedByEmail(ctx context.Context, email string) (*models.DeletedUser, error) {
	return s.holding.GetByEmail(ctx, email)
}

// FindDeletedByEmail adapts CheckDeletedByEmail for login.
func (s *Service) FindDeletedByEmail(ctx context.Context, email string) (*models.DeletedUser, bool, error) {
	rec, err := s.CheckDeletedByEmail(ctx, email)
	if errors.Is(err, ErrNotDeleted) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Restore copies the holding payload back to the live table and drops the
// holding record.
func (s *Service) Restore(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var restored *models.User
	err := s.holding.Transact(ctx, func(ctx context.Context) error {
		rec, err := s.holding.Get(ctx, userID)
		if err != nil {
			return err
		}
		u := rec.Payload
		if err := s.users.Upsert(ctx, &u); err != nil {
			return fmt.Errorf("restore live user: %w", err)
		}
		if err := s.holding.Delete(ctx, userID); err != nil {
			return fmt.Errorf("drop holding record: %w", err)
		}
		restored = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account restored", zap.String("user_id", userID.String()))
	return restored, nil
}
