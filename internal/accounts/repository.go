package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/creatorhub/backend/internal/models"
	"github.com/creatorhub/backend/pkg/database"
)

// Repository persists the deleted_users holding records.
type Repository struct {
	db *database.DB
}

// NewRepository creates a holding-record repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Transact runs fn in a database transaction.
func (r *Repository) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.Transact(ctx, fn)
}

// Put upserts a holding record.
func (r *Repository) Put(ctx context.Context, d *models.DeletedUser) error {
	const q = `INSERT INTO deleted_users (id, email, payload, deleted_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, payload = EXCLUDED.payload, deleted_at = EXCLUDED.deleted_at`
	_, err := r.db.Conn(ctx).Exec(ctx, q, d.ID, d.Email, d.Payload, d.DeletedAt)
	return err
}

func scanDeleted(row pgx.Row) (*models.DeletedUser, error) {
	var d models.DeletedUser
	err := row.Scan(&d.ID, &d.Email, &d.Payload, &d.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotDeleted
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Get returns the holding record for id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.DeletedUser, error) {
	return scanDeleted(r.db.Conn(ctx).QueryRow(ctx,
		`SELECT id, email, payload, deleted_at FROM deleted_users WHERE id = $1`, id))
}

// GetByEmail returns the most recent holding record for an email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.DeletedUser, error) {
	return scanDeleted(r.db.Conn(ctx).QueryRow(ctx,
		`SELECT id, email, payload, deleted_at FROM deleted_users WHERE lower(email) = lower($1)
		ORDER BY deleted_at DESC LIMIT 1`, email))
}

// Delete removes the holding record. Missing rows are not an error.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM deleted_users WHERE id = $1`, id)
	return err
}
