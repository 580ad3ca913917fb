package webinars

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/creatorhub/backend/internal/models"
	"github.com/creatorhub/backend/pkg/database"
)

// ErrWebinarNotFound is returned for unknown webinar IDs.
var ErrWebinarNotFound = errors.New("webinar not found")

// Store is the webinar persistence surface.
type Store interface {
	Create(ctx context.Context, w *models.Webinar) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
	List(ctx context.Context) ([]models.Webinar, error)
	Update(ctx context.Context, w *models.Webinar) error
	Delete(ctx context.Context, id uuid.UUID) error
	Join(ctx context.Context, webinarID, userID uuid.UUID) error
	Leave(ctx context.Context, webinarID, userID uuid.UUID) error
}

const webinarSelect = `SELECT w.id, w.title, w.description, w.starts_at, w.ends_at, w.join_url, w.platform,
		COALESCE(array_agg(r.user_id ORDER BY r.joined_at) FILTER (WHERE r.user_id IS NOT NULL), '{}'),
		w.created_by, w.created_at, w.updated_at
	FROM webinars w LEFT JOIN webinar_rsvps r ON r.webinar_id = w.id`

// Repository is the Postgres Store.
type Repository struct {
	db *database.DB
}

var _ Store = (*Repository)(nil)

// NewRepository creates a webinar repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

func scanWebinar(row pgx.Row) (*models.Webinar, error) {
	var w models.Webinar
	err := row.Scan(&w.ID, &w.Title, &w.Description, &w.StartsAt, &w.EndsAt, &w.JoinURL, &w.Platform,
		&w.Joined, &w.CreatedBy, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWebinarNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a new webinar.
func (r *Repository) Create(ctx context.Context, w *models.Webinar) error {
	const q = `INSERT INTO webinars (title, description, starts_at, ends_at, join_url, platform, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return r.db.Conn(ctx).QueryRow(ctx, q, w.Title, w.Description, w.StartsAt, w.EndsAt, w.JoinURL, w.Platform, w.CreatedBy).
		Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
}

// GetByID returns a webinar with its RSVP list.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error) {
	return scanWebinar(r.db.Conn(ctx).QueryRow(ctx, webinarSelect+` WHERE w.id = $1 GROUP BY w.id`, id))
}

// List returns all webinars ordered by start time.
func (r *Repository) List(ctx context.Context) ([]models.Webinar, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, webinarSelect+` GROUP BY w.id ORDER BY w.starts_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Webinar
	for rows.Next() {
		w, err := scanWebinar(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *w)
	}
	return list, rows.Err()
}

// Update rewrites the editable fields.
func (r *Repository) Update(ctx context.Context, w *models.Webinar) error {
	const q = `UPDATE webinars SET title = $2, description = $3, starts_at = $4, ends_at = $5,
			join_url = $6, platform = $7, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	err := r.db.Conn(ctx).QueryRow(ctx, q, w.ID, w.Title, w.Description, w.StartsAt, w.EndsAt, w.JoinURL, w.Platform).
		Scan(&w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrWebinarNotFound
	}
	return err
}

// Delete removes a webinar and its RSVPs.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM webinars WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWebinarNotFound
	}
	return nil
}

// Join adds userID to the RSVP set. Joining twice is a no-op.
func (r *Repository) Join(ctx context.Context, webinarID, userID uuid.UUID) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO webinar_rsvps (webinar_id, user_id) VALUES ($1, $2)
		ON CONFLICT (webinar_id, user_id) DO NOTHING`, webinarID, userID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrWebinarNotFound
	}
	return err
}

// Leave removes userID from the RSVP set. Leaving when absent is a no-op.
func (r *Repository) Leave(ctx context.Context, webinarID, userID uuid.UUID) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM webinar_rsvps WHERE webinar_id = $1 AND user_id = $2`, webinarID, userID)
	return err
}
