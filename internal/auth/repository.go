package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/creatorhub/backend/internal/models"
	"github.com/creatorhub/backend/pkg/database"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

const userColumns = `id, email, password_hash, display_name, institution,
	COALESCE(instagram,''), COALESCE(tiktok,''), COALESCE(youtube,''), push_token,
	is_admin, is_ambassador, created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	db *database.DB
}

// NewRepository creates a users repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.Institution,
		&u.Socials.Instagram, &u.Socials.TikTok, &u.Socials.YouTube, &u.PushToken,
		&u.IsAdmin, &u.IsAmbassador, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.db.Conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.db.Conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

// List returns all users ordered by display name.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY display_name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u.ToPublic())
	}
	return list, rows.Err()
}

// Create inserts a new user and fills the generated fields.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (email, password_hash, display_name, institution, instagram, tiktok, youtube)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), NULLIF($7,''))
		RETURNING id, created_at, updated_at`
	err := r.db.Conn(ctx).QueryRow(ctx, q, u.Email, u.Password, u.DisplayName, u.Institution,
		u.Socials.Instagram, u.Socials.TikTok, u.Socials.YouTube).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

// Upsert writes the full user record as given, timestamps included, keyed by ID.
// Used to restore soft-deleted accounts.
func (r *Repository) Upsert(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (id, email, password_hash, display_name, institution, instagram, tiktok, youtube,
			push_token, is_admin, is_ambassador, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), NULLIF($7,''), NULLIF($8,''), $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, password_hash = EXCLUDED.password_hash,
			display_name = EXCLUDED.display_name, institution = EXCLUDED.institution,
			instagram = EXCLUDED.instagram, tiktok = EXCLUDED.tiktok, youtube = EXCLUDED.youtube,
			push_token = EXCLUDED.push_token, is_admin = EXCLUDED.is_admin, is_ambassador = EXCLUDED.is_ambassador,
			created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at`
	_, err := r.db.Conn(ctx).Exec(ctx, q, u.ID, u.Email, u.Password, u.DisplayName, u.Institution,
		u.Socials.Instagram, u.Socials.TikTok, u.Socials.YouTube, u.PushToken,
		u.IsAdmin, u.IsAmbassador, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

// Delete removes the live user row. Missing rows are not an error.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

// ProfileUpdate holds the editable profile fields; nil means unchanged and
// an empty social handle clears it.
type ProfileUpdate struct {
	DisplayName *string
	Institution *string
	Instagram   *string
	TikTok      *string
	YouTube     *string
}

// UpdateProfile applies a partial profile update.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, p ProfileUpdate) error {
	const q = `UPDATE users SET
		display_name = COALESCE($2::text, display_name),
		institution = COALESCE($3::text, institution),
		instagram = CASE WHEN $4::text IS NULL THEN instagram ELSE NULLIF($4::text, '') END,
		tiktok = CASE WHEN $5::text IS NULL THEN tiktok ELSE NULLIF($5::text, '') END,
		youtube = CASE WHEN $6::text IS NULL THEN youtube ELSE NULLIF($6::text, '') END,
		updated_at = NOW()
		WHERE id = $1`
	tag, err := r.db.Conn(ctx).Exec(ctx, q, id, p.DisplayName, p.Institution, p.Instagram, p.TikTok, p.YouTube)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetPushToken stores (or clears, with an empty token) the push delivery address.
func (r *Repository) SetPushToken(ctx context.Context, id uuid.UUID, token string) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `UPDATE users SET push_token = NULLIF($2,''), updated_at = NOW() WHERE id = $1`, id, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// PushToken returns the user's push delivery address, or "" when none is registered.
func (r *Repository) PushToken(ctx context.Context, id uuid.UUID) (string, error) {
	var token *string
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT push_token FROM users WHERE id = $1`, id).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("push token lookup: %w", err)
	}
	if token == nil {
		return "", nil
	}
	return *token, nil
}

// RoleOf returns the effective role of a user.
func (r *Repository) RoleOf(ctx context.Context, id uuid.UUID) (models.Role, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Role(), nil
}

// SetRoles updates the admin/ambassador flags.
func (r *Repository) SetRoles(ctx context.Context, id uuid.UUID, isAdmin, isAmbassador bool) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `UPDATE users SET is_admin = $2, is_ambassador = $3, updated_at = NOW() WHERE id = $1`, id, isAdmin, isAmbassador)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
