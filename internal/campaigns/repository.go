package campaigns

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/creatorhub/backend/internal/models"
	"github.com/creatorhub/backend/pkg/database"
)

const campaignColumns = `c.id, c.title, c.description, c.scheduled_at, c.payment_kind, c.payment_amount::text,
	c.applicant_cap, c.brief_url, c.submission_url, c.status, c.created_by, c.created_at, c.updated_at`

// Repository is the Postgres Store.
type Repository struct {
	db *database.DB
}

var _ Store = (*Repository)(nil)

// NewRepository creates a campaigns repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Transact runs fn in a database transaction.
func (r *Repository) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.Transact(ctx, fn)
}

func scanCampaign(row pgx.Row, extra ...any) (*models.Campaign, error) {
	var (
		c      models.Campaign
		amount string
	)
	dest := []any{&c.ID, &c.Title, &c.Description, &c.ScheduledAt, &c.Payment.Kind, &amount,
		&c.ApplicantCap, &c.BriefURL, &c.SubmissionURL, &c.Status, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt}
	err := row.Scan(append(dest, extra...)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Payment.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("campaign %s payment amount: %w", c.ID, err)
	}
	return &c, nil
}

// GetCampaign returns a campaign by ID.
func (r *Repository) GetCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	return scanCampaign(r.db.Conn(ctx).QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns c WHERE c.id = $1`, id))
}

// LockCampaign returns a campaign and locks its row. Only meaningful inside Transact.
func (r *Repository) LockCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	return scanCampaign(r.db.Conn(ctx).QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns c WHERE c.id = $1 FOR UPDATE`, id))
}

// ListCampaigns returns all campaigns, newest first.
func (r *Repository) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `SELECT `+campaignColumns+` FROM campaigns c ORDER BY c.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// CreateCampaign inserts a campaign and fills the generated fields.
func (r *Repository) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	const q = `INSERT INTO campaigns (title, description, scheduled_at, payment_kind, payment_amount,
			applicant_cap, brief_url, submission_url, status, created_by)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	return r.db.Conn(ctx).QueryRow(ctx, q, c.Title, c.Description, c.ScheduledAt, c.Payment.Kind,
		c.Payment.Amount.String(), c.ApplicantCap, c.BriefURL, c.SubmissionURL, c.Status, c.CreatedBy).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *Repository) exec(ctx context.Context, q string, args ...any) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

// UpdateStatus sets the campaign lifecycle status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CampaignStatus) error {
	return r.exec(ctx, `UPDATE campaigns SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
}

// SetBriefURL sets the brief link. An empty url clears it.
func (r *Repository) SetBriefURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.exec(ctx, `UPDATE campaigns SET brief_url = NULLIF($2,''), updated_at = NOW() WHERE id = $1`, id, url)
}

// SetSubmissionURL sets the submission link. An empty url clears it.
func (r *Repository) SetSubmissionURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.exec(ctx, `UPDATE campaigns SET submission_url = NULLIF($2,''), updated_at = NOW() WHERE id = $1`, id, url)
}

// DeleteCampaign removes a campaign and, by cascade, its members.
func (r *Repository) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
}

// ListMembers returns every member row of a campaign in the order they last changed.
func (r *Repository) ListMembers(ctx context.Context, campaignID uuid.UUID) ([]models.Member, error) {
	const q = `SELECT campaign_id, user_id, status, updated_at FROM campaign_members
		WHERE campaign_id = $1 ORDER BY updated_at, user_id`
	rows, err := r.db.Conn(ctx).Query(ctx, q, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.CampaignID, &m.UserID, &m.Status, &m.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// GetMemberStatus returns the pair's status, MemberNone when there is no row.
func (r *Repository) GetMemberStatus(ctx context.Context, campaignID, userID uuid.UUID) (models.MemberStatus, error) {
	var s models.MemberStatus
	err := r.db.Conn(ctx).QueryRow(ctx,
		`SELECT status FROM campaign_members WHERE campaign_id = $1 AND user_id = $2`, campaignID, userID).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.MemberNone, nil
	}
	if err != nil {
		return "", err
	}
	return s, nil
}

// CountMembers counts members of a campaign with the given status.
func (r *Repository) CountMembers(ctx context.Context, campaignID uuid.UUID, status models.MemberStatus) (int, error) {
	var n int
	err := r.db.Conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM campaign_members WHERE campaign_id = $1 AND status = $2`, campaignID, status).Scan(&n)
	return n, err
}

// PutMember upserts the pair's status.
func (r *Repository) PutMember(ctx context.Context, campaignID, userID uuid.UUID, status models.MemberStatus) error {
	const q = `INSERT INTO campaign_members (campaign_id, user_id, status) VALUES ($1, $2, $3)
		ON CONFLICT (campaign_id, user_id) DO UPDATE SET status = EXCLUDED.status,
			updated_at = CASE WHEN campaign_members.status = EXCLUDED.status
				THEN campaign_members.updated_at ELSE NOW() END`
	_, err := r.db.Conn(ctx).Exec(ctx, q, campaignID, userID, status)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrCampaignNotFound
	}
	return err
}

// ListByUser returns the campaigns a user has any standing in, with that standing.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserCampaign, error) {
	q := `SELECT ` + campaignColumns + `, m.status FROM campaigns c
		JOIN campaign_members m ON m.campaign_id = c.id
		WHERE m.user_id = $1 ORDER BY m.updated_at DESC`
	rows, err := r.db.Conn(ctx).Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserCampaign
	for rows.Next() {
		var status models.MemberStatus
		c, err := scanCampaign(rows, &status)
		if err != nil {
			return nil, err
		}
		list = append(list, models.UserCampaign{Campaign: *c, MyStatus: status})
	}
	return list, rows.Err()
}
