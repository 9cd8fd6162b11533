package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"newsletterdispatch/internal/domain"
)

type campaignRepository struct {
	DB *sql.DB
}

// NewCampaignRepository returns the newsletter_campaigns ledger.
func NewCampaignRepository(db *sql.DB) domain.CampaignLedger {
	return &campaignRepository{DB: db}
}

const campaignColumns = `id, template_id, subject, scheduled_at, status, audience_kind, audience_event_id,
		recipient_total, sent_count, failed_count, created_at, updated_at`

const foreignKeyViolation = "23503"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	var (
		scheduledAt sql.NullTime
		eventID     sql.NullString
	)
	err := row.Scan(&c.ID, &c.TemplateID, &c.Subject, &scheduledAt, &c.Status, &c.Audience.Kind, &eventID,
		&c.RecipientTotal, &c.SentCount, &c.FailedCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if scheduledAt.Valid {
		t := scheduledAt.Time
		c.ScheduledAt = &t
	}
	c.Audience.EventID = eventID.String
	return c, nil
}

func (r *campaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	query := `
		INSERT INTO newsletter_campaigns (template_id, subject, scheduled_at, status, audience_kind, audience_event_id,
			recipient_total, sent_count, failed_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		c.TemplateID, c.Subject, c.ScheduledAt, c.Status, c.Audience.Kind, nullString(c.Audience.EventID),
		c.RecipientTotal, c.SentCount, c.FailedCount, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		// Template deleted after it was read.
		return fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, c.TemplateID)
	}
	return err
}

func (r *campaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM newsletter_campaigns WHERE id = $1`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *campaignRepository) AddCounts(ctx context.Context, id string, sent, failed int) error {
	query := `
		UPDATE newsletter_campaigns
		SET sent_count = sent_count + $2, failed_count = failed_count + $3, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, sent, failed)
}

func (r *campaignRepository) UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error {
	query := `
		UPDATE newsletter_campaigns
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, status)
}

func (r *campaignRepository) StartSending(ctx context.Context, observed *domain.Campaign, recipientTotal int) error {
	query := `
		UPDATE newsletter_campaigns
		SET status = $2, recipient_total = $3, sent_count = 0, failed_count = 0, updated_at = NOW()
		WHERE id = $1 AND status = $4 AND updated_at = $5
	`
	result, err := r.DB.ExecContext(ctx, query,
		observed.ID, domain.CampaignSending, recipientTotal, observed.Status, observed.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// Distinguish a missing row from one that moved on.
	c, err := r.GetByID(ctx, observed.ID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: campaign %s changed since it was read (now %s)", domain.ErrInvalidTransition, observed.ID, c.Status)
}

func (r *campaignRepository) ListDue(ctx context.Context, now time.Time) ([]*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
		FROM newsletter_campaigns
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at ASC`
	return r.list(ctx, query, domain.CampaignScheduled, now)
}

func (r *campaignRepository) ListByStatus(ctx context.Context, status domain.CampaignStatus) ([]*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
		FROM newsletter_campaigns
		WHERE status = $1
		ORDER BY created_at ASC`
	return r.list(ctx, query, status)
}

func (r *campaignRepository) List(ctx context.Context, status domain.CampaignStatus, page domain.PaginationParams) ([]*domain.Campaign, int, error) {
	where := ""
	args := []any{}
	if status != "" {
		where = " WHERE status = $1"
		args = append(args, status)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM newsletter_campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	n := len(args)
	query := `SELECT ` + campaignColumns + ` FROM newsletter_campaigns` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", n+1, n+2)
	campaigns, err := r.list(ctx, query, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	return campaigns, total, nil
}

func (r *campaignRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Campaign, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*domain.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *campaignRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
