package postgres

import (
	"context"
	"database/sql"
	"time"

	"newsletterdispatch/internal/domain"
)

type subscriberRepository struct {
	DB *sql.DB
}

func NewSubscriberRepository(db *sql.DB) domain.SubscriberRepository {
	return &subscriberRepository{DB: db}
}

func (r *subscriberRepository) ListActive(ctx context.Context) ([]*domain.Subscriber, error) {
	query := `
		SELECT id, email, is_active
		FROM newsletter_subscribers
		WHERE is_active = TRUE
		ORDER BY id ASC
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []*domain.Subscriber{}
	for rows.Next() {
		s := &domain.Subscriber{}
		if err := rows.Scan(&s.ID, &s.Email, &s.IsActive); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriberRepository) DeactivateByEmail(ctx context.Context, email string, at time.Time) (bool, error) {
	query := `
		UPDATE newsletter_subscribers
		SET is_active = FALSE, unsubscribed_at = $2
		WHERE LOWER(email) = LOWER($1) AND is_active = TRUE
	`
	result, err := r.DB.ExecContext(ctx, query, email, at)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
