package postgres

import (
	"context"
	"database/sql"

	"newsletterdispatch/internal/domain"
)

type eventRegistrationRepository struct {
	DB *sql.DB
}

func NewEventRegistrationRepository(db *sql.DB) domain.EventGuestRepository {
	return &eventRegistrationRepository{
		DB: db,
	}
}

// ListDistinctEmails returns each registered address once, lowercased, in stable order.
func (r *eventRegistrationRepository) ListDistinctEmails(ctx context.Context, eventID string) ([]string, error) {
	query := `
		SELECT DISTINCT LOWER(u.email) AS email
		FROM event_registrations er
		JOIN users u ON u.id = er.user_id
		WHERE er.event_id = $1 AND u.email <> ''
		ORDER BY email ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return emails, nil
}
