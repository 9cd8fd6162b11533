package postgres

import (
	"context"
	"database/sql"
	"errors"

	"newsletterdispatch/internal/domain"
)

type templateRepository struct {
	DB *sql.DB
}

func NewTemplateRepository(db *sql.DB) domain.TemplateStore {
	return &templateRepository{DB: db}
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	query := `
		SELECT id, title, html_content
		FROM newsletter_templates
		WHERE id = $1
	`
	t := &domain.Template{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Title, &t.HTMLContent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, err
	}
	return t, nil
}
