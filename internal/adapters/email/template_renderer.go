package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"newsletterdispatch/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

const newsletterTemplate = "newsletter.html"

// newsletterRenderer implements domain.NewsletterRenderer using the embedded page shell.
type newsletterRenderer struct {
	tmpl *template.Template
}

type newsletterPage struct {
	Title          string
	Body           template.HTML
	UnsubscribeURL string
}

// NewNewsletterRenderer parses the embedded newsletter shell once.
func NewNewsletterRenderer() (domain.NewsletterRenderer, error) {
	t, err := template.ParseFS(templateFS, "templates/"+newsletterTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse newsletter template: %w", err)
	}
	return &newsletterRenderer{tmpl: t}, nil
}

// Render wraps bodyHTML in the shell. The body is trusted admin-authored HTML and is
// not escaped; the title and unsubscribe URL are.
func (r *newsletterRenderer) Render(bodyHTML, unsubscribeURL, title string) (string, error) {
	var buf bytes.Buffer
	page := newsletterPage{
		Title:          title,
		Body:           template.HTML(bodyHTML),
		UnsubscribeURL: unsubscribeURL,
	}
	if err := r.tmpl.ExecuteTemplate(&buf, newsletterTemplate, page); err != nil {
		return "", fmt.Errorf("render newsletter: %w", err)
	}
	return buf.String(), nil
}
