package domain

import (
	"context"
	"strings"
	"time"
)

// Template is a stored newsletter body.
type Template struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	HTMLContent string `json:"html_content"`
}

// TemplateStore reads newsletter templates. Read-only to the dispatch core.
type TemplateStore interface {
	GetByID(ctx context.Context, id string) (*Template, error)
}

// Subscriber is a newsletter subscription record.
type Subscriber struct {
	ID       string
	Email    string
	IsActive bool
}

// SubscriberRepository defines storage operations for newsletter subscribers.
type SubscriberRepository interface {
	ListActive(ctx context.Context) ([]*Subscriber, error)
	// DeactivateByEmail returns false when no active subscription matched.
	DeactivateByEmail(ctx context.Context, email string, at time.Time) (bool, error)
}

// EventGuestRepository lists the addresses registered for an event.
type EventGuestRepository interface {
	ListDistinctEmails(ctx context.Context, eventID string) ([]string, error)
}

// RecipientDirectory resolves an audience into concrete recipients.
type RecipientDirectory interface {
	Resolve(ctx context.Context, audience Audience) ([]Recipient, error)
}

// UnsubscribeClaims is what an unsubscribe token proves.
type UnsubscribeClaims struct {
	RecipientID string
	Email       string
	CampaignID  string
}

// UnsubscribeTokens issues and verifies per-recipient unsubscribe tokens.
type UnsubscribeTokens interface {
	Issue(campaignID string, r Recipient) (string, error)
	Verify(token string) (*UnsubscribeClaims, error)
	// URL returns the public unsubscribe link carrying the token.
	URL(token string) string
}

// TokenVerifier verifies an admin bearer token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (subject string, err error)
}

// SendCampaignRequest is the input of NewsletterService.SendCampaign.
// swagger:model SendCampaignRequest
type SendCampaignRequest struct {
	TemplateID  string     `json:"template_id"`
	Audience    Audience   `json:"audience"`
	Subject     string     `json:"subject,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// Validate implements helpers.Validator.
func (r *SendCampaignRequest) Validate() []string {
	var errs []string
	r.TemplateID = strings.TrimSpace(r.TemplateID)
	if r.TemplateID == "" {
		errs = append(errs, "template_id is required")
	}
	if err := r.Audience.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	r.Subject = strings.TrimSpace(r.Subject)
	return errs
}

// SendCampaignResult reports what happened to a submission.
// swagger:model SendCampaignResult
type SendCampaignResult struct {
	Accepted    bool           `json:"accepted"`
	Message     string         `json:"message"`
	QueuedCount int            `json:"queued_count"`
	CampaignID  string         `json:"campaign_id,omitempty"`
	Status      CampaignStatus `json:"status,omitempty"`
}

// NewsletterService is the command/query surface of the newsletter core.
type NewsletterService interface {
	SendCampaign(ctx context.Context, req *SendCampaignRequest) (*SendCampaignResult, error)
	RetryCampaign(ctx context.Context, campaignID string) (*SendCampaignResult, error)
	GetCampaign(ctx context.Context, campaignID string) (*Campaign, error)
	ListCampaigns(ctx context.Context, status CampaignStatus, page PaginationParams) ([]*Campaign, int, error)
	GetQueueStatus() QueueStatus
	// ProcessDueScheduledCampaigns starts every SCHEDULED campaign whose time has come.
	ProcessDueScheduledCampaigns(ctx context.Context) (int, error)
	// RecoverAbandoned retries SENDING campaigns that have no in-memory jobs and
	// no ledger update within the stale window.
	RecoverAbandoned(ctx context.Context) (int, error)
	Unsubscribe(ctx context.Context, token string) error
}
