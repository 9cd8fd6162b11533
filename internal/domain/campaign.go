package domain

import (
	"context"
	"fmt"
	"time"
)

// CampaignStatus is the lifecycle state of a newsletter campaign.
type CampaignStatus string

const (
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignCompleted CampaignStatus = "completed"
	CampaignFailed    CampaignStatus = "failed"
)

// AudienceKind tags the Audience union.
type AudienceKind string

const (
	AudienceAllSubscribers AudienceKind = "all_subscribers"
	AudienceEventGuests    AudienceKind = "event_guests"
)

// Audience selects who receives a campaign: every active subscriber, or the
// distinct registrants of one event. It is recorded verbatim on the campaign.
// swagger:model Audience
type Audience struct {
	Kind    AudienceKind `json:"kind"`
	EventID string       `json:"event_id,omitempty"`
}

// AllSubscribers returns the audience of all active newsletter subscribers.
func AllSubscribers() Audience {
	return Audience{Kind: AudienceAllSubscribers}
}

// EventGuests returns the audience of everyone registered for the given event.
func EventGuests(eventID string) Audience {
	return Audience{Kind: AudienceEventGuests, EventID: eventID}
}

// Validate checks that the audience is one of the known kinds and carries an
// event ID exactly when it targets event guests.
func (a Audience) Validate() error {
	switch a.Kind {
	case AudienceAllSubscribers:
		if a.EventID != "" {
			return fmt.Errorf("%w: event_id is only allowed for event_guests", ErrInvalidInput)
		}
	case AudienceEventGuests:
		if a.EventID == "" {
			return fmt.Errorf("%w: event_id is required for event_guests", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown audience kind %q", ErrInvalidInput, a.Kind)
	}
	return nil
}

func (a Audience) String() string {
	if a.Kind == AudienceEventGuests {
		return string(a.Kind) + ":" + a.EventID
	}
	return string(a.Kind)
}

// Recipient is one resolved address. Identity is the subscriber ID for
// subscriber audiences and empty for event guests, who have no stable record.
type Recipient struct {
	Identity string
	Email    string
}

// Campaign is the ledger record of one newsletter send operation.
// swagger:model Campaign
type Campaign struct {
	ID             string         `json:"id"`
	TemplateID     string         `json:"template_id"`
	Subject        string         `json:"subject"`
	ScheduledAt    *time.Time     `json:"scheduled_at,omitempty"`
	Status         CampaignStatus `json:"status"`
	Audience       Audience       `json:"audience"`
	RecipientTotal int            `json:"recipient_total"`
	SentCount      int            `json:"sent_count"`
	FailedCount    int            `json:"failed_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewCampaign returns a campaign in SCHEDULED state when scheduledAt is strictly
// after now, otherwise in SENDING state. ID is set by the ledger on create.
func NewCampaign(templateID, subject string, audience Audience, scheduledAt *time.Time, recipientTotal int, now time.Time) *Campaign {
	status := CampaignSending
	if scheduledAt != nil && scheduledAt.After(now) {
		status = CampaignScheduled
	}
	return &Campaign{
		TemplateID:     templateID,
		Subject:        subject,
		ScheduledAt:    scheduledAt,
		Status:         status,
		Audience:       audience,
		RecipientTotal: recipientTotal,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsDue reports whether a scheduled campaign should start sending at now.
func (c *Campaign) IsDue(now time.Time) bool {
	return c.Status == CampaignScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now)
}

// CanRetry reports whether the campaign may be re-enqueued from scratch.
// SENDING is allowed because the queue does not survive a restart.
func (c *Campaign) CanRetry() bool {
	return c.Status == CampaignFailed || c.Status == CampaignSending
}

// FinalStatus is the status of a campaign once it has no outstanding jobs.
// Partial success is success.
func FinalStatus(sentCount int) CampaignStatus {
	if sentCount > 0 {
		return CampaignCompleted
	}
	return CampaignFailed
}

// CampaignLedger persists campaign records and their counters.
type CampaignLedger interface {
	Create(ctx context.Context, c *Campaign) error
	GetByID(ctx context.Context, id string) (*Campaign, error)
	// AddCounts atomically adds the deltas to sent_count and failed_count.
	AddCounts(ctx context.Context, id string, sent, failed int) error
	UpdateStatus(ctx context.Context, id string, status CampaignStatus) error
	// StartSending moves the campaign to SENDING with fresh counters, provided the
	// stored row still has the observed status and updated_at. Returns
	// ErrInvalidTransition when the row changed since it was read.
	StartSending(ctx context.Context, observed *Campaign, recipientTotal int) error
	ListDue(ctx context.Context, now time.Time) ([]*Campaign, error)
	ListByStatus(ctx context.Context, status CampaignStatus) ([]*Campaign, error)
	// List returns one page of campaigns, newest first, and the total matching count.
	// An empty status matches every campaign.
	List(ctx context.Context, status CampaignStatus, page PaginationParams) ([]*Campaign, int, error)
}
