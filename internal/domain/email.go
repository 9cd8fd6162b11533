package domain

import (
	"context"
	"time"
)

// OutboundEmail is a single message handed to the transport.
// An empty From means the mailer's configured sender.
type OutboundEmail struct {
	From    string
	To      string
	Subject string
	HTML    string
	Headers map[string]string
}

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, msg *OutboundEmail) error
}

// NewsletterRenderer wraps body HTML in the newsletter page shell.
type NewsletterRenderer interface {
	Render(bodyHTML, unsubscribeURL, title string) (string, error)
}

// ImageInliner rewrites upload-relative image references so the email does not
// depend on the origin server. It never fails.
type ImageInliner interface {
	Inline(html string) string
}

// EmailJob is one pending send in the dispatch queue.
type EmailJob struct {
	ID               string
	CampaignID       string
	To               string
	Subject          string
	HTMLBody         string
	UnsubscribeURL   string
	UnsubscribeToken string
	RetryCount       int
}

// Headers returns the list-unsubscribe headers every newsletter message carries.
func (j *EmailJob) Headers() map[string]string {
	return map[string]string{
		"List-Unsubscribe":      "<" + j.UnsubscribeURL + ">",
		"List-Unsubscribe-Post": "List-Unsubscribe=One-Click",
	}
}

// QueueStatus is a point-in-time view of the dispatch queue.
// swagger:model QueueStatus
type QueueStatus struct {
	Queued         int            `json:"queued"`
	Processing     bool           `json:"processing"`
	SentThisMinute int            `json:"sent_this_minute"`
	SentThisHour   int            `json:"sent_this_hour"`
	MinuteLimit    int            `json:"minute_limit"`
	HourLimit      int            `json:"hour_limit"`
	ResumeAt       *time.Time     `json:"resume_at,omitempty"`
	Campaigns      map[string]int `json:"campaigns"`
}

// DispatchQueue is the in-memory send queue owned by the dispatcher.
type DispatchQueue interface {
	Enqueue(jobs []*EmailJob) error
	// Pending returns the number of queued or in-flight jobs for a campaign.
	Pending(campaignID string) int
	Status() QueueStatus
}
