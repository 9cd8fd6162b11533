package services

import (
	"context"
	"fmt"
	"strings"

	"newsletterdispatch/internal/domain"
)

type recipientDirectory struct {
	subscriberRepo domain.SubscriberRepository
	guestRepo      domain.EventGuestRepository
}

// NewRecipientDirectory resolves audiences against the subscriber and event registration stores.
func NewRecipientDirectory(subscriberRepo domain.SubscriberRepository, guestRepo domain.EventGuestRepository) domain.RecipientDirectory {
	return &recipientDirectory{subscriberRepo: subscriberRepo, guestRepo: guestRepo}
}

// Resolve returns one recipient per address, case-insensitively, keeping the first occurrence.
// Event guests carry no identity.
func (d *recipientDirectory) Resolve(ctx context.Context, audience domain.Audience) ([]domain.Recipient, error) {
	if err := audience.Validate(); err != nil {
		return nil, err
	}

	var recipients []domain.Recipient
	switch audience.Kind {
	case domain.AudienceAllSubscribers:
		subs, err := d.subscriberRepo.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("list active subscribers: %w", err)
		}
		for _, s := range subs {
			recipients = append(recipients, domain.Recipient{Identity: s.ID, Email: s.Email})
		}
	case domain.AudienceEventGuests:
		emails, err := d.guestRepo.ListDistinctEmails(ctx, audience.EventID)
		if err != nil {
			return nil, fmt.Errorf("list event guests: %w", err)
		}
		for _, e := range emails {
			recipients = append(recipients, domain.Recipient{Email: e})
		}
	}
	return dedupeRecipients(recipients), nil
}

func dedupeRecipients(in []domain.Recipient) []domain.Recipient {
	seen := make(map[string]struct{}, len(in))
	out := make([]domain.Recipient, 0, len(in))
	for _, r := range in {
		r.Email = strings.TrimSpace(r.Email)
		key := strings.ToLower(r.Email)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
