package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"newsletterdispatch/internal/domain"
)

// NewsletterDeps are the collaborators of the newsletter service.
type NewsletterDeps struct {
	Templates   domain.TemplateStore
	Recipients  domain.RecipientDirectory
	Ledger      domain.CampaignLedger
	Subscribers domain.SubscriberRepository
	Queue       domain.DispatchQueue
	Inliner     domain.ImageInliner
	Renderer    domain.NewsletterRenderer
	Tokens      domain.UnsubscribeTokens
	Logger      *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// StaleAfter is how long a SENDING campaign must go without a ledger update
	// before RecoverAbandoned treats it as abandoned. Defaults to DefaultStaleAfter.
	StaleAfter time.Duration
}

// DefaultStaleAfter outlasts the hourly rate-limit window, during which a live
// campaign can legitimately go without a ledger update.
const DefaultStaleAfter = 90 * time.Minute

type newsletterService struct {
	templates   domain.TemplateStore
	recipients  domain.RecipientDirectory
	ledger      domain.CampaignLedger
	subscribers domain.SubscriberRepository
	queue       domain.DispatchQueue
	inliner     domain.ImageInliner
	renderer    domain.NewsletterRenderer
	tokens      domain.UnsubscribeTokens
	logger      *slog.Logger
	now         func() time.Time
	staleAfter  time.Duration

	mu       sync.Mutex
	starting map[string]struct{}
}

// NewNewsletterService creates a NewsletterService over the given collaborators.
func NewNewsletterService(deps NewsletterDeps) domain.NewsletterService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	staleAfter := deps.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &newsletterService{
		templates:   deps.Templates,
		recipients:  deps.Recipients,
		ledger:      deps.Ledger,
		subscribers: deps.Subscribers,
		queue:       deps.Queue,
		inliner:     deps.Inliner,
		renderer:    deps.Renderer,
		tokens:      deps.Tokens,
		logger:      deps.Logger,
		now:         now,
		staleAfter:  staleAfter,
		starting:    make(map[string]struct{}),
	}
}

// rejected reports input errors as a non-accepted result instead of an error.
// Anything else is returned to the caller.
func rejected(err error) (*domain.SendCampaignResult, error) {
	switch {
	case errors.Is(err, domain.ErrTemplateNotFound):
		return &domain.SendCampaignResult{Accepted: false, Message: "Newsletter template not found"}, nil
	case errors.Is(err, domain.ErrNoRecipients):
		return &domain.SendCampaignResult{Accepted: false, Message: "No active recipients found for the selected audience"}, nil
	case errors.Is(err, domain.ErrInvalidInput):
		return &domain.SendCampaignResult{Accepted: false, Message: err.Error()}, nil
	}
	return nil, err
}

func (s *newsletterService) SendCampaign(ctx context.Context, req *domain.SendCampaignRequest) (*domain.SendCampaignResult, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return &domain.SendCampaignResult{Accepted: false, Message: strings.Join(errs, "; ")}, nil
	}

	tmpl, recipients, err := s.prepare(ctx, req.TemplateID, req.Audience)
	if err != nil {
		return rejected(err)
	}

	subject := req.Subject
	if subject == "" {
		subject = tmpl.Title
	}
	campaign := domain.NewCampaign(tmpl.ID, subject, req.Audience, req.ScheduledAt, len(recipients), s.now())
	if err := s.ledger.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	if campaign.Status == domain.CampaignScheduled {
		s.logger.Info("newsletter scheduled",
			"campaign_id", campaign.ID, "audience", campaign.Audience.String(),
			"recipients", campaign.RecipientTotal, "scheduled_at", campaign.ScheduledAt)
		return &domain.SendCampaignResult{
			Accepted:    true,
			Message:     fmt.Sprintf("Newsletter scheduled for %s", campaign.ScheduledAt.UTC().Format(time.RFC3339)),
			QueuedCount: 0,
			CampaignID:  campaign.ID,
			Status:      campaign.Status,
		}, nil
	}

	jobs, err := s.buildJobs(campaign, tmpl, recipients)
	if err == nil {
		err = s.queue.Enqueue(jobs)
	}
	if err != nil {
		s.markFailed(ctx, campaign.ID)
		return nil, fmt.Errorf("enqueue campaign %s: %w", campaign.ID, err)
	}

	s.logger.Info("newsletter queued",
		"campaign_id", campaign.ID, "audience", campaign.Audience.String(), "recipients", len(jobs))
	return queuedResult(campaign.ID, len(jobs)), nil
}

func (s *newsletterService) RetryCampaign(ctx context.Context, campaignID string) (*domain.SendCampaignResult, error) {
	campaign, err := s.ledger.GetByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return s.retry(ctx, campaign)
}

// retry restarts campaign as observed. A SENDING campaign is only restarted once it
// has gone StaleAfter without a ledger update. Fails with ErrInvalidTransition if the
// stored row has changed since campaign was read.
func (s *newsletterService) retry(ctx context.Context, campaign *domain.Campaign) (*domain.SendCampaignResult, error) {
	if !campaign.CanRetry() {
		return nil, fmt.Errorf("%w: campaign %s is %s", domain.ErrInvalidTransition, campaign.ID, campaign.Status)
	}
	if campaign.Status == domain.CampaignSending && campaign.UpdatedAt.After(s.now().Add(-s.staleAfter)) {
		// May be draining on another replica.
		return nil, fmt.Errorf("%w: campaign %s is sending, last updated %s",
			domain.ErrCampaignBusy, campaign.ID, campaign.UpdatedAt.UTC().Format(time.RFC3339))
	}
	n, err := s.start(ctx, campaign)
	if err != nil {
		return rejected(err)
	}
	s.logger.Info("newsletter retried", "campaign_id", campaign.ID, "recipients", n)
	return queuedResult(campaign.ID, n), nil
}

func (s *newsletterService) ProcessDueScheduledCampaigns(ctx context.Context) (int, error) {
	due, err := s.ledger.ListDue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list due campaigns: %w", err)
	}

	var (
		started int
		errs    []error
	)
	for _, campaign := range due {
		n, err := s.start(ctx, campaign)
		switch {
		case err == nil:
			started++
			s.logger.Info("scheduled newsletter started", "campaign_id", campaign.ID, "recipients", n)
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrCampaignBusy):
			// Started elsewhere since ListDue.
		case errors.Is(err, domain.ErrTemplateNotFound), errors.Is(err, domain.ErrNoRecipients):
			s.logger.Warn("scheduled newsletter cannot start", "campaign_id", campaign.ID, "err", err)
			s.markFailed(ctx, campaign.ID)
		default:
			errs = append(errs, fmt.Errorf("campaign %s: %w", campaign.ID, err))
		}
	}
	return started, errors.Join(errs...)
}

func (s *newsletterService) RecoverAbandoned(ctx context.Context) (int, error) {
	sending, err := s.ledger.ListByStatus(ctx, domain.CampaignSending)
	if err != nil {
		return 0, fmt.Errorf("list sending campaigns: %w", err)
	}

	var (
		recovered int
		errs      []error
	)
	for _, campaign := range sending {
		res, err := s.retry(ctx, campaign)
		switch {
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrCampaignBusy):
			// Still draining here or elsewhere, or restarted concurrently.
			continue
		case err != nil:
			errs = append(errs, fmt.Errorf("campaign %s: %w", campaign.ID, err))
			continue
		}
		if !res.Accepted {
			s.logger.Warn("abandoned newsletter cannot restart", "campaign_id", campaign.ID, "reason", res.Message)
			s.markFailed(ctx, campaign.ID)
			continue
		}
		recovered++
	}
	return recovered, errors.Join(errs...)
}

func (s *newsletterService) GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	return s.ledger.GetByID(ctx, campaignID)
}

func (s *newsletterService) ListCampaigns(ctx context.Context, status domain.CampaignStatus, page domain.PaginationParams) ([]*domain.Campaign, int, error) {
	switch status {
	case "", domain.CampaignScheduled, domain.CampaignSending, domain.CampaignCompleted, domain.CampaignFailed:
	default:
		return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	return s.ledger.List(ctx, status, page)
}

func (s *newsletterService) GetQueueStatus() domain.QueueStatus {
	return s.queue.Status()
}

func (s *newsletterService) Unsubscribe(ctx context.Context, token string) error {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return err
	}
	ok, err := s.subscribers.DeactivateByEmail(ctx, claims.Email, s.now())
	if err != nil {
		return fmt.Errorf("deactivate subscriber: %w", err)
	}
	s.logger.Info("unsubscribe processed", "campaign_id", claims.CampaignID, "email", claims.Email, "deactivated", ok)
	return nil
}

// prepare loads the template and resolves a non-empty audience.
func (s *newsletterService) prepare(ctx context.Context, templateID string, audience domain.Audience) (*domain.Template, []domain.Recipient, error) {
	tmpl, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, nil, fmt.Errorf("get template %s: %w", templateID, err)
	}
	recipients, err := s.recipients.Resolve(ctx, audience)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve audience %s: %w", audience, err)
	}
	if len(recipients) == 0 {
		return nil, nil, domain.ErrNoRecipients
	}
	return tmpl, recipients, nil
}

// start re-resolves an existing campaign's audience, moves it to SENDING and enqueues
// its jobs. Only one start per campaign runs at a time in this process; across
// processes the ledger's compare-and-set on the observed row decides.
func (s *newsletterService) start(ctx context.Context, campaign *domain.Campaign) (int, error) {
	if !s.reserve(campaign.ID) {
		return 0, fmt.Errorf("%w: campaign %s is already being started", domain.ErrCampaignBusy, campaign.ID)
	}
	defer s.unreserve(campaign.ID)

	if n := s.queue.Pending(campaign.ID); n > 0 {
		return 0, fmt.Errorf("%w: %d jobs pending", domain.ErrCampaignBusy, n)
	}
	tmpl, recipients, err := s.prepare(ctx, campaign.TemplateID, campaign.Audience)
	if err != nil {
		return 0, err
	}
	jobs, err := s.buildJobs(campaign, tmpl, recipients)
	if err != nil {
		return 0, err
	}
	if err := s.ledger.StartSending(ctx, campaign, len(jobs)); err != nil {
		return 0, err
	}
	if err := s.queue.Enqueue(jobs); err != nil {
		// Left SENDING with no jobs; RecoverAbandoned picks it up once stale.
		return 0, fmt.Errorf("enqueue campaign %s: %w", campaign.ID, err)
	}
	return len(jobs), nil
}

func (s *newsletterService) reserve(campaignID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.starting[campaignID]; ok {
		return false
	}
	s.starting[campaignID] = struct{}{}
	return true
}

func (s *newsletterService) unreserve(campaignID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.starting, campaignID)
}

// buildJobs renders one message per recipient. Images are inlined once per campaign.
func (s *newsletterService) buildJobs(campaign *domain.Campaign, tmpl *domain.Template, recipients []domain.Recipient) ([]*domain.EmailJob, error) {
	body := s.inliner.Inline(tmpl.HTMLContent)
	subject := campaign.Subject
	if subject == "" {
		subject = tmpl.Title
	}

	jobs := make([]*domain.EmailJob, 0, len(recipients))
	for _, r := range recipients {
		token, err := s.tokens.Issue(campaign.ID, r)
		if err != nil {
			return nil, fmt.Errorf("issue unsubscribe token: %w", err)
		}
		url := s.tokens.URL(token)
		html, err := s.renderer.Render(body, url, subject)
		if err != nil {
			return nil, fmt.Errorf("render newsletter: %w", err)
		}
		jobs = append(jobs, &domain.EmailJob{
			ID:               uuid.NewString(),
			CampaignID:       campaign.ID,
			To:               r.Email,
			Subject:          subject,
			HTMLBody:         html,
			UnsubscribeURL:   url,
			UnsubscribeToken: token,
		})
	}
	return jobs, nil
}

func (s *newsletterService) markFailed(ctx context.Context, campaignID string) {
	if err := s.ledger.UpdateStatus(ctx, campaignID, domain.CampaignFailed); err != nil {
		s.logger.Error("failed to mark campaign failed", "campaign_id", campaignID, "err", err)
	}
}

func queuedResult(campaignID string, n int) *domain.SendCampaignResult {
	return &domain.SendCampaignResult{
		Accepted:    true,
		Message:     fmt.Sprintf("Newsletter queued for %d recipients", n),
		QueuedCount: n,
		CampaignID:  campaignID,
		Status:      domain.CampaignSending,
	}
}
