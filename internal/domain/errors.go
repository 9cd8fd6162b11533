package domain

import "errors"

// Sentinel errors shared by repositories, services and the HTTP layer.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when the request is invalid.
	ErrInvalidInput = errors.New("invalid input")

	ErrTemplateNotFound = errors.New("newsletter template not found")
	// ErrNoRecipients is returned when the audience resolves to zero addresses.
	ErrNoRecipients = errors.New("no active recipients found for the selected audience")
	// ErrInvalidTransition is returned when a campaign is not in a state that allows the operation.
	ErrInvalidTransition = errors.New("invalid campaign status transition")
	// ErrCampaignBusy is returned when a campaign still has jobs in the dispatch queue.
	ErrCampaignBusy = errors.New("campaign still has queued jobs")
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrDispatcherClosed is returned when jobs are enqueued after shutdown started.
	ErrDispatcherClosed = errors.New("dispatcher is closed")
)
