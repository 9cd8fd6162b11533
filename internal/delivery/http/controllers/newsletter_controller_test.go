package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletterdispatch/internal/delivery/http/helpers"
	"newsletterdispatch/internal/domain"
)

type mockNewsletterService struct {
	sendResult  *domain.SendCampaignResult
	retryResult *domain.SendCampaignResult
	campaign    *domain.Campaign
	campaigns   []*domain.Campaign
	total       int
	started     int
	err         error

	gotRequest *domain.SendCampaignRequest
	gotID      string
	gotStatus  domain.CampaignStatus
	gotPage    domain.PaginationParams
	gotToken   string
}

func (m *mockNewsletterService) SendCampaign(ctx context.Context, req *domain.SendCampaignRequest) (*domain.SendCampaignResult, error) {
	m.gotRequest = req
	return m.sendResult, m.err
}

func (m *mockNewsletterService) RetryCampaign(ctx context.Context, campaignID string) (*domain.SendCampaignResult, error) {
	m.gotID = campaignID
	return m.retryResult, m.err
}

func (m *mockNewsletterService) GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	m.gotID = campaignID
	return m.campaign, m.err
}

func (m *mockNewsletterService) ListCampaigns(ctx context.Context, status domain.CampaignStatus, page domain.PaginationParams) ([]*domain.Campaign, int, error) {
	m.gotStatus, m.gotPage = status, page
	return m.campaigns, m.total, m.err
}

func (m *mockNewsletterService) GetQueueStatus() domain.QueueStatus {
	return domain.QueueStatus{Queued: 7, MinuteLimit: 30, HourLimit: 1000, Campaigns: map[string]int{"c1": 7}}
}

func (m *mockNewsletterService) ProcessDueScheduledCampaigns(ctx context.Context) (int, error) {
	return m.started, m.err
}

func (m *mockNewsletterService) RecoverAbandoned(ctx context.Context) (int, error) {
	return 0, nil
}

func (m *mockNewsletterService) Unsubscribe(ctx context.Context, token string) error {
	m.gotToken = token
	return m.err
}

func newTestController(svc domain.NewsletterService) *NewsletterController {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewNewsletterController(logger, svc)
}

func decodeEnvelope(t *testing.T, body io.Reader) helpers.APIResponse {
	t.Helper()
	var env helpers.APIResponse
	require.NoError(t, json.NewDecoder(body).Decode(&env))
	return env
}

func TestNewsletterController_SendCampaign(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svc        *mockNewsletterService
		wantStatus int
		wantCode   string
	}{
		{
			name:       "queued",
			body:       `{"template_id":"T1","audience":{"kind":"all_subscribers"}}`,
			svc:        &mockNewsletterService{sendResult: &domain.SendCampaignResult{Accepted: true, QueuedCount: 3, CampaignID: "c1", Status: domain.CampaignSending}},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "rejected by service",
			body:       `{"template_id":"T1","audience":{"kind":"event_guests","event_id":"7"}}`,
			svc:        &mockNewsletterService{sendResult: &domain.SendCampaignResult{Accepted: false, Message: "No active recipients found for the selected audience"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   helpers.ErrCodeRejected,
		},
		{
			name:       "invalid body",
			body:       `{"template_id":"","audience":{"kind":"all_subscribers"}}`,
			svc:        &mockNewsletterService{},
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
		{
			name:       "unknown field",
			body:       `{"template_id":"T1","audience":{"kind":"all_subscribers"},"priority":1}`,
			svc:        &mockNewsletterService{},
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
		{
			name:       "storage failure",
			body:       `{"template_id":"T1","audience":{"kind":"all_subscribers"}}`,
			svc:        &mockNewsletterService{err: errors.New("db down")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   helpers.ErrCodeInternalError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := newTestController(tt.svc)
			req := httptest.NewRequest(http.MethodPost, "/newsletter/campaigns", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			ctrl.SendCampaign(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			env := decodeEnvelope(t, w.Body)
			if tt.wantCode != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.wantCode, env.Error.Code)
				return
			}
			assert.Nil(t, env.Error)
			data := env.Data.(map[string]any)
			assert.Equal(t, true, data["accepted"])
			assert.Equal(t, float64(3), data["queued_count"])
		})
	}
}

func TestNewsletterController_SendCampaign_ScheduledAtParsed(t *testing.T) {
	svc := &mockNewsletterService{sendResult: &domain.SendCampaignResult{Accepted: true, Status: domain.CampaignScheduled}}
	ctrl := newTestController(svc)
	body := `{"template_id":"T1","audience":{"kind":"all_subscribers"},"subject":"  Hi  ","scheduled_at":"2026-04-01T08:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/newsletter/campaigns", strings.NewReader(body))
	w := httptest.NewRecorder()

	ctrl.SendCampaign(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.NotNil(t, svc.gotRequest.ScheduledAt)
	assert.Equal(t, "2026-04-01T08:00:00Z", svc.gotRequest.ScheduledAt.Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, "Hi", svc.gotRequest.Subject)
}

func TestNewsletterController_RetryCampaign_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound, helpers.ErrCodeNotFound},
		{"completed", domain.ErrInvalidTransition, http.StatusConflict, helpers.ErrCodeConflict},
		{"still queued", domain.ErrCampaignBusy, http.StatusConflict, helpers.ErrCodeConflict},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, helpers.ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockNewsletterService{err: tt.err}
			ctrl := newTestController(svc)
			req := httptest.NewRequest(http.MethodPost, "/newsletter/campaigns/c1/retry", nil)
			req.SetPathValue("campaignID", "c1")
			w := httptest.NewRecorder()

			ctrl.RetryCampaign(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "c1", svc.gotID)
			env := decodeEnvelope(t, w.Body)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}
}

func TestNewsletterController_ListCampaigns(t *testing.T) {
	svc := &mockNewsletterService{campaigns: []*domain.Campaign{{ID: "c1"}}, total: 41}
	ctrl := newTestController(svc)
	req := httptest.NewRequest(http.MethodGet, "/newsletter/campaigns?status=failed&page=2&page_size=20", nil)
	w := httptest.NewRecorder()

	ctrl.ListCampaigns(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.CampaignFailed, svc.gotStatus)
	assert.Equal(t, domain.PaginationParams{Page: 2, PageSize: 20}, svc.gotPage)

	env := decodeEnvelope(t, w.Body)
	data := env.Data.(map[string]any)
	pagination := data["pagination"].(map[string]any)
	assert.Equal(t, float64(3), pagination["total_pages"])
	assert.Len(t, data["items"], 1)
}

func TestNewsletterController_QueueStatus(t *testing.T) {
	ctrl := newTestController(&mockNewsletterService{})
	req := httptest.NewRequest(http.MethodGet, "/newsletter/queue", nil)
	w := httptest.NewRecorder()

	ctrl.QueueStatus(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w.Body).Data.(map[string]any)
	assert.Equal(t, float64(7), data["queued"])
	assert.Equal(t, float64(30), data["minute_limit"])
}

func TestNewsletterController_ProcessScheduled(t *testing.T) {
	ctrl := newTestController(&mockNewsletterService{started: 2})
	req := httptest.NewRequest(http.MethodPost, "/newsletter/scheduled/process", nil)
	w := httptest.NewRecorder()

	ctrl.ProcessScheduled(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w.Body).Data.(map[string]any)
	assert.Equal(t, float64(2), data["started"])
}

func TestNewsletterController_Unsubscribe(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		err         error
		wantStatus  int
		wantContent string
	}{
		{"one-click post", http.MethodPost, nil, http.StatusOK, "application/json"},
		{"post bad token", http.MethodPost, domain.ErrInvalidToken, http.StatusBadRequest, "application/json"},
		{"browser get", http.MethodGet, nil, http.StatusOK, "text/html; charset=utf-8"},
		{"browser get bad token", http.MethodGet, domain.ErrInvalidToken, http.StatusBadRequest, "text/html; charset=utf-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockNewsletterService{err: tt.err}
			ctrl := newTestController(svc)
			req := httptest.NewRequest(tt.method, "/newsletter/unsubscribe?token=abc.def", nil)
			w := httptest.NewRecorder()

			ctrl.Unsubscribe(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantContent, w.Header().Get("Content-Type"))
			assert.Equal(t, "abc.def", svc.gotToken)
		})
	}
}
