package controllers

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"newsletterdispatch/internal/delivery/http/helpers"
	"newsletterdispatch/internal/domain"
)

type NewsletterController struct {
	Logger  *slog.Logger
	Service domain.NewsletterService
}

func NewNewsletterController(logger *slog.Logger, svc domain.NewsletterService) *NewsletterController {
	return &NewsletterController{
		Logger:  logger,
		Service: svc,
	}
}

// SendCampaignSuccessResponse is the success envelope for campaign submission and retry (202).
type SendCampaignSuccessResponse struct {
	Data  *domain.SendCampaignResult `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

// CampaignSuccessResponse is the success envelope for GET /newsletter/campaigns/{campaignID}.
type CampaignSuccessResponse struct {
	Data  *domain.Campaign  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// CampaignListData is one page of campaigns.
type CampaignListData struct {
	Items      []*domain.Campaign     `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// CampaignListSuccessResponse is the success envelope for GET /newsletter/campaigns.
type CampaignListSuccessResponse struct {
	Data  *CampaignListData `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// QueueStatusSuccessResponse is the success envelope for GET /newsletter/queue.
type QueueStatusSuccessResponse struct {
	Data  *domain.QueueStatus `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// ProcessScheduledData reports how many scheduled campaigns were started.
type ProcessScheduledData struct {
	Started int `json:"started"`
}

// ProcessScheduledSuccessResponse is the success envelope for POST /newsletter/scheduled/process.
type ProcessScheduledSuccessResponse struct {
	Data  *ProcessScheduledData `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// SendCampaign godoc
// @Summary Submit a newsletter campaign
// @Description Resolves the audience and either queues one email per recipient or, when scheduled_at is in the future, records the campaign as scheduled. Rejected submissions (unknown template, empty audience) create nothing.
// @Tags newsletter
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body domain.SendCampaignRequest true "Template, audience and optional subject/schedule"
// @Success 202 {object} controllers.SendCampaignSuccessResponse "Queued or scheduled"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 422 {object} helpers.APIResponse "error.code: rejected"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /newsletter/campaigns [post]
func (c *NewsletterController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	var req domain.SendCampaignRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	res, err := c.Service.SendCampaign(r.Context(), &req)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeResult(w, res)
}

// RetryCampaign godoc
// @Summary Retry a failed or abandoned campaign
// @Description Re-resolves the audience, resets the counters and queues the campaign again. Allowed for failed campaigns and for sending campaigns with no queued jobs and no recent progress.
// @Tags newsletter
// @Produce json
// @Security BearerAuth
// @Param campaignID path string true "Campaign ID"
// @Success 202 {object} controllers.SendCampaignSuccessResponse "Queued"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 422 {object} helpers.APIResponse "error.code: rejected"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /newsletter/campaigns/{campaignID}/retry [post]
func (c *NewsletterController) RetryCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("campaignID")
	if campaignID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing campaignID")
		return
	}

	res, err := c.Service.RetryCampaign(r.Context(), campaignID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	c.writeResult(w, res)
}

// GetCampaign godoc
// @Summary Get a campaign
// @Description Returns the campaign record with its status and counters.
// @Tags newsletter
// @Produce json
// @Security BearerAuth
// @Param campaignID path string true "Campaign ID"
// @Success 200 {object} controllers.CampaignSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /newsletter/campaigns/{campaignID} [get]
func (c *NewsletterController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := c.Service.GetCampaign(r.Context(), r.PathValue("campaignID"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, campaign)
}

// ListCampaigns godoc
// @Summary List campaigns
// @Description Lists campaigns newest first, optionally filtered by status.
// @Tags newsletter
// @Produce json
// @Security BearerAuth
// @Param status query string false "scheduled, sending, completed or failed"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.CampaignListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /newsletter/campaigns [get]
func (c *NewsletterController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page := helpers.ParsePagination(r)
	status := domain.CampaignStatus(r.URL.Query().Get("status"))

	items, total, err := c.Service.ListCampaigns(r.Context(), status, page)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, &CampaignListData{
		Items:      items,
		Pagination: helpers.NewPaginationMeta(page.Page, page.PageSize, total),
	})
}

// QueueStatus godoc
// @Summary Dispatch queue status
// @Description Returns queue depth, per-campaign pending jobs and rate limiter counters.
// @Tags newsletter
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.QueueStatusSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /newsletter/queue [get]
func (c *NewsletterController) QueueStatus(w http.ResponseWriter, r *http.Request) {
	status := c.Service.GetQueueStatus()
	helpers.WriteJSONSuccess(w, http.StatusOK, &status)
}

// ProcessScheduled godoc
// @Summary Start due scheduled campaigns
// @Description Runs one scheduler sweep on demand.
// @Tags newsletter
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ProcessScheduledSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /newsletter/scheduled/process [post]
func (c *NewsletterController) ProcessScheduled(w http.ResponseWriter, r *http.Request) {
	n, err := c.Service.ProcessDueScheduledCampaigns(r.Context())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "scheduled sweep failed", "started", n, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "some scheduled campaigns could not be started")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, &ProcessScheduledData{Started: n})
}

var unsubscribedPage = template.Must(template.New("unsubscribed").Parse(`<!DOCTYPE html>
<html lang="en"><head><meta charset="UTF-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"><title>{{.}}</title></head>
<body style="font-family: Arial, Helvetica, sans-serif; text-align: center; padding: 48px;"><p>{{.}}</p></body></html>`))

// Unsubscribe godoc
// @Summary Unsubscribe from the newsletter
// @Description One-click unsubscribe target from the List-Unsubscribe header. POST answers with JSON; GET renders a confirmation page.
// @Tags newsletter
// @Produce json
// @Produce html
// @Param token query string true "Unsubscribe token"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /newsletter/unsubscribe [post]
// @Router /newsletter/unsubscribe [get]
func (c *NewsletterController) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	err := c.Service.Unsubscribe(r.Context(), token)

	if r.Method == http.MethodGet {
		status, msg := http.StatusOK, "You have been unsubscribed."
		switch {
		case errors.Is(err, domain.ErrInvalidToken):
			status, msg = http.StatusBadRequest, "This unsubscribe link is invalid."
		case err != nil:
			c.Logger.ErrorContext(r.Context(), "unsubscribe failed", "err", err)
			status, msg = http.StatusInternalServerError, "Something went wrong. Please try again later."
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = unsubscribedPage.Execute(w, msg)
		return
	}

	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid unsubscribe token")
			return
		}
		c.writeError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]bool{"unsubscribed": true})
}

func (c *NewsletterController) writeResult(w http.ResponseWriter, res *domain.SendCampaignResult) {
	if !res.Accepted {
		helpers.WriteJSONError(w, http.StatusUnprocessableEntity, helpers.ErrCodeRejected, res.Message)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusAccepted, res)
}

func (c *NewsletterController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "campaign not found")
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrCampaignBusy):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
	}
}
