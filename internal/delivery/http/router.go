package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"newsletterdispatch/internal/delivery/http/controllers"
	"newsletterdispatch/internal/delivery/http/middleware"
	"newsletterdispatch/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(newsletter *controllers.NewsletterController, verifier domain.TokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	admin := middleware.RequireAuth(verifier, logger)

	// Admin
	mux.HandleFunc("POST /newsletter/campaigns", admin(newsletter.SendCampaign))
	mux.HandleFunc("GET /newsletter/campaigns", admin(newsletter.ListCampaigns))
	mux.HandleFunc("GET /newsletter/campaigns/{campaignID}", admin(newsletter.GetCampaign))
	mux.HandleFunc("POST /newsletter/campaigns/{campaignID}/retry", admin(newsletter.RetryCampaign))
	mux.HandleFunc("GET /newsletter/queue", admin(newsletter.QueueStatus))
	mux.HandleFunc("POST /newsletter/scheduled/process", admin(newsletter.ProcessScheduled))

	// Public, linked from every newsletter
	mux.HandleFunc("GET /newsletter/unsubscribe", newsletter.Unsubscribe)
	mux.HandleFunc("POST /newsletter/unsubscribe", newsletter.Unsubscribe)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
