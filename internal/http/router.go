package httpx

import (
	"net/http"
	"time"

	"payrelay/internal/config"
	"payrelay/internal/http/handlers"
	middlewarex "payrelay/internal/http/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDependencies holds all dependencies for the HTTP router
type RouterDependencies struct {
	Config   config.Cfg
	Payments handlers.PaymentService
	Webhooks handlers.WebhookIngester
	Events   handlers.EventReplayer
	Gatherer prometheus.Gatherer
}

// NewRouter creates the HTTP router
func NewRouter(deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	// Admin routes (protected by admin token)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middlewarex.BearerAuth(deps.Config.Sec.AdminToken))
		r.Post("/events/replay", handlers.ReplayEvents(deps.Events))
	})

	// API routes (protected by service token)
	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(middlewarex.BearerAuth(deps.Config.Sec.ServiceToken))
		r.Post("/initiate", handlers.InitiatePayment(deps.Payments))
		r.Get("/verify/{reference}", handlers.VerifyPayment(deps.Payments))
		r.Get("/order/{orderId}", handlers.GetPaymentByOrder(deps.Payments))
		r.Get("/{id}", handlers.GetPayment(deps.Payments))
	})

	// Webhooks are public; the signature authenticates them
	r.Post("/webhooks/paystack", handlers.PaystackWebhook(deps.Webhooks))

	return r
}
