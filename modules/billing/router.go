// Package billing exposes the subscription lifecycle over HTTP: plan
// listing, checkout, cancellation, subscription state and the provider
// webhook endpoint.
package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notenibblers/notenibblers/pkg/billing"
)

// RouterOptions configures the billing module.
type RouterOptions struct {
	Service *billing.Service
	// Auth guards the user-facing endpoints. Plans and the provider
	// webhook stay public: the webhook authenticates by signature.
	Auth   func(http.Handler) http.Handler
	Logger *slog.Logger
}

// Router mounts the billing endpoints.
func Router(opts RouterOptions) chi.Router {
	if opts.Service == nil {
		panic("billing module: service is required")
	}
	if opts.Auth == nil {
		panic("billing module: auth middleware is required")
	}
	h := &handlers{svc: opts.Service, log: opts.Logger}
	if h.log == nil {
		h.log = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Get("/plans", h.listPlans)
	r.Post("/webhook", h.webhook)

	r.Group(func(r chi.Router) {
		r.Use(opts.Auth)
		r.Get("/subscription", h.getSubscription)
		r.Post("/checkout", h.startCheckout)
		r.Get("/checkout/qr", h.checkoutQR)
		r.Post("/cancel", h.cancelSubscription)
	})
	return r
}
