// Package profile exposes the authenticated user's own profile: viewing it
// and deleting the account.
package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notenibblers/notenibblers/pkg/profile"
)

// RouterOptions configures the profile module.
type RouterOptions struct {
	Store profile.Store
	Auth  func(http.Handler) http.Handler
}

// Router mounts the profile endpoints.
func Router(opts RouterOptions) chi.Router {
	if opts.Store == nil {
		panic("profile module: store is required")
	}
	if opts.Auth == nil {
		panic("profile module: auth middleware is required")
	}
	h := &handlers{store: opts.Store}

	r := chi.NewRouter()
	r.Use(opts.Auth)
	r.Get("/", h.get)
	r.Delete("/", h.remove)
	return r
}
