// Package notes exposes note CRUD and search over HTTP. Every endpoint
// requires an authenticated user and only touches that user's notes.
package notes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notenibblers/notenibblers/pkg/notes"
)

// RouterOptions configures the notes module.
type RouterOptions struct {
	Service *notes.Service
	Auth    func(http.Handler) http.Handler
}

// Router mounts the notes endpoints.
func Router(opts RouterOptions) chi.Router {
	if opts.Service == nil {
		panic("notes module: service is required")
	}
	if opts.Auth == nil {
		panic("notes module: auth middleware is required")
	}
	h := &handlers{svc: opts.Service}

	r := chi.NewRouter()
	r.Use(opts.Auth)
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/search", h.search)
	r.Get("/{noteID}", h.get)
	r.Put("/{noteID}", h.update)
	r.Delete("/{noteID}", h.remove)
	return r
}
