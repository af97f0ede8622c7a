// Package quiz exposes document extraction, quiz generation and answer
// grading over HTTP. Every endpoint requires an authenticated user.
package quiz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notenibblers/notenibblers/pkg/quiz"
)

// RouterOptions configures the quiz module.
type RouterOptions struct {
	Service *quiz.Service
	Auth    func(http.Handler) http.Handler
	Logger  *slog.Logger
}

// Router mounts the quiz endpoints.
func Router(opts RouterOptions) chi.Router {
	if opts.Service == nil {
		panic("quiz module: service is required")
	}
	if opts.Auth == nil {
		panic("quiz module: auth middleware is required")
	}
	h := &handlers{svc: opts.Service, log: opts.Logger}
	if h.log == nil {
		h.log = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(opts.Auth)
	r.Post("/extract", h.extract)
	r.Post("/generate", h.generate)
	r.Post("/answer", h.answer)
	r.Get("/{quizID}", h.getQuiz)
	return r
}
