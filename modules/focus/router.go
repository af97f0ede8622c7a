// Package focus exposes the focus timer over HTTP.
package focus

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notenibblers/notenibblers/pkg/focus"
	"github.com/notenibblers/notenibblers/pkg/jwt"
	"github.com/notenibblers/notenibblers/pkg/response"
)

// RouterOptions configures the focus module.
type RouterOptions struct {
	Service *focus.Service
	Auth    func(http.Handler) http.Handler
}

// Router mounts the focus timer endpoints.
func Router(opts RouterOptions) chi.Router {
	if opts.Service == nil {
		panic("focus module: service is required")
	}
	if opts.Auth == nil {
		panic("focus module: auth middleware is required")
	}
	h := &handlers{svc: opts.Service}

	r := chi.NewRouter()
	r.Use(opts.Auth)
	r.Post("/", h.start)
	r.Get("/", h.get)
	r.Delete("/", h.stop)
	return r
}

type handlers struct {
	svc *focus.Service
}

type startRequest struct {
	Task    string `json:"task"`
	Minutes int    `json:"minutes"`
}

func (h *handlers) start(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserID(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	sess, err := h.svc.Start(r.Context(), userID, req.Task, req.Minutes)
	if err != nil {
		response.Error(w, mapFocusError(err))
		return
	}
	response.JSON(w, http.StatusCreated, sess)
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserID(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	sess, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		response.Error(w, mapFocusError(err))
		return
	}
	response.JSON(w, http.StatusOK, sess)
}

func (h *handlers) stop(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserID(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	if err := h.svc.Stop(r.Context(), userID); err != nil {
		response.Error(w, mapFocusError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func mapFocusError(err error) error {
	switch {
	case errors.Is(err, focus.ErrNoActiveSession):
		return response.ErrNotFound.WithMessage("no active focus session")
	case errors.Is(err, focus.ErrInvalidSession):
		return response.ErrBadRequest.WithMessage(err.Error())
	default:
		return err
	}
}
