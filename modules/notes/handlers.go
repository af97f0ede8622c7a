package notes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/notenibblers/notenibblers/pkg/jwt"
	"github.com/notenibblers/notenibblers/pkg/notes"
	"github.com/notenibblers/notenibblers/pkg/response"
)

type handlers struct {
	svc *notes.Service
}

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserID(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	out, err := h.svc.List(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	if out == nil {
		out = []notes.Note{}
	}
	response.JSON(w, http.StatusOK, out)
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserID(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	n, err := h.svc.Create(r.Context(), userID, req.Title, req.Content)
	if err != nil {
		response.Error(w, mapNotesError(err))
		return
	}
	response.JSON(w, http.StatusCreated, n)
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := noteParams(w, r)
	if !ok {
		return
	}

	n, err := h.svc.Get(r.Context(), userID, noteID)
	if err != nil {
		response.Error(w, mapNotesError(err))
		return
	}
	response.JSON(w, http.StatusOK, n)
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := noteParams(w, r)
	if !ok {
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	n, err := h.svc.Update(r.Context(), userID, noteID, req.Title, req.Content)
	if err != nil {
		response.Error(w, mapNotesError(err))
		return
	}
	response.JSON(w, http.StatusOK, n)
}

func (h *handlers) remove(w http.ResponseWriter, r *http.Request) {
	userID, noteID, ok := noteParams(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), userID, noteID); err != nil {
		response.Error(w, mapNotesError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserID(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	out, err := h.svc.Search(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		response.Error(w, err)
		return
	}
	if out == nil {
		out = []notes.Note{}
	}
	response.JSON(w, http.StatusOK, out)
}

func noteParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := jwt.UserID(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}
	noteID, err := uuid.Parse(chi.URLParam(r, "noteID"))
	if err != nil {
		response.Error(w, response.ErrBadRequest.WithMessage("invalid note id"))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, noteID, true
}

func mapNotesError(err error) error {
	switch {
	case errors.Is(err, notes.ErrNoteNotFound):
		return response.ErrNotFound
	case errors.Is(err, notes.ErrInvalidNote):
		return response.ErrBadRequest.WithMessage("title is required")
	default:
		return err
	}
}
