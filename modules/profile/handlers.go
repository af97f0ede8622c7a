package profile

import (
	"errors"
	"net/http"
	"time"

	"github.com/notenibblers/notenibblers/pkg/jwt"
	"github.com/notenibblers/notenibblers/pkg/profile"
	"github.com/notenibblers/notenibblers/pkg/response"
)

type handlers struct {
	store profile.Store
}

type profileView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserID(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	p, err := h.store.Get(r.Context(), userID)
	if err != nil {
		response.Error(w, mapProfileError(err))
		return
	}
	response.JSON(w, http.StatusOK, profileView{
		ID:        p.ID.String(),
		Email:     p.Email,
		FullName:  p.FullName,
		Role:      string(p.Role),
		CreatedAt: p.CreatedAt,
	})
}

// remove deletes the account's profile row; subscription data goes with it.
// The identity provider removes the auth record through its own
// account-deletion flow.
func (h *handlers) remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserID(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	if err := h.store.Delete(r.Context(), userID); err != nil {
		response.Error(w, mapProfileError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func mapProfileError(err error) error {
	if errors.Is(err, profile.ErrNotFound) {
		return response.ErrNotFound
	}
	return err
}
