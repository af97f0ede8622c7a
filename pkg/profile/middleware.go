package profile

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/notenibblers/notenibblers/pkg/jwt"
)

// EnsureMiddleware creates the profile row on a user's first authenticated
// request. It runs after the JWT middleware and upserts a free-role profile
// from the verified claims, so every downstream handler can rely on the
// profile existing. Requests without claims pass through untouched; the JWT
// middleware is the authentication gate.
func EnsureMiddleware(store Store, log *slog.Logger) func(next http.Handler) http.Handler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := jwt.GetClaims(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if _, err := store.Ensure(r.Context(), userID, claims.Email, ""); err != nil {
				log.ErrorContext(r.Context(), "failed to ensure profile",
					slog.String("user_id", userID.String()), slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
