package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/taskhive/task-platform/shared/errors"
	"github.com/taskhive/task-platform/shared/logging"
)

// TokenVerifier validates a bearer token and yields the user id.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

type contextKey string

const userIDKey contextKey = "user_id"

// Authenticate rejects requests without a valid bearer token and stores
// the authenticated user id on the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				WriteError(w, apperrors.Unauthorized("missing bearer token"))
				return
			}

			userID, err := verifier.Verify(strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = logging.WithUserID(ctx, strconv.FormatInt(userID, 10))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id stored by Authenticate.
func UserID(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(userIDKey).(int64)
	return id, ok
}
