package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	id "taxtrail/pkg/domain"
	"taxtrail/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns the accountant it
// belongs to.
type TokenValidator interface {
	ExtractAccountantID(tokenString string) (uuid.UUID, error)
}

// RequireAuth rejects requests without a valid bearer token and installs the
// authenticated accountant ID into the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			accountantUUID, err := validator.ExtractAccountantID(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithAccountantID(ctx, id.AccountantID(accountantUUID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
