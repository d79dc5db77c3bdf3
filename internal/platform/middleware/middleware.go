package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"taxtrail/pkg/requestcontext"
)

// RequestIDHeader is the correlation header read from, and echoed to, the
// caller.
const RequestIDHeader = "X-Request-Id"

// RequestID puts a correlation ID on every request. Client-supplied IDs are
// reused so traces span services.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), requestID)))
	})
}

// RequestTime freezes a single timestamp per request so every status
// computation in one call sees the same clock.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), time.Now())))
	})
}
