package middleware

import (
	"context"
	"net/http"

	"github.com/oklog/ulid/v2"
)

type requestIDKey struct{}

// RequestIDHeader is the HTTP header for the request ID.
const RequestIDHeader = "X-Request-ID"

// RequestID injects a request ID into the context. An incoming X-Request-ID
// header is honoured; otherwise a new ULID is generated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = ulid.Make().String()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
