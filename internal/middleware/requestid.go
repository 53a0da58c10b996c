package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mihaisavezi/llmpanel/internal/executor"
)

const RequestIDHeader = "X-Request-ID"

// NewRequestIDMiddleware tags each request with an id, reusing the client's
// X-Request-ID when present, and exposes it to the executor's logs.
func NewRequestIDMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, id)

			next.ServeHTTP(w, r.WithContext(executor.WithRequestID(r.Context(), id)))
		})
	}
}
