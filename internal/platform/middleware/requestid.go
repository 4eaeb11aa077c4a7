package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"tradeledger/pkg/requestcontext"
)

const requestIDHeader = "X-Request-Id"

// RequestID propagates the inbound request id, or mints one, and echoes it on
// the response. Handlers and services read it through requestcontext.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
