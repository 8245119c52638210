// Package requesttime fixes "now" for the whole request. The registry reads it
// as the ledger clock, so every admission in a request shares one timestamp.
package requesttime

import (
	"net/http"
	"time"

	"ledgerreg/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
