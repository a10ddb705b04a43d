// Package requesttime pins a single timestamp per request so every
// store write within one request observes the same time.
package requesttime

import (
	"net/http"
	"time"

	"safeband/pkg/requestcontext"
)

// RequestTime injects time.Now() into the context once per request.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
