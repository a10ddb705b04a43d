// Package admin guards provisioning endpoints with a shared operator
// key. The key is configured as a bcrypt hash so the plaintext never
// lives in the environment of the running service.
package admin

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	dErrors "safeband/pkg/domain-errors"
	"safeband/pkg/platform/httputil"
)

const keyHeader = "X-Admin-Key"

// RequireKey returns middleware that verifies the X-Admin-Key header
// against the configured bcrypt hash. An empty hash disables all admin
// endpoints rather than leaving them open.
func RequireKey(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin endpoints are not enabled"))
				return
			}
			presented := r.Header.Get(keyHeader)
			if presented == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin key is required"))
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(presented)); err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin key is not valid"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
