// Package auth validates caregiver bearer tokens and places the
// authenticated user ID in the request context.
package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "safeband/pkg/domain"
	dErrors "safeband/pkg/domain-errors"
	"safeband/pkg/platform/httputil"
	"safeband/pkg/requestcontext"
)

// Bearer returns middleware that requires a valid HS256 bearer token.
// The token subject must be the caregiver's user UUID.
func Bearer(signingKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := userFromRequest(r, signingKey)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			ctx := requestcontext.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userFromRequest(r *http.Request, signingKey string) (id.UserID, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "authorization header is required")
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "authorization header must use the Bearer scheme")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return []byte(signingKey), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "token subject is missing")
	}
	userID, err := id.ParseUserID(subject)
	if err != nil {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "token subject is not a valid user id")
	}
	return userID, nil
}
