package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/directory"
	"perfeval/internal/domain/identity"
	"perfeval/internal/transport/http/api"
)

type ctxKey string

const (
	ctxKeyUser      ctxKey = "user"
	ctxKeyAuthError ctxKey = "auth_error"
)

// Auth verifies a bearer token when one is present. Requests without a
// valid token continue unauthenticated; RequireAuth rejects them.
func Auth(secret, issuer string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
			if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, issuer, strings.TrimSpace(token))
			if err != nil {
				ctx := context.WithValue(r.Context(), ctxKeyAuthError, err)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, auth.UserContext{UserID: claims.UserID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}

// WithUser attaches an authenticated user to ctx.
func WithUser(ctx context.Context, user auth.UserContext) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			message := "authentication required"
			if err, _ := r.Context().Value(ctxKeyAuthError).(error); errors.Is(err, auth.ErrTokenExpired) {
				message = "session expired"
			}
			api.Fail(w, http.StatusUnauthorized, "unauthorized", message, GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type PrincipalResolver interface {
	Resolve(ctx context.Context, principalID string) (identity.Principal, error)
}

// ResolvePrincipal builds the identity.Principal for the authenticated user
// from a fresh directory read and stores it on the request context.
func ResolvePrincipal(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			principal, err := resolver.Resolve(r.Context(), user.UserID)
			if err != nil {
				if errors.Is(err, directory.ErrUnavailable) {
					api.Unavailable(w, 5, "employee directory unavailable", GetRequestID(r.Context()))
					return
				}
				api.Fail(w, http.StatusInternalServerError, "identity_failed", "failed to resolve identity", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), principal)))
		})
	}
}
