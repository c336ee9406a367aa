package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"agrisite-api/internal/auth"
	"agrisite-api/internal/logger"
)

// TokenParser validates bearer tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// AdminGate resolves whether a user holds administrator privilege.
type AdminGate interface {
	RequireAdmin(ctx context.Context, userID int64) auth.Decision
}

// Enforcer makes casbin policy decisions.
type Enforcer interface {
	Enforce(rvals ...interface{}) (bool, error)
}

// Authenticate reads an optional bearer token. Requests without a token continue as
// guests; a token that is present but invalid or expired is rejected with 401.
func Authenticate(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userInfo := &UserInfo{Subject: auth.RoleGuest}

			header := r.Header.Get("Authorization")
			if header != "" {
				scheme, token, ok := strings.Cut(header, " ")
				if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
					WriteError(w, http.StatusUnauthorized, "Invalid authorization header")
					return
				}
				claims, err := tokens.Parse(strings.TrimSpace(token))
				if err != nil {
					WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
					return
				}
				id, err := claims.UserID()
				if err != nil {
					WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
					return
				}
				userInfo.UserID = id
			}

			next.ServeHTTP(w, r.WithContext(SetUserInfo(r.Context(), userInfo)))
		})
	}
}

// Authorizer creates a new middleware for authorization. The admin gate maps the
// authenticated identity to a role, and casbin checks the role against the request
// path and method. Denied guests get 401, denied users get 403.
func Authorizer(e Enforcer, gate AdminGate, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userInfo := GetUserInfo(r.Context())

			if userInfo.Authenticated() {
				decision := gate.RequireAdmin(r.Context(), userInfo.UserID)
				switch {
				case decision.Authorized():
					userInfo.Subject = auth.RoleAdmin
					userInfo.IsAdmin = true
				case errors.Is(decision.Reason, auth.ErrNotAdmin), errors.Is(decision.Reason, auth.ErrUnknownUser):
					userInfo.Subject = auth.RoleUser
				default:
					log.Error(decision.Reason, "Failed to resolve user role")
					WriteError(w, http.StatusInternalServerError, "Internal server error")
					return
				}
			}

			allowed, err := e.Enforce(userInfo.Subject, r.URL.Path, r.Method)
			if err != nil {
				log.Error(err, "Authorization error")
				WriteError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			if !allowed {
				if !userInfo.Authenticated() {
					WriteError(w, http.StatusUnauthorized, "Authentication required")
					return
				}
				WriteError(w, http.StatusForbidden, "Admin access required")
				return
			}

			next.ServeHTTP(w, r.WithContext(SetUserInfo(r.Context(), userInfo)))
		})
	}
}
