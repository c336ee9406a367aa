package middleware

import (
	"context"

	"agrisite-api/internal/auth"
)

// contextKey defines a custom type for context keys to avoid collisions.
type contextKey string

const userContextKey = contextKey("user")

// UserInfo represents the caller identity stored in the request context.
type UserInfo struct {
	// Subject is the casbin role the request is authorized as.
	Subject string
	// UserID is the identity carried by the bearer token, or 0 for guests.
	UserID int64
	// IsAdmin is set once the admin gate has resolved the user.
	IsAdmin bool
}

// Authenticated reports whether the request carried a valid bearer token.
func (u *UserInfo) Authenticated() bool { return u.UserID != 0 }

// GetUserInfo retrieves the user information from the request context.
func GetUserInfo(ctx context.Context) *UserInfo {
	if userInfo, ok := ctx.Value(userContextKey).(*UserInfo); ok {
		return userInfo
	}
	// Return a guest if no user info is found in the context.
	return &UserInfo{Subject: auth.RoleGuest}
}

// SetUserInfo adds the user information to the request context.
func SetUserInfo(ctx context.Context, userInfo *UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, userInfo)
}
