package auth

import (
	"context"
	"errors"
	"fmt"

	"agrisite-api/internal/data"
)

var (
	// ErrUnknownUser is the denial reason when a token's identity no longer maps to a user.
	ErrUnknownUser = errors.New("user not found")
	// ErrNotAdmin is the denial reason when the user lacks the administrator flag.
	ErrNotAdmin = errors.New("admin access required")
)

// UserFinder looks up users by ID.
type UserFinder interface {
	GetByID(ctx context.Context, id int64) (*data.User, error)
}

// Decision is the outcome of an admin check. A nil Reason means the caller is authorized.
// User is set whenever the identity resolved to an account.
type Decision struct {
	User   *data.User
	Reason error
}

// Authorized reports whether the decision grants administrator access.
func (d Decision) Authorized() bool { return d.Reason == nil }

// Gate decides whether an authenticated identity holds administrator privilege.
type Gate struct {
	users UserFinder
}

// NewGate creates a Gate backed by the given user lookup.
func NewGate(users UserFinder) *Gate {
	return &Gate{users: users}
}

// RequireAdmin resolves userID and checks its administrator flag.
func (g *Gate) RequireAdmin(ctx context.Context, userID int64) Decision {
	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return Decision{Reason: ErrUnknownUser}
		}
		return Decision{Reason: fmt.Errorf("failed to resolve user: %w", err)}
	}
	if !user.IsAdmin {
		return Decision{User: user, Reason: ErrNotAdmin}
	}
	return Decision{User: user}
}
