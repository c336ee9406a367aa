//go:build unit

package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"agrisite-api/internal/auth"
	"agrisite-api/internal/data"
	"agrisite-api/internal/logger"
)

// mockUserRepository is a mock implementation of the UserRepository interface.
type mockUserRepository struct {
	users       []*data.User
	errToReturn error
	// createErr is returned by inserts only, after every lookup has succeeded.
	createErr error
}

var _ UserRepository = (*mockUserRepository)(nil)

func (m *mockUserRepository) Create(ctx context.Context, user *data.User) error {
	if m.errToReturn != nil {
		return m.errToReturn
	}
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = int64(len(m.users) + 1)
	m.users = append(m.users, user)
	return nil
}

func (m *mockUserRepository) CreateAdmin(ctx context.Context, user *data.User, limit int) error {
	if count, _ := m.CountAdmins(ctx); count >= limit {
		return data.ErrAdminLimit
	}
	return m.Create(ctx, user)
}

func (m *mockUserRepository) find(match func(*data.User) bool) (*data.User, error) {
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, data.ErrNotFound
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*data.User, error) {
	return m.find(func(u *data.User) bool { return u.ID == id })
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*data.User, error) {
	return m.find(func(u *data.User) bool { return u.Email == email })
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*data.User, error) {
	return m.find(func(u *data.User) bool { return u.Username == username })
}

func (m *mockUserRepository) List(ctx context.Context) ([]*data.User, error) {
	return m.users, m.errToReturn
}

func (m *mockUserRepository) CountAdmins(ctx context.Context) (int, error) {
	count := 0
	for _, u := range m.users {
		if u.IsAdmin {
			count++
		}
	}
	return count, m.errToReturn
}

func (m *mockUserRepository) Delete(ctx context.Context, id int64) error {
	for i, u := range m.users {
		if u.ID == id {
			m.users = append(m.users[:i], m.users[i+1:]...)
			return nil
		}
	}
	return data.ErrNotFound
}

// mockTokenIssuer returns a fixed token.
type mockTokenIssuer struct {
	issuedFor int64
}

var _ TokenIssuer = (*mockTokenIssuer)(nil)

func (m *mockTokenIssuer) Issue(userID int64) (string, time.Time, error) {
	m.issuedFor = userID
	return "token-123", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func TestUserService_Register(t *testing.T) {
	t.Run("first admin", func(t *testing.T) {
		repo := &mockUserRepository{}
		svc := NewUserService(repo, &mockTokenIssuer{}, 1, logger.Nop())

		user, err := svc.Register(context.Background(), UserInput{Username: "admin", Email: "a@b.com", Password: "secret"})
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if !user.IsAdmin || user.ID == 0 {
			t.Errorf("unexpected user: %+v", user)
		}
		if user.PasswordHash == "secret" || !auth.CheckPassword(user.PasswordHash, "secret") {
			t.Error("expected password to be stored as a bcrypt hash")
		}
	})

	t.Run("second admin is a conflict", func(t *testing.T) {
		repo := &mockUserRepository{users: []*data.User{{ID: 1, Username: "admin", Email: "a@b.com", IsAdmin: true}}}
		svc := NewUserService(repo, &mockTokenIssuer{}, 1, logger.Nop())

		_, err := svc.Register(context.Background(), UserInput{Username: "other", Email: "o@b.com", Password: "secret"})
		var cerr *ConflictError
		if !errors.As(err, &cerr) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if cerr.Message != "Admin already exists" {
			t.Errorf("unexpected message %q", cerr.Message)
		}
		if len(repo.users) != 1 {
			t.Error("expected no user to be created")
		}
	})

	t.Run("unlimited admins", func(t *testing.T) {
		repo := &mockUserRepository{users: []*data.User{{ID: 1, Username: "admin", Email: "a@b.com", IsAdmin: true}}}
		svc := NewUserService(repo, &mockTokenIssuer{}, 0, logger.Nop())

		if _, err := svc.Register(context.Background(), UserInput{Username: "other", Email: "o@b.com", Password: "secret"}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	})

	t.Run("missing field", func(t *testing.T) {
		svc := NewUserService(&mockUserRepository{}, &mockTokenIssuer{}, 1, logger.Nop())

		_, err := svc.Register(context.Background(), UserInput{Username: "admin", Password: "secret"})
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "email" {
			t.Fatalf("expected ValidationError for email, got %v", err)
		}
	})
}

func TestUserService_CreateUser(t *testing.T) {
	repo := &mockUserRepository{users: []*data.User{{ID: 1, Username: "admin", Email: "a@b.com", IsAdmin: true}}}
	svc := NewUserService(repo, &mockTokenIssuer{}, 1, logger.Nop())
	ctx := context.Background()

	editor, err := svc.CreateUser(ctx, UserInput{Username: "editor", Email: "e@b.com", Password: "pw"}, false)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if editor.IsAdmin {
		t.Error("expected a regular user")
	}

	testCases := []struct {
		name  string
		input UserInput
		want  string
	}{
		{"duplicate username", UserInput{Username: "editor", Email: "x@b.com", Password: "pw"}, "Username already exists"},
		{"duplicate email", UserInput{Username: "other", Email: "e@b.com", Password: "pw"}, "Email already exists"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, tc.input, false)
			var cerr *ConflictError
			if !errors.As(err, &cerr) || cerr.Message != tc.want {
				t.Errorf("expected conflict %q, got %v", tc.want, err)
			}
		})
	}
}

func TestUserService_InsertConflicts(t *testing.T) {
	testCases := []struct {
		name      string
		isAdmin   bool
		createErr error
		want      string
	}{
		{"admin limit reached at insert", true, data.ErrAdminLimit, "Admin already exists"},
		{"duplicate at insert", false, fmt.Errorf("%w: UNIQUE constraint failed: users.email", data.ErrDuplicate), "User already exists"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockUserRepository{createErr: tc.createErr}
			svc := NewUserService(repo, &mockTokenIssuer{}, 1, logger.Nop())

			_, err := svc.CreateUser(context.Background(), UserInput{Username: "late", Email: "late@b.com", Password: "pw"}, tc.isAdmin)
			var cerr *ConflictError
			if !errors.As(err, &cerr) || cerr.Message != tc.want {
				t.Errorf("expected conflict %q, got %v", tc.want, err)
			}
		})
	}

	t.Run("storage failure at insert", func(t *testing.T) {
		repo := &mockUserRepository{createErr: errors.New("disk full")}
		svc := NewUserService(repo, &mockTokenIssuer{}, 1, logger.Nop())

		_, err := svc.CreateUser(context.Background(), UserInput{Username: "late", Email: "late@b.com", Password: "pw"}, false)
		var cerr *ConflictError
		if err == nil || errors.As(err, &cerr) {
			t.Errorf("expected a plain storage error, got %v", err)
		}
	})
}

func TestUserService_Login(t *testing.T) {
	hash, err := auth.HashPassword("right")
	if err != nil {
		t.Fatal(err)
	}
	repo := &mockUserRepository{users: []*data.User{{ID: 3, Username: "admin", Email: "a@b.com", PasswordHash: hash, IsAdmin: true}}}
	tokens := &mockTokenIssuer{}
	svc := NewUserService(repo, tokens, 1, logger.Nop())
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		res, err := svc.Login(ctx, "a@b.com", "right")
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if res.AccessToken != "token-123" || res.TokenType != "Bearer" || res.User.ID != 3 {
			t.Errorf("unexpected login result: %+v", res)
		}
		if tokens.issuedFor != 3 {
			t.Errorf("expected token for user 3, got %d", tokens.issuedFor)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := svc.Login(ctx, "a@b.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		if _, err := svc.Login(ctx, "nobody@b.com", "right"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("storage failure", func(t *testing.T) {
		failing := NewUserService(&mockUserRepository{errToReturn: errors.New("db down")}, tokens, 1, logger.Nop())
		_, err := failing.Login(ctx, "a@b.com", "right")
		if err == nil || errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected storage error, got %v", err)
		}
	})
}

func TestUserService_Delete(t *testing.T) {
	repo := &mockUserRepository{users: []*data.User{
		{ID: 1, Username: "admin", Email: "a@b.com", IsAdmin: true},
		{ID: 2, Username: "editor", Email: "e@b.com"},
	}}
	svc := NewUserService(repo, &mockTokenIssuer{}, 1, logger.Nop())
	ctx := context.Background()

	var cerr *ConflictError
	if err := svc.Delete(ctx, 1, 1); !errors.As(err, &cerr) {
		t.Errorf("expected ConflictError when deleting self, got %v", err)
	}
	if err := svc.Delete(ctx, 1, 2); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := svc.Delete(ctx, 1, 2); !errors.Is(err, data.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
