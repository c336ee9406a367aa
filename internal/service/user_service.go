package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"agrisite-api/internal/auth"
	"agrisite-api/internal/data"
	"agrisite-api/internal/logger"
)

// UserRepository defines the database operations on user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *data.User) error
	CreateAdmin(ctx context.Context, user *data.User, limit int) error
	GetByID(ctx context.Context, id int64) (*data.User, error)
	GetByEmail(ctx context.Context, email string) (*data.User, error)
	GetByUsername(ctx context.Context, username string) (*data.User, error)
	List(ctx context.Context) ([]*data.User, error)
	CountAdmins(ctx context.Context) (int, error)
	Delete(ctx context.Context, id int64) error
}

// TokenIssuer signs access tokens for a user ID.
type TokenIssuer interface {
	Issue(userID int64) (string, time.Time, error)
}

// UserInput carries the fields needed to create an account.
type UserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        *data.User `json:"user"`
}

// UserService handles registration, login and account management.
type UserService struct {
	repo      UserRepository
	tokens    TokenIssuer
	maxAdmins int
	log       logger.Logger
	now       func() time.Time
}

// NewUserService creates a UserService. maxAdmins caps the number of administrator
// accounts; zero means unlimited.
func NewUserService(repo UserRepository, tokens TokenIssuer, maxAdmins int, log logger.Logger) *UserService {
	return &UserService{
		repo:      repo,
		tokens:    tokens,
		maxAdmins: maxAdmins,
		log:       log,
		now:       time.Now,
	}
}

// Register creates an administrator account.
func (s *UserService) Register(ctx context.Context, in UserInput) (*data.User, error) {
	return s.CreateUser(ctx, in, true)
}

// CreateUser validates the input and stores a new account with a hashed password.
func (s *UserService) CreateUser(ctx context.Context, in UserInput, isAdmin bool) (*data.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	switch {
	case in.Username == "":
		return nil, missingField("username")
	case in.Email == "":
		return nil, missingField("email")
	case in.Password == "":
		return nil, missingField("password")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, invalidField("email")
	}

	if isAdmin && s.maxAdmins > 0 {
		count, err := s.repo.CountAdmins(ctx)
		if err != nil {
			return nil, err
		}
		if count >= s.maxAdmins {
			return nil, &ConflictError{Message: "Admin already exists"}
		}
	}
	if err := s.ensureUnique(ctx, in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &data.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.insert(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info(fmt.Sprintf("Created user %s (admin: %t)", user.Username, user.IsAdmin))
	return user, nil
}

// insert stores the user. The administrator cap and uniqueness are enforced again by
// the database, since concurrent requests can all pass the earlier checks.
func (s *UserService) insert(ctx context.Context, user *data.User) error {
	var err error
	if user.IsAdmin && s.maxAdmins > 0 {
		err = s.repo.CreateAdmin(ctx, user, s.maxAdmins)
	} else {
		err = s.repo.Create(ctx, user)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, data.ErrAdminLimit):
		return &ConflictError{Message: "Admin already exists"}
	case errors.Is(err, data.ErrDuplicate):
		if uerr := s.ensureUnique(ctx, UserInput{Username: user.Username, Email: user.Email}); uerr != nil {
			return uerr
		}
		return &ConflictError{Message: "User already exists"}
	default:
		return err
	}
}

func (s *UserService) ensureUnique(ctx context.Context, in UserInput) error {
	if _, err := s.repo.GetByUsername(ctx, in.Username); err == nil {
		return &ConflictError{Message: "Username already exists"}
	} else if !errors.Is(err, data.ErrNotFound) {
		return err
	}
	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return &ConflictError{Message: "Email already exists"}
	} else if !errors.Is(err, data.ErrNotFound) {
		return err
	}
	return nil
}

// Login checks the credentials and issues an access token.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id int64) (*data.User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]*data.User, error) {
	return s.repo.List(ctx)
}

// Delete removes the account id on behalf of actorID. Users cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return &ConflictError{Message: "cannot delete your own account"}
	}
	return s.repo.Delete(ctx, id)
}
