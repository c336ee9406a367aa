package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"agrisite-api/internal/data"
	"agrisite-api/internal/middleware"
	"agrisite-api/internal/service"

	"github.com/go-chi/chi/v5"
)

// UserServicer defines the account operations the handlers need.
type UserServicer interface {
	Register(ctx context.Context, in service.UserInput) (*data.User, error)
	CreateUser(ctx context.Context, in service.UserInput, isAdmin bool) (*data.User, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	Get(ctx context.Context, id int64) (*data.User, error)
	List(ctx context.Context) ([]*data.User, error)
	Delete(ctx context.Context, actorID, id int64) error
}

// AuthHandler holds the dependencies for the authentication and account handlers.
type AuthHandler struct {
	users   UserServicer
	maxBody int64
}

// NewAuthHandler creates a new AuthHandler. maxBody limits request bodies; zero means
// no limit.
func NewAuthHandler(users UserServicer, maxBody int64) *AuthHandler {
	return &AuthHandler{users: users, maxBody: maxBody}
}

// Mount registers the authentication and account routes.
func (h *AuthHandler) Mount(r chi.Router, wrap func(middleware.AppHandler) http.Handler) {
	r.Method(http.MethodPost, "/api/register", wrap(h.handleRegister))
	r.Method(http.MethodPost, "/api/login", wrap(h.handleLogin))
	r.Method(http.MethodGet, "/api/user", wrap(h.handleMe))
	r.Method(http.MethodGet, "/api/user/{id}", wrap(h.handleGetUser))
	r.Method(http.MethodGet, "/api/users", wrap(h.handleListUsers))
	r.Method(http.MethodPost, "/api/users", wrap(h.handleCreateUser))
	r.Method(http.MethodDelete, "/api/users/{id}", wrap(h.handleDeleteUser))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createUserRequest struct {
	service.UserInput
	IsAdmin bool `json:"is_admin"`
}

// handleRegister creates the administrator account.
func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var in service.UserInput
	if appErr := h.decodeJSON(w, r, &in); appErr != nil {
		return appErr
	}
	user, err := h.users.Register(r.Context(), in)
	if err != nil {
		return appError(err, "user")
	}
	middleware.WriteJSON(w, http.StatusCreated, user)
	return nil
}

// handleLogin exchanges an email and password for a bearer token.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req loginRequest
	if appErr := h.decodeJSON(w, r, &req); appErr != nil {
		return appErr
	}
	res, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return appError(err, "user")
	}
	middleware.WriteJSON(w, http.StatusOK, res)
	return nil
}

// handleMe returns the signed-in user.
func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	userInfo := middleware.GetUserInfo(r.Context())
	user, err := h.users.Get(r.Context(), userInfo.UserID)
	if err != nil {
		return appError(err, "user")
	}
	middleware.WriteJSON(w, http.StatusOK, user)
	return nil
}

// handleGetUser returns a user. Non-admins may only read their own account.
func (h *AuthHandler) handleGetUser(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return appError(data.ErrNotFound, "user")
	}
	userInfo := middleware.GetUserInfo(r.Context())
	if id != userInfo.UserID && !userInfo.IsAdmin {
		return &middleware.AppError{Error: errors.New("access to another user"), Message: "Access denied", Code: http.StatusForbidden}
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		return appError(err, "user")
	}
	middleware.WriteJSON(w, http.StatusOK, user)
	return nil
}

func (h *AuthHandler) handleListUsers(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	users, err := h.users.List(r.Context())
	if err != nil {
		return appError(err, "user")
	}
	middleware.WriteJSON(w, http.StatusOK, users)
	return nil
}

func (h *AuthHandler) handleCreateUser(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req createUserRequest
	if appErr := h.decodeJSON(w, r, &req); appErr != nil {
		return appErr
	}
	user, err := h.users.CreateUser(r.Context(), req.UserInput, req.IsAdmin)
	if err != nil {
		return appError(err, "user")
	}
	middleware.WriteJSON(w, http.StatusCreated, user)
	return nil
}

func (h *AuthHandler) handleDeleteUser(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return appError(data.ErrNotFound, "user")
	}
	actor := middleware.GetUserInfo(r.Context())
	if err := h.users.Delete(r.Context(), actor.UserID, id); err != nil {
		return appError(err, "user")
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
	return nil
}

// decodeJSON reads a JSON object body into v. An empty body leaves v unchanged.
func (h *AuthHandler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) *middleware.AppError {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return badRequest(err, "Request body too large")
		}
		return badRequest(err, "Invalid request body")
	}
	return nil
}
