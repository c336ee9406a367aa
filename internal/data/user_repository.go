package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrDuplicate is returned when an insert violates a unique username or email.
	ErrDuplicate = errors.New("duplicate record")
	// ErrAdminLimit is returned by CreateAdmin when the administrator cap is already reached.
	ErrAdminLimit = errors.New("administrator limit reached")
)

// UserRepository handles database operations for user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, is_admin, created_at`

// Create inserts a new user and sets its ID.
func (r *UserRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (username, email, password_hash, is_admin, created_at)
		VALUES (:username, :email, :password_hash, :is_admin, :created_at)`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return insertError(err)
	}
	return setInsertedID(res, user)
}

// CreateAdmin inserts an administrator only while fewer than limit administrators
// exist. The count and the insert are one statement, so concurrent registrations
// cannot both pass the check.
func (r *UserRepository) CreateAdmin(ctx context.Context, user *User, limit int) error {
	from := ""
	if r.db.DriverName() == "mysql" {
		from = " FROM DUAL"
	}
	query := `INSERT INTO users (username, email, password_hash, is_admin, created_at)
		SELECT ?, ?, ?, ?, ?` + from + `
		WHERE (SELECT COUNT(*) FROM users WHERE is_admin = ?) < ?`
	res, err := r.db.ExecContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, true, user.CreatedAt, true, limit)
	if err != nil {
		return insertError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrAdminLimit
	}
	user.IsAdmin = true
	return setInsertedID(res, user)
}

func setInsertedID(res sql.Result, user *User) error {
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted user id: %w", err)
	}
	user.ID = id
	return nil
}

func insertError(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return fmt.Errorf("failed to insert user: %w", err)
}

// isUniqueViolation recognizes unique constraint failures from the MySQL and SQLite drivers.
func isUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	// mattn/go-sqlite3, used in tests, reports the SQLite message verbatim.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetByID finds a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetByEmail finds a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

// GetByUsername finds a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (*User, error) {
	var user User
	if err := r.db.GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// List retrieves all users ordered by ID.
func (r *UserRepository) List(ctx context.Context) ([]*User, error) {
	users := []*User{}
	if err := r.db.SelectContext(ctx, &users, "SELECT "+userColumns+" FROM users ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CountAdmins returns the number of users with the administrator flag set.
func (r *UserRepository) CountAdmins(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users WHERE is_admin = ?", true); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return count, nil
}

// Delete removes a user by ID.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
