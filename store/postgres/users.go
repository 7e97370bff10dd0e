package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/dbx"
)

const pgErrUniqueViolation = "23505"

// Users implements authcore.UserRepository over the users table.
type Users struct {
	db dbx.DBTX
}

var _ authcore.UserRepository = (*Users)(nil)

func NewUsers(db dbx.DBTX) *Users {
	return &Users{db: db}
}

const userColumns = `id, email, username, name, coalesce(unique_id, ''), function, role,
		password_hash, mfa_enabled, created_by, created_at`

func (r *Users) FindByEmailOrUsername(ctx context.Context, identifier string) (*authcore.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE lower(email) = lower($1) OR username = $1
		ORDER BY (lower(email) = lower($1)) DESC
		LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, identifier))
}

func (r *Users) FindByEmail(ctx context.Context, email string) (*authcore.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *Users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`, email)
}

func (r *Users) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
}

func (r *Users) ExistsByUniqueID(ctx context.Context, uniqueID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE unique_id = $1)`, uniqueID)
}

// Create inserts the user and maps unique violations to
// *authcore.DuplicateError.
func (r *Users) Create(ctx context.Context, nu authcore.NewUser) (string, error) {
	query := `INSERT INTO users (id, email, username, name, unique_id, function, role, password_hash, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	var id string
	err := r.db.QueryRowContext(ctx, query,
		uuid.NewString(), nu.Email, nu.Username, nu.Name, nullIfEmpty(nu.UniqueID),
		nu.Function, nu.Role, nu.PasswordHash, nu.CreatedBy,
	).Scan(&id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return "", &authcore.DuplicateError{Field: duplicateField(pgErr.ConstraintName)}
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *Users) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	return r.updateOne(ctx, `UPDATE users SET password_hash = $2 WHERE lower(email) = lower($1)`, email, hash)
}

func (r *Users) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	return r.updateOne(ctx, `UPDATE users SET mfa_enabled = $2 WHERE id = $1`, userID, enabled)
}

func (r *Users) scanOne(row *sql.Row) (*authcore.User, error) {
	u := &authcore.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Name, &u.UniqueID, &u.Function, &u.Role,
		&u.PasswordHash, &u.MFAEnabled, &u.CreatedBy, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authcore.ErrAccountNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *Users) exists(ctx context.Context, query string, arg string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *Users) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return authcore.ErrAccountNotFound
	}
	return nil
}

func duplicateField(constraint string) string {
	switch {
	case strings.Contains(constraint, "username"):
		return "username"
	case strings.Contains(constraint, "unique_id"):
		return "unique_id"
	default:
		return "email"
	}
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
