package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// UserRepo stores accounts for the JWT auth endpoints.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = "id, email, password_hash, role, is_active, created_at, updated_at"

func normaliseEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	if err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts an account with an already hashed password.  A taken
// email yields model.ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash, role string) (*model.User, error) {
	email = normaliseEmail(email)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)", email, passwordHash, role)
	if err != nil {
		if isDuplicate(err) {
			return nil, model.ErrDuplicate
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ? LIMIT 1", normaliseEmail(email)))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// EnsureAdmin creates the bootstrap admin account unless the email is
// already registered.  It reports whether a row was inserted.
func (r *UserRepo) EnsureAdmin(ctx context.Context, email, passwordHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT IGNORE INTO users (email, password_hash, role) VALUES (?, ?, ?)",
		normaliseEmail(email), passwordHash, model.RoleAdmin)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
