package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// TokenRepo persists refresh tokens by their sha256 hash.
type TokenRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *TokenRepo) Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)", userID, tokenHash, exp)
	return err
}

// Validate returns the owner of a live token.  Revoked, expired and
// unknown tokens all report model.ErrNotFound.
func (r *TokenRepo) Validate(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		t       model.RefreshToken
		revoked sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = ? LIMIT 1", tokenHash).
		Scan(&t.ID, &t.UserID, &t.ExpiresAt, &revoked)
	if err != nil {
		return 0, notFound(err)
	}
	if revoked.Valid || r.now().After(t.ExpiresAt) {
		return 0, model.ErrNotFound
	}
	return t.UserID, nil
}

func (r *TokenRepo) Revoke(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL", r.now(), tokenHash)
	return err
}

func (r *TokenRepo) RevokeAll(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL", r.now(), userID)
	return err
}
