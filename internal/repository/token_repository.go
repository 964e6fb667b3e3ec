package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tour-booking-api/internal/model"
)

// TokenRepo persists password-reset tokens. Only the SHA-256 hex of the
// plaintext token is stored, on the users row itself.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreReset records a reset token hash and its expiry for a user.
func (r *TokenRepo) StoreReset(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_token = ?, password_reset_expires = ? WHERE id = ? AND active = 1",
		tokenHash, exp.UTC(), userID)
	if err != nil {
		return err
	}
	return notFoundIfNone(res)
}

// ClearReset removes any pending reset token of a user.
func (r *TokenRepo) ClearReset(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_token = NULL, password_reset_expires = NULL WHERE id = ?",
		userID)
	return err
}

// FindByReset returns the active user holding tokenHash if it has not
// expired at now. Otherwise ErrNotFound.
func (r *TokenRepo) FindByReset(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+` FROM users u
		 WHERE u.password_reset_token = ? AND u.password_reset_expires > ? AND `+activeUsers+" LIMIT 1",
		tokenHash, now.UTC())
	u, err := scanUser(row)
	return u, translate(err)
}
