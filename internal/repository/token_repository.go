package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/servicedeskai/helpdesk/internal/utils"
)

// TokenRepo persists refresh tokens in the 'refresh_tokens' table. Rows are
// keyed by the SHA-256 digest of the raw token value; the raw value only
// ever travels to the client. A row is one still-valid exchange right:
// spending or revoking it deletes the row outright.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Issue generates a fresh random refresh token for a user, persists its
// digest with the given TTL in days, and returns the raw value and expiry.
func (r *TokenRepo) Issue(ctx context.Context, userID uint64, ttlDays int) (raw string, exp time.Time, err error) {
	tok, err := utils.NewRefreshToken(ttlDays)
	if err != nil {
		return "", time.Time{}, err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, utils.HashRefreshRaw(tok.Raw), tok.Exp)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok.Raw, tok.Exp, nil
}

// Consume returns the owning user id if a non-expired row exists for the
// presented raw token. Missing and expired rows are indistinguishable to
// the caller. The row is NOT deleted here; lookup stays idempotent and the
// rotation discipline lives in the auth service.
func (r *TokenRepo) Consume(ctx context.Context, raw string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		utils.HashRefreshRaw(raw)).Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, ErrNotFound
	}
	return userID, nil
}

// Revoke deletes the row for the presented raw token and reports how many
// rows went away. Zero is not an error: logout is idempotent, and the
// rotation path uses the count to detect a concurrent exchange losing the
// race (the single-row DELETE is the atomic winner-takes-all step).
func (r *TokenRepo) Revoke(ctx context.Context, raw string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE token_hash=?", utils.HashRefreshRaw(raw))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired reaps rows past their expiry. Expired rows are already
// inert for Consume, so this only reclaims space.
func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
