package model

import "time"

// RefreshToken models an entry in the `refresh_tokens` table. Each token
// belongs to a user and is good for exactly one exchange: the row is
// deleted the moment it is spent or the session logs out. The plain token
// is never stored; only its SHA-256 hex digest.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the raw token value (unique).
//  ExpiresAt – expiration timestamp; expired rows are inert even before
//              they are physically reaped.
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
