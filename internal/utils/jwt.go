package utils // package utils provides helper functions for token creation and verification

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for refresh tokens
	"encoding/hex"  // hex encoding functions
	"errors"        // sentinel error for invalid tokens
	"time"          // expiry arithmetic

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens

	"github.com/servicedeskai/helpdesk/internal/model"
)

// ErrInvalidToken is returned by VerifyAccessToken for every failure mode:
// bad signature, unexpected algorithm, malformed payload or expiry. Callers
// must not be able to tell these apart.
var ErrInvalidToken = errors.New("invalid or expired token")

// AccessToken represents a signed JWT access token along with its expiry.
// Access tokens are short-lived, stateless and carried in the Authorization
// header of protected requests.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long-lived opaque token used to obtain new
// access tokens. The Raw field is what the client receives; the database
// only ever sees a SHA-256 digest of it.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// Claims are the verified contents of an access token: the subject user id
// and the role exactly as it was at issuance. The role is not re-read from
// the user store here; a role change only takes effect once the token
// expires or the session refreshes.
type Claims struct {
	UserID uint64
	Role   model.Role
}

// NewAccessToken builds and signs an HS256 JWT for a user. The claims are
// the standard sub/exp/iat plus a role claim. ttlMin controls the lifetime
// in minutes (1440 for the default one-day window).
func NewAccessToken(secret string, userID uint64, role model.Role, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyAccessToken parses and validates a signed access token. Any
// modification to the payload or signature, a non-HMAC signing method, or
// an exp in the past all collapse into ErrInvalidToken.
func VerifyAccessToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything other than HMAC; otherwise a
		// crafted token could pick its own verification scheme.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	var userID uint64
	switch sub := mc["sub"].(type) {
	case float64:
		// JSON numbers decode as float64; user ids fit comfortably.
		userID = uint64(sub)
	default:
		return Claims{}, ErrInvalidToken
	}
	roleStr, _ := mc["role"].(string)
	role := model.Role(roleStr)
	if userID == 0 || !role.IsValid() {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: userID, Role: role}, nil
}

// NewRefreshToken returns a cryptographically random token and its expiry.
// 64 bytes of entropy encoded as 128 hex characters; collisions are treated
// as negligible rather than handled.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	raw, err := randomHex(64)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashRefreshRaw returns the SHA-256 hash of a raw refresh token as a hex
// string. Storing only the digest means a leaked database dump cannot be
// replayed against the refresh endpoint.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
