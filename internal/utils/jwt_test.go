package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicedeskai/helpdesk/internal/model"
)

const testSecret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	at, err := NewAccessToken(testSecret, 42, model.RoleServiceDesk, 1440)
	require.NoError(t, err)
	require.NotEmpty(t, at.Token)

	claims, err := VerifyAccessToken(testSecret, at.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, model.RoleServiceDesk, claims.Role)

	// One-day window: expiry lands ~24h out.
	assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), at.Exp, time.Minute)
}

func TestVerifyAccessTokenRejectsTampering(t *testing.T) {
	at, err := NewAccessToken(testSecret, 42, model.RoleStandard, 1440)
	require.NoError(t, err)

	parts := strings.Split(at.Token, ".")
	require.Len(t, parts, 3)

	flip := func(s string) string {
		b := []byte(s)
		mid := len(b) / 2
		if b[mid] == 'A' {
			b[mid] = 'B'
		} else {
			b[mid] = 'A'
		}
		return string(b)
	}

	tampered := []struct {
		name  string
		token string
	}{
		{"payload byte flipped", parts[0] + "." + flip(parts[1]) + "." + parts[2]},
		{"signature byte flipped", parts[0] + "." + parts[1] + "." + flip(parts[2])},
		{"truncated", parts[0] + "." + parts[1]},
		{"garbage", "not-a-jwt"},
	}
	for _, tc := range tampered {
		t.Run(tc.name, func(t *testing.T) {
			_, err := VerifyAccessToken(testSecret, tc.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerifyAccessTokenRejectsWrongSecret(t *testing.T) {
	at, err := NewAccessToken(testSecret, 42, model.RoleStandard, 1440)
	require.NoError(t, err)

	_, err = VerifyAccessToken("another-secret", at.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAccessTokenRejectsExpired(t *testing.T) {
	// Negative TTL produces a token that expired in the past.
	at, err := NewAccessToken(testSecret, 42, model.RoleStandard, -60)
	require.NoError(t, err)

	_, err = VerifyAccessToken(testSecret, at.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAccessTokenRejectsUnsignedAlgorithm(t *testing.T) {
	// alg=none must never verify, whatever the payload says.
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":  42,
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = VerifyAccessToken(testSecret, signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAccessTokenRejectsUnknownRole(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  42,
		"role": "superuser",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = VerifyAccessToken(testSecret, signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewRefreshToken(t *testing.T) {
	rt, err := NewRefreshToken(7)
	require.NoError(t, err)

	// 64 random bytes hex encoded: 128 characters, well past the 256-bit
	// entropy floor.
	assert.Len(t, rt.Raw, 128)
	assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), rt.Exp, time.Minute)

	other, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.NotEqual(t, rt.Raw, other.Raw)
}

func TestHashRefreshRaw(t *testing.T) {
	h1 := HashRefreshRaw("some-token")
	h2 := HashRefreshRaw("some-token")
	h3 := HashRefreshRaw("other-token")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64) // SHA-256 hex
	assert.NotContains(t, h1, "some-token")
}
