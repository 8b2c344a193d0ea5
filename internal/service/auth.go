// Package service holds the business logic that sits between HTTP handlers
// and repositories. The auth service owns the credential lifecycle:
// register, login, refresh-with-rotation, logout and whoami.
package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/servicedeskai/helpdesk/internal/config"
	"github.com/servicedeskai/helpdesk/internal/model"
	"github.com/servicedeskai/helpdesk/internal/repository"
	"github.com/servicedeskai/helpdesk/internal/utils"
)

var (
	// ErrInvalidCredentials is returned when the email is unknown or the
	// password does not match. The two cases are deliberately
	// indistinguishable so login cannot be used to enumerate emails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken is returned when a refresh token is unknown,
	// expired, or already spent. One uniform error, one uniform message.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrUserNotFound is returned when a user record no longer exists, e.g.
	// a refresh token orphaned by an admin-side deletion.
	ErrUserNotFound = errors.New("user not found")
)

// FieldError is a single field-level validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field-level problems with a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string { return "invalid input" }

// dummyHash is a bcrypt digest compared against when login hits an unknown
// email, so that the unknown-email and wrong-password paths cost roughly
// the same. The plaintext behind it is never accepted.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

var emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserStore is the slice of the user repository the auth service needs.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string, role model.Role) (uint64, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByID(ctx context.Context, id uint64) (model.User, error)
	CountAll(ctx context.Context) (int64, error)
}

// RefreshTokenStore is the slice of the token repository the auth service
// needs. Revoke reports the number of rows deleted so rotation can detect
// a lost race.
type RefreshTokenStore interface {
	Issue(ctx context.Context, userID uint64, ttlDays int) (raw string, exp time.Time, err error)
	Consume(ctx context.Context, raw string) (uint64, error)
	Revoke(ctx context.Context, raw string) (int64, error)
}

// Session is what a successful register/login/refresh hands back: the
// public user view plus a fresh access/refresh pair.
type Session struct {
	User       model.PublicUser
	Access     utils.AccessToken
	RefreshRaw string
	RefreshExp time.Time
}

// Auth orchestrates the credential stores and token codecs.
type Auth struct {
	cfg    config.Config
	users  UserStore
	tokens RefreshTokenStore
}

func NewAuth(cfg config.Config, users UserStore, tokens RefreshTokenStore) *Auth {
	return &Auth{cfg: cfg, users: users, tokens: tokens}
}

// Register validates input, creates the user and opens a session. The very
// first user in an empty store becomes admin; everyone after is standard.
func (a *Auth) Register(ctx context.Context, name, email, password string) (Session, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	var fields []FieldError
	if name == "" {
		fields = append(fields, FieldError{Field: "name", Message: "name is required"})
	}
	if !emailRx.MatchString(email) {
		fields = append(fields, FieldError{Field: "email", Message: "invalid email address"})
	}
	if len(password) < 6 {
		fields = append(fields, FieldError{Field: "password", Message: "password must be at least 6 characters"})
	}
	if len(fields) > 0 {
		return Session{}, &ValidationError{Fields: fields}
	}

	hash, err := utils.HashPassword(password, a.cfg.BcryptCost)
	if err != nil {
		return Session{}, err
	}

	count, err := a.users.CountAll(ctx)
	if err != nil {
		return Session{}, err
	}
	role := model.RoleStandard
	if count == 0 {
		role = model.RoleAdmin
	}

	id, err := a.users.Create(ctx, name, email, hash, role)
	if err != nil {
		return Session{}, err // repository.ErrEmailExists surfaces as-is
	}

	return a.openSession(ctx, model.User{ID: id, Name: name, Email: email, Role: role})
}

// Login verifies credentials and opens a fresh session. No prior refresh
// token is reused; every login mints a new pair.
func (a *Auth) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var fields []FieldError
	if !emailRx.MatchString(email) {
		fields = append(fields, FieldError{Field: "email", Message: "invalid email address"})
	}
	if password == "" {
		fields = append(fields, FieldError{Field: "password", Message: "password is required"})
	}
	if len(fields) > 0 {
		return Session{}, &ValidationError{Fields: fields}
	}

	u, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a comparable amount of time before rejecting so the
			// unknown-email path does not return measurably faster.
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}

	return a.openSession(ctx, u)
}

// Refresh exchanges a refresh token for a new access/refresh pair. The old
// token is spent in the process: the conditional single-row delete is the
// atomic step, so of two concurrent exchanges of the same token exactly one
// wins and the other gets ErrInvalidRefreshToken. Unlike raw access-token
// verification, this path re-reads the user's current role.
func (a *Auth) Refresh(ctx context.Context, raw string) (Session, error) {
	userID, err := a.tokens.Consume(ctx, raw)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, ErrInvalidRefreshToken
		}
		return Session{}, err
	}

	u, err := a.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, ErrUserNotFound
		}
		return Session{}, err
	}

	deleted, err := a.tokens.Revoke(ctx, raw)
	if err != nil {
		return Session{}, err
	}
	if deleted == 0 {
		// A concurrent refresh spent this token between our Consume and
		// Revoke. That exchange won; this one must fail.
		return Session{}, ErrInvalidRefreshToken
	}

	return a.openSession(ctx, u)
}

// Logout revokes a refresh token. Revoking an unknown or already-revoked
// token is a no-op, so logout always succeeds from the caller's view.
func (a *Auth) Logout(ctx context.Context, raw string) error {
	_, err := a.tokens.Revoke(ctx, raw)
	return err
}

// WhoAmI returns the public view of the authenticated user.
func (a *Auth) WhoAmI(ctx context.Context, userID uint64) (model.PublicUser, error) {
	u, err := a.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.PublicUser{}, ErrUserNotFound
		}
		return model.PublicUser{}, err
	}
	return u.Public(), nil
}

// openSession mints an access/refresh pair for a user.
func (a *Auth) openSession(ctx context.Context, u model.User) (Session, error) {
	access, err := utils.NewAccessToken(a.cfg.JWTSecret, u.ID, u.Role, a.cfg.AccessTTLMin)
	if err != nil {
		return Session{}, err
	}
	raw, exp, err := a.tokens.Issue(ctx, u.ID, a.cfg.RefreshTTLDays)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u.Public(), Access: access, RefreshRaw: raw, RefreshExp: exp}, nil
}
