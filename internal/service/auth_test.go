package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/servicedeskai/helpdesk/internal/config"
	"github.com/servicedeskai/helpdesk/internal/model"
	"github.com/servicedeskai/helpdesk/internal/repository"
)

// MockUserStore is a mock implementation of UserStore.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, name, email, passwordHash string, role model.Role) (uint64, error) {
	args := m.Called(ctx, name, email, passwordHash, role)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) FindByID(ctx context.Context, id uint64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) CountAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockTokenStore is a mock implementation of RefreshTokenStore.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Issue(ctx context.Context, userID uint64, ttlDays int) (string, time.Time, error) {
	args := m.Called(ctx, userID, ttlDays)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockTokenStore) Consume(ctx context.Context, raw string) (uint64, error) {
	args := m.Called(ctx, raw)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockTokenStore) Revoke(ctx context.Context, raw string) (int64, error) {
	args := m.Called(ctx, raw)
	return args.Get(0).(int64), args.Error(1)
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   1440,
		RefreshTTLDays: 7,
		BcryptCost:     bcrypt.MinCost,
	}
}

func futureExp() time.Time { return time.Now().UTC().Add(7 * 24 * time.Hour) }

func TestAuth_Register(t *testing.T) {
	tests := []struct {
		name       string
		inName     string
		inEmail    string
		inPassword string
		setupMock  func(*MockUserStore, *MockTokenStore)
		wantRole   model.Role
		wantErr    error
		wantFields []string
	}{
		{
			name:       "first user ever becomes admin",
			inName:     "Alice",
			inEmail:    "a@x.com",
			inPassword: "secret1",
			setupMock: func(u *MockUserStore, tk *MockTokenStore) {
				u.On("CountAll", mock.Anything).Return(int64(0), nil)
				u.On("Create", mock.Anything, "Alice", "a@x.com", mock.AnythingOfType("string"), model.RoleAdmin).
					Return(uint64(1), nil)
				tk.On("Issue", mock.Anything, uint64(1), 7).Return("refresh-raw", futureExp(), nil)
			},
			wantRole: model.RoleAdmin,
		},
		{
			name:       "subsequent users are standard",
			inName:     "Bob",
			inEmail:    "b@x.com",
			inPassword: "secret2",
			setupMock: func(u *MockUserStore, tk *MockTokenStore) {
				u.On("CountAll", mock.Anything).Return(int64(1), nil)
				u.On("Create", mock.Anything, "Bob", "b@x.com", mock.AnythingOfType("string"), model.RoleStandard).
					Return(uint64(2), nil)
				tk.On("Issue", mock.Anything, uint64(2), 7).Return("refresh-raw", futureExp(), nil)
			},
			wantRole: model.RoleStandard,
		},
		{
			name:       "email is normalized before use",
			inName:     "Carol",
			inEmail:    "  C@X.Com ",
			inPassword: "secret3",
			setupMock: func(u *MockUserStore, tk *MockTokenStore) {
				u.On("CountAll", mock.Anything).Return(int64(2), nil)
				u.On("Create", mock.Anything, "Carol", "c@x.com", mock.AnythingOfType("string"), model.RoleStandard).
					Return(uint64(3), nil)
				tk.On("Issue", mock.Anything, uint64(3), 7).Return("refresh-raw", futureExp(), nil)
			},
			wantRole: model.RoleStandard,
		},
		{
			name:       "duplicate email surfaces as conflict",
			inName:     "Alice",
			inEmail:    "a@x.com",
			inPassword: "secret1",
			setupMock: func(u *MockUserStore, tk *MockTokenStore) {
				u.On("CountAll", mock.Anything).Return(int64(1), nil)
				u.On("Create", mock.Anything, "Alice", "a@x.com", mock.AnythingOfType("string"), model.RoleStandard).
					Return(uint64(0), repository.ErrEmailExists)
			},
			wantErr: repository.ErrEmailExists,
		},
		{
			name:       "all fields invalid",
			inName:     "  ",
			inEmail:    "not-an-email",
			inPassword: "short",
			setupMock:  func(u *MockUserStore, tk *MockTokenStore) {},
			wantFields: []string{"name", "email", "password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserStore)
			tokens := new(MockTokenStore)
			tt.setupMock(users, tokens)

			auth := NewAuth(testConfig(), users, tokens)
			s, err := auth.Register(context.Background(), tt.inName, tt.inEmail, tt.inPassword)

			switch {
			case tt.wantFields != nil:
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				got := make([]string, 0, len(ve.Fields))
				for _, f := range ve.Fields {
					got = append(got, f.Field)
				}
				assert.Equal(t, tt.wantFields, got)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantRole, s.User.Role)
				assert.NotEmpty(t, s.Access.Token)
				assert.Equal(t, "refresh-raw", s.RefreshRaw)
				assert.NotEmpty(t, s.User.Email) // public view populated
			}

			users.AssertExpectations(t)
			tokens.AssertExpectations(t)
		})
	}
}

func TestAuth_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := model.User{ID: 7, Name: "Alice", Email: "a@x.com", PasswordHash: string(hash), Role: model.RoleAdmin}

	t.Run("success mints a new pair", func(t *testing.T) {
		users := new(MockUserStore)
		tokens := new(MockTokenStore)
		users.On("FindByEmail", mock.Anything, "a@x.com").Return(stored, nil)
		tokens.On("Issue", mock.Anything, uint64(7), 7).Return("fresh-refresh", futureExp(), nil)

		auth := NewAuth(testConfig(), users, tokens)
		s, err := auth.Login(context.Background(), "A@X.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, uint64(7), s.User.ID)
		assert.Equal(t, model.RoleAdmin, s.User.Role)
		assert.NotEmpty(t, s.Access.Token)
		assert.Equal(t, "fresh-refresh", s.RefreshRaw)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		users := new(MockUserStore)
		tokens := new(MockTokenStore)
		users.On("FindByEmail", mock.Anything, "a@x.com").Return(stored, nil)
		users.On("FindByEmail", mock.Anything, "nouser@x.com").Return(model.User{}, repository.ErrNotFound)

		auth := NewAuth(testConfig(), users, tokens)

		_, errWrongPass := auth.Login(context.Background(), "a@x.com", "wrongpass")
		_, errNoUser := auth.Login(context.Background(), "nouser@x.com", "whatever")

		assert.ErrorIs(t, errWrongPass, ErrInvalidCredentials)
		assert.ErrorIs(t, errNoUser, ErrInvalidCredentials)
		assert.Equal(t, errWrongPass, errNoUser)
	})

	t.Run("validation failure never touches the store", func(t *testing.T) {
		users := new(MockUserStore)
		tokens := new(MockTokenStore)

		auth := NewAuth(testConfig(), users, tokens)
		_, err := auth.Login(context.Background(), "garbled", "")
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
		users.AssertNotCalled(t, "FindByEmail")
	})
}

func TestAuth_Refresh(t *testing.T) {
	stored := model.User{ID: 7, Name: "Alice", Email: "a@x.com", Role: model.RoleServiceDesk}

	t.Run("rotation spends the old token and issues a new one", func(t *testing.T) {
		users := new(MockUserStore)
		tokens := new(MockTokenStore)
		tokens.On("Consume", mock.Anything, "tokenA").Return(uint64(7), nil)
		users.On("FindByID", mock.Anything, uint64(7)).Return(stored, nil)
		tokens.On("Revoke", mock.Anything, "tokenA").Return(int64(1), nil)
		tokens.On("Issue", mock.Anything, uint64(7), 7).Return("tokenB", futureExp(), nil)

		auth := NewAuth(testConfig(), users, tokens)
		s, err := auth.Refresh(context.Background(), "tokenA")
		require.NoError(t, err)
		assert.Equal(t, "tokenB", s.RefreshRaw)
		// Refresh is the one path that re-reads the current role.
		assert.Equal(t, model.RoleServiceDesk, s.User.Role)
		tokens.AssertExpectations(t)
	})

	t.Run("unknown or expired token fails uniformly", func(t *testing.T) {
		users := new(MockUserStore)
		tokens := new(MockTokenStore)
		tokens.On("Consume", mock.Anything, "tokenA").Return(uint64(0), repository.ErrNotFound)

		auth := NewAuth(testConfig(), users, tokens)
		_, err := auth.Refresh(context.Background(), "tokenA")
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("losing the rotation race fails like a spent token", func(t *testing.T) {
		users := new(MockUserStore)
		tokens := new(MockTokenStore)
		tokens.On("Consume", mock.Anything, "tokenA").Return(uint64(7), nil)
		users.On("FindByID", mock.Anything, uint64(7)).Return(stored, nil)
		// A concurrent refresh deleted the row between Consume and Revoke.
		tokens.On("Revoke", mock.Anything, "tokenA").Return(int64(0), nil)

		auth := NewAuth(testConfig(), users, tokens)
		_, err := auth.Refresh(context.Background(), "tokenA")
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
		tokens.AssertNotCalled(t, "Issue")
	})

	t.Run("orphaned token reports the missing user", func(t *testing.T) {
		users := new(MockUserStore)
		tokens := new(MockTokenStore)
		tokens.On("Consume", mock.Anything, "tokenA").Return(uint64(7), nil)
		users.On("FindByID", mock.Anything, uint64(7)).Return(model.User{}, repository.ErrNotFound)

		auth := NewAuth(testConfig(), users, tokens)
		_, err := auth.Refresh(context.Background(), "tokenA")
		assert.ErrorIs(t, err, ErrUserNotFound)
		tokens.AssertNotCalled(t, "Revoke")
	})
}

func TestAuth_Logout(t *testing.T) {
	t.Run("revoking twice succeeds both times", func(t *testing.T) {
		users := new(MockUserStore)
		tokens := new(MockTokenStore)
		tokens.On("Revoke", mock.Anything, "tokenA").Return(int64(1), nil).Once()
		tokens.On("Revoke", mock.Anything, "tokenA").Return(int64(0), nil).Once()

		auth := NewAuth(testConfig(), users, tokens)
		assert.NoError(t, auth.Logout(context.Background(), "tokenA"))
		assert.NoError(t, auth.Logout(context.Background(), "tokenA"))
		tokens.AssertExpectations(t)
	})
}

func TestAuth_WhoAmI(t *testing.T) {
	users := new(MockUserStore)
	tokens := new(MockTokenStore)
	users.On("FindByID", mock.Anything, uint64(7)).
		Return(model.User{ID: 7, Name: "Alice", Email: "a@x.com", PasswordHash: "hash", Role: model.RoleAdmin}, nil)
	users.On("FindByID", mock.Anything, uint64(8)).Return(model.User{}, repository.ErrNotFound)

	auth := NewAuth(testConfig(), users, tokens)

	u, err := auth.WhoAmI(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)

	_, err = auth.WhoAmI(context.Background(), 8)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
