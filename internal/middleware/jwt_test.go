package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicedeskai/helpdesk/internal/model"
	"github.com/servicedeskai/helpdesk/internal/utils"
)

const testSecret = "test-secret"

// invoke runs a request with the given Authorization header through JWTAuth
// wrapping a probe handler that records what landed in the context.
func invoke(t *testing.T, authHeader string) (*httptest.ResponseRecorder, uint64, model.Role) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/tickets", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotID uint64
	var gotRole model.Role
	probe := func(c echo.Context) error {
		gotID = UserID(c)
		gotRole, _ = c.Get(CtxRole).(model.Role)
		return c.NoContent(http.StatusOK)
	}

	err := JWTAuth(testSecret)(probe)(c)
	require.NoError(t, err)
	return rec, gotID, gotRole
}

func TestJWTAuth(t *testing.T) {
	at, err := utils.NewAccessToken(testSecret, 42, model.RoleServiceDesk, 60)
	require.NoError(t, err)
	expired, err := utils.NewAccessToken(testSecret, 42, model.RoleServiceDesk, -60)
	require.NoError(t, err)

	t.Run("valid token attaches identity", func(t *testing.T) {
		rec, id, role := invoke(t, "Bearer "+at.Token)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, uint64(42), id)
		assert.Equal(t, model.RoleServiceDesk, role)
	})

	t.Run("missing header is unauthenticated", func(t *testing.T) {
		rec, _, _ := invoke(t, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "missing token")
	})

	t.Run("non-bearer scheme is unauthenticated", func(t *testing.T) {
		rec, _, _ := invoke(t, "Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbled token is unauthenticated", func(t *testing.T) {
		rec, _, _ := invoke(t, "Bearer not-a-token")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid or expired token")
	})

	t.Run("expired token is unauthenticated", func(t *testing.T) {
		rec, _, _ := invoke(t, "Bearer "+expired.Token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid or expired token")
	})
}

func TestUserIDWithoutAuth(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, uint64(0), UserID(c))
}
