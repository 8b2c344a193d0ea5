package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicedeskai/helpdesk/internal/model"
)

func gateWith(t *testing.T, attached interface{}, allowed ...model.Role) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if attached != nil {
		c.Set(CtxRole, attached)
	}

	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	err := RequireRole(allowed...)(ok)(c)
	require.NoError(t, err)
	return rec
}

func TestRequireRole(t *testing.T) {
	t.Run("allowed role passes through", func(t *testing.T) {
		rec := gateWith(t, model.RoleAdmin, model.RoleAdmin)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("any of several allowed roles passes", func(t *testing.T) {
		rec := gateWith(t, model.RoleServiceDesk, model.RoleServiceDesk, model.RoleAdmin)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("role outside the set is forbidden", func(t *testing.T) {
		rec := gateWith(t, model.RoleStandard, model.RoleServiceDesk, model.RoleAdmin)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "insufficient role")
	})

	t.Run("absent role is forbidden", func(t *testing.T) {
		rec := gateWith(t, nil, model.RoleAdmin)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown role string is forbidden", func(t *testing.T) {
		rec := gateWith(t, model.Role("superuser"), model.RoleAdmin)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
