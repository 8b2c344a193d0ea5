package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/servicedeskai/helpdesk/internal/model"
)

// RequireRole returns a middleware that restricts a route to the given
// roles. It assumes JWTAuth already ran and attached the role to the
// context; a missing or unknown role is rejected the same way as a known
// role outside the allowed set. 403 is distinct from 401 on purpose: the
// caller is authenticated, just not permitted.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(model.Role)
			if !ok || !role.IsValid() || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden: insufficient role"})
			}
			return next(c)
		}
	}
}
