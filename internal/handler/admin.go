package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/servicedeskai/helpdesk/internal/model"
	"github.com/servicedeskai/helpdesk/internal/repository"
	"github.com/servicedeskai/helpdesk/internal/service"
)

// AdminHandler exposes user management for administrators.
type AdminHandler struct {
	Users *repository.UserRepo
}

func NewAdminHandler(u *repository.UserRepo) *AdminHandler { return &AdminHandler{Users: u} }

type updateRoleReq struct {
	Role string `json:"role"`
}

// ListUsers returns every user's public record.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list users failed"})
	}
	out := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateRole changes a user's role. The role must be one of the closed set;
// anything else is rejected before touching the store.
func (h *AdminHandler) UpdateRole(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req updateRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := model.Role(req.Role)
	if !role.IsValid() {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "invalid input",
			"details": []service.FieldError{{Field: "role", Message: "unknown role"}},
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateRole(ctx, id, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update role failed"})
	}

	u, err := h.Users.FindByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, u.Public())
}
