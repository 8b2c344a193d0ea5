package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/servicedeskai/helpdesk/internal/model"
	"github.com/servicedeskai/helpdesk/internal/repository"
)

// DashboardHandler serves the aggregate views the service-desk landing page
// polls. Both endpoints sit behind the response cache middleware since the
// numbers tolerate a few seconds of staleness.
type DashboardHandler struct {
	Tickets *repository.TicketRepo
}

func NewDashboardHandler(t *repository.TicketRepo) *DashboardHandler {
	return &DashboardHandler{Tickets: t}
}

// Stats returns ticket counts by status.
func (h *DashboardHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	counts, total, err := h.Tickets.Stats(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stats query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total":       total,
		"open":        counts[model.StatusOpen],
		"assigned":    counts[model.StatusAssigned],
		"in_progress": counts[model.StatusInProgress],
		"closed":      counts[model.StatusClosed],
	})
}

// Recent returns the five newest tickets.
func (h *DashboardHandler) Recent(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tvs, err := h.Tickets.Recent(ctx, 5)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "recent query failed"})
	}
	out := make([]ticketResp, 0, len(tvs))
	for _, tv := range tvs {
		out = append(out, viewResp(tv))
	}
	return c.JSON(http.StatusOK, out)
}
