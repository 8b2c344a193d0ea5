package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/servicedeskai/helpdesk/internal/middleware"
	"github.com/servicedeskai/helpdesk/internal/model"
	"github.com/servicedeskai/helpdesk/internal/queue"
	"github.com/servicedeskai/helpdesk/internal/repository"
	"github.com/servicedeskai/helpdesk/internal/service"
)

// TicketHandler bundles dependencies for the ticket CRUD endpoints.
type TicketHandler struct {
	Tickets *repository.TicketRepo
	AI      *service.AIClient
}

func NewTicketHandler(t *repository.TicketRepo, ai *service.AIClient) *TicketHandler {
	return &TicketHandler{Tickets: t, AI: ai}
}

// ----- DTOs -----

type createTicketReq struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Media       []string        `json:"media"`
	Location    *model.Location `json:"location"`
}

type updateStatusReq struct {
	Status string `json:"status"`
}

type ticketResp struct {
	ID          uint64          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Media       []string        `json:"media"`
	Location    *model.Location `json:"location,omitempty"`
	AIAnalysis  string          `json:"ai_analysis"`
	CreatedBy   *personPart     `json:"created_by,omitempty"`
	AssignedTo  *personPart     `json:"assigned_to,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type personPart struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func viewResp(tv model.TicketView) ticketResp {
	media := tv.Media
	if media == nil {
		media = []string{}
	}
	out := ticketResp{
		ID:          tv.ID,
		Title:       tv.Title,
		Description: tv.Description,
		Status:      string(tv.Status),
		Media:       media,
		Location:    tv.Location,
		AIAnalysis:  tv.AIAnalysis,
		CreatedBy:   &personPart{ID: tv.CreatedBy, Name: tv.CreatorName, Email: tv.CreatorEmail},
		CreatedAt:   tv.CreatedAt,
		UpdatedAt:   tv.UpdatedAt,
	}
	if tv.AssignedTo != nil {
		out.AssignedTo = &personPart{ID: *tv.AssignedTo, Name: tv.AssigneeName, Email: tv.AssigneeEmail}
	}
	return out
}

// Create stores a new ticket for the caller. When media is attached, each
// file is sent to the image-analysis service; the analyses are joined and
// saved on the ticket. Analysis is best effort and never fails the request.
func (h *TicketHandler) Create(c echo.Context) error {
	var req createTicketReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "invalid input",
			"details": []service.FieldError{{Field: "title", Message: "title is required"}},
		})
	}

	createCtx, createCancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer createCancel()

	t := model.Ticket{
		Title:       req.Title,
		Description: req.Description,
		Media:       req.Media,
		Location:    req.Location,
		CreatedBy:   middleware.UserID(c),
	}

	id, err := h.Tickets.Create(createCtx, t)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create ticket failed"})
	}

	if len(req.Media) > 0 {
		// A separate, longer deadline: the AI service is allowed 15s per
		// image and must not be cut off by the DB timeout above.
		aiCtx, aiCancel := context.WithTimeout(c.Request().Context(), time.Duration(len(req.Media))*20*time.Second)
		analysis := h.AI.AnalyzeAll(aiCtx, req.Media)
		aiCancel()
		if analysis != "" {
			saveCtx, saveCancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			_ = h.Tickets.SetAnalysis(saveCtx, id, analysis)
			saveCancel()
		}
	}

	// Fresh deadline: the analysis step above may have outlived the
	// creation context.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tv, err := h.Tickets.Get(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load ticket failed"})
	}

	// Notify downstream consumers; failures are ignored on purpose.
	_ = queue.PublishTicketCreated(ctx, queue.TicketCreatedEvent{
		TicketID:   id,
		Title:      tv.Title,
		Status:     string(tv.Status),
		CreatedBy:  tv.CreatedBy,
		MediaCount: len(tv.Media),
		CreatedAt:  tv.CreatedAt.UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, viewResp(tv))
}

// List returns tickets visible to the caller: standard users only see their
// own, service desk and admins see everything.
func (h *TicketHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var createdBy uint64
	if role, ok := c.Get(middleware.CtxRole).(model.Role); ok && role == model.RoleStandard {
		createdBy = middleware.UserID(c)
	}

	tvs, err := h.Tickets.List(ctx, createdBy)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list tickets failed"})
	}
	out := make([]ticketResp, 0, len(tvs))
	for _, tv := range tvs {
		out = append(out, viewResp(tv))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns a single ticket with creator and assignee details.
func (h *TicketHandler) Get(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tv, err := h.Tickets.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load ticket failed"})
	}
	return c.JSON(http.StatusOK, viewResp(tv))
}

// UpdateStatus sets a ticket's status (service desk and admin only).
func (h *TicketHandler) UpdateStatus(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var req updateStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status := model.TicketStatus(req.Status)
	if !status.IsValid() {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "invalid input",
			"details": []service.FieldError{{Field: "status", Message: "unknown status"}},
		})
	}

	return h.mutate(c, id, func(ctx context.Context) error {
		return h.Tickets.UpdateStatus(ctx, id, status)
	})
}

// Assign claims the ticket for the calling agent and moves it to
// in_progress.
func (h *TicketHandler) Assign(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	return h.mutate(c, id, func(ctx context.Context) error {
		return h.Tickets.Assign(ctx, id, middleware.UserID(c))
	})
}

// Close marks the ticket closed.
func (h *TicketHandler) Close(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	return h.mutate(c, id, func(ctx context.Context) error {
		return h.Tickets.UpdateStatus(ctx, id, model.StatusClosed)
	})
}

// Delete removes a ticket entirely (admin only).
func (h *TicketHandler) Delete(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tickets.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete ticket failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ticket deleted successfully"})
}

// mutate runs a ticket update and replies with the refreshed view.
func (h *TicketHandler) mutate(c echo.Context, id uint64, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := fn(ctx); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update ticket failed"})
	}
	tv, err := h.Tickets.Get(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load ticket failed"})
	}
	return c.JSON(http.StatusOK, viewResp(tv))
}

func paramID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
