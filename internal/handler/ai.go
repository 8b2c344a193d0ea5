package handler

import (
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/servicedeskai/helpdesk/internal/service"
)

// AIHandler lets clients analyze an already-uploaded file on demand.
type AIHandler struct {
	AI *service.AIClient
}

func NewAIHandler(ai *service.AIClient) *AIHandler { return &AIHandler{AI: ai} }

type analyzeReq struct {
	FileURL string `json:"file_url"`
}

// Analyze posts the referenced upload to the image-analysis service and
// returns its description.
func (h *AIHandler) Analyze(c echo.Context) error {
	var req analyzeReq
	if err := c.Bind(&req); err != nil || req.FileURL == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing file_url"})
	}

	analysis, err := h.AI.AnalyzeFile(c.Request().Context(), req.FileURL)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAIDisabled):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "ai analysis is not configured"})
		case errors.Is(err, os.ErrNotExist):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "file not found"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "ai service error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"analysis": analysis})
}
