package dialog

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for dialog operations.
type Handlers struct {
	broker *Broker
}

// NewHandlers creates a new dialog handlers instance.
func NewHandlers(broker *Broker) *Handlers {
	return &Handlers{broker: broker}
}

// RegisterRoutes registers dialog routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.Pending)
	g.POST("/:id/answer", h.Answer)
}

// Pending lists dialogs still waiting for an answer.
// GET /api/v1/dialogs
func (h *Handlers) Pending(c echo.Context) error {
	return c.JSON(http.StatusOK, h.broker.Pending())
}

// Answer resolves a pending dialog.
// POST /api/v1/dialogs/:id/answer
func (h *Handlers) Answer(c echo.Context) error {
	var ans Answer
	if err := c.Bind(&ans); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if !h.broker.Deliver(c.Param("id"), ans) {
		return echo.NewHTTPError(http.StatusNotFound, "dialog not found or already answered")
	}
	return c.NoContent(http.StatusNoContent)
}
