package notify

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for notification operations.
type Handlers struct {
	center *Center
}

// NewHandlers creates a new notification handlers instance.
func NewHandlers(center *Center) *Handlers {
	return &Handlers{center: center}
}

// RegisterRoutes registers notification routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.DELETE("/:id", h.Dismiss)
	g.DELETE("", h.Clear)
}

// List returns the current notification stack, oldest first.
// GET /api/v1/notifications?panel=panel-1
func (h *Handlers) List(c echo.Context) error {
	if panelID := c.QueryParam("panel"); panelID != "" {
		return c.JSON(http.StatusOK, h.center.ListForPanel(panelID))
	}
	return c.JSON(http.StatusOK, h.center.List())
}

// Dismiss removes a single notification.
// DELETE /api/v1/notifications/:id
func (h *Handlers) Dismiss(c echo.Context) error {
	if !h.center.Dismiss(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// Clear removes all notifications.
// DELETE /api/v1/notifications
func (h *Handlers) Clear(c echo.Context) error {
	cleared := h.center.Clear()
	return c.JSON(http.StatusOK, map[string]int{"cleared": cleared})
}
