package progress

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for transfer progress records.
type Handlers struct {
	tracker *Tracker
}

// NewHandlers creates a new progress handlers instance.
func NewHandlers(tracker *Tracker) *Handlers {
	return &Handlers{tracker: tracker}
}

// RegisterRoutes registers progress routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Dismiss)
}

// List returns every live progress record. Clients joining mid-transfer
// use this to catch up before following hub events.
// GET /api/v1/progress
func (h *Handlers) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.tracker.All())
}

// Get returns one progress record.
// GET /api/v1/progress/:id
func (h *Handlers) Get(c echo.Context) error {
	record := h.tracker.Get(c.Param("id"))
	if record == nil {
		return echo.NewHTTPError(http.StatusNotFound, "progress record not found")
	}
	return c.JSON(http.StatusOK, record)
}

// Dismiss removes a record immediately instead of waiting for the
// removal timer.
// DELETE /api/v1/progress/:id
func (h *Handlers) Dismiss(c echo.Context) error {
	if !h.tracker.Dismiss(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "progress record not found")
	}
	return c.NoContent(http.StatusNoContent)
}
