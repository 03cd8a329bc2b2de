package layout

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for layout preset listing.
type Handlers struct {
	service *Service
}

// NewHandlers creates a new layout handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers layout routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
}

// List returns the presets in cycle order.
// GET /api/v1/layouts
func (h *Handlers) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Presets())
}
