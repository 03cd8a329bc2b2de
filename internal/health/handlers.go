package health

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers exposes the health report over HTTP.
type Handlers struct {
	service *Service
}

func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers health routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.Report)
}

// Report runs all checks and returns the grouped result.
// GET /api/v1/system/health
func (h *Handlers) Report(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Report(c.Request().Context()))
}
