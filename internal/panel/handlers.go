package panel

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/paneldeck/paneldeck/internal/storage"
)

// Handlers provides HTTP handlers for panel operations.
type Handlers struct {
	service *Service
}

// NewHandlers creates a new panel handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers panel routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.State)
	g.POST("/layout", h.SetLayout)
	g.POST("/:id/activate", h.Activate)
	g.POST("/:id/navigate", h.Navigate)
	g.POST("/:id/refresh", h.Refresh)
	g.POST("/:id/select", h.Select)
	g.POST("/:id/sorting", h.SetSorting)
	g.POST("/:id/view-mode", h.SetViewMode)
}

// State returns the full panel grid snapshot.
// GET /api/v1/panels
func (h *Handlers) State(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Store().Snapshot())
}

type layoutRequest struct {
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
	Name string `json:"name"`
}

// SetLayout resizes the panel grid.
// POST /api/v1/panels/layout
func (h *Handlers) SetLayout(c echo.Context) error {
	var req layoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.service.ApplyLayout(c.Request().Context(), req.Rows, req.Cols, req.Name); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, h.service.Store().Snapshot())
}

// Activate focuses a panel.
// POST /api/v1/panels/:id/activate
func (h *Handlers) Activate(c echo.Context) error {
	if err := h.service.Store().SetActivePanel(c.Param("id")); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type navigateRequest struct {
	Path string `json:"path"`
}

// Navigate points a panel at a directory.
// POST /api/v1/panels/:id/navigate
func (h *Handlers) Navigate(c echo.Context) error {
	var req navigateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}

	id := c.Param("id")
	if err := h.service.Navigate(c.Request().Context(), id, req.Path); err != nil {
		return mapError(err)
	}

	view, _ := h.service.Store().Panel(id)
	return c.JSON(http.StatusOK, view)
}

// Refresh re-lists a panel's current directory.
// POST /api/v1/panels/:id/refresh
func (h *Handlers) Refresh(c echo.Context) error {
	id := c.Param("id")
	if err := h.service.Refresh(c.Request().Context(), id); err != nil {
		return mapError(err)
	}

	view, _ := h.service.Store().Panel(id)
	return c.JSON(http.StatusOK, view)
}

type selectRequest struct {
	Names  []string `json:"names"`
	Toggle bool     `json:"toggle"`
}

// Select updates a panel's selection.
// POST /api/v1/panels/:id/select
func (h *Handlers) Select(c echo.Context) error {
	var req selectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	id := c.Param("id")
	if err := h.service.Store().SelectFiles(id, req.Names, req.Toggle); err != nil {
		return mapError(err)
	}

	view, _ := h.service.Store().Panel(id)
	return c.JSON(http.StatusOK, view)
}

type sortingRequest struct {
	SortBy    SortKey   `json:"sortBy"`
	SortOrder SortOrder `json:"sortOrder"`
}

// SetSorting changes a panel's listing order.
// POST /api/v1/panels/:id/sorting
func (h *Handlers) SetSorting(c echo.Context) error {
	var req sortingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	id := c.Param("id")
	if err := h.service.Store().SetSorting(id, req.SortBy, req.SortOrder); err != nil {
		return mapError(err)
	}

	view, _ := h.service.Store().Panel(id)
	return c.JSON(http.StatusOK, view)
}

type viewModeRequest struct {
	ViewMode ViewMode `json:"viewMode"`
}

// SetViewMode changes how a panel renders.
// POST /api/v1/panels/:id/view-mode
func (h *Handlers) SetViewMode(c echo.Context) error {
	var req viewModeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	id := c.Param("id")
	if err := h.service.Store().SetViewMode(id, req.ViewMode); err != nil {
		return mapError(err)
	}

	view, _ := h.service.Store().Panel(id)
	return c.JSON(http.StatusOK, view)
}

// mapError translates store and backend sentinels into HTTP errors.
func mapError(err error) error {
	switch {
	case errors.Is(err, ErrPanelNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidLayout),
		errors.Is(err, ErrInvalidViewMode),
		errors.Is(err, ErrInvalidSorting):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrNotDirectory), errors.Is(err, storage.ErrInvalidPath):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrAccessDenied):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
