package command

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers exposes the command palette over HTTP.
type Handlers struct {
	dispatcher *Dispatcher
}

func NewHandlers(d *Dispatcher) *Handlers {
	return &Handlers{dispatcher: d}
}

func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.search)
	g.POST("/:id/dispatch", h.dispatch)
}

type dispatchRequest struct {
	Panel   string  `json:"panel"`
	Options Options `json:"options"`
}

func (h *Handlers) search(c echo.Context) error {
	ectx, err := h.dispatcher.Context(c.Request().Context(), c.QueryParam("panel"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "panel not found")
	}
	results := h.dispatcher.Registry().Search(c.QueryParam("query"), ectx)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"commands": results,
	})
}

func (h *Handlers) dispatch(c echo.Context) error {
	var req dispatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := h.dispatcher.Dispatch(c.Request().Context(), c.Param("id"), req.Panel, req.Options)
	if err == nil {
		return c.NoContent(http.StatusNoContent)
	}

	var uerr *UnknownCommandError
	if errors.As(err, &uerr) {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error":      uerr.Error(),
			"suggestion": uerr.Suggestion,
		})
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return echo.NewHTTPError(http.StatusBadRequest, verr.Reason)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
