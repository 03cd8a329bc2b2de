package transfer

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/paneldeck/paneldeck/internal/panel"
)

// Handlers provides HTTP handlers for clipboard, drag and transfer
// operations.
type Handlers struct {
	coordinator *Coordinator
}

// NewHandlers creates a new transfer handlers instance.
func NewHandlers(coordinator *Coordinator) *Handlers {
	return &Handlers{coordinator: coordinator}
}

// RegisterRoutes registers transfer routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/clipboard", h.Clipboard)
	g.POST("/clipboard/copy", h.Copy)
	g.POST("/clipboard/cut", h.Cut)
	g.POST("/clipboard/paste", h.Paste)
	g.DELETE("/clipboard", h.ClearClipboard)
	g.POST("/drag/start", h.DragStart)
	g.PUT("/drag/operation", h.DragOperation)
	g.POST("/drag/drop", h.Drop)
	g.POST("/drag/cancel", h.DragCancel)
	g.GET("/:id", h.Status)
	g.POST("/:id/cancel", h.Cancel)
}

// Clipboard returns the current clipboard slot.
// GET /api/v1/transfers/clipboard
func (h *Handlers) Clipboard(c echo.Context) error {
	return c.JSON(http.StatusOK, h.coordinator.panels.Store().Clipboard())
}

type stageRequest struct {
	Panel string   `json:"panel"`
	Files []string `json:"files"`
}

// Copy stages the named files for copying.
// POST /api/v1/transfers/clipboard/copy
func (h *Handlers) Copy(c echo.Context) error {
	return h.stage(c, panel.OpCopy)
}

// Cut stages the named files for moving.
// POST /api/v1/transfers/clipboard/cut
func (h *Handlers) Cut(c echo.Context) error {
	return h.stage(c, panel.OpCut)
}

func (h *Handlers) stage(c echo.Context, op panel.Operation) error {
	var req stageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	store := h.coordinator.panels.Store()
	panelID := req.Panel
	if panelID == "" {
		panelID = store.ActivePanelID()
	}
	view, ok := store.Panel(panelID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "panel not found")
	}

	names := req.Files
	if len(names) == 0 {
		names = view.SelectedFiles
	}
	files := resolveNames(view, names)
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no files to stage")
	}

	if err := store.StageClipboard(op, files, panelID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, store.Clipboard())
}

type pasteRequest struct {
	Panel string `json:"panel"`
}

// Paste starts an asynchronous transfer of the clipboard set into a
// panel and returns the transfer id.
// POST /api/v1/transfers/clipboard/paste
func (h *Handlers) Paste(c echo.Context) error {
	var req pasteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	panelID := req.Panel
	if panelID == "" {
		panelID = h.coordinator.panels.Store().ActivePanelID()
	}

	id, err := h.coordinator.PasteClipboard(c.Request().Context(), panelID)
	if err != nil {
		return mapTransferError(err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"transferId": id})
}

// ClearClipboard empties the clipboard slot.
// DELETE /api/v1/transfers/clipboard
func (h *Handlers) ClearClipboard(c echo.Context) error {
	h.coordinator.panels.Store().ClearClipboard()
	return c.NoContent(http.StatusNoContent)
}

type dragStartRequest struct {
	Panel     string   `json:"panel"`
	Files     []string `json:"files"`
	Operation string   `json:"operation"`
}

// DragStart stages a drag from a panel.
// POST /api/v1/transfers/drag/start
func (h *Handlers) DragStart(c echo.Context) error {
	var req dragStartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	op := panel.Operation(req.Operation)
	if op == "" {
		op = panel.OpCopy
	}
	if op != panel.OpCopy && op != panel.OpCut {
		return echo.NewHTTPError(http.StatusBadRequest, "operation must be copy or cut")
	}

	if err := h.coordinator.BeginDrag(req.Panel, req.Files, op); err != nil {
		return mapTransferError(err)
	}
	return c.JSON(http.StatusOK, h.coordinator.panels.Store().Drag())
}

type dragOperationRequest struct {
	Operation string `json:"operation"`
}

// DragOperation switches the pending drop between copy and move while
// the drag hovers.
// PUT /api/v1/transfers/drag/operation
func (h *Handlers) DragOperation(c echo.Context) error {
	var req dragOperationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	op := panel.Operation(req.Operation)
	if op != panel.OpCopy && op != panel.OpCut {
		return echo.NewHTTPError(http.StatusBadRequest, "operation must be copy or cut")
	}
	h.coordinator.UpdateDragOperation(op)
	return c.NoContent(http.StatusNoContent)
}

type dropRequest struct {
	Panel string `json:"panel"`
}

// Drop ends the drag on a panel and starts the transfer.
// POST /api/v1/transfers/drag/drop
func (h *Handlers) Drop(c echo.Context) error {
	var req dropRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	id, err := h.coordinator.Drop(c.Request().Context(), req.Panel)
	if err != nil {
		return mapTransferError(err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"transferId": id})
}

// DragCancel discards the drag slot without a drop.
// POST /api/v1/transfers/drag/cancel
func (h *Handlers) DragCancel(c echo.Context) error {
	h.coordinator.CancelDrag()
	return c.NoContent(http.StatusNoContent)
}

// Status returns the retained result of a finished transfer.
// GET /api/v1/transfers/:id
func (h *Handlers) Status(c echo.Context) error {
	res, ok := h.coordinator.Result(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "transfer not found")
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel requests cancellation of a running transfer.
// POST /api/v1/transfers/:id/cancel
func (h *Handlers) Cancel(c echo.Context) error {
	if !h.coordinator.Cancel(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "no active transfer with that id")
	}
	return c.NoContent(http.StatusNoContent)
}

func mapTransferError(err error) error {
	switch {
	case errors.Is(err, ErrEmptyClipboard), errors.Is(err, ErrNoActiveDrag), errors.Is(err, ErrNoFiles):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, panel.ErrPanelNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
