package api

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/paneldeck/paneldeck/internal/config"
	"github.com/paneldeck/paneldeck/internal/logger"
)

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// getStatus reports what a client needs before authenticating: the
// version, whether a password gate is up, and a coarse view of the
// running state.
func (s *Server) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":      config.Version,
		"startTime":    s.startTime.Format(time.RFC3339),
		"requiresAuth": s.authService.RequiresAuth(),
		"panelCount":   len(s.store.Order()),
		"activePanel":  s.store.ActivePanelID(),
		"clients":      s.hub.ClientCount(),
		"watcher":      s.watcherService != nil,
	})
}

// getRecentLogs returns the newest entries from the in-memory ring
// buffer, oldest first.
func (s *Server) getRecentLogs(c echo.Context) error {
	limit := 200
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries := []logger.Entry{}
	if stream := s.log.Streamer(); stream != nil {
		entries = stream.Recent(limit)
	}
	return c.JSON(http.StatusOK, entries)
}

// downloadLogFile serves the current log file for download.
func (s *Server) downloadLogFile(c echo.Context) error {
	path := s.log.LogFilePath()
	if path == "" {
		return echo.NewHTTPError(http.StatusNotFound, "no log file configured")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return echo.NewHTTPError(http.StatusNotFound, "log file not found")
	}
	return c.Attachment(path, "paneldeck.log")
}

func (s *Server) listTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, s.scheduler.ListTasks())
}

func (s *Server) runTask(c echo.Context) error {
	id := c.Param("id")
	if err := s.scheduler.RunNow(id); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"status": "started",
		"taskId": id,
	})
}
