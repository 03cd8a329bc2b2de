package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	apimw "github.com/paneldeck/paneldeck/internal/api/middleware"
	"github.com/paneldeck/paneldeck/internal/auth"
	"github.com/paneldeck/paneldeck/internal/command"
	"github.com/paneldeck/paneldeck/internal/dialog"
	"github.com/paneldeck/paneldeck/internal/health"
	"github.com/paneldeck/paneldeck/internal/history"
	"github.com/paneldeck/paneldeck/internal/layout"
	"github.com/paneldeck/paneldeck/internal/notify"
	"github.com/paneldeck/paneldeck/internal/panel"
	"github.com/paneldeck/paneldeck/internal/progress"
	"github.com/paneldeck/paneldeck/internal/transfer"
)

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID
	s.echo.Use(middleware.RequestID())

	// Security headers
	s.echo.Use(apimw.SecurityHeaders())

	// Request body size limit (2MB)
	s.echo.Use(middleware.BodyLimit("2M"))

	// CORS
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Request logging
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Debug().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	// Gzip compression
	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Skip compression for WebSocket
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

// setupRoutes configures API routes. Everything except the health
// check, the status endpoint and the auth endpoints sits behind the
// auth middleware, which passes requests through while no password is
// set.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.getStatus)

	authGroup := api.Group("/auth")
	authGroup.Use(s.authLimiter.Middleware())
	auth.NewHandlers(s.authService).RegisterRoutes(authGroup)

	protected := api.Group("")
	protected.Use(s.authService.Middleware())

	panel.NewHandlers(s.panelService).RegisterRoutes(protected.Group("/panels"))
	command.NewHandlers(s.dispatcher).RegisterRoutes(protected.Group("/commands"))
	transfer.NewHandlers(s.coordinator).RegisterRoutes(protected.Group("/transfers"))
	history.NewHandlers(s.historyService).RegisterRoutes(protected.Group("/history"))
	notify.NewHandlers(s.center).RegisterRoutes(protected.Group("/notifications"))
	progress.NewHandlers(s.tracker).RegisterRoutes(protected.Group("/progress"))
	dialog.NewHandlers(s.dialogs).RegisterRoutes(protected.Group("/dialogs"))
	layout.NewHandlers(s.layoutService).RegisterRoutes(protected.Group("/layouts"))

	s.setupSystemRoutes(protected)
}

func (s *Server) setupSystemRoutes(protected *echo.Group) {
	health.NewHandlers(s.healthService).RegisterRoutes(protected.Group("/system/health"))

	logs := protected.Group("/system/logs")
	logs.GET("", s.getRecentLogs)
	logs.GET("/download", s.downloadLogFile)

	tasksGroup := protected.Group("/system/tasks")
	tasksGroup.GET("", s.listTasks)
	tasksGroup.POST("/:id/run", s.runTask)
}
